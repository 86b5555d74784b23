package service

import (
	"testing"
	"time"

	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func record(rowIndex int, asof string, gl, ihub float64) *models.ReconRecord {
	date, err := time.Parse("2006-01-02", asof)
	if err != nil {
		panic(err)
	}
	return &models.ReconRecord{
		RowIndex:       rowIndex,
		Company:        "Co1",
		Account:        "Acc1",
		AccountingUnit: "AU1",
		Currency:       "USD",
		PrimaryAccount: "PA1",
		AsofDate:       date,
		GLBalance:      decimal.NewFromFloat(gl),
		IHUBBalance:    decimal.NewFromFloat(ihub),
	}
}

func TestDifferenceService_Compute(t *testing.T) {
	svc := NewDifferenceService(&config.Config{}, zap.NewNop())

	t.Run("two period series links differences chronologically", func(t *testing.T) {
		jan := record(0, "2024-01-31", 100, 100)
		feb := record(1, "2024-02-29", 105, 100)

		svc.Compute([]*models.ReconRecord{feb, jan})

		assert.Equal(t, models.StatusMatch, jan.MatchStatus)
		assert.True(t, jan.BalanceDifference.IsZero())
		assert.False(t, jan.PreviousBalanceDifference.Valid)
		assert.False(t, jan.DifferenceChange.Valid)

		assert.Equal(t, models.StatusBreak, feb.MatchStatus)
		assert.Equal(t, "5", feb.BalanceDifference.String())
		require.True(t, feb.PreviousBalanceDifference.Valid)
		assert.True(t, feb.PreviousBalanceDifference.Decimal.IsZero())
		require.True(t, feb.DifferenceChange.Valid)
		assert.Equal(t, "5", feb.DifferenceChange.Decimal.String())
	})

	t.Run("difference within tolerance is a match", func(t *testing.T) {
		r := record(0, "2024-01-31", 100.50, 100)

		svc.Compute([]*models.ReconRecord{r})

		assert.Equal(t, models.StatusMatch, r.MatchStatus)
		assert.Equal(t, "0.5", r.BalanceDifference.String())
		assert.Equal(t, "0.5", r.AbsDifference.String())
	})

	t.Run("tolerance boundary is exclusive", func(t *testing.T) {
		r := record(0, "2024-01-31", 101, 100)

		svc.Compute([]*models.ReconRecord{r})

		// |diff| == tolerance counts as a break
		assert.Equal(t, models.StatusBreak, r.MatchStatus)
	})

	t.Run("percentage difference is null when ihub balance is zero", func(t *testing.T) {
		zero := record(0, "2024-01-31", 50, 0)
		nonZero := record(1, "2024-01-31", 110, 100)
		nonZero.Account = "Acc2"

		svc.Compute([]*models.ReconRecord{zero, nonZero})

		assert.False(t, zero.PctDifference.Valid)
		require.True(t, nonZero.PctDifference.Valid)
		assert.Equal(t, "10", nonZero.PctDifference.Decimal.String())
	})

	t.Run("records from different identity keys never link", func(t *testing.T) {
		a := record(0, "2024-01-31", 110, 100)
		b := record(1, "2024-02-29", 120, 100)
		b.Currency = "EUR"

		svc.Compute([]*models.ReconRecord{a, b})

		assert.False(t, b.PreviousBalanceDifference.Valid)
	})

	t.Run("equal dates break ties by input order", func(t *testing.T) {
		first := record(0, "2024-01-31", 110, 100)
		second := record(1, "2024-01-31", 130, 100)

		svc.Compute([]*models.ReconRecord{second, first})

		assert.False(t, first.PreviousBalanceDifference.Valid)
		require.True(t, second.PreviousBalanceDifference.Valid)
		assert.Equal(t, "10", second.PreviousBalanceDifference.Decimal.String())
	})

	t.Run("recomputing yields identical output", func(t *testing.T) {
		records := []*models.ReconRecord{
			record(0, "2024-01-31", 110, 100),
			record(1, "2024-02-29", 95, 100),
			record(2, "2024-03-31", 140, 100),
		}

		svc.Compute(records)
		firstRun := make([]string, len(records))
		for i, r := range records {
			firstRun[i] = r.BalanceDifference.String() + "/" + r.MatchStatus + "/" + r.PreviousBalanceDifference.Decimal.String()
		}

		svc.Compute(records)
		for i, r := range records {
			assert.Equal(t, firstRun[i], r.BalanceDifference.String()+"/"+r.MatchStatus+"/"+r.PreviousBalanceDifference.Decimal.String())
		}
	})
}
