package service

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/models"
	"github.com/quantrail/reckon/pkg/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestReconService(t *testing.T) *ReconService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		models.ReconBatch{}, models.ReconRecord{}, models.LLMLog{},
	))

	logger := zap.NewNop()
	conf := &config.Config{}

	return NewReconService(
		db,
		NewNormalizerService(logger),
		NewDifferenceService(conf, logger),
		NewAnomalyService(conf, logger),
		NewClassifierService(conf, logger),
		NewInsightService(db, nil, NewPromptService(), logger, conf),
		nil,
		logger,
		conf,
	)
}

func seriesRow(asof, account, gl, ihub string) map[string]string {
	return map[string]string{
		ColAsofDate:         asof,
		ColCompany:          "Co1",
		ColAccount:          account,
		ColAccountingUnit:   "AU1",
		ColCurrency:         "USD",
		ColPrimaryAccount:   "PA1",
		ColSecondaryAccount: "SA1",
		ColGLBalance:        gl,
		ColIHUBBalance:      ihub,
	}
}

func TestReconService_ExecuteBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("full pipeline over a two period series", func(t *testing.T) {
		svc := newTestReconService(t)

		raw := &ingest.RawBatch{
			Source:  "feed-2024-02.csv",
			Columns: RequiredColumns,
			Rows: []map[string]string{
				seriesRow("2024-01-31", "Acc1", "100", "100"),
				seriesRow("2024-02-29", "Acc1", "105", "100"),
				seriesRow("2024-02-29", "Acc2", "50", "50"),
				seriesRow("not-a-date", "Acc3", "10", "10"),
			},
		}

		batch, err := svc.ExecuteBatch(ctx, raw)
		require.NoError(t, err)
		require.NotNil(t, batch)

		assert.Equal(t, models.BatchStatusCompleted, batch.Status)
		assert.Equal(t, 3, batch.TotalRecords)
		assert.Equal(t, 1, batch.DroppedRows)
		assert.Equal(t, 2, batch.MatchCount)
		assert.Equal(t, 1, batch.BreakCount)
		assert.NotNil(t, batch.FinishedAt)
		assert.Equal(t, placeholderSummary, batch.Summary)

		counts := batch.ClassificationCounts.Data()
		assert.Equal(t, 2, counts[models.LabelWithinTolerance])
		assert.Equal(t, 1, counts[models.LabelSignificantVariance])

		records, err := svc.BatchRecords(ctx, batch.ID)
		require.NoError(t, err)
		require.Len(t, records, 3)

		// persisted in original input order
		jan, feb, acc2 := records[0], records[1], records[2]
		assert.Equal(t, models.StatusMatch, jan.MatchStatus)
		assert.Equal(t, placeholderMatchComment, jan.Comment)

		assert.Equal(t, models.StatusBreak, feb.MatchStatus)
		assert.Equal(t, "5", feb.BalanceDifference.String())
		require.True(t, feb.PreviousBalanceDifference.Valid)
		assert.True(t, feb.PreviousBalanceDifference.Decimal.IsZero())
		assert.Equal(t, models.LabelSignificantVariance, feb.BreakClassification)
		assert.Equal(t, placeholderBreakComment, feb.Comment)

		assert.Equal(t, models.StatusMatch, acc2.MatchStatus)
		assert.Equal(t, models.LabelWithinTolerance, acc2.BreakClassification)

		breaks, err := svc.BatchBreaks(ctx, batch.ID)
		require.NoError(t, err)
		require.Len(t, breaks, 1)
		assert.Equal(t, "Acc1", breaks[0].Account)
	})

	t.Run("zero break batch completes with zero counts", func(t *testing.T) {
		svc := newTestReconService(t)

		raw := &ingest.RawBatch{
			Source:  "clean.csv",
			Columns: RequiredColumns,
			Rows: []map[string]string{
				seriesRow("2024-01-31", "Acc1", "100", "100"),
				seriesRow("2024-01-31", "Acc2", "200", "200.50"),
			},
		}

		batch, err := svc.ExecuteBatch(ctx, raw)
		require.NoError(t, err)

		assert.Equal(t, models.BatchStatusCompleted, batch.Status)
		assert.Equal(t, 0, batch.BreakCount)
		assert.Equal(t, 0, batch.AnomalyCount)

		records, err := svc.BatchRecords(ctx, batch.ID)
		require.NoError(t, err)
		for _, r := range records {
			assert.Equal(t, 0, r.IsAnomaly)
			assert.Zero(t, r.AnomalyScore)
		}
	})

	t.Run("schema failure marks the batch failed at the normalize stage", func(t *testing.T) {
		svc := newTestReconService(t)

		raw := &ingest.RawBatch{
			Source:  "broken.csv",
			Columns: []string{ColAsofDate, ColCompany},
			Rows:    []map[string]string{{ColAsofDate: "2024-01-31", ColCompany: "Co1"}},
		}

		batch, err := svc.ExecuteBatch(ctx, raw)
		require.Error(t, err)

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr))

		require.NotNil(t, batch)
		assert.Equal(t, models.BatchStatusFailed, batch.Status)
		assert.Equal(t, "normalize", batch.FailedStage)
		assert.NotEmpty(t, batch.Error)

		stored, err := svc.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusFailed, stored.Status)
		assert.Equal(t, "normalize", stored.FailedStage)
	})

	t.Run("unknown batch id yields a not found error", func(t *testing.T) {
		svc := newTestReconService(t)

		_, err := svc.GetBatch(ctx, "nope")
		assert.ErrorIs(t, err, ErrBatchNotFound)
	})

	t.Run("already processed sources are recognized", func(t *testing.T) {
		svc := newTestReconService(t)

		raw := &ingest.RawBatch{
			Source:  "feed.csv",
			Columns: RequiredColumns,
			Rows:    []map[string]string{seriesRow("2024-01-31", "Acc1", "1", "1")},
		}
		_, err := svc.ExecuteBatch(ctx, raw)
		require.NoError(t, err)

		processed, err := svc.AlreadyProcessed(ctx, "feed.csv")
		require.NoError(t, err)
		assert.True(t, processed)

		processed, err = svc.AlreadyProcessed(ctx, "other.csv")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("series spans batches for one identity key", func(t *testing.T) {
		svc := newTestReconService(t)

		for _, rows := range [][]map[string]string{
			{seriesRow("2024-01-31", "Acc1", "100", "100")},
			{seriesRow("2024-02-29", "Acc1", "105", "100")},
		} {
			raw := &ingest.RawBatch{Source: rows[0][ColAsofDate] + ".csv", Columns: RequiredColumns, Rows: rows}
			_, err := svc.ExecuteBatch(ctx, raw)
			require.NoError(t, err)
		}

		series, err := svc.Series(ctx, "Co1", "Acc1", "AU1", "USD", "PA1", 0)
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.True(t, series[0].AsofDate.Before(series[1].AsofDate))
	})
}
