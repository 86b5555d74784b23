package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestInsightService(t *testing.T) *InsightService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.LLMLog{}))

	return NewInsightService(db, nil, NewPromptService(), zap.NewNop(), &config.Config{})
}

func TestInsightService_WithoutModel(t *testing.T) {
	ctx := context.Background()
	svc := newTestInsightService(t)

	t.Run("reports disabled when no client is configured", func(t *testing.T) {
		assert.False(t, svc.Enabled())
	})

	t.Run("annotates with fixed placeholders", func(t *testing.T) {
		records := []*models.ReconRecord{
			{MatchStatus: models.StatusMatch},
			{MatchStatus: models.StatusBreak},
		}

		svc.AnnotateBreaks(ctx, "batch-1", records)

		assert.Equal(t, placeholderMatchComment, records[0].Comment)
		assert.Equal(t, placeholderBreakComment, records[1].Comment)
	})

	t.Run("executive summary falls back to the placeholder", func(t *testing.T) {
		summary := svc.ExecutiveSummary(ctx, "batch-1", BatchStats{Total: 10, Matches: 10})
		assert.Equal(t, placeholderSummary, summary)
	})

	t.Run("no llm calls are logged when disabled", func(t *testing.T) {
		logs, err := svc.FindByBatchID(ctx, "batch-1")
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}

func TestPromptService(t *testing.T) {
	prompts := NewPromptService()

	t.Run("break comment prompt carries the record context", func(t *testing.T) {
		r := &models.ReconRecord{
			Company:           "Co1",
			Account:           "Acc1",
			Currency:          "USD",
			AsofDate:          time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			GLBalance:         decimal.NewFromInt(105),
			IHUBBalance:       decimal.NewFromInt(100),
			BalanceDifference: decimal.NewFromInt(5),
			PreviousBalanceDifference: decimal.NullDecimal{
				Decimal: decimal.Zero, Valid: true,
			},
			BreakClassification: models.LabelSignificantVariance,
			AnomalyScore:        0.62,
		}

		prompt := prompts.BreakCommentPrompt(r)
		assert.Contains(t, prompt, "Co1-Acc1 (USD)")
		assert.Contains(t, prompt, "2024-02-29")
		assert.Contains(t, prompt, "105.00")
		assert.Contains(t, prompt, "5.00")
		assert.Contains(t, prompt, models.LabelSignificantVariance)
		assert.NotContains(t, prompt, "{{")
	})

	t.Run("missing previous difference renders as not available", func(t *testing.T) {
		r := &models.ReconRecord{BreakClassification: models.LabelNewDifference}

		prompt := prompts.BreakCommentPrompt(r)
		assert.Contains(t, prompt, "N/A")
	})

	t.Run("executive summary prompt carries the batch stats", func(t *testing.T) {
		prompt := prompts.ExecutiveSummaryPrompt(BatchStats{
			Total:     200,
			Matches:   180,
			Breaks:    20,
			Anomalies: 3,
			ClassificationCounts: map[string]int{
				models.LabelLargeDifference: 2,
				models.LabelNewDifference:   18,
			},
		})

		assert.Contains(t, prompt, "200")
		assert.Contains(t, prompt, "90.0")
		assert.Contains(t, prompt, "10.0")
		assert.Contains(t, prompt, "Large Difference=2, New Difference=18")
		assert.NotContains(t, prompt, "{{")
	})

	t.Run("empty classification counts render as none", func(t *testing.T) {
		prompt := prompts.ExecutiveSummaryPrompt(BatchStats{Total: 1, Matches: 1})
		assert.Contains(t, prompt, "none")
	})
}
