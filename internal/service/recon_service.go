package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/models"
	"github.com/quantrail/reckon/internal/repo"
	"github.com/quantrail/reckon/internal/telegram"
	"github.com/quantrail/reckon/pkg/ingest"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrBatchNotFound is returned when a batch id does not exist.
var ErrBatchNotFound = errors.New("reconciliation batch not found")

// ReconService sequences the reconciliation pipeline over one raw batch:
// normalize, difference, anomaly scoring, classification, narrative insights,
// persistence. A stage failure aborts the batch and records which stage
// failed and why; there is no partial record output and no automatic retry.
type ReconService struct {
	logger *zap.Logger

	*orz.Service
	*repo.ReconBatchRepo
	*repo.ReconRecordRepo

	normalizer *NormalizerService
	differ     *DifferenceService
	anomaly    *AnomalyService
	classifier *ClassifierService
	insight    *InsightService

	tg     *telegram.Telegram // nil when alerts are disabled
	chatID string
}

func NewReconService(
	db *gorm.DB,
	normalizer *NormalizerService,
	differ *DifferenceService,
	anomaly *AnomalyService,
	classifier *ClassifierService,
	insight *InsightService,
	tg *telegram.Telegram,
	logger *zap.Logger,
	conf *config.Config,
) *ReconService {
	return &ReconService{
		logger:          logger,
		Service:         orz.NewService(db),
		ReconBatchRepo:  repo.NewReconBatchRepo(db),
		ReconRecordRepo: repo.NewReconRecordRepo(db),
		normalizer:      normalizer,
		differ:          differ,
		anomaly:         anomaly,
		classifier:      classifier,
		insight:         insight,
		tg:              tg,
		chatID:          conf.Telegram.ChatID,
	}
}

// ExecuteBatch runs the whole pipeline over one raw batch and persists the
// result. The returned batch row carries the aggregate counts, the executive
// summary and, on failure, the failing stage and cause.
func (s *ReconService) ExecuteBatch(ctx context.Context, raw *ingest.RawBatch) (*models.ReconBatch, error) {
	batchStart := time.Now()
	batch := &models.ReconBatch{
		ID:        ulid.Make().String(),
		Source:    raw.Source,
		Status:    models.BatchStatusRunning,
		Columns:   datatypes.NewJSONSlice(raw.Columns),
		StartedAt: batchStart,
	}
	if err := s.ReconBatchRepo.Create(ctx, batch); err != nil {
		return nil, err
	}

	s.logger.Info("========== RECONCILIATION BATCH START ==========",
		zap.String("batch_id", batch.ID),
		zap.String("source", raw.Source),
		zap.Int("rows", len(raw.Rows)))

	// ========== Step 1: normalize ==========
	s.logger.Info("[STEP 1/6] Normalizing raw rows...")
	normalized, err := s.normalizer.Normalize(raw)
	if err != nil {
		return batch, s.failBatch(ctx, batch, "normalize", err)
	}
	batch.DroppedRows = normalized.Dropped
	records := normalized.Records
	s.logger.Info("[STEP 1/6] Rows normalized",
		zap.Int("records", len(records)),
		zap.Int("dropped", normalized.Dropped))

	// ========== Step 2: differences and temporal linkage ==========
	s.logger.Info("[STEP 2/6] Computing balance differences...")
	records = s.differ.Compute(records)
	s.logger.Info("[STEP 2/6] Differences computed")

	// ========== Step 3: anomaly scoring ==========
	s.logger.Info("[STEP 3/6] Scoring break anomalies...")
	s.anomaly.Score(records)
	s.logger.Info("[STEP 3/6] Anomalies scored")

	// ========== Step 4: break classification ==========
	s.logger.Info("[STEP 4/6] Classifying breaks...")
	if err := s.classifier.Classify(records); err != nil {
		return batch, s.failBatch(ctx, batch, "classify", err)
	}
	s.logger.Info("[STEP 4/6] Breaks classified")

	for _, r := range records {
		r.ID = ulid.Make().String()
		r.BatchID = batch.ID
	}
	stats := collectStats(records)

	// ========== Step 5: narrative insights (never fatal) ==========
	s.logger.Info("[STEP 5/6] Generating narrative insights...",
		zap.Bool("llm_enabled", s.insight.Enabled()))
	s.insight.AnnotateBreaks(ctx, batch.ID, records)
	summary := s.insight.ExecutiveSummary(ctx, batch.ID, stats)
	s.logger.Info("[STEP 5/6] Narrative insights generated")

	// ========== Step 6: persist ==========
	s.logger.Info("[STEP 6/6] Persisting results...")
	if err := s.ReconRecordRepo.CreateInBatches(ctx, records); err != nil {
		return batch, s.failBatch(ctx, batch, "persist", err)
	}

	now := time.Now()
	batch.Status = models.BatchStatusCompleted
	batch.TotalRecords = stats.Total
	batch.MatchCount = stats.Matches
	batch.BreakCount = stats.Breaks
	batch.AnomalyCount = stats.Anomalies
	batch.ClassificationCounts = datatypes.NewJSONType(stats.ClassificationCounts)
	batch.Summary = summary
	batch.FinishedAt = &now
	if err := s.ReconBatchRepo.GetDB(ctx).Save(batch).Error; err != nil {
		return batch, err
	}
	s.logger.Info("[STEP 6/6] Results persisted")

	s.logger.Info("========== RECONCILIATION BATCH END ==========",
		zap.String("batch_id", batch.ID),
		zap.Duration("duration", time.Since(batchStart)),
		zap.Int("records", stats.Total),
		zap.Int("matches", stats.Matches),
		zap.Int("breaks", stats.Breaks),
		zap.Int("anomalies", stats.Anomalies))

	s.notifyCompleted(batch)
	return batch, nil
}

// failBatch marks the batch failed with the failing stage and cause. The
// original stage error propagates unmodified to the caller.
func (s *ReconService) failBatch(ctx context.Context, batch *models.ReconBatch, stage string, cause error) error {
	s.logger.Error("batch aborted",
		zap.String("batch_id", batch.ID),
		zap.String("stage", stage),
		zap.Error(cause))

	now := time.Now()
	batch.Status = models.BatchStatusFailed
	batch.FailedStage = stage
	batch.Error = cause.Error()
	batch.FinishedAt = &now
	if err := s.ReconBatchRepo.GetDB(ctx).Save(batch).Error; err != nil {
		s.logger.Error("failed to record batch failure", zap.Error(err))
	}

	if s.tg != nil {
		if err := s.tg.Notify(s.chatID, telegram.FormatBatchFailure(batch.Source, stage, cause.Error())); err != nil {
			s.logger.Warn("failed to send failure alert", zap.Error(err))
		}
	}
	return cause
}

func (s *ReconService) notifyCompleted(batch *models.ReconBatch) {
	if s.tg == nil {
		return
	}
	msg := telegram.FormatBatchReport(batch.Source, batch.TotalRecords, batch.MatchCount, batch.BreakCount, batch.AnomalyCount)
	if err := s.tg.Notify(s.chatID, msg); err != nil {
		s.logger.Warn("failed to send batch alert", zap.Error(err))
	}
}

func collectStats(records []*models.ReconRecord) BatchStats {
	stats := BatchStats{
		Total:                len(records),
		ClassificationCounts: make(map[string]int),
	}
	for _, r := range records {
		if r.IsBreak() {
			stats.Breaks++
		} else {
			stats.Matches++
		}
		stats.Anomalies += r.IsAnomaly
		if r.BreakClassification != "" {
			stats.ClassificationCounts[r.BreakClassification]++
		}
	}
	return stats
}

// AlreadyProcessed reports whether a source file already has a batch.
func (s *ReconService) AlreadyProcessed(ctx context.Context, source string) (bool, error) {
	return s.ReconBatchRepo.ExistsBySource(ctx, source)
}

// GetBatch loads one batch row.
func (s *ReconService) GetBatch(ctx context.Context, id string) (*models.ReconBatch, error) {
	var batch models.ReconBatch
	err := s.ReconBatchRepo.GetDB(ctx).Where("id = ?", id).First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// RecentBatches returns the latest runs, newest first.
func (s *ReconService) RecentBatches(ctx context.Context, limit int) ([]models.ReconBatch, error) {
	return s.ReconBatchRepo.FindRecentBatches(ctx, limit)
}

// BatchRecords returns every record of a batch in input order.
func (s *ReconService) BatchRecords(ctx context.Context, batchID string) ([]models.ReconRecord, error) {
	return s.ReconRecordRepo.FindByBatch(ctx, batchID)
}

// BatchBreaks returns the break records of a batch, most anomalous first.
func (s *ReconService) BatchBreaks(ctx context.Context, batchID string) ([]models.ReconRecord, error) {
	return s.ReconRecordRepo.FindBreaksByBatch(ctx, batchID)
}

// Series returns the reconciliation history of one identity key, oldest first.
func (s *ReconService) Series(ctx context.Context, company, account, accountingUnit, currency, primaryAccount string, limit int) ([]models.ReconRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.ReconRecordRepo.FindSeries(ctx, company, account, accountingUnit, currency, primaryAccount, limit)
}
