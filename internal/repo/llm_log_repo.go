package repo

import (
	"context"

	"github.com/go-orz/orz"
	"github.com/quantrail/reckon/internal/models"
	"gorm.io/gorm"
)

func NewLLMLogRepo(db *gorm.DB) *LLMLogRepo {
	return &LLMLogRepo{
		Repository: orz.NewRepository[models.LLMLog, string](db),
	}
}

type LLMLogRepo struct {
	orz.Repository[models.LLMLog, string]
}

// FindByBatchID returns all narrative calls made for one batch.
func (r LLMLogRepo) FindByBatchID(ctx context.Context, batchID string) ([]models.LLMLog, error) {
	var logs []models.LLMLog
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("batch_id = ?", batchID).
		Order("executed_at ASC").
		Find(&logs).Error
	return logs, err
}

// FindRecentLogs returns the latest narrative calls.
func (r LLMLogRepo) FindRecentLogs(ctx context.Context, limit int) ([]models.LLMLog, error) {
	var logs []models.LLMLog
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("executed_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
