package repo

import (
	"context"

	"github.com/go-orz/orz"
	"github.com/quantrail/reckon/internal/models"
	"gorm.io/gorm"
)

func NewReconBatchRepo(db *gorm.DB) *ReconBatchRepo {
	return &ReconBatchRepo{
		Repository: orz.NewRepository[models.ReconBatch, string](db),
	}
}

type ReconBatchRepo struct {
	orz.Repository[models.ReconBatch, string]
}

// FindRecentBatches returns the latest runs, newest first.
func (r ReconBatchRepo) FindRecentBatches(ctx context.Context, limit int) ([]models.ReconBatch, error) {
	var batches []models.ReconBatch
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("started_at DESC").
		Limit(limit).
		Find(&batches).Error
	return batches, err
}

// ExistsBySource reports whether a batch has already been run for a source file.
func (r ReconBatchRepo) ExistsBySource(ctx context.Context, source string) (bool, error) {
	var count int64
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("source = ?", source).
		Count(&count).Error
	return count > 0, err
}
