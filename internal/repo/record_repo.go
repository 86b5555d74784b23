package repo

import (
	"context"

	"github.com/go-orz/orz"
	"github.com/quantrail/reckon/internal/models"
	"gorm.io/gorm"
)

func NewReconRecordRepo(db *gorm.DB) *ReconRecordRepo {
	return &ReconRecordRepo{
		Repository: orz.NewRepository[models.ReconRecord, string](db),
	}
}

type ReconRecordRepo struct {
	orz.Repository[models.ReconRecord, string]
}

// CreateInBatches persists a whole record set in chunks.
func (r ReconRecordRepo) CreateInBatches(ctx context.Context, records []*models.ReconRecord) error {
	if len(records) == 0 {
		return nil
	}
	db := r.GetDB(ctx)
	return db.CreateInBatches(records, 200).Error
}

// FindByBatch returns every record of a batch in its original input order.
func (r ReconRecordRepo) FindByBatch(ctx context.Context, batchID string) ([]models.ReconRecord, error) {
	var records []models.ReconRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("batch_id = ?", batchID).
		Order("row_index ASC").
		Find(&records).Error
	return records, err
}

// FindBreaksByBatch returns the break records of a batch, most anomalous first.
func (r ReconRecordRepo) FindBreaksByBatch(ctx context.Context, batchID string) ([]models.ReconRecord, error) {
	var records []models.ReconRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("batch_id = ? AND match_status = ?", batchID, models.StatusBreak).
		Order("anomaly_score DESC").
		Find(&records).Error
	return records, err
}

// FindSeries returns the history of one identity key across batches, oldest first.
func (r ReconRecordRepo) FindSeries(ctx context.Context, company, account, accountingUnit, currency, primaryAccount string, limit int) ([]models.ReconRecord, error) {
	var records []models.ReconRecord
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("company = ? AND account = ? AND accounting_unit = ? AND currency = ? AND primary_account = ?",
			company, account, accountingUnit, currency, primaryAccount).
		Order("asof_date ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
