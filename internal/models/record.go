package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Match status values.
const (
	StatusMatch = "Match"
	StatusBreak = "Break"
)

// Break classification labels, one per record after classification.
const (
	LabelWithinTolerance      = "Within Tolerance"
	LabelSmallDifference      = "Small Difference"
	LabelNewDifference        = "New Difference"
	LabelLargeDifference      = "Large Difference"
	LabelSignificantVariance  = "Significant Variance"
	LabelDirectionChange      = "Direction Change"
	LabelConsistentDifference = "Consistent Difference"
	LabelModerateDifference   = "Moderate Difference"
)

// ReconRecord is one account-period row carried through the whole pipeline:
// normalized input, computed differences, anomaly flags and classification
// are all columns on the same record.
type ReconRecord struct {
	ID       string `gorm:"primaryKey;type:varchar(26)" json:"id"`
	BatchID  string `gorm:"type:varchar(26);not null;index" json:"batch_id"`
	RowIndex int    `gorm:"not null" json:"row_index"` // original input order, tie-break for equal dates

	// Identity fields
	Company          string `gorm:"type:varchar(100);not null" json:"company"`
	Account          string `gorm:"type:varchar(100);not null;index" json:"account"`
	AccountingUnit   string `gorm:"type:varchar(100);not null" json:"accounting_unit"`
	Currency         string `gorm:"type:varchar(10);not null" json:"currency"`
	PrimaryAccount   string `gorm:"type:varchar(100);not null" json:"primary_account"`
	SecondaryAccount string `gorm:"type:varchar(100);not null" json:"secondary_account"`

	AsofDate time.Time `gorm:"not null;index" json:"asof_date"`

	// Balances, rounded to 2 decimal places by the normalizer
	GLBalance   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"gl_balance"`
	IHUBBalance decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"ihub_balance"`

	// Difference engine output
	BalanceDifference         decimal.Decimal     `gorm:"type:decimal(20,2)" json:"balance_difference"`
	AbsDifference             decimal.Decimal     `gorm:"type:decimal(20,2)" json:"abs_difference"`
	PctDifference             decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"pct_difference"` // null when IHUB balance is zero
	MatchStatus               string              `gorm:"type:varchar(10);index" json:"match_status"`
	PreviousBalanceDifference decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"previous_balance_difference"` // null for the first record of a series
	DifferenceChange          decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"difference_change"`

	// Anomaly scorer and classifier output
	IsAnomaly           int     `gorm:"not null;default:0" json:"is_anomaly"`
	AnomalyScore        float64 `gorm:"type:decimal(10,6)" json:"anomaly_score"`
	BreakClassification string  `gorm:"type:varchar(30);index" json:"break_classification"`
	Comment             string  `gorm:"type:text" json:"comment"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReconRecord) TableName() string {
	return "recon_records"
}

// IdentityKey identifies one reconciling series over time; records sharing it
// are chained chronologically by the difference engine.
func (r *ReconRecord) IdentityKey() string {
	return strings.Join([]string{
		r.Company, r.Account, r.AccountingUnit, r.Currency, r.PrimaryAccount,
	}, "_")
}

// IsBreak reports whether the record is outside tolerance.
func (r *ReconRecord) IsBreak() bool {
	return r.MatchStatus == StatusBreak
}
