package service

import (
	"sort"

	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// DifferenceService computes per-record balance differences and links each
// record to the chronologically preceding one sharing its identity key.
type DifferenceService struct {
	logger    *zap.Logger
	tolerance decimal.Decimal
}

func NewDifferenceService(conf *config.Config, logger *zap.Logger) *DifferenceService {
	return &DifferenceService{
		logger:    logger,
		tolerance: decimal.NewFromFloat(conf.Recon.MatchToleranceOrDefault()),
	}
}

// Compute derives difference, match status and temporal linkage for every
// record, in place. Within an identity key records are ordered by as-of date
// with the original input order breaking ties, so re-running over the same
// batch always yields identical output.
func (s *DifferenceService) Compute(records []*models.ReconRecord) []*models.ReconRecord {
	groups := make(map[string][]*models.ReconRecord)
	for _, r := range records {
		key := r.IdentityKey()
		groups[key] = append(groups[key], r)
	}

	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].AsofDate.Equal(group[j].AsofDate) {
				return group[i].AsofDate.Before(group[j].AsofDate)
			}
			return group[i].RowIndex < group[j].RowIndex
		})

		var prev *models.ReconRecord
		for _, r := range group {
			s.computeOne(r, prev)
			prev = r
		}
	}

	return records
}

func (s *DifferenceService) computeOne(r, prev *models.ReconRecord) {
	r.BalanceDifference = r.GLBalance.Sub(r.IHUBBalance)
	r.AbsDifference = r.BalanceDifference.Abs()

	if r.AbsDifference.Cmp(s.tolerance) < 0 {
		r.MatchStatus = models.StatusMatch
	} else {
		r.MatchStatus = models.StatusBreak
	}

	if r.IHUBBalance.IsZero() {
		r.PctDifference = decimal.NullDecimal{}
	} else {
		// stored at a fixed 4 decimal places; decimal division would
		// otherwise carry its default 16-digit precision into the column
		pct := r.BalanceDifference.Mul(hundred).Div(r.IHUBBalance).Round(4)
		r.PctDifference = decimal.NullDecimal{Decimal: pct, Valid: true}
	}

	if prev == nil {
		r.PreviousBalanceDifference = decimal.NullDecimal{}
		r.DifferenceChange = decimal.NullDecimal{}
		return
	}

	r.PreviousBalanceDifference = decimal.NullDecimal{
		Decimal: prev.BalanceDifference,
		Valid:   true,
	}
	r.DifferenceChange = decimal.NullDecimal{
		Decimal: r.BalanceDifference.Sub(prev.BalanceDifference),
		Valid:   true,
	}
}
