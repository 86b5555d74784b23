package service

import (
	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// breakRule is one predicate of the ordered classification chain. d is the
// current balance difference, p the previous one; hasPrev is false for the
// first record of a series.
type breakRule struct {
	label   string
	matches func(d, p decimal.Decimal, hasPrev bool) bool
}

// ClassifierService assigns every record exactly one classification label by
// evaluating a fixed, ordered rule chain. First matching rule wins, and the
// final rule always matches, so classification is total and deterministic.
type ClassifierService struct {
	logger *zap.Logger
	rules  []breakRule
}

func NewClassifierService(conf *config.Config, logger *zap.Logger) *ClassifierService {
	small := decimal.NewFromFloat(conf.Recon.MatchToleranceOrDefault())
	large := decimal.NewFromFloat(conf.Recon.LargeDifferenceOrDefault())
	varianceRatio := decimal.NewFromFloat(conf.Recon.VarianceRatioOrDefault())
	consistentRatio := decimal.NewFromFloat(0.1)

	return &ClassifierService{
		logger: logger,
		rules: []breakRule{
			{models.LabelSmallDifference, func(d, p decimal.Decimal, hasPrev bool) bool {
				return d.Abs().Cmp(small) < 0
			}},
			{models.LabelNewDifference, func(d, p decimal.Decimal, hasPrev bool) bool {
				return !hasPrev
			}},
			{models.LabelLargeDifference, func(d, p decimal.Decimal, hasPrev bool) bool {
				return d.Abs().Cmp(large) > 0
			}},
			{models.LabelSignificantVariance, func(d, p decimal.Decimal, hasPrev bool) bool {
				return d.Sub(p).Abs().Cmp(p.Abs().Mul(varianceRatio)) > 0
			}},
			{models.LabelDirectionChange, func(d, p decimal.Decimal, hasPrev bool) bool {
				return d.Sign() != p.Sign()
			}},
			{models.LabelConsistentDifference, func(d, p decimal.Decimal, hasPrev bool) bool {
				return d.Sub(p).Abs().Cmp(p.Abs().Mul(consistentRatio)) < 0
			}},
			{models.LabelModerateDifference, func(d, p decimal.Decimal, hasPrev bool) bool {
				return true
			}},
		},
	}
}

// Classify labels every record in place. It requires match status to be
// populated, i.e. the difference engine must have run first.
func (s *ClassifierService) Classify(records []*models.ReconRecord) error {
	for _, r := range records {
		if r.MatchStatus == "" {
			return &PrecedingStageError{Stage: "classifier", Missing: "match_status"}
		}
	}

	for _, r := range records {
		r.BreakClassification = s.classifyOne(r)
	}
	return nil
}

func (s *ClassifierService) classifyOne(r *models.ReconRecord) string {
	if !r.IsBreak() {
		return models.LabelWithinTolerance
	}

	d := r.BalanceDifference
	p := r.PreviousBalanceDifference.Decimal
	hasPrev := r.PreviousBalanceDifference.Valid

	for _, rule := range s.rules {
		if rule.matches(d, p, hasPrev) {
			return rule.label
		}
	}
	// unreachable, the last rule is a catch-all
	return models.LabelModerateDifference
}
