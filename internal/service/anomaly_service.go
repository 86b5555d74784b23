package service

import (
	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/models"
	"github.com/quantrail/reckon/pkg/stats"
	"go.uber.org/zap"
)

// AnomalyService fits an isolation forest over the break population of one
// batch and scores every record through it. The model and scaler live for a
// single call; nothing carries over between batches.
type AnomalyService struct {
	logger        *zap.Logger
	contamination float64
	seed          int64
}

func NewAnomalyService(conf *config.Config, logger *zap.Logger) *AnomalyService {
	return &AnomalyService{
		logger:        logger,
		contamination: conf.Recon.ContaminationOrDefault(),
		seed:          conf.Recon.SeedOrDefault(),
	}
}

// Score flags statistical outliers among the breaks and assigns a continuous
// anomaly score to every record, higher meaning more unusual. A batch without
// breaks gets zeros everywhere and never errors.
func (s *AnomalyService) Score(records []*models.ReconRecord) {
	var breaks []*models.ReconRecord
	for _, r := range records {
		r.IsAnomaly = 0
		r.AnomalyScore = 0
		if r.IsBreak() {
			breaks = append(breaks, r)
		}
	}

	if len(breaks) == 0 {
		return
	}

	var scaler stats.StandardScaler
	scaled := scaler.FitTransform(featureMatrix(breaks))

	forest := stats.NewIsolationForest(s.contamination, s.seed)
	forest.Fit(scaled)

	for i, label := range forest.Predict(scaled) {
		breaks[i].IsAnomaly = label
	}

	// Re-score the whole batch through the fitted scaler and forest so
	// non-break records carry a comparable score for reporting.
	all := scaler.Transform(featureMatrix(records))
	for i, score := range forest.ScoreSamples(all) {
		records[i].AnomalyScore = score
	}

	anomalies := 0
	for _, r := range breaks {
		anomalies += r.IsAnomaly
	}
	s.logger.Info("anomaly model fitted",
		zap.Int("breaks", len(breaks)),
		zap.Int("anomalies", anomalies),
		zap.Float64("contamination", s.contamination))
}

// featureMatrix builds (balance difference, previous balance difference) per
// record, imputing a missing previous difference to zero.
func featureMatrix(records []*models.ReconRecord) [][]float64 {
	x := make([][]float64, len(records))
	for i, r := range records {
		prev := 0.0
		if r.PreviousBalanceDifference.Valid {
			prev = r.PreviousBalanceDifference.Decimal.InexactFloat64()
		}
		x[i] = []float64{r.BalanceDifference.InexactFloat64(), prev}
	}
	return x
}
