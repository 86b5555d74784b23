package stats

import "math"

// StandardScaler centers features to zero mean and scales them to unit
// variance, column by column. Fit computes the statistics, Transform applies
// them; a fitted scaler can transform data it was not fitted on.
type StandardScaler struct {
	Means []float64
	Stds  []float64
}

// Fit computes per-column mean and standard deviation.
func (s *StandardScaler) Fit(x [][]float64) {
	if len(x) == 0 {
		s.Means = nil
		s.Stds = nil
		return
	}

	cols := len(x[0])
	s.Means = make([]float64, cols)
	s.Stds = make([]float64, cols)

	for j := 0; j < cols; j++ {
		var sum float64
		for i := range x {
			sum += x[i][j]
		}
		mean := sum / float64(len(x))

		var sq float64
		for i := range x {
			d := x[i][j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(x)))
		if std == 0 {
			// constant column, leave values centered but unscaled
			std = 1
		}

		s.Means[j] = mean
		s.Stds[j] = std
	}
}

// Transform applies the fitted statistics, returning a new matrix.
func (s *StandardScaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i := range x {
		row := make([]float64, len(x[i]))
		for j := range x[i] {
			if j < len(s.Means) {
				row[j] = (x[i][j] - s.Means[j]) / s.Stds[j]
			} else {
				row[j] = x[i][j]
			}
		}
		out[i] = row
	}
	return out
}

// FitTransform fits the scaler and transforms the same data.
func (s *StandardScaler) FitTransform(x [][]float64) [][]float64 {
	s.Fit(x)
	return s.Transform(x)
}
