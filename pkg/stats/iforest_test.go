package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterWithOutlier() [][]float64 {
	x := make([][]float64, 0, 41)
	for i := 0; i < 20; i++ {
		x = append(x, []float64{float64(i%5) * 0.1, float64(i%7) * 0.1})
		x = append(x, []float64{-float64(i%5) * 0.1, -float64(i%3) * 0.1})
	}
	x = append(x, []float64{50, -50}) // far away from the cluster
	return x
}

func TestIsolationForest(t *testing.T) {
	t.Run("flags the obvious outlier", func(t *testing.T) {
		x := clusterWithOutlier()
		forest := NewIsolationForest(0.05, 42)
		forest.Fit(x)

		scores := forest.ScoreSamples(x)
		labels := forest.Predict(x)
		require.Len(t, labels, len(x))

		outlierIdx := len(x) - 1
		assert.Equal(t, 1, labels[outlierIdx])
		for i, score := range scores {
			if i == outlierIdx {
				continue
			}
			assert.Less(t, score, scores[outlierIdx], "cluster point %d scored above the outlier", i)
		}
	})

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		x := clusterWithOutlier()

		a := NewIsolationForest(0.05, 42)
		a.Fit(x)
		b := NewIsolationForest(0.05, 42)
		b.Fit(x)

		assert.Equal(t, a.ScoreSamples(x), b.ScoreSamples(x))
		assert.Equal(t, a.Predict(x), b.Predict(x))
	})

	t.Run("labels are binary", func(t *testing.T) {
		x := clusterWithOutlier()
		forest := NewIsolationForest(0.1, 7)
		forest.Fit(x)

		for _, label := range forest.Predict(x) {
			assert.Contains(t, []int{0, 1}, label)
		}
	})

	t.Run("unfitted forest scores zeros", func(t *testing.T) {
		forest := NewIsolationForest(0.05, 42)

		assert.Equal(t, []float64{0, 0}, forest.ScoreSamples([][]float64{{1, 2}, {3, 4}}))
		assert.Equal(t, []int{0, 0}, forest.Predict([][]float64{{1, 2}, {3, 4}}))
	})

	t.Run("identical points are all inliers", func(t *testing.T) {
		x := make([][]float64, 40)
		for i := range x {
			x[i] = []float64{10, 10}
		}
		forest := NewIsolationForest(0.05, 42)
		forest.Fit(x)

		// Every point ties at the threshold, so nothing stands out.
		for i, label := range forest.Predict(x) {
			assert.Equal(t, 0, label, "identical point %d flagged as anomaly", i)
		}
	})

	t.Run("single sample does not panic", func(t *testing.T) {
		forest := NewIsolationForest(0.05, 42)
		forest.Fit([][]float64{{1, 1}})

		scores := forest.ScoreSamples([][]float64{{1, 1}})
		require.Len(t, scores, 1)
		labels := forest.Predict([][]float64{{1, 1}})
		require.Len(t, labels, 1)
	})

	t.Run("fit on empty matrix is a no-op", func(t *testing.T) {
		forest := NewIsolationForest(0.05, 42)
		forest.Fit(nil)

		assert.Equal(t, []float64{0}, forest.ScoreSamples([][]float64{{1, 2}}))
	})
}
