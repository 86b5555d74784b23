package stats

import (
	"math"
	"math/rand"
	"sort"
)

const defaultSubsampleSize = 256

// IsolationForest is an unsupervised outlier detector. Points that are easy
// to isolate by random axis-aligned splits get short average path lengths and
// therefore high anomaly scores. Scores are in (0, 1) and higher means more
// anomalous. The forest is fully deterministic for a given Seed.
type IsolationForest struct {
	Trees         int     // number of trees, default 100
	Contamination float64 // expected outlier fraction, default 0.05
	Seed          int64

	trees      []*isoNode
	sampleSize int
	threshold  float64
	fitted     bool
}

type isoNode struct {
	left, right *isoNode
	splitCol    int
	splitValue  float64
	size        int
}

// NewIsolationForest returns a forest with the given contamination fraction
// and seed, using 100 trees.
func NewIsolationForest(contamination float64, seed int64) *IsolationForest {
	return &IsolationForest{
		Trees:         100,
		Contamination: contamination,
		Seed:          seed,
	}
}

// Fit builds the forest on x and derives the outlier threshold from the
// training scores so that roughly a Contamination fraction of the training
// points fall above it. Fitting on an empty matrix is a no-op.
func (f *IsolationForest) Fit(x [][]float64) {
	f.trees = nil
	f.fitted = false
	if len(x) == 0 {
		return
	}

	trees := f.Trees
	if trees <= 0 {
		trees = 100
	}
	contamination := f.Contamination
	if contamination <= 0 || contamination >= 1 {
		contamination = 0.05
	}

	f.sampleSize = defaultSubsampleSize
	if len(x) < f.sampleSize {
		f.sampleSize = len(x)
	}
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(f.sampleSize), 2))))

	rng := rand.New(rand.NewSource(f.Seed))
	f.trees = make([]*isoNode, trees)
	for i := 0; i < trees; i++ {
		sample := subsample(x, f.sampleSize, rng)
		f.trees[i] = buildIsoTree(sample, 0, heightLimit, rng)
	}
	f.fitted = true

	scores := f.ScoreSamples(x)
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	k := int(math.Ceil(contamination * float64(len(sorted))))
	if k < 1 {
		k = 1
	}
	if k > len(sorted) {
		k = len(sorted)
	}
	f.threshold = sorted[k-1]
}

// ScoreSamples returns the anomaly score of every row. An unfitted forest
// scores everything as 0.
func (f *IsolationForest) ScoreSamples(x [][]float64) []float64 {
	scores := make([]float64, len(x))
	if !f.fitted || len(f.trees) == 0 {
		return scores
	}

	norm := avgPathLength(f.sampleSize)
	for i := range x {
		var sum float64
		for _, tree := range f.trees {
			sum += pathLength(tree, x[i], 0)
		}
		mean := sum / float64(len(f.trees))
		if norm == 0 {
			scores[i] = 0.5
			continue
		}
		scores[i] = math.Pow(2, -mean/norm)
	}
	return scores
}

// Predict labels every row: 1 for outlier, 0 for inlier. The comparison is
// strict so points tied at the threshold stay inliers; a training set of
// identical points flags nothing rather than everything.
func (f *IsolationForest) Predict(x [][]float64) []int {
	labels := make([]int, len(x))
	if !f.fitted {
		return labels
	}
	scores := f.ScoreSamples(x)
	for i, score := range scores {
		if score > f.threshold {
			labels[i] = 1
		}
	}
	return labels
}

func subsample(x [][]float64, size int, rng *rand.Rand) [][]float64 {
	if size >= len(x) {
		return x
	}
	perm := rng.Perm(len(x))
	out := make([][]float64, size)
	for i := 0; i < size; i++ {
		out[i] = x[perm[i]]
	}
	return out
}

func buildIsoTree(x [][]float64, height, limit int, rng *rand.Rand) *isoNode {
	if len(x) <= 1 || height >= limit {
		return &isoNode{size: len(x)}
	}

	cols := len(x[0])
	col := rng.Intn(cols)

	lo, hi := x[0][col], x[0][col]
	for _, row := range x {
		if row[col] < lo {
			lo = row[col]
		}
		if row[col] > hi {
			hi = row[col]
		}
	}
	if lo == hi {
		// try the remaining columns before giving up on this node
		found := false
		for _, c := range rng.Perm(cols) {
			cLo, cHi := x[0][c], x[0][c]
			for _, row := range x {
				if row[c] < cLo {
					cLo = row[c]
				}
				if row[c] > cHi {
					cHi = row[c]
				}
			}
			if cLo != cHi {
				col, lo, hi = c, cLo, cHi
				found = true
				break
			}
		}
		if !found {
			return &isoNode{size: len(x)}
		}
	}

	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range x {
		if row[col] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{size: len(x)}
	}

	return &isoNode{
		left:       buildIsoTree(left, height+1, limit, rng),
		right:      buildIsoTree(right, height+1, limit, rng),
		splitCol:   col,
		splitValue: split,
	}
}

func pathLength(node *isoNode, row []float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if row[node.splitCol] < node.splitValue {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// avgPathLength is the expected path length of an unsuccessful search in a
// binary search tree over n points, the standard isolation forest
// normalization term.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + 0.5772156649 // harmonic number approximation
		return 2*h - 2*float64(n-1)/float64(n)
	}
}
