package analysis

import (
	"math"
	"math/rand"
	"sort"
)

const eulerGamma = 0.5772156649015329

// IsolationForest is an isolation-style outlier model over one-dimensional amounts.
// Points that are isolated by few random splits score high; the Contamination share of the
// batch with the highest scores is flagged. A fixed Seed makes results repeatable.
type IsolationForest struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
}

// NewIsolationForest returns a forest with 100 trees and samples of up to 256 points.
func NewIsolationForest(contamination float64, seed int64) IsolationForest {
	return IsolationForest{
		Trees:         100,
		SampleSize:    256,
		Contamination: contamination,
		Seed:          seed,
	}
}

type isolationNode struct {
	split       float64
	size        int
	left, right *isolationNode
}

// Flag implements OutlierModel.
func (f IsolationForest) Flag(amounts []float64) []bool {
	n := len(amounts)
	flags := make([]bool, n)
	if n < 2 || f.Contamination <= 0 {
		return flags
	}

	trees := f.Trees
	if trees < 1 {
		trees = 100
	}
	sampleSize := f.SampleSize
	if sampleSize < 2 || sampleSize > n {
		sampleSize = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sampleSize))))

	rng := rand.New(rand.NewSource(f.Seed))
	forest := make([]*isolationNode, trees)
	for t := range forest {
		sample := make([]float64, sampleSize)
		for i, idx := range rng.Perm(n)[:sampleSize] {
			sample[i] = amounts[idx]
		}
		forest[t] = growIsolationTree(rng, sample, 0, heightLimit)
	}

	norm := averagePathLength(sampleSize)
	scores := make([]float64, n)
	for i, a := range amounts {
		var total float64
		for _, tree := range forest {
			total += pathLength(tree, a, 0)
		}
		scores[i] = math.Pow(2, -(total/float64(trees))/norm)
	}

	k := int(math.Ceil(f.Contamination * float64(n)))
	if k > n {
		k = n
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	for _, idx := range order[:k] {
		flags[idx] = true
	}
	return flags
}

func growIsolationTree(rng *rand.Rand, values []float64, depth, limit int) *isolationNode {
	if depth >= limit || len(values) <= 1 {
		return &isolationNode{size: len(values)}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return &isolationNode{size: len(values)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &isolationNode{
		split: split,
		size:  len(values),
		left:  growIsolationTree(rng, left, depth+1, limit),
		right: growIsolationTree(rng, right, depth+1, limit),
	}
}

func pathLength(node *isolationNode, value float64, depth int) float64 {
	if node.left == nil {
		return float64(depth) + averagePathLength(node.size)
	}
	if value < node.split {
		return pathLength(node.left, value, depth+1)
	}
	return pathLength(node.right, value, depth+1)
}

// averagePathLength is the expected path length of an unsuccessful search in a binary
// search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	harmonic := math.Log(float64(n-1)) + eulerGamma
	return 2*harmonic - 2*float64(n-1)/float64(n)
}
