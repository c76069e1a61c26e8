package route

import (
	"context"
	"math"
)

const (
	// improvementEpsilon guards against float jitter re-triggering swaps.
	improvementEpsilon = 1e-9

	defaultMaxPasses = 1000
)

// Optimizer orders stops as an open traveling-salesman path: nearest-neighbor
// construction followed by 2-opt improvement. It is a heuristic with a
// bounded budget, not an exact solver.
type Optimizer struct {
	maxPasses int
}

// OptimizerOption configures an Optimizer.
type OptimizerOption func(*Optimizer)

// WithMaxPasses bounds the number of 2-opt improvement passes.
func WithMaxPasses(n int) OptimizerOption {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxPasses = n
		}
	}
}

// NewOptimizer creates an Optimizer. The default pass budget comfortably
// covers a day's worth of visits (a few dozen stops).
func NewOptimizer(opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{maxPasses: defaultMaxPasses}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize returns a visiting order covering every matrix index exactly
// once. startIndex fixes the first stop; pass a negative value to let the
// optimizer pick the greedy start with the shortest tour. Cancelling ctx
// stops improvement early and returns the best order found so far.
func (o *Optimizer) Optimize(ctx context.Context, m Matrix, startIndex int) []int {
	n := len(m)
	switch n {
	case 0:
		return []int{}
	case 1:
		return []int{0}
	}

	start := startIndex
	if start < 0 || start >= n {
		start = bestGreedyStart(m)
	}

	order := nearestNeighbor(m, start)
	return o.twoOpt(ctx, m, order)
}

// nearestNeighbor builds a tour greedily from start, breaking distance ties
// toward the lower index.
func nearestNeighbor(m Matrix, start int) []int {
	n := len(m)
	order := make([]int, 0, n)
	used := make([]bool, n)
	order = append(order, start)
	used[start] = true

	for len(order) < n {
		last := order[len(order)-1]
		best := -1
		bestDist := math.MaxFloat64
		for j := 0; j < n; j++ {
			if used[j] {
				continue
			}
			if d := m[last][j]; d < bestDist {
				bestDist = d
				best = j
			}
		}
		order = append(order, best)
		used[best] = true
	}
	return order
}

// bestGreedyStart returns the start index whose nearest-neighbor tour is
// shortest, preferring the lower index on ties.
func bestGreedyStart(m Matrix) int {
	best := 0
	bestDist := math.MaxFloat64
	for s := 0; s < len(m); s++ {
		if d := m.PathDistance(nearestNeighbor(m, s)); d < bestDist {
			bestDist = d
			best = s
		}
	}
	return best
}

// twoOpt repeatedly reverses path segments while a reversal shortens the
// path. The first position stays fixed. Returns when a full pass finds no
// improvement, the pass budget runs out, or ctx is cancelled.
func (o *Optimizer) twoOpt(ctx context.Context, m Matrix, order []int) []int {
	n := len(order)
	for pass := 0; pass < o.maxPasses; pass++ {
		improved := false
		for i := 1; i < n-1; i++ {
			if ctx.Err() != nil {
				return order
			}
			for j := i + 1; j < n; j++ {
				delta := m[order[i-1]][order[j]] - m[order[i-1]][order[i]]
				if j < n-1 {
					delta += m[order[i]][order[j+1]] - m[order[j]][order[j+1]]
				}
				if delta < -improvementEpsilon {
					reverse(order, i, j)
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return order
}

func reverse(order []int, i, j int) {
	for i < j {
		order[i], order[j] = order[j], order[i]
		i++
		j--
	}
}
