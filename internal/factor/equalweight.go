package factor

import (
	"context"
	"math"
)

// EqualWeight averages all defined factor values per (security, date).
// A slot where every input factor is undefined stays undefined.
type EqualWeight struct{}

// Name implements Strategy.
func (e *EqualWeight) Name() string { return "equal" }

// Clone implements Strategy.
func (e *EqualWeight) Clone() Strategy { return &EqualWeight{} }

// Combine implements Strategy.
func (e *EqualWeight) Combine(_ context.Context, in CombineInput) ([]Series, error) {
	out := make([]Series, len(in.Universe))
	for s := range in.Universe {
		c := make(Series, len(in.Dates))
		for t := range in.Dates {
			c[t] = equalMeanAt(in.Aligned, s, t)
		}
		out[s] = c
	}
	return out, nil
}

// equalMeanAt averages the defined factor values for one (security, date).
func equalMeanAt(aligned [][]Series, s, t int) float64 {
	var sum float64
	var n int
	for f := range aligned {
		if aligned[f][s].Defined(t) {
			sum += aligned[f][s][t]
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
