package factor

import (
	"context"
	"math"
)

// ICWeight weights each input factor by the trailing mean of its own IC
// against ICHorizon-forward returns, so factors that have been predicting
// recently dominate the composite. Negative IC flips a factor's sign.
type ICWeight struct{}

// Name implements Strategy.
func (w *ICWeight) Name() string { return "ic" }

// Clone implements Strategy.
func (w *ICWeight) Clone() Strategy { return &ICWeight{} }

// Combine implements Strategy.
func (w *ICWeight) Combine(_ context.Context, in CombineInput) ([]Series, error) {
	weights, err := perFactorWeights(in, rollingMean)
	if err != nil {
		return nil, err
	}
	return weightedCombine(in, weights), nil
}

// perFactorWeights computes each input factor's IC series and smooths it
// into a per-date weight with the given rolling reducer.
func perFactorWeights(in CombineInput, reduce func(Series, int) Series) ([]Series, error) {
	rets, err := in.ForwardReturns(in.ICHorizon)
	if err != nil {
		return nil, err
	}
	weights := make([]Series, len(in.Aligned))
	for f := range in.Aligned {
		ic := crossSectionIC(in.Aligned[f], rets, len(in.Dates), in.ICMethod)
		weights[f] = reduce(ic, in.ICHorizon)
	}
	return weights, nil
}

// weightedCombine forms the weighted average of the factor values, using
// |weight| normalization. Dates where no usable weight exists yet (the
// warm-up head of the IC window) fall back to an equal-weight mean so the
// composite does not start with an undefined block.
func weightedCombine(in CombineInput, weights []Series) []Series {
	out := make([]Series, len(in.Universe))
	for s := range in.Universe {
		c := make(Series, len(in.Dates))
		for t := range in.Dates {
			var num, den float64
			for f := range in.Aligned {
				if !weights[f].Defined(t) || !in.Aligned[f][s].Defined(t) {
					continue
				}
				wv := weights[f][t]
				num += wv * in.Aligned[f][s][t]
				den += math.Abs(wv)
			}
			if den > 0 {
				c[t] = num / den
			} else {
				c[t] = equalMeanAt(in.Aligned, s, t)
			}
		}
		out[s] = c
	}
	return out
}
