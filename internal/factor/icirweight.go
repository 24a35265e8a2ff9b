package factor

import "context"

// ICIRWeight weights each input factor by the trailing mean/stddev ratio of
// its IC series: a factor must predict consistently, not just strongly, to
// earn weight.
type ICIRWeight struct{}

// Name implements Strategy.
func (w *ICIRWeight) Name() string { return "icir" }

// Clone implements Strategy.
func (w *ICIRWeight) Clone() Strategy { return &ICIRWeight{} }

// Combine implements Strategy.
func (w *ICIRWeight) Combine(_ context.Context, in CombineInput) ([]Series, error) {
	weights, err := perFactorWeights(in, rollingMeanStd)
	if err != nil {
		return nil, err
	}
	return weightedCombine(in, weights), nil
}
