package signals

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/factorlab/internal/contracts"
)

// ForeignFlow scores cumulative net foreign buying over a trailing window.
// Sustained foreign accumulation scores high.
type ForeignFlow struct {
	flows  FlowSource
	window int
}

// NewForeignFlow creates a foreign flow source. Typical window is 5 days.
func NewForeignFlow(flows FlowSource, window int) *ForeignFlow {
	return &ForeignFlow{flows: flows, window: window}
}

// Name implements contracts.FactorSource.
func (f *ForeignFlow) Name() string {
	return fmt.Sprintf("foreign_flow_%dd", f.window)
}

// Series implements contracts.FactorSource.
func (f *ForeignFlow) Series(ctx context.Context, sec contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error) {
	ts, err := f.flows.ForeignNetSeries(ctx, sec, padded(query, f.window))
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("foreign flow: load flows for %s: %w", sec, err)
	}

	values := make([]float64, len(ts.Values))
	for i := range ts.Values {
		if i+1 < f.window {
			values[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - f.window + 1; j <= i; j++ {
			sum += ts.Values[j]
		}
		values[i] = sum
	}

	return contracts.TimeSeries{Dates: ts.Dates, Values: values}, nil
}
