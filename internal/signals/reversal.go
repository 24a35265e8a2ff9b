package signals

import (
	"context"
	"fmt"

	"github.com/wonny/factorlab/internal/contracts"
)

// Reversal scores the negated short-horizon return. Recent losers score
// high, betting on mean reversion.
type Reversal struct {
	bars     BarSource
	lookback int
}

// NewReversal creates a reversal source. Typical lookback is 5 days.
func NewReversal(bars BarSource, lookback int) *Reversal {
	return &Reversal{bars: bars, lookback: lookback}
}

// Name implements contracts.FactorSource.
func (r *Reversal) Name() string {
	return fmt.Sprintf("reversal_%dd", r.lookback)
}

// Series implements contracts.FactorSource.
func (r *Reversal) Series(ctx context.Context, sec contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error) {
	bars, err := r.bars.DailyBars(ctx, sec, padded(query, r.lookback))
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("reversal: load bars for %s: %w", sec, err)
	}

	dates, closes := closeSeries(bars)
	values := trailingReturn(closes, r.lookback)
	for i, v := range values {
		values[i] = -v
	}
	return contracts.TimeSeries{Dates: dates, Values: values}, nil
}
