package signals

import (
	"context"
	"fmt"

	"github.com/wonny/factorlab/internal/contracts"
)

// Momentum scores trailing price return over a lookback of trading days.
// Higher past return, higher score.
type Momentum struct {
	bars     BarSource
	lookback int
}

// NewMomentum creates a momentum source. Typical lookbacks are 20 (one
// month) or 60 (one quarter).
func NewMomentum(bars BarSource, lookback int) *Momentum {
	return &Momentum{bars: bars, lookback: lookback}
}

// Name implements contracts.FactorSource.
func (m *Momentum) Name() string {
	return fmt.Sprintf("momentum_%dd", m.lookback)
}

// Series implements contracts.FactorSource.
func (m *Momentum) Series(ctx context.Context, sec contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error) {
	bars, err := m.bars.DailyBars(ctx, sec, padded(query, m.lookback))
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("momentum: load bars for %s: %w", sec, err)
	}

	dates, closes := closeSeries(bars)
	return contracts.TimeSeries{Dates: dates, Values: trailingReturn(closes, m.lookback)}, nil
}
