// Package signals provides factor sources computed from stored market data.
// Each source owns its lookback: it over-fetches history before the query
// start so the first in-range dates are defined, and returns its native
// dates for the engine to align.
package signals

import (
	"context"
	"math"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// BarSource supplies daily bars. *repos.PriceRepository implements this.
type BarSource interface {
	DailyBars(ctx context.Context, sec contracts.Security, query contracts.DateRange) ([]contracts.Bar, error)
}

// FlowSource supplies daily net foreign buying. *repos.FlowRepository
// implements this.
type FlowSource interface {
	ForeignNetSeries(ctx context.Context, sec contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error)
}

// padded widens a query backwards so a lookback of n trading days has
// history to draw on. Two calendar days per trading day covers weekends
// and holidays.
func padded(query contracts.DateRange, lookback int) contracts.DateRange {
	start := query.Start.AddDate(0, 0, -2*lookback-7)
	return contracts.DateRange{Start: contracts.Day(start), End: query.End}
}

// closeSeries extracts dates and closes from bars.
func closeSeries(bars []contracts.Bar) ([]time.Time, []float64) {
	dates := make([]time.Time, len(bars))
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		dates[i] = contracts.Day(bar.Date)
		closes[i] = bar.Close
	}
	return dates, closes
}

// trailingReturn computes c[i]/c[i-lookback] - 1 per index, NaN during
// warm-up or when either close is not positive.
func trailingReturn(closes []float64, lookback int) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if i < lookback || closes[i-lookback] <= 0 || closes[i] <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = closes[i]/closes[i-lookback] - 1
	}
	return out
}
