package signals

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// VolumeRatio scores short-window average volume relative to a long-window
// average. Values above 1 mean unusually active trading.
type VolumeRatio struct {
	bars  BarSource
	short int
	long  int
}

// NewVolumeRatio creates a volume ratio source. Typical windows are 5/20.
func NewVolumeRatio(bars BarSource, short, long int) *VolumeRatio {
	return &VolumeRatio{bars: bars, short: short, long: long}
}

// Name implements contracts.FactorSource.
func (v *VolumeRatio) Name() string {
	return fmt.Sprintf("volume_ratio_%dd_%dd", v.short, v.long)
}

// Series implements contracts.FactorSource.
func (v *VolumeRatio) Series(ctx context.Context, sec contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error) {
	bars, err := v.bars.DailyBars(ctx, sec, padded(query, v.long))
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("volume ratio: load bars for %s: %w", sec, err)
	}

	dates := make([]time.Time, len(bars))
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		dates[i] = contracts.Day(bar.Date)
		volumes[i] = float64(bar.Volume)
	}

	values := make([]float64, len(volumes))
	for i := range volumes {
		shortAvg := trailingMean(volumes, i, v.short)
		longAvg := trailingMean(volumes, i, v.long)
		if math.IsNaN(shortAvg) || math.IsNaN(longAvg) || longAvg == 0 {
			values[i] = math.NaN()
			continue
		}
		values[i] = shortAvg / longAvg
	}

	return contracts.TimeSeries{Dates: dates, Values: values}, nil
}

// trailingMean averages the window ending at index i inclusive, NaN when
// the window does not fit.
func trailingMean(xs []float64, i, window int) float64 {
	if window < 1 || i+1 < window {
		return math.NaN()
	}
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		sum += xs[j]
	}
	return sum / float64(window)
}
