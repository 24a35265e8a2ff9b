package signals

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/internal/contracts"
)

type fakeBars struct {
	bars []contracts.Bar
}

func (f *fakeBars) DailyBars(_ context.Context, sec contracts.Security, query contracts.DateRange) ([]contracts.Bar, error) {
	var out []contracts.Bar
	for _, bar := range f.bars {
		if query.Contains(bar.Date) {
			bar.Security = sec
			out = append(out, bar)
		}
	}
	return out, nil
}

type fakeFlows struct {
	ts contracts.TimeSeries
}

func (f *fakeFlows) ForeignNetSeries(_ context.Context, _ contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error) {
	var out contracts.TimeSeries
	for i, d := range f.ts.Dates {
		if query.Contains(d) {
			out.Dates = append(out.Dates, d)
			out.Values = append(out.Values, f.ts.Values[i])
		}
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func barFixture() *fakeBars {
	closes := []float64{100, 102, 101, 105, 110, 108}
	volumes := []int64{1000, 1000, 2000, 2000, 4000, 4000}
	bars := make([]contracts.Bar, len(closes))
	for i := range closes {
		bars[i] = contracts.Bar{
			Date:   day(2 + i),
			Close:  closes[i],
			Volume: volumes[i],
		}
	}
	return &fakeBars{bars: bars}
}

func fullRange() contracts.DateRange {
	return contracts.NewDateRange(day(2), day(7))
}

func TestMomentum_Series(t *testing.T) {
	src := NewMomentum(barFixture(), 2)
	assert.Equal(t, "momentum_2d", src.Name())

	ts, err := src.Series(context.Background(), "005930", fullRange())
	require.NoError(t, err)
	require.Equal(t, 6, ts.Len())

	// Warm-up points are undefined.
	assert.True(t, math.IsNaN(ts.Values[0]))
	assert.True(t, math.IsNaN(ts.Values[1]))

	// 101/100 - 1
	assert.InDelta(t, 0.01, ts.Values[2], 1e-12)
	// 108/110... index 5 is 108/105 - 1
	assert.InDelta(t, 108.0/105.0-1, ts.Values[5], 1e-12)
}

func TestReversal_NegatesReturn(t *testing.T) {
	mom := NewMomentum(barFixture(), 2)
	rev := NewReversal(barFixture(), 2)

	mts, err := mom.Series(context.Background(), "005930", fullRange())
	require.NoError(t, err)
	rts, err := rev.Series(context.Background(), "005930", fullRange())
	require.NoError(t, err)

	for i := range mts.Values {
		if math.IsNaN(mts.Values[i]) {
			assert.True(t, math.IsNaN(rts.Values[i]), "index %d", i)
			continue
		}
		assert.InDelta(t, -mts.Values[i], rts.Values[i], 1e-12, "index %d", i)
	}
}

func TestVolumeRatio_Series(t *testing.T) {
	src := NewVolumeRatio(barFixture(), 1, 2)
	assert.Equal(t, "volume_ratio_1d_2d", src.Name())

	ts, err := src.Series(context.Background(), "005930", fullRange())
	require.NoError(t, err)
	require.Equal(t, 6, ts.Len())

	assert.True(t, math.IsNaN(ts.Values[0]))
	// 1000 / mean(1000,1000)
	assert.InDelta(t, 1.0, ts.Values[1], 1e-12)
	// 2000 / mean(1000,2000)
	assert.InDelta(t, 2000.0/1500.0, ts.Values[2], 1e-12)
}

func TestForeignFlow_RollingSum(t *testing.T) {
	flows := &fakeFlows{ts: contracts.TimeSeries{
		Dates:  []time.Time{day(2), day(3), day(4), day(5)},
		Values: []float64{100, -50, 200, 10},
	}}

	src := NewForeignFlow(flows, 2)
	assert.Equal(t, "foreign_flow_2d", src.Name())

	ts, err := src.Series(context.Background(), "005930", contracts.NewDateRange(day(2), day(5)))
	require.NoError(t, err)
	require.Equal(t, 4, ts.Len())

	assert.True(t, math.IsNaN(ts.Values[0]))
	assert.InDelta(t, 50, ts.Values[1], 1e-12)
	assert.InDelta(t, 150, ts.Values[2], 1e-12)
	assert.InDelta(t, 210, ts.Values[3], 1e-12)
}

func TestTrailingReturn_GuardsNonPositiveCloses(t *testing.T) {
	values := trailingReturn([]float64{0, 100, 110}, 1)
	assert.True(t, math.IsNaN(values[0]))
	assert.True(t, math.IsNaN(values[1]), "base close of zero must not divide")
	assert.InDelta(t, 0.1, values[2], 1e-12)
}

var (
	_ contracts.FactorSource = (*Momentum)(nil)
	_ contracts.FactorSource = (*Reversal)(nil)
	_ contracts.FactorSource = (*VolumeRatio)(nil)
	_ contracts.FactorSource = (*ForeignFlow)(nil)
)
