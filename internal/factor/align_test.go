package factor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/internal/contracts"
)

func TestAlignToAxis_ExactMatchNoFill(t *testing.T) {
	axis := []time.Time{day(5), day(6), day(7), day(8)}

	// Native series skips day 6 and adds a day outside the axis.
	native := contracts.TimeSeries{
		Dates:  []time.Time{day(5), day(7), day(8), day(12)},
		Values: []float64{1.0, 3.0, 4.0, 99.0},
	}

	got := alignToAxis(native, axis)
	require.Len(t, got, 4)
	assert.Equal(t, 1.0, got[0])
	assert.True(t, math.IsNaN(got[1]), "gap dates carry NaN, never the previous value")
	assert.Equal(t, 3.0, got[2])
	assert.Equal(t, 4.0, got[3])
}

func TestResolveAxis_DedupAndClip(t *testing.T) {
	// Reference closes contain a duplicate day and days outside the query.
	quotes := &memQuotes{closes: map[contracts.Security]contracts.TimeSeries{
		ref: {
			Dates:  []time.Time{day(2), day(5), day(5), day(6), day(9), day(12)},
			Values: []float64{1, 1, 1, 1, 1, 1},
		},
	}}
	cfg := testConfig()
	m := New(&EqualWeight{}, quotes, cfg)

	dates, err := m.resolveAxis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(5), day(6), day(9)}, dates)

	for i := 1; i < len(dates); i++ {
		assert.True(t, dates[i-1].Before(dates[i]), "axis must be strictly increasing")
	}
}
