package factor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1.0, pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1.0, pearson([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}), 1e-12)

	// Zero variance is undefined, not zero.
	assert.True(t, math.IsNaN(pearson([]float64{1, 1, 1}, []float64{1, 2, 3})))
	assert.True(t, math.IsNaN(pearson([]float64{1}, []float64{2})))
}

func TestSpearman(t *testing.T) {
	// Monotone but nonlinear: rank correlation is exactly 1.
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 8, 27, 64, 125}
	assert.InDelta(t, 1.0, spearman(x, y), 1e-12)
	assert.InDelta(t, 1.0, pearson(rankify(x), rankify(y)), 1e-12)
}

func TestRankify_Ties(t *testing.T) {
	// Two-way tie at the bottom gets the averaged rank 1.5.
	ranks := rankify([]float64{3, 1, 1, 2})
	assert.Equal(t, []float64{4, 1.5, 1.5, 3}, ranks)
}

func TestCrossSectionIC_TooFewPairs(t *testing.T) {
	values := []Series{{0.5, math.NaN()}, {0.3, 0.2}}
	rets := []Series{{0.1, 0.1}, {math.NaN(), 0.2}}

	ic := crossSectionIC(values, rets, 2, ICSpearman)
	require.Len(t, ic, 2)
	// Date 0: only one security has both sides defined.
	assert.True(t, math.IsNaN(ic[0]))
	// Date 1: only one as well.
	assert.True(t, math.IsNaN(ic[1]))
}

func TestRollingICIR(t *testing.T) {
	ic := Series{0.1, 0.2, 0.3, 0.4, math.NaN(), 0.5}
	got := rollingICIR(ic, 3)
	require.Len(t, got, 6)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))

	// got[2]: window {0.1, 0.2, 0.3} -> mean 0.2, sample std 0.1
	assert.InDelta(t, 2.0, got[2], 1e-12)
	// got[3]: window {0.2, 0.3, 0.4} -> mean 0.3, std 0.1
	assert.InDelta(t, 3.0, got[3], 1e-12)
	// Windows touching the NaN entry stay undefined.
	assert.True(t, math.IsNaN(got[4]))
	assert.True(t, math.IsNaN(got[5]))
}

func TestRollingICIR_ZeroDispersion(t *testing.T) {
	got := rollingICIR(Series{0.2, 0.2, 0.2}, 2)
	for i := 1; i < len(got); i++ {
		assert.True(t, math.IsNaN(got[i]), "constant window has no defined ratio")
	}
}

func TestRollingMean_SkipsUndefined(t *testing.T) {
	s := Series{1, math.NaN(), 3}
	got := rollingMean(s, 2)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.0, got[1], 1e-12) // window {1, NaN} -> 1
	assert.InDelta(t, 3.0, got[2], 1e-12) // window {NaN, 3} -> 3
}
