package factor

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/internal/contracts"
)

func combineInputFixture() CombineInput {
	// Two factors, two securities, three dates. Factor 0 for security 1 has
	// a missing middle value.
	aligned := [][]Series{
		{
			{0.8, 0.6, 0.4},
			{0.2, math.NaN(), 0.6},
		},
		{
			{0.4, 0.2, 0.8},
			{0.6, 0.1, 0.2},
		},
	}
	return CombineInput{
		Dates:     testDates[:3],
		Universe:  []contracts.Security{secX, secY},
		Aligned:   aligned,
		ICHorizon: 1,
		ICMethod:  ICSpearman,
	}
}

func TestEqualWeight_Combine(t *testing.T) {
	in := combineInputFixture()
	out, err := (&EqualWeight{}).Combine(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assertSeriesEqual(t, Series{0.6, 0.4, 0.6}, out[0])
	// Security 1, date 1: only factor 1 is defined.
	assertSeriesEqual(t, Series{0.4, 0.1, 0.4}, out[1])
}

func TestEqualWeight_AllMissingStaysUndefined(t *testing.T) {
	in := combineInputFixture()
	in.Aligned = [][]Series{
		{
			{math.NaN(), 0.5, 0.5},
			{0.5, 0.5, 0.5},
		},
	}
	out, err := (&EqualWeight{}).Combine(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[0][0]))
}

func TestICWeight_WarmupFallsBackToEqualWeight(t *testing.T) {
	in := combineInputFixture()
	in.ForwardReturns = func(ndays int) ([]Series, error) {
		require.Equal(t, 1, ndays)
		// With two securities the cross-sectional IC needs both sides; give
		// returns so the IC series is defined after the warm-up.
		return []Series{
			{0.02, 0.01, math.NaN()},
			{-0.01, 0.03, math.NaN()},
		}, nil
	}

	out, err := (&ICWeight{}).Combine(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, s := range out {
		require.Len(t, s, 3)
	}

	// Every slot with at least one defined input stays defined: weighted
	// where IC history exists, equal-weight otherwise.
	for s := range out {
		for i := range out[s] {
			assert.False(t, math.IsNaN(out[s][i]), "security %d date %d", s, i)
		}
	}
}

func TestICIRWeight_CloneKeepsKind(t *testing.T) {
	var st Strategy = &ICIRWeight{}
	c := st.Clone()
	assert.Equal(t, st.Name(), c.Name())
	assert.IsType(t, &ICIRWeight{}, c)
}

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"equal", "equal", false},
		{"", "equal", false},
		{"ic", "ic", false},
		{"icir", "icir", false},
		{"magic", "", true},
	}

	for _, tt := range tests {
		st, err := NewStrategy(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, st.Name())
	}
}
