package factor

import (
	"math"

	"github.com/wonny/factorlab/internal/contracts"
)

// Series is a scalar series aligned to the engine's reference date axis.
// Undefined entries are NaN; they stay NaN through every derived statistic
// and are never coerced to zero.
type Series []float64

// Defined reports whether the entry at i holds a value.
func (s Series) Defined(i int) bool {
	return i < len(s) && !math.IsNaN(s[i])
}

// undefinedSeries returns a series of n NaNs.
func undefinedSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Scored is one (security, composite value) entry of a cross section.
type Scored struct {
	Security contracts.Security `json:"security"`
	Value    float64            `json:"value"`
}

// IC methods. Spearman is the default: rank IC is robust to the wildly
// different scales raw factors come in.
const (
	ICSpearman = "spearman"
	ICPearson  = "pearson"
)
