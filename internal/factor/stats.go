package factor

import (
	"math"
	"sort"
)

// pearson computes the linear correlation of two equal-length samples.
// Returns NaN when fewer than two points or either side has zero variance.
func pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return math.NaN()
	}
	var sx, sy, sxx, syy, sxy float64
	for i := 0; i < n; i++ {
		xi := x[i]
		yi := y[i]
		sx += xi
		sy += yi
		sxx += xi * xi
		syy += yi * yi
		sxy += xi * yi
	}
	nf := float64(n)
	num := sxy - sx*sy/nf
	denx := sxx - sx*sx/nf
	deny := syy - sy*sy/nf
	if denx <= 0 || deny <= 0 {
		return math.NaN()
	}
	return num / math.Sqrt(denx*deny)
}

// spearman is Pearson over rank-transformed inputs.
func spearman(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	return pearson(rankify(x), rankify(y))
}

// rankify converts values to average ranks 1..n; ties get averaged ranks.
func rankify(vals []float64) []float64 {
	n := len(vals)
	type kv struct {
		v float64
		i int
	}
	tmp := make([]kv, n)
	for i, v := range vals {
		tmp[i] = kv{v: v, i: i}
	}
	sort.Slice(tmp, func(i, j int) bool { return tmp[i].v < tmp[j].v })

	ranks := make([]float64, n)
	var i int
	for i < n {
		j := i + 1
		for j < n && tmp[j].v == tmp[i].v {
			j++
		}
		// Average rank for the tie group [i, j)
		avg := (float64(i+1) + float64(j)) / 2
		for k := i; k < j; k++ {
			ranks[tmp[k].i] = avg
		}
		i = j
	}
	return ranks
}

// correlate dispatches on the configured IC method.
func correlate(method string, x, y []float64) float64 {
	if method == ICPearson {
		return pearson(x, y)
	}
	return spearman(x, y)
}

// crossSectionIC computes, per date, the cross-sectional correlation between
// factor values and forward returns across all securities with both sides
// defined. Dates with fewer than two comparable securities yield NaN.
func crossSectionIC(values, rets []Series, nDates int, method string) Series {
	ic := make(Series, nDates)
	xs := make([]float64, 0, len(values))
	ys := make([]float64, 0, len(values))
	for t := 0; t < nDates; t++ {
		xs = xs[:0]
		ys = ys[:0]
		for s := range values {
			if values[s].Defined(t) && rets[s].Defined(t) {
				xs = append(xs, values[s][t])
				ys = append(ys, rets[s][t])
			}
		}
		if len(xs) < 2 {
			ic[t] = math.NaN()
			continue
		}
		ic[t] = correlate(method, xs, ys)
	}
	return ic
}

// rollingICIR computes the trailing-window mean/stddev ratio of an IC series.
// The first window-1 entries are NaN; a window containing any undefined IC
// value, or with zero dispersion, also yields NaN.
func rollingICIR(ic Series, window int) Series {
	out := undefinedSeries(len(ic))
	for t := window - 1; t < len(ic); t++ {
		var sum float64
		defined := true
		for k := t - window + 1; k <= t; k++ {
			if !ic.Defined(k) {
				defined = false
				break
			}
			sum += ic[k]
		}
		if !defined {
			continue
		}
		mean := sum / float64(window)
		var ss float64
		for k := t - window + 1; k <= t; k++ {
			d := ic[k] - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(window-1))
		if std == 0 {
			continue
		}
		out[t] = mean / std
	}
	return out
}

// rollingMean is a NaN-tolerant trailing mean: entries before a full window
// average whatever is available so far, undefined entries are skipped, and a
// window with nothing defined yields NaN.
func rollingMean(s Series, window int) Series {
	out := make(Series, len(s))
	for t := range s {
		lo := t - window + 1
		if lo < 0 {
			lo = 0
		}
		var sum float64
		var n int
		for k := lo; k <= t; k++ {
			if s.Defined(k) {
				sum += s[k]
				n++
			}
		}
		if n == 0 {
			out[t] = math.NaN()
		} else {
			out[t] = sum / float64(n)
		}
	}
	return out
}

// rollingMeanStd returns NaN-tolerant trailing mean/std ratios over window.
// At least two defined entries are needed for a ratio.
func rollingMeanStd(s Series, window int) Series {
	out := make(Series, len(s))
	for t := range s {
		lo := t - window + 1
		if lo < 0 {
			lo = 0
		}
		var sum float64
		var n int
		for k := lo; k <= t; k++ {
			if s.Defined(k) {
				sum += s[k]
				n++
			}
		}
		if n < 2 {
			out[t] = math.NaN()
			continue
		}
		mean := sum / float64(n)
		var ss float64
		for k := lo; k <= t; k++ {
			if s.Defined(k) {
				d := s[k] - mean
				ss += d * d
			}
		}
		std := math.Sqrt(ss / float64(n-1))
		if std == 0 {
			out[t] = math.NaN()
			continue
		}
		out[t] = mean / std
	}
	return out
}
