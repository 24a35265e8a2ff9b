package contracts

import "time"

// Security identifies a tradable instrument by its exchange code.
// Comparable, usable as a map key.
type Security string

// String returns the raw code.
func (s Security) String() string {
	return string(s)
}

// DateRange is a closed date-range query [Start, End].
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange normalizes both endpoints to midnight UTC.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Day truncates a timestamp to a calendar day in UTC.
// All trading dates flowing through the system are normalized with this,
// so time.Time values compare with == and work as map keys.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Bar is one daily OHLCV candle as collected from the market data source
// and stored in Postgres.
type Bar struct {
	Security Security  `json:"security"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
}

// InvestorFlow is one day of net buying by investor class for a security.
// Individual net is derived as the balance of foreign and institutional.
type InvestorFlow struct {
	Security      Security  `json:"security"`
	Date          time.Time `json:"date"`
	ForeignNet    int64     `json:"foreign_net"`
	InstNet       int64     `json:"inst_net"`
	IndividualNet int64     `json:"individual_net"`
}

// TimeSeries is a date-indexed scalar series as produced by raw factor
// sources and quote sources. Dates and Values are parallel; Dates are
// strictly increasing days (see Day).
type TimeSeries struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of points.
func (ts TimeSeries) Len() int {
	return len(ts.Dates)
}

// At returns the value on an exact date, if present.
func (ts TimeSeries) At(d time.Time) (float64, bool) {
	d = Day(d)
	lo, hi := 0, len(ts.Dates)
	for lo < hi {
		mid := (lo + hi) / 2
		if ts.Dates[mid].Before(d) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(ts.Dates) && ts.Dates[lo].Equal(d) {
		return ts.Values[lo], true
	}
	return 0, false
}
