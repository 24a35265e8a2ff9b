package factor

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// resolveAxis derives the reference date axis: the reference security's
// trading dates intersected with the query, normalized, deduplicated and
// strictly increasing. An empty axis is not an error here; downstream
// lookups simply find nothing.
func (m *MultiFactor) resolveAxis(ctx context.Context) ([]time.Time, error) {
	ts, err := m.quotes.DailyCloses(ctx, m.cfg.Reference, m.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("reference calendar for %s: %w", m.cfg.Reference, err)
	}

	dates := make([]time.Time, 0, len(ts.Dates))
	for _, d := range ts.Dates {
		d = contracts.Day(d)
		if !m.cfg.Query.Contains(d) {
			continue
		}
		if n := len(dates); n > 0 && !dates[n-1].Before(d) {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// alignAll projects every raw factor, for every security, onto the axis.
// Shape of the result: [factor][security], each series len(dates) long.
func (m *MultiFactor) alignAll(ctx context.Context) ([][]Series, error) {
	aligned := make([][]Series, len(m.cfg.Factors))
	for f, src := range m.cfg.Factors {
		aligned[f] = make([]Series, len(m.cfg.Universe))
		for s, sec := range m.cfg.Universe {
			ts, err := src.Series(ctx, sec, m.cfg.Query)
			if err != nil {
				return nil, fmt.Errorf("factor %s for %s: %w", src.Name(), sec, err)
			}
			aligned[f][s] = alignToAxis(ts, m.dates)
		}
	}
	return aligned, nil
}

// alignToAxis resamples a native series onto the reference axis by exact
// date match. Axis dates with no native value stay NaN; there is no
// forward-fill.
func alignToAxis(ts contracts.TimeSeries, axis []time.Time) Series {
	out := undefinedSeries(len(axis))
	for i, d := range axis {
		if v, ok := ts.At(d); ok {
			out[i] = v
		}
	}
	return out
}
