package factor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// engineState is the lifecycle of one MultiFactor instance.
type engineState int

const (
	stateUncomputed engineState = iota
	stateComputing
	stateComputed
	stateFailed
)

// Config is the immutable construction-time configuration of a MultiFactor.
// Name is the one field that may change later, via SetName.
type Config struct {
	Name      string
	Factors   []contracts.FactorSource
	Universe  []contracts.Security
	Reference contracts.Security
	Query     contracts.DateRange
	ICHorizon int    // forward-return horizon in trading days, default 1
	ICMethod  string // ICSpearman (default) or ICPearson
}

// MultiFactor synthesizes several raw factors into one composite factor per
// security and evaluates its predictive power (IC, ICIR).
//
// Everything derived is computed lazily, exactly once, on the first accessor
// call. A single mutex guards the whole pipeline: the triggering goroutine
// runs it while concurrent callers block, then all of them read the same
// cached results. A shape failure from the strategy is permanent for the
// instance; Clone gives a fresh one.
type MultiFactor struct {
	mu      sync.Mutex
	st      engineState
	failure error

	strategy Strategy
	quotes   contracts.QuoteSource
	cfg      Config

	dates       []time.Time
	secSlot     map[contracts.Security]int
	composites  []Series
	dateSlot    map[time.Time]int
	crossByDate [][]Scored

	closes     []Series        // aligned closes per security, fetched lazily
	returnMemo map[int][]Series // forward returns per horizon
	icMemo     map[int]Series
	icirMemo   map[[2]int]Series

	runs int // pipeline invocations, inspected by tests
}

// New builds an uncomputed engine. Configuration slices are copied so the
// caller cannot mutate them afterwards.
func New(st Strategy, quotes contracts.QuoteSource, cfg Config) *MultiFactor {
	if cfg.ICHorizon <= 0 {
		cfg.ICHorizon = 1
	}
	if cfg.ICMethod == "" {
		cfg.ICMethod = ICSpearman
	}
	cfg.Factors = append([]contracts.FactorSource(nil), cfg.Factors...)
	cfg.Universe = append([]contracts.Security(nil), cfg.Universe...)

	return &MultiFactor{
		strategy:   st,
		quotes:     quotes,
		cfg:        cfg,
		returnMemo: make(map[int][]Series),
		icMemo:     make(map[int]Series),
		icirMemo:   make(map[[2]int]Series),
	}
}

// Name returns the label. Purely descriptive.
func (m *MultiFactor) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Name
}

// SetName relabels the engine. Has no effect on computation.
func (m *MultiFactor) SetName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Name = name
}

// Query returns the configured date-range query. Always available.
func (m *MultiFactor) Query() contracts.DateRange {
	return m.cfg.Query
}

// Universe returns the configured securities in input order.
func (m *MultiFactor) Universe() []contracts.Security {
	return append([]contracts.Security(nil), m.cfg.Universe...)
}

// StrategyName reports which synthesis strategy this engine runs.
func (m *MultiFactor) StrategyName() string {
	return m.strategy.Name()
}

// Clone returns an independent sibling carrying only configuration: same
// factors, universe, reference, query and strategy kind, but a fresh
// uncomputed state. The clone never shares caches with the original.
func (m *MultiFactor) Clone() *MultiFactor {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()
	return New(m.strategy.Clone(), m.quotes, cfg)
}

// Dates returns the reference date axis.
func (m *MultiFactor) Dates(ctx context.Context) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.computeLocked(ctx); err != nil {
		return nil, err
	}
	return m.dates, nil
}

// Factor returns the composite series for one security.
func (m *MultiFactor) Factor(ctx context.Context, sec contracts.Security) (Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.computeLocked(ctx); err != nil {
		return nil, err
	}
	slot, ok := m.secSlot[sec]
	if !ok {
		return nil, fmt.Errorf("%s: %w", sec, ErrSecurityNotFound)
	}
	return m.composites[slot], nil
}

// AllFactors returns every composite series, in universe order.
func (m *MultiFactor) AllFactors(ctx context.Context) ([]Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.computeLocked(ctx); err != nil {
		return nil, err
	}
	return m.composites, nil
}

// Cross returns one date's ranking: (security, value) pairs sorted by value
// descending, undefined values last, ties stable by universe order.
func (m *MultiFactor) Cross(ctx context.Context, date time.Time) ([]Scored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.computeLocked(ctx); err != nil {
		return nil, err
	}
	d := contracts.Day(date)
	slot, ok := m.dateSlot[d]
	if !ok {
		return nil, fmt.Errorf("%s: %w", d.Format("2006-01-02"), ErrDateNotFound)
	}
	return m.crossByDate[slot], nil
}

// AllCross returns every date's ranking, in axis order.
func (m *MultiFactor) AllCross(ctx context.Context) ([][]Scored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.computeLocked(ctx); err != nil {
		return nil, err
	}
	return m.crossByDate, nil
}

// IC returns the per-date information coefficient of the composite factor
// against ndays-forward returns. ndays == 0 means the configured horizon.
// Memoized per horizon.
func (m *MultiFactor) IC(ctx context.Context, ndays int) (Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.computeLocked(ctx); err != nil {
		return nil, err
	}
	return m.icLocked(ctx, ndays)
}

// ICIR returns the rolling mean/stddev ratio of the IC series over a
// trailing irN-date window. icN selects the IC horizon (0 = configured).
// Memoized per (irN, icN) pair.
func (m *MultiFactor) ICIR(ctx context.Context, irN, icN int) (Series, error) {
	if irN <= 1 {
		return nil, fmt.Errorf("icir window must be greater than 1, got %d", irN)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.computeLocked(ctx); err != nil {
		return nil, err
	}
	if icN == 0 {
		icN = m.cfg.ICHorizon
	}
	key := [2]int{irN, icN}
	if s, ok := m.icirMemo[key]; ok {
		return s, nil
	}
	ic, err := m.icLocked(ctx, icN)
	if err != nil {
		return nil, err
	}
	s := rollingICIR(ic, irN)
	m.icirMemo[key] = s
	return s, nil
}

// computeLocked drives the one-shot pipeline. Callers hold m.mu.
func (m *MultiFactor) computeLocked(ctx context.Context) error {
	switch m.st {
	case stateComputed:
		return nil
	case stateFailed:
		return m.failure
	}

	m.st = stateComputing
	m.runs++

	if err := m.runPipelineLocked(ctx); err != nil {
		// Nothing partial survives a failed pipeline.
		m.dates = nil
		m.secSlot = nil
		m.composites = nil
		m.dateSlot = nil
		m.crossByDate = nil
		m.st = stateFailed
		m.failure = err
		return err
	}

	m.st = stateComputed
	return nil
}

// runPipelineLocked: calendar → alignment → synthesis → cross-section index.
func (m *MultiFactor) runPipelineLocked(ctx context.Context) error {
	dates, err := m.resolveAxis(ctx)
	if err != nil {
		return err
	}
	m.dates = dates

	aligned, err := m.alignAll(ctx)
	if err != nil {
		return err
	}

	in := CombineInput{
		Dates:     m.dates,
		Universe:  m.cfg.Universe,
		Aligned:   aligned,
		ICHorizon: m.cfg.ICHorizon,
		ICMethod:  m.cfg.ICMethod,
		ForwardReturns: func(ndays int) ([]Series, error) {
			return m.forwardReturnsLocked(ctx, ndays)
		},
	}

	out, err := m.strategy.Combine(ctx, in)
	if err != nil {
		return fmt.Errorf("strategy %s: %w", m.strategy.Name(), err)
	}
	if len(out) != len(m.cfg.Universe) {
		return &ShapeError{Strategy: m.strategy.Name(), Want: len(m.cfg.Universe), Got: len(out)}
	}
	for _, s := range out {
		if len(s) != len(m.dates) {
			return fmt.Errorf("strategy %s: series length %d does not match %d axis dates",
				m.strategy.Name(), len(s), len(m.dates))
		}
	}
	m.composites = out

	m.buildIndexLocked()
	return nil
}

// buildIndexLocked builds the security index, date index and per-date
// rankings. Runs only after a full, consistent composite set exists.
func (m *MultiFactor) buildIndexLocked() {
	m.secSlot = make(map[contracts.Security]int, len(m.cfg.Universe))
	for i, sec := range m.cfg.Universe {
		m.secSlot[sec] = i
	}

	m.dateSlot = make(map[time.Time]int, len(m.dates))
	m.crossByDate = make([][]Scored, len(m.dates))
	for t, d := range m.dates {
		m.dateSlot[d] = t
		m.crossByDate[t] = m.rankDate(t)
	}
}

// rankDate assembles one cross section in universe order, then sorts it.
func (m *MultiFactor) rankDate(t int) []Scored {
	items := make([]Scored, len(m.cfg.Universe))
	for s, sec := range m.cfg.Universe {
		items[s] = Scored{Security: sec, Value: m.composites[s][t]}
	}
	sortScoredDesc(items)
	return items
}

// forwardReturnsLocked returns, per security, the realized return from each
// axis date to ndays trading dates later. NaN at the tail and wherever a
// close is missing. Memoized per horizon; callers hold m.mu.
func (m *MultiFactor) forwardReturnsLocked(ctx context.Context, ndays int) ([]Series, error) {
	if ndays <= 0 {
		return nil, fmt.Errorf("forward-return horizon must be positive, got %d", ndays)
	}
	if rets, ok := m.returnMemo[ndays]; ok {
		return rets, nil
	}
	if err := m.fetchClosesLocked(ctx); err != nil {
		return nil, err
	}

	n := len(m.dates)
	rets := make([]Series, len(m.cfg.Universe))
	for s := range m.closes {
		r := undefinedSeries(n)
		c := m.closes[s]
		for t := 0; t+ndays < n; t++ {
			if c.Defined(t) && c.Defined(t+ndays) && c[t] != 0 {
				r[t] = c[t+ndays]/c[t] - 1
			}
		}
		rets[s] = r
	}
	m.returnMemo[ndays] = rets
	return rets, nil
}

// fetchClosesLocked pulls and aligns every universe member's closes once.
func (m *MultiFactor) fetchClosesLocked(ctx context.Context) error {
	if m.closes != nil {
		return nil
	}
	closes := make([]Series, len(m.cfg.Universe))
	for s, sec := range m.cfg.Universe {
		ts, err := m.quotes.DailyCloses(ctx, sec, m.cfg.Query)
		if err != nil {
			return fmt.Errorf("closes for %s: %w", sec, err)
		}
		closes[s] = alignToAxis(ts, m.dates)
	}
	m.closes = closes
	return nil
}

// icLocked computes or recalls the IC series for one horizon.
func (m *MultiFactor) icLocked(ctx context.Context, ndays int) (Series, error) {
	if ndays == 0 {
		ndays = m.cfg.ICHorizon
	}
	if s, ok := m.icMemo[ndays]; ok {
		return s, nil
	}
	rets, err := m.forwardReturnsLocked(ctx, ndays)
	if err != nil {
		return nil, err
	}
	s := crossSectionIC(m.composites, rets, len(m.dates), m.cfg.ICMethod)
	m.icMemo[ndays] = s
	return s, nil
}

// sortScoredDesc orders by value descending with NaN last; the sort is
// stable, so equal values keep universe order.
func sortScoredDesc(items []Scored) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		aNaN := math.IsNaN(a.Value)
		bNaN := math.IsNaN(b.Value)
		if aNaN != bNaN {
			return bNaN
		}
		if aNaN {
			return false
		}
		return a.Value > b.Value
	})
}
