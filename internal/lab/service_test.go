package lab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/factor"
	"github.com/wonny/factorlab/pkg/logger"
)

type memStore struct {
	defs map[string]factor.Definition
}

func newMemStore() *memStore {
	return &memStore{defs: make(map[string]factor.Definition)}
}

func (m *memStore) Save(_ context.Context, def factor.Definition) error {
	m.defs[def.Name] = def
	return nil
}

func (m *memStore) Get(_ context.Context, name string) (factor.Definition, error) {
	def, ok := m.defs[name]
	if !ok {
		return factor.Definition{}, fmt.Errorf("definition %q not found", name)
	}
	return def, nil
}

func (m *memStore) List(_ context.Context) ([]factor.Definition, error) {
	out := make([]factor.Definition, 0, len(m.defs))
	for _, def := range m.defs {
		out = append(out, def)
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, name string) error {
	if _, ok := m.defs[name]; !ok {
		return fmt.Errorf("definition %q not found", name)
	}
	delete(m.defs, name)
	return nil
}

type stubQuotes struct {
	closes map[contracts.Security]contracts.TimeSeries
}

func (q *stubQuotes) DailyCloses(_ context.Context, sec contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error) {
	full, ok := q.closes[sec]
	if !ok {
		return contracts.TimeSeries{}, nil
	}
	var out contracts.TimeSeries
	for i, d := range full.Dates {
		if query.Contains(d) {
			out.Dates = append(out.Dates, d)
			out.Values = append(out.Values, full.Values[i])
		}
	}
	return out, nil
}

type stubFactor struct {
	name   string
	series map[contracts.Security]contracts.TimeSeries
}

func (f *stubFactor) Name() string { return f.name }

func (f *stubFactor) Series(_ context.Context, sec contracts.Security, _ contracts.DateRange) (contracts.TimeSeries, error) {
	return f.series[sec], nil
}

func day(d int) time.Time {
	return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC)
}

func fixtureService(t *testing.T) (*Service, *memStore) {
	t.Helper()

	dates := []time.Time{day(2), day(3), day(4), day(5)}
	quotes := &stubQuotes{closes: map[contracts.Security]contracts.TimeSeries{
		"KOSPI":  {Dates: dates, Values: []float64{100, 101, 102, 103}},
		"005930": {Dates: dates, Values: []float64{50, 51, 52, 53}},
		"000660": {Dates: dates, Values: []float64{30, 29, 31, 30}},
	}}

	reg := factor.NewRegistry()
	reg.Register(&stubFactor{name: "alpha", series: map[contracts.Security]contracts.TimeSeries{
		"005930": {Dates: dates, Values: []float64{1, 2, 3, 4}},
		"000660": {Dates: dates, Values: []float64{4, 3, 2, 1}},
	}})

	store := newMemStore()
	svc := NewService(store, reg, quotes, logger.NewNop())

	def := factor.Definition{
		SchemaVersion: factor.SchemaVersion,
		Name:          "demo",
		Strategy:      "equal",
		Factors:       []string{"alpha"},
		Universe:      []string{"005930", "000660"},
		Reference:     "KOSPI",
		Start:         day(2),
		End:           day(5),
		ICHorizon:     1,
	}
	require.NoError(t, svc.SaveDefinition(context.Background(), def))

	return svc, store
}

func TestService_EngineIsCached(t *testing.T) {
	svc, _ := fixtureService(t)
	ctx := context.Background()

	first, err := svc.Engine(ctx, "demo")
	require.NoError(t, err)
	second, err := svc.Engine(ctx, "demo")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestService_SaveDropsCachedEngine(t *testing.T) {
	svc, store := fixtureService(t)
	ctx := context.Background()

	first, err := svc.Engine(ctx, "demo")
	require.NoError(t, err)

	def := store.defs["demo"]
	def.Strategy = "ic"
	require.NoError(t, svc.SaveDefinition(ctx, def))

	rebuilt, err := svc.Engine(ctx, "demo")
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, "ic", rebuilt.StrategyName())
}

func TestService_Evaluate(t *testing.T) {
	svc, _ := fixtureService(t)

	summary, err := svc.Evaluate(context.Background(), "demo", 10)
	require.NoError(t, err)

	assert.Equal(t, "demo", summary.Definition)
	assert.Equal(t, "equal", summary.Strategy)
	assert.Equal(t, 4, summary.Dates)
	assert.Equal(t, 2, summary.Universe)
	require.NotNil(t, summary.LatestDate)
	assert.True(t, summary.LatestDate.Equal(day(5)))
	require.Len(t, summary.Top, 2)
	// On the last date alpha is 4 for 005930 and 1 for 000660.
	assert.Equal(t, "005930", summary.Top[0].Security)
	assert.Empty(t, summary.Err)
}

func TestService_EvaluateUnknownDefinition(t *testing.T) {
	svc, _ := fixtureService(t)

	_, err := svc.Evaluate(context.Background(), "missing", 5)
	assert.Error(t, err)
}

func TestService_EvaluateAllReportsPerDefinitionErrors(t *testing.T) {
	svc, store := fixtureService(t)
	ctx := context.Background()

	// A definition naming an unregistered factor fails at build time.
	store.defs["broken"] = factor.Definition{
		SchemaVersion: factor.SchemaVersion,
		Name:          "broken",
		Strategy:      "equal",
		Factors:       []string{"nope"},
		Universe:      []string{"005930"},
		Reference:     "KOSPI",
		Start:         day(2),
		End:           day(5),
		ICHorizon:     1,
	}

	summaries, err := svc.EvaluateAll(ctx, 3)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "broken", summaries[0].Definition)
	assert.NotEmpty(t, summaries[0].Err)
	assert.Equal(t, "demo", summaries[1].Definition)
	assert.Empty(t, summaries[1].Err)
}

func TestService_LoadDefinitionFile(t *testing.T) {
	svc, store := fixtureService(t)

	doc := `definitions:
  - schema_version: 1
    name: from-yaml
    strategy: equal
    factors: [alpha]
    universe: ["005930", "000660"]
    reference: KOSPI
    start: 2026-02-02T00:00:00Z
    end: 2026-02-05T00:00:00Z
    ic_horizon: 1
`
	path := filepath.Join(t.TempDir(), "factors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	n, err := svc.LoadDefinitionFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	def, ok := store.defs["from-yaml"]
	require.True(t, ok)
	assert.Equal(t, []string{"alpha"}, def.Factors)
}
