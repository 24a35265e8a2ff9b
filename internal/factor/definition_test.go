package factor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wonny/factorlab/internal/contracts"
)

func testRegistry() *Registry {
	reg := NewRegistry()
	for _, src := range testFactors() {
		reg.Register(src)
	}
	return reg
}

func TestDefinition_RoundTrip(t *testing.T) {
	m := New(&ICWeight{}, testQuotes(), testConfig())

	def := m.Definition()
	assert.Equal(t, SchemaVersion, def.SchemaVersion)
	assert.Equal(t, "demo", def.Name)
	assert.Equal(t, "ic", def.Strategy)
	assert.Equal(t, []string{"f1", "f2"}, def.Factors)
	assert.Equal(t, []string{"005930", "000660", "035420"}, def.Universe)
	assert.Equal(t, "KOSPI", def.Reference)
	assert.Equal(t, 1, def.ICHorizon)

	rebuilt, err := FromDefinition(def, testRegistry(), testQuotes())
	require.NoError(t, err)
	assert.Equal(t, def, rebuilt.Definition())
	assert.Equal(t, 0, rebuilt.runs, "rebuilt engine starts uncomputed")
}

func TestDefinition_JSONCarriesConfigurationOnly(t *testing.T) {
	m := New(&EqualWeight{}, testQuotes(), testConfig())
	_, err := m.AllFactors(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(m.Definition())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, derived := range []string{"composites", "cross", "ic", "dates", "axis"} {
		assert.NotContains(t, fields, derived)
	}
	assert.Contains(t, fields, "schema_version")
	assert.Contains(t, fields, "universe")
}

func TestDefinition_FromYAML(t *testing.T) {
	doc := `
schema_version: 1
name: momentum-blend
strategy: icir
factors: [f1, f2]
universe: ["005930", "000660", "035420"]
reference: KOSPI
start: 2026-01-05T00:00:00Z
end: 2026-01-09T00:00:00Z
ic_horizon: 2
ic_method: pearson
`
	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(doc), &def))
	require.NoError(t, def.Validate())

	m, err := FromDefinition(def, testRegistry(), testQuotes())
	require.NoError(t, err)
	assert.Equal(t, "momentum-blend", m.Name())
	assert.Equal(t, "icir", m.StrategyName())
}

func TestDefinition_Validate(t *testing.T) {
	valid := Definition{
		SchemaVersion: SchemaVersion,
		Name:          "x",
		Strategy:      "equal",
		Factors:       []string{"f1"},
		Universe:      []string{"005930"},
		Reference:     "KOSPI",
		Start:         day(5),
		End:           day(9),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"wrong schema version", func(d *Definition) { d.SchemaVersion = 99 }},
		{"missing name", func(d *Definition) { d.Name = "" }},
		{"no factors", func(d *Definition) { d.Factors = nil }},
		{"empty universe", func(d *Definition) { d.Universe = nil }},
		{"missing reference", func(d *Definition) { d.Reference = "" }},
		{"inverted range", func(d *Definition) { d.Start, d.End = d.End, d.Start }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestFromDefinition_UnknownFactor(t *testing.T) {
	def := Definition{
		SchemaVersion: SchemaVersion,
		Name:          "x",
		Strategy:      "equal",
		Factors:       []string{"nope"},
		Universe:      []string{"005930"},
		Reference:     "KOSPI",
		Start:         day(5),
		End:           day(9),
	}
	_, err := FromDefinition(def, NewRegistry(), testQuotes())
	assert.Error(t, err)
}

var _ contracts.FactorSource = (*memFactor)(nil)
var _ contracts.QuoteSource = (*memQuotes)(nil)
