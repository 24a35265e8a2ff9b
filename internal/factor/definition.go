package factor

import (
	"fmt"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// SchemaVersion of the persisted Definition format.
const SchemaVersion = 1

// Definition is the serialized form of a MultiFactor: configuration fields
// only. Derived state (axis, composites, indices, IC caches) is never
// persisted; an engine rebuilt from a Definition starts uncomputed and
// recomputes on first access.
//
// Factor sources are persisted by name and resolved through a Registry at
// load time.
type Definition struct {
	SchemaVersion int       `json:"schema_version" yaml:"schema_version"`
	Name          string    `json:"name" yaml:"name"`
	Strategy      string    `json:"strategy" yaml:"strategy"`
	Factors       []string  `json:"factors" yaml:"factors"`
	Universe      []string  `json:"universe" yaml:"universe"`
	Reference     string    `json:"reference" yaml:"reference"`
	Start         time.Time `json:"start" yaml:"start"`
	End           time.Time `json:"end" yaml:"end"`
	ICHorizon     int       `json:"ic_horizon" yaml:"ic_horizon"`
	ICMethod      string    `json:"ic_method,omitempty" yaml:"ic_method,omitempty"`
}

// Validate checks the fields a Definition must carry to build an engine.
func (d Definition) Validate() error {
	if d.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported definition schema version %d", d.SchemaVersion)
	}
	if d.Name == "" {
		return fmt.Errorf("definition name is required")
	}
	if len(d.Factors) == 0 {
		return fmt.Errorf("definition %s: at least one factor is required", d.Name)
	}
	if len(d.Universe) == 0 {
		return fmt.Errorf("definition %s: universe is empty", d.Name)
	}
	if d.Reference == "" {
		return fmt.Errorf("definition %s: reference security is required", d.Name)
	}
	if d.End.Before(d.Start) {
		return fmt.Errorf("definition %s: end date before start date", d.Name)
	}
	return nil
}

// Definition exports the engine's configuration for persistence.
func (m *MultiFactor) Definition() Definition {
	m.mu.Lock()
	defer m.mu.Unlock()

	factors := make([]string, len(m.cfg.Factors))
	for i, f := range m.cfg.Factors {
		factors[i] = f.Name()
	}
	universe := make([]string, len(m.cfg.Universe))
	for i, s := range m.cfg.Universe {
		universe[i] = string(s)
	}

	return Definition{
		SchemaVersion: SchemaVersion,
		Name:          m.cfg.Name,
		Strategy:      m.strategy.Name(),
		Factors:       factors,
		Universe:      universe,
		Reference:     string(m.cfg.Reference),
		Start:         m.cfg.Query.Start,
		End:           m.cfg.Query.End,
		ICHorizon:     m.cfg.ICHorizon,
		ICMethod:      m.cfg.ICMethod,
	}
}

// Registry resolves persisted factor names back to live sources.
type Registry struct {
	sources map[string]contracts.FactorSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]contracts.FactorSource)}
}

// Register adds a source under its own name. Re-registering replaces.
func (r *Registry) Register(src contracts.FactorSource) {
	r.sources[src.Name()] = src
}

// Lookup returns the source for a persisted name.
func (r *Registry) Lookup(name string) (contracts.FactorSource, bool) {
	src, ok := r.sources[name]
	return src, ok
}

// Names lists the registered source names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	return names
}

// FromDefinition rebuilds an uncomputed engine from its persisted form.
func FromDefinition(def Definition, reg *Registry, quotes contracts.QuoteSource) (*MultiFactor, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	st, err := NewStrategy(def.Strategy)
	if err != nil {
		return nil, fmt.Errorf("definition %s: %w", def.Name, err)
	}

	factors := make([]contracts.FactorSource, len(def.Factors))
	for i, name := range def.Factors {
		src, ok := reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("definition %s: factor source %q not registered", def.Name, name)
		}
		factors[i] = src
	}

	universe := make([]contracts.Security, len(def.Universe))
	for i, code := range def.Universe {
		universe[i] = contracts.Security(code)
	}

	return New(st, quotes, Config{
		Name:      def.Name,
		Factors:   factors,
		Universe:  universe,
		Reference: contracts.Security(def.Reference),
		Query:     contracts.NewDateRange(def.Start, def.End),
		ICHorizon: def.ICHorizon,
		ICMethod:  def.ICMethod,
	}), nil
}
