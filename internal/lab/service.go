package lab

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/factor"
	"github.com/wonny/factorlab/pkg/logger"
)

// DefinitionStore is the persistence surface the service needs.
// *repos.DefinitionRepository implements this.
type DefinitionStore interface {
	Save(ctx context.Context, def factor.Definition) error
	Get(ctx context.Context, name string) (factor.Definition, error)
	List(ctx context.Context) ([]factor.Definition, error)
	Delete(ctx context.Context, name string) error
}

// Service owns the live engines. It loads definitions from the store,
// resolves factor names through the registry, and caches one engine per
// definition so repeated API and scheduler reads hit the engine's own
// memoization.
type Service struct {
	mu       sync.Mutex
	store    DefinitionStore
	registry *factor.Registry
	quotes   contracts.QuoteSource
	logger   *logger.Logger
	engines  map[string]*factor.MultiFactor
}

// NewService creates a lab service.
func NewService(store DefinitionStore, registry *factor.Registry, quotes contracts.QuoteSource, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		quotes:   quotes,
		logger:   log.Component("lab"),
		engines:  make(map[string]*factor.MultiFactor),
	}
}

// Definitions lists the stored definitions.
func (s *Service) Definitions(ctx context.Context) ([]factor.Definition, error) {
	return s.store.List(ctx)
}

// Definition loads one stored definition by name.
func (s *Service) Definition(ctx context.Context, name string) (factor.Definition, error) {
	return s.store.Get(ctx, name)
}

// SaveDefinition stores a definition and drops any cached engine built from
// an older version of it.
func (s *Service) SaveDefinition(ctx context.Context, def factor.Definition) error {
	if def.SchemaVersion == 0 {
		def.SchemaVersion = factor.SchemaVersion
	}
	if err := s.store.Save(ctx, def); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.engines, def.Name)
	s.mu.Unlock()

	s.logger.WithField("definition", def.Name).Info("Definition saved")
	return nil
}

// DeleteDefinition removes a definition and its cached engine.
func (s *Service) DeleteDefinition(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.engines, name)
	s.mu.Unlock()

	return nil
}

// Engine returns the cached engine for a definition, building it on first
// use. The engine computes lazily on its first accessor call.
func (s *Service) Engine(ctx context.Context, name string) (*factor.MultiFactor, error) {
	s.mu.Lock()
	if eng, ok := s.engines[name]; ok {
		s.mu.Unlock()
		return eng, nil
	}
	s.mu.Unlock()

	def, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	eng, err := factor.FromDefinition(def, s.registry, s.quotes)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have built it meanwhile; keep the first.
	if existing, ok := s.engines[name]; ok {
		return existing, nil
	}
	s.engines[name] = eng
	return eng, nil
}

// Summary is a compact evaluation result for one definition, used by the
// scheduler broadcast and the API.
type Summary struct {
	Definition  string        `json:"definition"`
	Strategy    string        `json:"strategy"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
	Dates       int           `json:"dates"`
	Universe    int           `json:"universe"`
	LatestDate  *time.Time    `json:"latest_date,omitempty"`
	Top         []ScoredEntry `json:"top,omitempty"`
	MeanIC      *float64      `json:"mean_ic,omitempty"`
	Err         string        `json:"error,omitempty"`
}

// ScoredEntry is one ranked security in a summary.
type ScoredEntry struct {
	Security string  `json:"security"`
	Value    float64 `json:"value,omitempty"`
	Defined  bool    `json:"defined"`
}

// Evaluate runs one definition's engine and condenses the result. Engine
// failures are reported inside the Summary, not as an error, so one broken
// definition cannot stop a batch.
func (s *Service) Evaluate(ctx context.Context, name string, topN int) (Summary, error) {
	eng, err := s.Engine(ctx, name)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Definition:  eng.Name(),
		Strategy:    eng.StrategyName(),
		EvaluatedAt: time.Now().UTC(),
		Universe:    len(eng.Universe()),
	}

	dates, err := eng.Dates(ctx)
	if err != nil {
		summary.Err = err.Error()
		return summary, nil
	}
	summary.Dates = len(dates)
	if len(dates) == 0 {
		return summary, nil
	}

	latest := dates[len(dates)-1]
	summary.LatestDate = &latest

	cross, err := eng.Cross(ctx, latest)
	if err != nil {
		summary.Err = err.Error()
		return summary, nil
	}
	if topN > len(cross) {
		topN = len(cross)
	}
	for _, sc := range cross[:topN] {
		entry := ScoredEntry{Security: sc.Security.String(), Defined: !math.IsNaN(sc.Value)}
		if entry.Defined {
			entry.Value = sc.Value
		}
		summary.Top = append(summary.Top, entry)
	}

	ic, err := eng.IC(ctx, 0)
	if err != nil {
		summary.Err = err.Error()
		return summary, nil
	}
	if mean, ok := meanDefined(ic); ok {
		summary.MeanIC = &mean
	}

	return summary, nil
}

// EvaluateAll evaluates every stored definition, ordered by name.
func (s *Service) EvaluateAll(ctx context.Context, topN int) ([]Summary, error) {
	defs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	summaries := make([]Summary, 0, len(defs))
	for _, def := range defs {
		summary, err := s.Evaluate(ctx, def.Name, topN)
		if err != nil {
			summary = Summary{Definition: def.Name, EvaluatedAt: time.Now().UTC(), Err: err.Error()}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// meanDefined averages the defined points of a series.
func meanDefined(s factor.Series) (float64, bool) {
	sum, n := 0.0, 0
	for _, v := range s {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// definitionFile is the YAML document shape of configs/factors.yaml.
type definitionFile struct {
	Definitions []factor.Definition `yaml:"definitions"`
}

// LoadDefinitionFile reads definitions from a YAML file and stores them.
// Used by the eval command to seed a fresh database.
func (s *Service) LoadDefinitionFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read definition file: %w", err)
	}

	var doc definitionFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse definition file %s: %w", path, err)
	}

	for _, def := range doc.Definitions {
		if def.SchemaVersion == 0 {
			def.SchemaVersion = factor.SchemaVersion
		}
		if err := s.SaveDefinition(ctx, def); err != nil {
			return 0, fmt.Errorf("save definition %q: %w", def.Name, err)
		}
	}
	return len(doc.Definitions), nil
}
