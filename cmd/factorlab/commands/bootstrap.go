package commands

import (
	"fmt"

	"github.com/wonny/factorlab/internal/data/repos"
	"github.com/wonny/factorlab/internal/factor"
	"github.com/wonny/factorlab/internal/lab"
	"github.com/wonny/factorlab/internal/quotes"
	"github.com/wonny/factorlab/internal/quotes/naver"
	"github.com/wonny/factorlab/internal/signals"
	"github.com/wonny/factorlab/pkg/config"
	"github.com/wonny/factorlab/pkg/database"
	"github.com/wonny/factorlab/pkg/httputil"
	"github.com/wonny/factorlab/pkg/logger"
	"github.com/wonny/factorlab/pkg/redis"
)

// app bundles the wiring every command shares.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	cache     *redis.Cache
	prices    *repos.PriceRepository
	flows     *repos.FlowRepository
	defs      *repos.DefinitionRepository
	registry  *factor.Registry
	service   *lab.Service
	collector *quotes.Collector
}

// newApp loads config and wires the shared dependency graph.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "factorlab")

	prices := repos.NewPriceRepository(db.Pool)
	flows := repos.NewFlowRepository(db.Pool)
	defs := repos.NewDefinitionRepository(db.Pool)

	httpClient := httputil.New(log).
		WithLocalRateLimit(cfg.Naver.RatePerSec).
		WithRateLimiter(redis.NewRateLimiter(redisClient, "factorlab"), redis.NaverRateLimit)
	naverClient := naver.NewClient(httpClient, log, cfg.Naver)
	collector := quotes.NewCollector(naverClient, prices, flows, log)

	registry := newRegistry(prices, flows)
	service := lab.NewService(defs, registry, prices, log)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     redisClient,
		cache:     cache,
		prices:    prices,
		flows:     flows,
		defs:      defs,
		registry:  registry,
		service:   service,
		collector: collector,
	}, nil
}

// close releases connections.
func (a *app) close() {
	a.redis.Close()
	a.db.Close()
}

// newRegistry registers the built-in factor sources. Definitions refer to
// these by name.
func newRegistry(prices *repos.PriceRepository, flows *repos.FlowRepository) *factor.Registry {
	reg := factor.NewRegistry()
	reg.Register(signals.NewMomentum(prices, 20))
	reg.Register(signals.NewMomentum(prices, 60))
	reg.Register(signals.NewReversal(prices, 5))
	reg.Register(signals.NewVolumeRatio(prices, 5, 20))
	reg.Register(signals.NewForeignFlow(flows, 5))
	return reg
}
