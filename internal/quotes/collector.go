package quotes

import (
	"context"
	"sync"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/data/repos"
	"github.com/wonny/factorlab/internal/quotes/naver"
	"github.com/wonny/factorlab/pkg/logger"
)

// Collector orchestrates market data collection from Naver Finance into
// Postgres.
type Collector struct {
	client *naver.Client
	prices *repos.PriceRepository
	flows  *repos.FlowRepository
	logger *logger.Logger
}

// Config holds collector configuration.
type Config struct {
	Workers int // Number of concurrent workers
}

// NewCollector creates a new Collector instance.
func NewCollector(
	client *naver.Client,
	prices *repos.PriceRepository,
	flows *repos.FlowRepository,
	log *logger.Logger,
) *Collector {
	return &Collector{
		client: client,
		prices: prices,
		flows:  flows,
		logger: log.Component("collector"),
	}
}

// Result reports one security's collection outcome.
type Result struct {
	Security  contracts.Security
	BarCount  int
	FlowCount int
	Err       error
}

// CollectBars fetches and stores daily bars for every security in the list.
func (c *Collector) CollectBars(ctx context.Context, secs []contracts.Security, query contracts.DateRange, cfg Config) []Result {
	return c.run(ctx, secs, cfg, func(ctx context.Context, sec contracts.Security) Result {
		bars, err := c.client.FetchDailyBars(ctx, sec, query)
		if err != nil {
			return Result{Security: sec, Err: err}
		}
		if err := c.prices.SaveBars(ctx, bars); err != nil {
			return Result{Security: sec, Err: err}
		}
		return Result{Security: sec, BarCount: len(bars)}
	})
}

// CollectFlows fetches and stores investor flow rows for every security.
func (c *Collector) CollectFlows(ctx context.Context, secs []contracts.Security, query contracts.DateRange, cfg Config) []Result {
	return c.run(ctx, secs, cfg, func(ctx context.Context, sec contracts.Security) Result {
		flows, err := c.client.FetchInvestorFlow(ctx, sec, query)
		if err != nil {
			return Result{Security: sec, Err: err}
		}
		if err := c.flows.SaveFlows(ctx, flows); err != nil {
			return Result{Security: sec, Err: err}
		}
		return Result{Security: sec, FlowCount: len(flows)}
	})
}

// run distributes securities across a worker pool and gathers results.
func (c *Collector) run(ctx context.Context, secs []contracts.Security, cfg Config, fetch func(context.Context, contracts.Security) Result) []Result {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"securities": len(secs),
		"workers":    workers,
	}).Info("Starting collection")

	secCh := make(chan contracts.Security, len(secs))
	resultCh := make(chan Result, len(secs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sec := range secCh {
				select {
				case <-ctx.Done():
					resultCh <- Result{Security: sec, Err: ctx.Err()}
					continue
				default:
				}
				resultCh <- fetch(ctx, sec)
			}
		}()
	}

	for _, sec := range secs {
		secCh <- sec
	}
	close(secCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(secs))
	successCount, failCount := 0, 0
	for result := range resultCh {
		results = append(results, result)
		if result.Err != nil {
			failCount++
			c.logger.WithError(result.Err).WithField("security", result.Security.String()).Warn("Collection failed")
		} else {
			successCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
	}).Info("Collection completed")

	return results
}
