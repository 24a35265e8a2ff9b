package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/quotes"
	"github.com/wonny/factorlab/pkg/logger"
)

// CollectJob tops up daily bars and investor flows for a set of securities
// before the evaluation job runs.
type CollectJob struct {
	collector  *quotes.Collector
	securities []contracts.Security
	schedule   string
	lookback   int
	logger     *logger.Logger
}

// NewCollectJob creates the collection job. lookback is how many calendar
// days back each run re-fetches, covering late corrections.
func NewCollectJob(collector *quotes.Collector, securities []contracts.Security, schedule string, lookback int, log *logger.Logger) *CollectJob {
	if lookback < 1 {
		lookback = 7
	}
	return &CollectJob{
		collector:  collector,
		securities: securities,
		schedule:   schedule,
		lookback:   lookback,
		logger:     log.Component("collect-job"),
	}
}

// Name returns the job name.
func (j *CollectJob) Name() string {
	return "collect_market_data"
}

// Schedule returns the cron expression from config.
func (j *CollectJob) Schedule() string {
	return j.schedule
}

// Run collects recent bars and flows for every configured security.
func (j *CollectJob) Run(ctx context.Context) error {
	now := time.Now()
	query := contracts.NewDateRange(now.AddDate(0, 0, -j.lookback), now)
	cfg := quotes.Config{Workers: 4}

	results := j.collector.CollectBars(ctx, j.securities, query, cfg)
	for _, result := range results {
		if result.Err != nil {
			return fmt.Errorf("collect bars for %s: %w", result.Security, result.Err)
		}
	}

	results = j.collector.CollectFlows(ctx, j.securities, query, cfg)
	for _, result := range results {
		if result.Err != nil {
			return fmt.Errorf("collect flows for %s: %w", result.Security, result.Err)
		}
	}

	j.logger.WithField("securities", len(j.securities)).Info("Collection run completed")
	return nil
}
