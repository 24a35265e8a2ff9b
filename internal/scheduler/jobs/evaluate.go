package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/factorlab/internal/lab"
	"github.com/wonny/factorlab/pkg/logger"
)

// Broadcaster receives evaluation summaries after each run. The websocket
// stream implements this.
type Broadcaster interface {
	Broadcast(summaries []lab.Summary)
}

// EvaluateJob re-evaluates every stored definition and broadcasts the
// summaries.
type EvaluateJob struct {
	service   *lab.Service
	broadcast Broadcaster
	schedule  string
	topN      int
	logger    *logger.Logger
}

// NewEvaluateJob creates the evaluation job. broadcast may be nil when no
// stream is running.
func NewEvaluateJob(service *lab.Service, broadcast Broadcaster, schedule string, log *logger.Logger) *EvaluateJob {
	return &EvaluateJob{
		service:   service,
		broadcast: broadcast,
		schedule:  schedule,
		topN:      10,
		logger:    log.Component("evaluate-job"),
	}
}

// Name returns the job name.
func (j *EvaluateJob) Name() string {
	return "evaluate_definitions"
}

// Schedule returns the cron expression from config.
func (j *EvaluateJob) Schedule() string {
	return j.schedule
}

// Run evaluates all definitions. Per-definition failures are carried inside
// the summaries; only a store failure aborts the run.
func (j *EvaluateJob) Run(ctx context.Context) error {
	summaries, err := j.service.EvaluateAll(ctx, j.topN)
	if err != nil {
		return fmt.Errorf("evaluate definitions: %w", err)
	}

	failed := 0
	for _, summary := range summaries {
		if summary.Err != "" {
			failed++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"definitions": len(summaries),
		"failed":      failed,
	}).Info("Evaluation run completed")

	if j.broadcast != nil {
		j.broadcast.Broadcast(summaries)
	}

	return nil
}
