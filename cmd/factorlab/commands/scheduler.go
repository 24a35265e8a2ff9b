package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlab/internal/api"
	"github.com/wonny/factorlab/internal/api/handlers"
	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/scheduler"
	"github.com/wonny/factorlab/internal/scheduler/jobs"
)

// schedulerCmd runs the collection and evaluation jobs on their cron
// schedules, with the evaluation feed exposed over websocket.
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scheduled collection and evaluation jobs",
	Long: `Run the cron scheduler. Each weekday evening it tops up market data
for every security referenced by a stored definition, then re-evaluates all
definitions and broadcasts the summaries to websocket subscribers of a
colocated API server.

Example:
  go run ./cmd/factorlab scheduler
  SCHEDULER_EVALUATE_SPEC="0 */10 * * * *" go run ./cmd/factorlab scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	log := application.log

	if !application.cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled (SCHEDULER_ENABLED=false)")
	}

	// Collect for every security any stored definition references.
	secs, err := referencedSecurities(application)
	if err != nil {
		return err
	}

	// Serve the read API and websocket feed from this process, so
	// subscribers receive broadcasts from the jobs running here.
	stream := api.NewStream(log)
	labHandler := handlers.NewLabHandler(application.service, application.cache, log)
	router := api.NewRouter(labHandler, stream, log)
	server := api.New(application.cfg, log, router)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	sched := scheduler.New(log)

	if len(secs) > 0 {
		collectJob := jobs.NewCollectJob(application.collector, secs, application.cfg.Scheduler.CollectSpec, 7, log)
		if err := sched.AddJob(collectJob); err != nil {
			return err
		}
	} else {
		log.Warn("No stored definitions, skipping collection job")
	}

	evaluateJob := jobs.NewEvaluateJob(application.service, stream, application.cfg.Scheduler.EvaluateSpec, log)
	if err := sched.AddJob(evaluateJob); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	fmt.Println("Scheduler running. Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// referencedSecurities unions the universes and references of all stored
// definitions.
func referencedSecurities(application *app) ([]contracts.Security, error) {
	defs, err := application.service.Definitions(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	seen := make(map[contracts.Security]struct{})
	var secs []contracts.Security
	add := func(code string) {
		sec := contracts.Security(code)
		if _, ok := seen[sec]; !ok {
			seen[sec] = struct{}{}
			secs = append(secs, sec)
		}
	}

	for _, def := range defs {
		add(def.Reference)
		for _, code := range def.Universe {
			add(code)
		}
	}
	return secs, nil
}
