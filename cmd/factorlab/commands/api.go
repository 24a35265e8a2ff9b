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
)

// apiCmd starts the HTTP API server.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

Endpoints:
  GET    /health                          - Health check
  GET    /api/definitions                 - List factor definitions
  POST   /api/definitions                 - Save a definition
  GET    /api/definitions/{name}          - Get one definition
  DELETE /api/definitions/{name}          - Delete a definition
  GET    /api/definitions/{name}/cross    - Ranked cross section
  GET    /api/definitions/{name}/ic       - Information coefficient series
  GET    /api/definitions/{name}/icir     - IC information ratio series
  GET    /api/definitions/{name}/summary  - Compact evaluation
  GET    /ws/evaluations                  - Evaluation push feed

Example:
  go run ./cmd/factorlab api
  go run ./cmd/factorlab api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	if apiPort != "" {
		application.cfg.Port = apiPort
	}

	log := application.log

	stream := api.NewStream(log)
	labHandler := handlers.NewLabHandler(application.service, application.cache, log)
	router := api.NewRouter(labHandler, stream, log)
	server := api.New(application.cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", application.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
