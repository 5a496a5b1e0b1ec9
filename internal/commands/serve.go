package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/roost/internal/api"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
	"github.com/simonhull/firebird-suite/roost/internal/output"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the generation HTTP API",
	Long: `Starts the HTTP API. Jobs are kept in memory and evicted after
jobs.retention once they resolve.

Example:
  roost serve
  roost serve --addr :9000
  ROOST_LOG_FORMAT=json roost serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.jobs.RunSweeper(ctx, cfg.Jobs.SweepInterval)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewServer(a.jobs, a.templates, log).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	output.Info(fmt.Sprintf("Listening on %s", cfg.Server.Addr))
	log.Info("server started", logger.F("addr", cfg.Server.Addr))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", logger.Err(err))
	}
	return a.jobs.Shutdown(shutdownCtx)
}
