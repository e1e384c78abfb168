package cli

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
	"golang.org/x/sync/errgroup"

	apphttp "saldo/internal/http"
	"saldo/internal/log"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}
}

// runServe serves until SIGINT or SIGTERM. It backs both "saldo serve" and a
// bare "saldo".
func (a *app) runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.serve(ctx)
}

// serve blocks until ctx is cancelled, then shuts the server down within
// the configured timeout.
func (a *app) serve(ctx context.Context) error {
	svc, cleanup, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	logger := a.logger.WithComponent(log.ComponentHTTP)
	srv := apphttp.NewServer(a.cfg.Addr(), svc, a.cfg.IndexPath, logger)

	srv.ReadTimeout = a.cfg.ReadTimeout
	srv.WriteTimeout = a.cfg.WriteTimeout
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting saldo server",
			log.FieldOperation, log.OpStartup,
			"addr", srv.Addr,
			"db_path", a.cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
