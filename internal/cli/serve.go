package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/piispectre/internal/httpserver"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(info BuildInfo) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				cfg.Server.ListenAddr = listenAddr
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			logger := slog.Default()
			srv := httpserver.New(httpserver.Config{
				ListenAddr:         cfg.Server.ListenAddr,
				APIKey:             cfg.Server.APIKey,
				RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
				ReadHeaderTimeout:  cfg.ReadHeaderTimeout(),
			}, a.scanner, a.sources, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting piispectre", "version", info.Version, "history", cfg.History.Driver)
			return run(ctx, srv, cfg.ShutdownTimeout(), logger)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides server.listen_addr)")

	return cmd
}

type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// run serves until ctx is cancelled or the server fails, then shuts down
// within timeout.
func run(ctx context.Context, srv server, timeout time.Duration, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
