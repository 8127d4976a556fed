package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/fdsync/internal/api"
	"github.com/your-org/fdsync/internal/api/ws"
	"github.com/your-org/fdsync/internal/app"
	"github.com/your-org/fdsync/pkg/dto"
)

const triggerConsumer = "fdsync-trigger"

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API and accept sync triggers",
		Long: `Serve the HTTP admin API (tenant groups, sync trigger, last report, live
progress over WebSocket) and, when NATS is configured, start runs from
messages on the trigger subject.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, rootOpts)
		},
	}
}

func serve(cmd *cobra.Command, opts *RootOptions) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return connectExit(err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close stores", "error", err)
		}
	}()

	hub := ws.NewHub()
	go hub.Run()
	a.Observe(hub)
	a.OnRunFinished(hub.RunFinished)

	if pub := a.Publisher(); pub != nil {
		err := pub.ConsumeTriggers(ctx, triggerConsumer, func(ctx context.Context, req dto.SyncRequest) error {
			id, err := a.StartAsync(ctx, a.Options(req))
			if err == nil {
				logger.Info("sync triggered", "run_id", id, "requested_by", req.RequestedBy)
			}
			return err
		})
		if err != nil {
			logger.Warn("start trigger consumer", "error", err)
		}
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:         cfg.Server.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RunContext:     ctx,
		Checker:        a,
		Groups:         a.Groups(),
		Runner:         a,
		Hub:            hub,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
	}

	return shutdown(srv, logger)
}

func shutdown(srv *http.Server, logger *slog.Logger) error {
	logger.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "server shutdown", err)
	}
	logger.Info("API server stopped")
	return nil
}
