package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"repairtrack/internal/bootstrap"
	"repairtrack/internal/bootstrap/logging"
	"repairtrack/internal/errs"
	"repairtrack/internal/transport/httpapi"
)

// serveCmd runs the HTTP API together with the notification dispatcher and
// the delivery worker in one process.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the repair tracking HTTP API and notification workers",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svcs services) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))

		server := &http.Server{
			Addr:              app.Config.HTTP.Addr,
			Handler:           httpapi.NewServer(svcs.Repair).Router(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}

		// Sweep events appended while no dispatcher was listening (CLI
		// writes, or a crash between commit and publish) before going live.
		if n, err := svcs.Dispatcher.CatchUp(ctx); err != nil {
			logging.Warn(ctx, "notification catch-up incomplete", slog.Any("err", errs.Loggable(err)))
		} else if n > 0 {
			logging.Info(ctx, "notification catch-up enqueued", slog.Int("count", n))
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			svcs.Dispatcher.Run(ctx, svcs.Bus.Dispatch())
		}()
		go func() {
			defer wg.Done()
			svcs.Worker.Run(ctx)
		}()

		errCh := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server listening", slog.String("addr", app.Config.HTTP.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
			logging.Info(ctx, "shutdown signal received")
		case err := <-errCh:
			stop()
			logging.Error(ctx, "http server failed", slog.Any("err", errs.Loggable(err)))
			wg.Wait()
			return errs.Wrap(err, "serve http")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn(ctx, "http shutdown incomplete", slog.Any("err", errs.Loggable(err)))
		}

		wg.Wait()
		logging.Info(ctx, "serve stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
