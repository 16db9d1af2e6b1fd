package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"repairtrack/internal/bootstrap"
	"repairtrack/internal/bootstrap/logging"
	"repairtrack/internal/errs"
	"repairtrack/internal/transport/channel"
	usecasenotify "repairtrack/internal/usecase/notify"
	usecaserepair "repairtrack/internal/usecase/repair"
)

// services bundles everything a subcommand may need beyond the App itself.
type services struct {
	fx.In

	Repair     *usecaserepair.Service
	Dispatcher *usecasenotify.Dispatcher
	Worker     *usecasenotify.DeliveryWorker
	Bus        *channel.Bus
}

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svcs services) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		var svcs services
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app, &svcs),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		runErr := run(cmd, app, svcs)

		// CLI processes have no dispatcher loop consuming the bus, so sweep
		// any events this command appended into notification rows before
		// exiting. Idempotent, and a no-op for read-only commands.
		if _, err := svcs.Dispatcher.CatchUp(ctx); err != nil {
			logging.Warn(ctx, "notification catch-up incomplete", slog.Any("err", errs.Loggable(err)))
		}

		if runErr != nil {
			return errs.Wrap(runErr, "run command")
		}
		return nil
	}
}
