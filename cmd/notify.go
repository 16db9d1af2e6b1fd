package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"repairtrack/internal/bootstrap"
	"repairtrack/internal/bootstrap/logging"
	"repairtrack/internal/errs"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification delivery commands",
}

// notifyWorkerCmd runs the delivery worker standalone, without the HTTP
// API. Useful when delivery is scaled separately from command intake.
var notifyWorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the notification delivery worker until interrupted",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "notification worker starting")

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			svcs.Worker.Run(ctx)
		}()

		<-ctx.Done()
		wg.Wait()
		logging.Info(ctx, "notification worker stopped")
		return nil
	}),
}

// notifyDrainCmd runs a single delivery pass and exits.
var notifyDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Deliver currently due notifications once and exit",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		attempted, err := svcs.Worker.DeliverDue(ctx)
		if err != nil {
			return errs.Wrap(err, "deliver due notifications")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "delivery pass finished attempted=%d\n", attempted); err != nil {
			return errs.Wrap(err, "write drain output")
		}
		return nil
	}),
}

var notifyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show notification counts by status",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		counts, err := svcs.Worker.Stats(ctx)
		if err != nil {
			return errs.Wrap(err, "count notifications")
		}

		out := cmd.OutOrStdout()
		for _, status := range []string{"pending", "sending", "sent", "failed"} {
			fmt.Fprintf(out, "%-8s %d\n", status, counts[status])
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyWorkerCmd, notifyDrainCmd, notifyStatsCmd)
}
