package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"repairtrack/internal/bootstrap"
	"repairtrack/internal/bootstrap/logging"
	"repairtrack/internal/errs"
	usecaserepair "repairtrack/internal/usecase/repair"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Repair job commands",
}

var jobCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a repair job",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		customerRef, _ := cmd.Flags().GetString("customer")
		deviceMeta, _ := cmd.Flags().GetString("device-meta")
		costCents, _ := cmd.Flags().GetInt64("estimated-cost-cents")
		actor, _ := cmd.Flags().GetString("actor")

		jobID, res, err := svcs.Repair.CreateJob(ctx, usecaserepair.CreateJobInput{
			CustomerRef:        customerRef,
			DeviceMeta:         json.RawMessage(deviceMeta),
			EstimatedCostCents: costCents,
			Actor:              actor,
		})
		if err != nil {
			return errs.Wrap(err, "create job")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "job created id=%s status=%s seq=%d\n", jobID, res.Status, res.Seq); err != nil {
			return errs.Wrap(err, "write job create output")
		}
		return nil
	}),
}

var jobShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show the current projection of a job",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		agg, err := svcs.Repair.GetJob(ctx, cmd.Flags().Args()[0])
		if err != nil {
			return errs.Wrap(err, "get job")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "job       %s\n", agg.JobID)
		fmt.Fprintf(out, "customer  %s\n", agg.CustomerRef)
		fmt.Fprintf(out, "status    %s\n", agg.Status)
		fmt.Fprintf(out, "milestone %s (%d%%)\n", agg.Milestone, agg.Progress)
		fmt.Fprintf(out, "rework    %d\n", agg.ReworkCount)
		fmt.Fprintf(out, "seq       %d\n", agg.Seq)
		for _, a := range agg.OpenAssignments() {
			role := "assistant"
			if a.IsPrimary {
				role = "primary"
			}
			fmt.Fprintf(out, "tech      %s (%s)\n", a.TechnicianID, role)
		}
		return nil
	}),
}

var jobTimelineCmd = &cobra.Command{
	Use:   "timeline <job-id>",
	Short: "Print a job's timeline events in order",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		from, _ := cmd.Flags().GetUint64("from")
		events, err := svcs.Repair.GetTimeline(ctx, cmd.Flags().Args()[0], from)
		if err != nil {
			return errs.Wrap(err, "get timeline")
		}

		out := cmd.OutOrStdout()
		for _, ev := range events {
			fmt.Fprintf(out, "%4d  %-22s %-20s %s  %s\n", ev.Seq, ev.Kind, ev.Actor, ev.CreatedAt, string(ev.Payload))
		}
		return nil
	}),
}

var jobStatusCmd = &cobra.Command{
	Use:   "status <job-id> <target-status>",
	Short: "Request a status transition",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		args := cmd.Flags().Args()
		actor, _ := cmd.Flags().GetString("actor")
		note, _ := cmd.Flags().GetString("note")

		input := usecaserepair.ChangeStatusInput{
			JobID:        args[0],
			ActorID:      actor,
			TargetStatus: args[1],
			Note:         note,
		}
		if cmd.Flags().Changed("progress") {
			progress, _ := cmd.Flags().GetInt("progress")
			input.ProgressOverride = &progress
		}

		res, err := svcs.Repair.ChangeStatus(ctx, input)
		if err != nil {
			return errs.Wrap(err, "change status")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "job %s now %s milestone=%q progress=%d seq=%d\n",
			res.JobID, res.Status, res.Milestone, res.Progress, res.Seq); err != nil {
			return errs.Wrap(err, "write status output")
		}
		return nil
	}),
}

var jobNoteCmd = &cobra.Command{
	Use:   "note <job-id> <text>",
	Short: "Add a note to a job's timeline",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		args := cmd.Flags().Args()
		actor, _ := cmd.Flags().GetString("actor")
		private, _ := cmd.Flags().GetBool("private")

		res, err := svcs.Repair.AddNote(ctx, usecaserepair.AddNoteInput{
			JobID:     args[0],
			ActorID:   actor,
			Text:      args[1],
			IsPrivate: private,
		})
		if err != nil {
			return errs.Wrap(err, "add note")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "note recorded seq=%d\n", res.Seq); err != nil {
			return errs.Wrap(err, "write note output")
		}
		return nil
	}),
}

var jobPhotoCmd = &cobra.Command{
	Use:   "photo <job-id> <url>",
	Short: "Attach a photo reference to a job's timeline",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		args := cmd.Flags().Args()
		actor, _ := cmd.Flags().GetString("actor")
		category, _ := cmd.Flags().GetString("category")

		res, err := svcs.Repair.AddPhoto(ctx, usecaserepair.AddPhotoInput{
			JobID:    args[0],
			ActorID:  actor,
			URL:      args[1],
			Category: category,
		})
		if err != nil {
			return errs.Wrap(err, "add photo")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "photo recorded seq=%d\n", res.Seq); err != nil {
			return errs.Wrap(err, "write photo output")
		}
		return nil
	}),
}

var jobQualityCmd = &cobra.Command{
	Use:   "quality <job-id>",
	Short: "Submit a quality check result",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, _ := cmd.Flags().GetString("actor")
		passed, _ := cmd.Flags().GetBool("passed")
		score, _ := cmd.Flags().GetFloat64("score")
		issues, _ := cmd.Flags().GetStringSlice("issue")
		recommendations, _ := cmd.Flags().GetStringSlice("recommend")

		res, err := svcs.Repair.SubmitQualityCheck(ctx, usecaserepair.SubmitQualityCheckInput{
			JobID:           cmd.Flags().Args()[0],
			ActorID:         actor,
			Passed:          passed,
			Score:           score,
			Issues:          issues,
			Recommendations: recommendations,
		})
		if err != nil {
			return errs.Wrap(err, "submit quality check")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "quality check recorded, job now %s rework=%d seq=%d\n",
			res.Status, res.Rework, res.Seq); err != nil {
			return errs.Wrap(err, "write quality output")
		}
		return nil
	}),
}

var jobAssignCmd = &cobra.Command{
	Use:   "assign <job-id> <technician-id>",
	Short: "Assign a technician to a job",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		args := cmd.Flags().Args()
		actor, _ := cmd.Flags().GetString("actor")
		primary, _ := cmd.Flags().GetBool("primary")

		res, err := svcs.Repair.AssignTechnician(ctx, usecaserepair.AssignTechnicianInput{
			JobID:        args[0],
			ActorID:      actor,
			TechnicianID: args[1],
			IsPrimary:    primary,
		})
		if err != nil {
			return errs.Wrap(err, "assign technician")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "technician %s assigned seq=%d\n", args[1], res.Seq); err != nil {
			return errs.Wrap(err, "write assign output")
		}
		return nil
	}),
}

var jobUnassignCmd = &cobra.Command{
	Use:   "unassign <job-id> <technician-id>",
	Short: "Remove a technician from a job",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		args := cmd.Flags().Args()
		actor, _ := cmd.Flags().GetString("actor")

		res, err := svcs.Repair.UnassignTechnician(ctx, usecaserepair.UnassignTechnicianInput{
			JobID:        args[0],
			ActorID:      actor,
			TechnicianID: args[1],
		})
		if err != nil {
			return errs.Wrap(err, "unassign technician")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "technician %s unassigned seq=%d\n", args[1], res.Seq); err != nil {
			return errs.Wrap(err, "write unassign output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobCreateCmd, jobShowCmd, jobTimelineCmd, jobStatusCmd, jobNoteCmd, jobPhotoCmd, jobQualityCmd, jobAssignCmd, jobUnassignCmd)

	jobCmd.PersistentFlags().String("actor", "cli", "Acting user id recorded on events")

	jobCreateCmd.Flags().String("customer", "", "Customer reference")
	jobCreateCmd.Flags().String("device-meta", "{}", "Device metadata as JSON")
	jobCreateCmd.Flags().Int64("estimated-cost-cents", 0, "Estimated repair cost in cents")
	_ = jobCreateCmd.MarkFlagRequired("customer")

	jobTimelineCmd.Flags().Uint64("from", 0, "Only events with seq greater than this")

	jobStatusCmd.Flags().String("note", "", "Optional note recorded with the transition")
	jobStatusCmd.Flags().Int("progress", 0, "Override progress percentage (0-100)")

	jobNoteCmd.Flags().Bool("private", false, "Mark the note internal-only")

	jobPhotoCmd.Flags().String("category", "", "Photo category (intake, diagnosis, repair, final)")

	jobQualityCmd.Flags().Bool("passed", false, "Whether the check passed")
	jobQualityCmd.Flags().Float64("score", 0, "Quality score 0-10")
	jobQualityCmd.Flags().StringSlice("issue", nil, "Issue found (repeatable)")
	jobQualityCmd.Flags().StringSlice("recommend", nil, "Recommendation (repeatable)")

	jobAssignCmd.Flags().Bool("primary", false, "Assign as primary technician")
}
