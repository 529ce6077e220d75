package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"swipely/internal/api"
	"swipely/internal/queueaccess"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"queue"},
		Short:   "Inspect and manage carousel jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsResetStuckCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				items, err := access.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.CarouselListResponse{Items: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Status", "Source", "Style", "Slides", "Prompt", "Created"},
					buildJobListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job with its slides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				item, err := access.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("job %d not found", ids[0])
				}
				if asJSON {
					return writeJSON(cmd, api.CarouselResponse{Item: *item})
				}
				printJobDetail(cmd.OutOrStdout(), item)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "retry [id...]",
		Short: "Re-queue failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass job ids or --all")
			}
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				out := cmd.OutOrStdout()
				if all {
					count, err := access.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed jobs\n", count)
					return nil
				}
				ids, err := parseJobIDs(args)
				if err != nil {
					return err
				}
				result, err := access.Retry(cmd.Context(), ids)
				if err != nil {
					return err
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RetryJobUpdated:
						fmt.Fprintf(out, "Job %d re-queued\n", item.ID)
					case api.RetryJobNotFailed:
						fmt.Fprintf(out, "Job %d is not failed\n", item.ID)
					default:
						fmt.Fprintf(out, "Job %d not found\n", item.ID)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Retry every failed job")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id...>",
		Short: "Delete jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				result, err := access.Remove(cmd.Context(), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, item := range result.Items {
					if item.Outcome == api.RemoveJobRemoved {
						fmt.Fprintf(out, "Job %d removed\n", item.ID)
					} else {
						fmt.Fprintf(out, "Job %d not found\n", item.ID)
					}
				}
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var completed bool
	var failed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs in bulk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completed && failed {
				return errors.New("specify only one of --completed or --failed")
			}
			var statuses []string
			label := "jobs"
			switch {
			case completed:
				statuses, label = []string{"completed"}, "completed jobs"
			case failed:
				statuses, label = []string{"failed"}, "failed jobs"
			}
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				removed, err := access.Clear(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "Only remove completed jobs")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only remove failed jobs")
	return cmd
}

func newJobsResetStuckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight jobs to pending (daemon must be stopped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				count, err := access.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d in-flight jobs\n", count)
				return nil
			})
		},
	}
}

func parseJobIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func buildJobListRows(items []api.Carousel) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Status,
			item.Source,
			item.Style,
			strconv.Itoa(item.SlideCount),
			truncate(item.Prompt, 40),
			item.CreatedAt,
		})
	}
	return rows
}

func printJobDetail(out io.Writer, item *api.Carousel) {
	fmt.Fprintf(out, "Job %d\n", item.ID)
	fmt.Fprintf(out, "  Status:   %s\n", item.Status)
	if item.Progress.Stage != "" {
		fmt.Fprintf(out, "  Progress: %s %.0f%% %s\n", item.Progress.Stage, item.Progress.Percent, item.Progress.Message)
	}
	fmt.Fprintf(out, "  Source:   %s (%s lane)\n", item.Source, item.Lane)
	fmt.Fprintf(out, "  Style:    %s, %s\n", item.Style, item.Settings.Format)
	fmt.Fprintf(out, "  Photos:   %s\n", yesNo(item.PhotoMode))
	fmt.Fprintf(out, "  Prompt:   %s\n", item.Prompt)
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:    %s\n", item.ErrorMessage)
	}
	for i, slide := range item.Slides {
		fmt.Fprintf(out, "  [%d] %s\n", i+1, slide.Title)
	}
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
