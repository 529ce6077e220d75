package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"swipely/internal/outputs"
	"swipely/internal/store"
)

func newOutputsCommand(ctx *commandContext) *cobra.Command {
	outputsCmd := &cobra.Command{
		Use:   "outputs",
		Short: "Inspect and prune rendered carousel files",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List output directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := outputs.List(cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, dirs)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintf(out, "No output directories in %s\n", cfg.Paths.OutputDir)
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			var total int64
			for _, dir := range dirs {
				job := "-"
				if dir.JobID > 0 {
					job = strconv.FormatInt(dir.JobID, 10)
				}
				rows = append(rows, []string{dir.Name, job, dir.ModTime.Format(time.RFC3339), formatBytes(dir.Size)})
				total += dir.Size
			}
			fmt.Fprint(out, renderTable(
				[]string{"Directory", "Job", "Modified", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d directories, %s\n", len(dirs), formatBytes(total))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete output directories of finished jobs past retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			maxAge := olderThan
			if maxAge <= 0 {
				maxAge = outputs.Retention(cfg)
			}
			out := cmd.OutOrStdout()
			if maxAge <= 0 {
				fmt.Fprintln(out, "Retention disabled (paths.output_retention_days = 0); pass --older-than")
				return nil
			}
			return ctx.withStore(func(st *store.Store) error {
				result, err := outputs.PruneInactive(cmd.Context(), cfg.Paths.OutputDir, maxAge, st, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d directories (%s)\n", len(result.Removed), formatBytes(result.Freed()))
				for _, failure := range result.Errors {
					fmt.Fprintf(out, "  failed: %s: %v\n", failure.Path, failure.Err)
				}
				return nil
			})
		},
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Override paths.output_retention_days (e.g. 72h)")

	outputsCmd.AddCommand(listCmd, pruneCmd)
	return outputsCmd
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
