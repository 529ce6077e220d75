package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"swipely/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		jobID  int64
		level  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logs.CurrentPath(cfg.Paths.LogDir)
			var keep func(string) bool
			if jobID > 0 {
				keep = logs.JobFilter(jobID)
			}
			keep = logs.All(keep, logs.LevelFilter(level))

			out := cmd.OutOrStdout()
			emit := func(line string) { fmt.Fprintln(out, line) }
			if follow {
				return logs.Follow(cmd.Context(), path, lines, keep, emit)
			}

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			if len(result.Lines) == 0 {
				fmt.Fprintf(out, "No log output at %s\n", path)
				return nil
			}
			for _, line := range result.Lines {
				if keep == nil || keep(line) {
					emit(line)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().Int64Var(&jobID, "job", 0, "Only lines for this job id")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	_ = cmd.RegisterFlagCompletionFunc("level", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return strings.Fields("debug info warn error"), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
