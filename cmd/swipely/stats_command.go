package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"swipely/internal/queueaccess"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show user, job and revenue counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access queueaccess.Access) error {
				stats, err := access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				writeSection(out, "Today", colorize, []string{
					renderStatusLine("Generations", statusInfo, strconv.Itoa(stats.GenerationsToday), colorize),
					renderStatusLine("Photo generations", statusInfo, strconv.Itoa(stats.PhotoToday), colorize),
				})

				tiers := make([][]string, 0, len(stats.UsersByTier))
				for _, tier := range sortedKeys(stats.UsersByTier) {
					tiers = append(tiers, []string{tier, strconv.Itoa(stats.UsersByTier[tier])})
				}
				for _, line := range renderSectionHeader("Users", colorize) {
					fmt.Fprintln(out, line)
				}
				if len(tiers) == 0 {
					fmt.Fprintln(out, "No users")
				} else {
					fmt.Fprint(out, renderTable([]string{"Tier", "Users"}, tiers, []columnAlignment{alignLeft, alignRight}))
				}
				fmt.Fprintln(out)

				for _, line := range renderSectionHeader("Jobs", colorize) {
					fmt.Fprintln(out, line)
				}
				if rows := buildJobStatusRows(stats.JobsByStatus); len(rows) > 0 {
					fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				} else {
					fmt.Fprintln(out, "No jobs")
				}

				if len(stats.Revenue) > 0 {
					fmt.Fprintln(out)
					for _, line := range renderSectionHeader("Revenue", colorize) {
						fmt.Fprintln(out, line)
					}
					rows := make([][]string, 0, len(stats.Revenue))
					for _, currency := range sortedKeys(stats.Revenue) {
						rows = append(rows, []string{currency, stats.Revenue[currency]})
					}
					fmt.Fprint(out, renderTable([]string{"Currency", "Total"}, rows, []columnAlignment{alignLeft, alignRight}))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
