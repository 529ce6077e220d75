package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swipely/internal/logging"
	"swipely/internal/promo"
	"swipely/internal/store"
)

func newPromoCommand(ctx *commandContext) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "promo <job-id>",
		Short: "Build a promo video from a completed carousel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := logging.NewNop()
			if verbose {
				logger, err = logging.New(logging.Options{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}})
				if err != nil {
					return err
				}
			}
			return ctx.withStore(func(st *store.Store) error {
				job, err := st.GetByID(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", ids[0])
				}
				result, err := promo.NewBuilder(cfg.Promo, promo.WithLogger(logger)).
					FromJob(cmd.Context(), job, cfg.JobOutputDir(job.ID))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Promo written to %s (%d slides, %s)\n", result.Path, result.Slides, result.Duration)
				if result.AV1Path != "" {
					fmt.Fprintf(out, "AV1 copy: %s\n", result.AV1Path)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log encoder progress to stderr")
	return cmd
}
