package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"swipely/internal/carousel"
	"swipely/internal/daemonctl"
	"swipely/internal/daemonrun"
	"swipely/internal/logging"
	"swipely/internal/notifications"
	"swipely/internal/pipeline"
	"swipely/internal/stageexec"
	"swipely/internal/store"
	"swipely/internal/templates"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		styleID string
		slides  int
		photo   bool
		format  string
		lang    string
		handle  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a carousel from a topic",
		Long: "Generate a carousel from a topic. With the daemon running the job is queued;\n" +
			"otherwise the pipeline runs in the foreground and prints the slide paths.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prompt, err := carousel.CleanPrompt(strings.Join(args, " "), carousel.MaxPromptRunes)
			if err != nil {
				return err
			}
			catalog, err := templates.Default()
			if err != nil {
				return err
			}
			if styleID == "" {
				styleID = catalog.DefaultID()
			}
			if _, ok := catalog.Lookup(styleID); !ok {
				return fmt.Errorf("unknown style %q (available: %s)", styleID, strings.Join(catalog.IDs(), ", "))
			}
			parsedFormat, ok := carousel.ParseFormat(format)
			if !ok {
				return fmt.Errorf("unknown format %q", format)
			}
			if slides <= 0 {
				slides = cfg.Limits.DefaultSlides
			}
			settings := carousel.DefaultSettings()
			settings.Format = parsedFormat
			if handle != "" {
				settings.Handle = handle
				settings.ShowHandle = true
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}

			req := store.JobRequest{
				Source:     store.SourceCLI,
				Prompt:     prompt,
				Style:      styleID,
				Language:   lang,
				SlideCount: carousel.ClampSlideCount(slides, cfg.Limits.MinSlides, cfg.Limits.MaxSlides),
				PhotoMode:  photo,
				Settings:   settings.Normalize(),
			}
			out := cmd.OutOrStdout()

			running, _, err := daemonctl.ProcessInfo(cfg)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				job, err := st.NewJob(cmd.Context(), req)
				if err != nil {
					return err
				}
				if running {
					fmt.Fprintf(out, "Queued job %d; the daemon will render it (swipely jobs show %d)\n", job.ID, job.ID)
					return nil
				}

				level := "error"
				if verbose {
					level = "info"
				}
				logger, err := logging.New(logging.Options{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
				if err != nil {
					return err
				}
				stages, renderer := daemonrun.Stages(cmd.Context(), cfg, st, catalog, nil, logger)
				defer renderer.Close()

				lastStage := ""
				opts := stageexec.Options{
					Logger:   logger,
					Store:    st,
					Notifier: notifications.NewService(cfg),
					Progress: func(job *store.Job) {
						if job.ProgressStage != "" && job.ProgressStage != lastStage {
							lastStage = job.ProgressStage
							fmt.Fprintf(out, "[%d] %s\n", job.ID, job.ProgressStage)
						}
					},
				}
				if err := stageexec.RunAll(cmd.Context(), opts, stageexec.FromStageSet(stages), job); err != nil {
					return fmt.Errorf("job %d failed: %w", job.ID, err)
				}
				for _, path := range pipeline.SlidePaths(job.OutputDir) {
					fmt.Fprintln(out, path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&styleID, "style", "s", "", "Template id (see 'swipely templates')")
	cmd.Flags().IntVarP(&slides, "slides", "n", 0, "Slide count (default limits.default_slides)")
	cmd.Flags().BoolVar(&photo, "photo", false, "Photo Mode: illustrate slides with generated images")
	cmd.Flags().StringVarP(&format, "format", "f", string(carousel.FormatSquare), "Output format (square, portrait or stories)")
	cmd.Flags().StringVar(&lang, "lang", "en", "Slide language")
	cmd.Flags().StringVar(&handle, "handle", "", "Instagram handle shown on each slide")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	return cmd
}
