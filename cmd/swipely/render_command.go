package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"swipely/internal/carousel"
	"swipely/internal/render"
	"swipely/internal/templates"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		styleID  string
		format   string
		lang     string
		handle   string
		outDir   string
		htmlOnly bool
	)

	cmd := &cobra.Command{
		Use:   "render <slides.json>",
		Short: "Render a slides file to PNG images",
		Long: "Render slides from a JSON file (an array of slides or an object with a \"slides\" key)\n" +
			"with one of the built-in templates. --html-only writes the slide documents without Chrome.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			slides, err := readSlidesFile(args[0])
			if err != nil {
				return err
			}

			catalog, err := templates.Default()
			if err != nil {
				return err
			}
			if strings.TrimSpace(styleID) == "" {
				styleID = catalog.DefaultID()
			}
			style, ok := catalog.Lookup(styleID)
			if !ok {
				return fmt.Errorf("unknown style %q (available: %s)", styleID, strings.Join(catalog.IDs(), ", "))
			}
			parsedFormat, ok := carousel.ParseFormat(format)
			if !ok {
				return fmt.Errorf("unknown format %q", format)
			}
			settings := carousel.DefaultSettings()
			settings.Format = parsedFormat
			if handle != "" {
				settings.Handle = handle
				settings.ShowHandle = true
			}
			settings = settings.Normalize()

			docs, err := templates.RenderAll(slides, style, settings, lang)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outDir)
			if target == "" {
				target = filepath.Join(cfg.Paths.OutputDir, "render-"+strings.ToLower(ulid.Make().String()))
			}
			out := cmd.OutOrStdout()

			if htmlOnly {
				if err := os.MkdirAll(target, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
				for i, doc := range docs {
					name := strings.TrimSuffix(render.SlideFileName(i), ".png") + ".html"
					if err := os.WriteFile(filepath.Join(target, name), []byte(doc), 0o644); err != nil {
						return fmt.Errorf("write slide %d: %w", i+1, err)
					}
				}
				fmt.Fprintf(out, "Wrote %d slide documents to %s\n", len(docs), target)
				return nil
			}

			renderer := render.New(render.OptionsFromConfig(cfg), nil)
			defer renderer.Close()
			paths, err := renderer.RenderCarousel(cmd.Context(), docs, parsedFormat, target)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&styleID, "style", "s", "", "Template id (see 'swipely templates')")
	cmd.Flags().StringVarP(&format, "format", "f", string(carousel.FormatSquare), "Output format (square, portrait or stories)")
	cmd.Flags().StringVar(&lang, "lang", "en", "Document language")
	cmd.Flags().StringVar(&handle, "handle", "", "Instagram handle shown on each slide")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default under paths.output_dir)")
	cmd.Flags().BoolVar(&htmlOnly, "html-only", false, "Write HTML documents instead of PNGs")
	return cmd
}

func readSlidesFile(path string) ([]carousel.Slide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slides: %w", err)
	}
	data = bytes.TrimSpace(data)
	var slides []carousel.Slide
	if bytes.HasPrefix(data, []byte("[")) {
		err = json.Unmarshal(data, &slides)
	} else {
		var wrapped struct {
			Slides []carousel.Slide `json:"slides"`
		}
		err = json.Unmarshal(data, &wrapped)
		slides = wrapped.Slides
	}
	if err != nil {
		return nil, fmt.Errorf("parse slides: %w", err)
	}
	slides = carousel.Normalize(slides)
	if err := carousel.Validate(slides); err != nil {
		return nil, err
	}
	return slides, nil
}
