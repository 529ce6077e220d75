package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swipely/internal/api"
	"swipely/internal/templates"
)

func newTemplatesCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "templates",
		Short:       "List carousel design templates",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := templates.Default()
			if err != nil {
				return err
			}
			styles := catalog.List()
			if asJSON {
				return writeJSON(cmd, map[string][]api.Template{"items": api.FromTemplates(styles)})
			}
			rows := make([][]string, 0, len(styles))
			for _, style := range styles {
				id := style.ID
				if id == catalog.DefaultID() {
					id += " *"
				}
				rows = append(rows, []string{id, style.Name, string(style.Layout), style.Colors.Accent, style.Description})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Layout", "Accent", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
