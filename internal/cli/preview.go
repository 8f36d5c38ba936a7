package cli

import (
	"fmt"

	"github.com/asaidimu/go-reportql/sqlite"
	"github.com/spf13/cobra"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	Selection string
	MaxRows   int
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Run a selection against its data source and show the rows",
		Long: `Run a selection with bound parameters against the data source of its
first table and print the resulting rows.

All selected tables must live in that data source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := s.model(opts.Selection)
			if err != nil {
				return err
			}
			tables := m.Tables()
			if len(tables) == 0 {
				return fmt.Errorf("selection has no tables")
			}
			anchor := tables[0].DataSourceID
			for _, t := range tables[1:] {
				if t.DataSourceID != anchor {
					return fmt.Errorf("preview across data sources is not supported: %s is in %s, not %s", t.Name, t.DataSourceID, anchor)
				}
			}

			db, err := s.introspector.DB(anchor)
			if err != nil {
				return err
			}
			result, err := sqlite.NewRunner(db, s.logger).WithMaxRows(opts.MaxRows).Preview(cmd.Context(), m)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderPreview(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Selection, "selection", "s", "", "selection file (YAML)")
	cmd.Flags().IntVarP(&opts.MaxRows, "max-rows", "n", sqlite.DefaultPreviewRows, "maximum rows to show")
	return cmd
}
