package cli

import (
	"github.com/spf13/cobra"
)

// TablesOptions holds flags for the tables command.
type TablesOptions struct {
	*RootOptions
	DataSource string
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TablesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Discover and list tables of the configured data sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			tables := s.catalog.Tables()
			if opts.DataSource != "" {
				tables = s.catalog.TablesForDataSource(opts.DataSource)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), tables)
			}
			renderCatalog(cmd.OutOrStdout(), s.catalog.DataSources(), tables)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.DataSource, "source", "d", "", "only list tables of this data source")
	return cmd
}
