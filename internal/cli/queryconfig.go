package cli

import (
	"github.com/asaidimu/go-reportql/core/query"
	"github.com/spf13/cobra"
)

// NewQueryConfigCommand creates the config command, which prints the
// structured query configuration of a selection. Output is always JSON.
func NewQueryConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var selectionFile string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the query configuration of a selection as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := s.model(selectionFile)
			if err != nil {
				return err
			}
			m.GenerateSQL()

			doc, err := query.Serialize(m).Document()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVarP(&selectionFile, "selection", "s", "", "selection file (YAML)")
	return cmd
}
