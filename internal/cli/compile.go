package cli

import (
	"fmt"

	"github.com/asaidimu/go-reportql/core/query"
	"github.com/spf13/cobra"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Selection string
	Bound     bool
}

// boundOutput is the JSON form of a parameterized query.
type boundOutput struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a selection file to SQL",
		Long: `Compile a YAML selection to SQL.

By default filter values are written into the statement as literals. With
--bound they are replaced by placeholders and printed separately.`,
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

			out := cmd.OutOrStdout()
			if opts.Bound {
				sql, params, err := query.NewCompiler(s.logger).CompileBound(m)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(out, boundOutput{SQL: sql, Args: params})
				}
				_, _ = fmt.Fprintln(out, sql)
				for i, p := range params {
					_, _ = fmt.Fprintf(out, "-- $%d = %v\n", i+1, p)
				}
				return nil
			}

			sql := m.GenerateSQL()
			if sql == "" {
				return query.ErrNotReady
			}
			if opts.Format == "json" {
				return writeJSON(out, boundOutput{SQL: sql, Args: []any{}})
			}
			_, _ = fmt.Fprintln(out, sql)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Selection, "selection", "s", "", "selection file (YAML)")
	cmd.Flags().BoolVar(&opts.Bound, "bound", false, "use placeholders for filter values")
	return cmd
}
