package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/asaidimu/go-reportql/core/catalog"
	"github.com/asaidimu/go-reportql/core/query"
	"github.com/jedib0t/go-pretty/v6/table"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderCatalog(w io.Writer, sources []catalog.DataSource, tables []catalog.Table) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source", "Status", "Table", "Type", "Rows", "Columns"})

	status := make(map[string]catalog.Status, len(sources))
	for _, ds := range sources {
		status[ds.ID] = ds.Status
	}
	for _, tbl := range tables {
		names := make([]string, len(tbl.Columns))
		for i, c := range tbl.Columns {
			names[i] = c.Name
		}
		t.AppendRow(table.Row{tbl.DataSourceID, status[tbl.DataSourceID], tbl.Name, tbl.TableType, tbl.RowCount, strings.Join(names, ", ")})
	}
	t.Render()
}

func renderPreview(w io.Writer, result *query.PreviewResult) {
	if len(result.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range result.Rows {
		row := make(table.Row, len(result.Columns))
		for i, col := range result.Columns {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(result.Rows))
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
