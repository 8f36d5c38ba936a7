// Package selection reads report selections from YAML and replays them on a
// query model through its public operations.
package selection

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/asaidimu/go-reportql/core/query"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSelection is wrapped by every error Apply returns for a document
// that does not fit the catalog.
var ErrInvalidSelection = errors.New("invalid selection")

// Document is a saved report selection.
type Document struct {
	Tables  []TableRef  `yaml:"tables"`
	Columns []ColumnRef `yaml:"columns"`
	Joins   []JoinRef   `yaml:"joins,omitempty"`
	Filters []FilterRef `yaml:"filters,omitempty"`
	Sort    []SortRef   `yaml:"sort,omitempty"`
	Limit   *int        `yaml:"limit,omitempty"`
}

// TableRef names a catalog table. DataSource may be omitted when the table
// ID is unambiguous.
type TableRef struct {
	ID         string `yaml:"id"`
	DataSource string `yaml:"data_source,omitempty"`
}

// ColumnRef selects a column of a selected table.
type ColumnRef struct {
	Table      string `yaml:"table"`
	DataSource string `yaml:"data_source,omitempty"`
	Column     string `yaml:"column"`
	Alias      string `yaml:"alias,omitempty"`
	Visible    *bool  `yaml:"visible,omitempty"`
}

// JoinRef declares a join in addition to the inferred ones.
type JoinRef struct {
	Left      string `yaml:"left"`
	Right     string `yaml:"right"`
	Condition string `yaml:"condition"`
	Type      string `yaml:"type,omitempty"`
}

// FilterRef is a WHERE condition. DataType defaults to the column's type.
type FilterRef struct {
	Table      string `yaml:"table"`
	DataSource string `yaml:"data_source,omitempty"`
	Column     string `yaml:"column"`
	Operator   string `yaml:"operator"`
	Value      string `yaml:"value,omitempty"`
	DataType   string `yaml:"data_type,omitempty"`
}

// SortRef orders by a field, usually alias.column.
type SortRef struct {
	Field     string `yaml:"field"`
	Direction string `yaml:"direction,omitempty"`
}

// Parse decodes a document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to decode selection: %w", err)
	}
	return &doc, nil
}

// Load reads a document from a file.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open selection %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Marshal encodes a document as YAML.
func (d *Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// Apply replays the document on m, whose catalog must already hold the
// referenced tables. Tables are added first, so inferred joins exist before
// the document's own joins are added.
func (d *Document) Apply(m *query.Model) error {
	cat := m.Catalog()

	for _, ref := range d.Tables {
		t, ok := cat.Table(ref.ID, ref.DataSource)
		if !ok {
			return fmt.Errorf("%w: table %q not found in catalog", ErrInvalidSelection, ref.ID)
		}
		m.AddTable(t)
	}

	available := m.AvailableColumns()
	for _, ref := range d.Columns {
		c, ok := findColumn(available, ref.Table, ref.DataSource, ref.Column)
		if !ok {
			return fmt.Errorf("%w: column %s.%s is not available", ErrInvalidSelection, ref.Table, ref.Column)
		}
		if !isSelected(m, c) {
			m.ToggleColumn(c)
		}
		if ref.Alias != "" {
			m.SetColumnAlias(c, ref.Alias)
		}
		if ref.Visible != nil {
			m.SetColumnVisible(c, *ref.Visible)
		}
	}

	for _, ref := range d.Joins {
		if _, err := m.AddJoin(query.Join{
			LeftTable:  ref.Left,
			RightTable: ref.Right,
			Condition:  ref.Condition,
			JoinType:   query.JoinType(ref.Type),
		}); err != nil {
			return fmt.Errorf("%w: join %s -> %s: %w", ErrInvalidSelection, ref.Left, ref.Right, err)
		}
	}

	for _, ref := range d.Filters {
		if err := applyFilter(m, available, ref); err != nil {
			return err
		}
	}

	for _, ref := range d.Sort {
		m.AddSort(ref.Field, query.SortDirection(ref.Direction))
	}

	if d.Limit != nil {
		m.SetLimit(*d.Limit)
	}
	return nil
}

// FromModel captures the current selection of m as a document. Joins are
// not recorded; applying the document infers them again.
func FromModel(m *query.Model) *Document {
	doc := &Document{}
	for _, t := range m.Tables() {
		doc.Tables = append(doc.Tables, TableRef{ID: t.ID, DataSource: t.DataSourceID})
	}
	for _, c := range m.Columns() {
		ref := ColumnRef{Table: c.TableID, DataSource: c.DataSourceID, Column: c.ColumnName}
		if c.Alias != query.FormatColumnAlias(c.ColumnName) {
			ref.Alias = c.Alias
		}
		if !c.Visible {
			hidden := false
			ref.Visible = &hidden
		}
		doc.Columns = append(doc.Columns, ref)
	}
	for _, f := range m.Filters() {
		doc.Filters = append(doc.Filters, FilterRef{
			Table:      f.TableID,
			DataSource: f.DataSourceID,
			Column:     f.Column,
			Operator:   string(f.Operator),
			Value:      f.Value,
			DataType:   f.DataType,
		})
	}
	for _, s := range m.Sort() {
		doc.Sort = append(doc.Sort, SortRef{Field: s.Field, Direction: string(s.Direction)})
	}
	limit := m.Limit()
	doc.Limit = &limit
	return doc
}

// applyFilter adds one filter. A filter without a column is still being
// edited; it is restored on its table as is and stays out of the SQL until
// completed.
func applyFilter(m *query.Model, available []query.ColumnDescriptor, ref FilterRef) error {
	var (
		tableID, dataSourceID, column, columnType string
	)
	if ref.Column == "" {
		t, ok := findSelectedTable(m, ref.Table, ref.DataSource)
		if !ok {
			return fmt.Errorf("%w: filter table %q is not selected", ErrInvalidSelection, ref.Table)
		}
		tableID, dataSourceID = t.ID, t.DataSourceID
	} else {
		c, ok := findColumn(available, ref.Table, ref.DataSource, ref.Column)
		if !ok {
			return fmt.Errorf("%w: filter column %s.%s is not available", ErrInvalidSelection, ref.Table, ref.Column)
		}
		tableID, dataSourceID, column, columnType = c.TableID, c.DataSourceID, c.ColumnName, c.ColumnType
	}

	f := m.AddFilter()
	if f == nil {
		return fmt.Errorf("%w: filters need a selected table", ErrInvalidSelection)
	}
	f.TableID = tableID
	f.DataSourceID = dataSourceID
	f.Column = column
	if ref.Operator != "" {
		f.Operator = query.Operator(strings.ToUpper(ref.Operator))
	}
	f.Value = ref.Value
	switch {
	case ref.DataType != "":
		f.DataType = ref.DataType
	case columnType != "":
		f.DataType = columnType
	}
	m.UpdateFilter(*f)
	return nil
}

func findSelectedTable(m *query.Model, table, dataSource string) (query.SelectedTable, bool) {
	for _, t := range m.Tables() {
		if t.ID == table && (dataSource == "" || t.DataSourceID == dataSource) {
			return t, true
		}
	}
	return query.SelectedTable{}, false
}

func findColumn(cols []query.ColumnDescriptor, table, dataSource, column string) (query.ColumnDescriptor, bool) {
	for _, c := range cols {
		if c.TableID == table && c.ColumnName == column && (dataSource == "" || c.DataSourceID == dataSource) {
			return c, true
		}
	}
	return query.ColumnDescriptor{}, false
}

func isSelected(m *query.Model, c query.ColumnDescriptor) bool {
	for _, sc := range m.SelectedTableColumns(c.TableID, &c.DataSourceID) {
		if sc.ColumnName == c.ColumnName {
			return true
		}
	}
	return false
}
