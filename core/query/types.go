// Package query holds the report builder's query model and the pieces that
// turn a selection into output: alias allocation, join inference, the SQL
// compiler and the QueryConfig serializer.
package query

import "errors"

// Sentinel errors for the query package.
var (
	// ErrNotReady signals a selection that cannot be compiled yet: no tables,
	// no columns or no visible columns.
	ErrNotReady = errors.New("query is not ready to compile")
	// ErrTableNotSelected is returned when an operation references a table
	// that is not part of the current selection.
	ErrTableNotSelected = errors.New("table is not selected")
	// ErrEmptyJoinCondition is returned for a manual join without an ON clause.
	ErrEmptyJoinCondition = errors.New("join condition is required")
	// ErrUnsupportedOperator is returned by bound compilation for operators it
	// cannot translate into a parameterized predicate.
	ErrUnsupportedOperator = errors.New("unsupported filter operator")
)

// JoinType specifies the type of join to be performed.
type JoinType string

// Supported join types.
const (
	JoinTypeInner JoinType = "INNER"
	JoinTypeLeft  JoinType = "LEFT"
	JoinTypeRight JoinType = "RIGHT"
	JoinTypeFull  JoinType = "FULL"
)

// Operator is the comparison operator of a filter, rendered verbatim into SQL.
type Operator string

// Operators offered by the builder.
const (
	OperatorEq        Operator = "="
	OperatorNeq       Operator = "!="
	OperatorLt        Operator = "<"
	OperatorLte       Operator = "<="
	OperatorGt        Operator = ">"
	OperatorGte       Operator = ">="
	OperatorLike      Operator = "LIKE"
	OperatorNotLike   Operator = "NOT LIKE"
	OperatorIsNull    Operator = "IS NULL"
	OperatorIsNotNull Operator = "IS NOT NULL"
)

// IsNullCheck reports whether the operator takes no value.
func (o Operator) IsNullCheck() bool {
	return o == OperatorIsNull || o == OperatorIsNotNull
}

// IsLike reports whether the operator is a pattern match.
func (o Operator) IsLike() bool {
	return o == OperatorLike || o == OperatorNotLike
}

// SortDirection specifies the direction for sorting.
type SortDirection string

// Supported sort directions.
const (
	SortDirectionAsc  SortDirection = "ASC"
	SortDirectionDesc SortDirection = "DESC"
)

// SelectedTable is a catalog table added to the query, with its SQL alias.
type SelectedTable struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Alias        string `json:"alias"`
	DataSourceID string `json:"dataSourceId"`
}

// ColumnDescriptor describes a column of a selected table, as offered to the
// user for selection.
type ColumnDescriptor struct {
	TableID      string `json:"tableId"`
	TableName    string `json:"tableName"`
	TableAlias   string `json:"tableAlias"`
	DataSourceID string `json:"dataSourceId"`
	ColumnName   string `json:"columnName"`
	ColumnType   string `json:"columnType"`
	PrimaryKey   bool   `json:"primaryKey"`
	Nullable     bool   `json:"nullable"`
	FullName     string `json:"fullName"`    // alias.column, used in SQL
	DisplayName  string `json:"displayName"` // table.column, shown to users
}

// SelectedColumn is a column picked for the SELECT list.
type SelectedColumn struct {
	ColumnDescriptor
	Alias   string `json:"alias"`
	Visible bool   `json:"visible"`
}

func (c SelectedColumn) matches(d ColumnDescriptor) bool {
	return c.TableID == d.TableID && c.DataSourceID == d.DataSourceID && c.ColumnName == d.ColumnName
}

// Join connects two selected tables.
type Join struct {
	ID                string   `json:"id"`
	LeftTable         string   `json:"leftTable"`
	LeftDataSourceID  string   `json:"leftDataSourceId"`
	RightTable        string   `json:"rightTable"`
	RightDataSourceID string   `json:"rightDataSourceId"`
	JoinType          JoinType `json:"joinType"`
	Condition         string   `json:"condition"`
}

func (j Join) references(tableID, dataSourceID string) bool {
	return (j.LeftTable == tableID && j.LeftDataSourceID == dataSourceID) ||
		(j.RightTable == tableID && j.RightDataSourceID == dataSourceID)
}

// connects reports whether the join links the two tables, in either direction.
func (j Join) connects(a, b SelectedTable) bool {
	return (j.references(a.ID, a.DataSourceID) && j.references(b.ID, b.DataSourceID)) &&
		!(a.ID == b.ID && a.DataSourceID == b.DataSourceID)
}

// Filter is a single WHERE condition on a column of a selected table. A filter
// with an empty Column or Value is incomplete and is left out of compilation.
type Filter struct {
	ID           string   `json:"id"`
	TableID      string   `json:"tableId"`
	DataSourceID string   `json:"dataSourceId"`
	Column       string   `json:"column"`
	Operator     Operator `json:"operator"`
	Value        string   `json:"value"`
	DataType     string   `json:"dataType"`
}

// complete reports whether the filter takes part in compilation.
func (f Filter) complete() bool {
	return f.Column != "" && f.Value != ""
}

// SortSpec orders the result by a field.
type SortSpec struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// PreviewResult holds rows returned by an executor for the current query.
type PreviewResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}
