// Package catalog defines the read-only inventory of data sources, tables and
// columns that the report builder works against. Entries are produced by a
// discovery layer (see Loader) and are never mutated by the query model other
// than to record column metadata handed to it alongside a table.
package catalog

import "errors"

// Status describes the connection state of a data source.
type Status string

const (
	StatusConnected    Status = "connected"    // Discovery can read tables from the source
	StatusDisconnected Status = "disconnected" // Source is known but not reachable
	StatusFailed       Status = "failed"       // The last connection attempt errored
)

// Sentinel errors returned by catalog lookups and loaders.
var (
	ErrDataSourceNotFound = errors.New("data source not found")
	ErrTableNotFound      = errors.New("table not found")
)

// DataSource is a database the catalog was discovered from.
type DataSource struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"` // Driver family, e.g. "sqlite", "postgres"
	Status Status `json:"status"`
}

// Column is the immutable metadata of a single table column.
type Column struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	PrimaryKey   bool    `json:"primary_key"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// Table is one physical table of one data source. A table with no columns is
// a valid entry: it is what discovery produces when fetching its columns failed.
type Table struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	DataSourceID string   `json:"dataSourceId"`
	TableType    string   `json:"table_type,omitempty"`
	Columns      []Column `json:"columns"`
	RowCount     int64    `json:"row_count"`
}

// Key identifies a table across data sources.
type Key struct {
	DataSourceID string
	TableID      string
}

// Key returns the catalog key of the table.
func (t Table) Key() Key {
	return Key{DataSourceID: t.DataSourceID, TableID: t.ID}
}

// ConnectionStatus summarises the state of all known data sources.
type ConnectionStatus struct {
	Total     int `json:"total"`
	Connected int `json:"connected"`
	Failed    int `json:"failed"` // Disconnected and failed sources
}
