package query

import (
	"github.com/asaidimu/go-reportql/utils"
)

// DataSourceRef identifies a data source in a QueryConfig.
type DataSourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// FieldConfig is a visible output column in a QueryConfig.
type FieldConfig struct {
	TableID      string `json:"table_id"`
	TableAlias   string `json:"table_alias"`
	DataSourceID string `json:"data_source_id"`
	Column       string `json:"column"`
	ColumnType   string `json:"column_type"`
	Alias        string `json:"alias"`
	Visible      bool   `json:"visible"`
}

// FilterConfig is a complete filter in a QueryConfig.
type FilterConfig struct {
	TableID      string   `json:"table_id"`
	DataSourceID string   `json:"data_source_id"`
	TableAlias   string   `json:"table_alias"`
	Column       string   `json:"column"`
	Operator     Operator `json:"operator"`
	Value        string   `json:"value"`
	DataType     string   `json:"data_type"`
}

// QueryConfig is the structured form of a selection, sent to executors that
// build their own statement. It applies the same column and filter rules as
// the compiler and carries the last compiled SQL alongside.
type QueryConfig struct {
	DataSources  []DataSourceRef `json:"dataSources"`
	Tables       []SelectedTable `json:"tables"`
	Joins        []Join          `json:"joins"`
	Fields       []FieldConfig   `json:"fields"`
	Filters      []FilterConfig  `json:"filters"`
	OrderBy      []SortSpec      `json:"order_by"`
	Limit        int             `json:"limit"`
	GeneratedSQL string          `json:"generated_sql"`
}

// Serialize projects the model into a QueryConfig. Slices are never nil so
// the JSON form always carries arrays.
func Serialize(m *Model) QueryConfig {
	cfg := QueryConfig{
		DataSources:  []DataSourceRef{},
		Tables:       m.Tables(),
		Joins:        m.Joins(),
		Fields:       []FieldConfig{},
		Filters:      []FilterConfig{},
		OrderBy:      m.Sort(),
		Limit:        m.limit,
		GeneratedSQL: m.generatedSQL,
	}
	if cfg.Tables == nil {
		cfg.Tables = []SelectedTable{}
	}
	if cfg.Joins == nil {
		cfg.Joins = []Join{}
	}
	if cfg.OrderBy == nil {
		cfg.OrderBy = []SortSpec{}
	}

	for _, ds := range m.SelectedDataSources() {
		cfg.DataSources = append(cfg.DataSources, DataSourceRef{ID: ds.ID, Name: ds.Name, Type: ds.Type})
	}

	for _, col := range m.columns {
		if !col.Visible {
			continue
		}
		cfg.Fields = append(cfg.Fields, FieldConfig{
			TableID:      col.TableID,
			TableAlias:   col.TableAlias,
			DataSourceID: col.DataSourceID,
			Column:       col.ColumnName,
			ColumnType:   col.ColumnType,
			Alias:        col.Alias,
			Visible:      col.Visible,
		})
	}

	for _, f := range m.filters {
		if !f.complete() {
			continue
		}
		alias := f.TableID
		if t, ok := m.findTable(f.TableID, f.DataSourceID); ok {
			alias = t.Alias
		}
		cfg.Filters = append(cfg.Filters, FilterConfig{
			TableID:      f.TableID,
			DataSourceID: f.DataSourceID,
			TableAlias:   alias,
			Column:       f.Column,
			Operator:     f.Operator,
			Value:        f.Value,
			DataType:     f.DataType,
		})
	}
	return cfg
}

// Document returns the config as a generic JSON document.
func (c QueryConfig) Document() (utils.Document, error) {
	return utils.ToDocument(c)
}
