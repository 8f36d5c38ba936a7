package catalog

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Catalog stores the discovered data sources and tables, plus a metadata index
// keyed by (data source, table). The index may hold entries that are not part
// of the table list: the query model records column metadata for tables it is
// given directly. Those recorded entries survive table list replacements;
// entries of discovered tables live only as long as the table is listed.
//
// A Catalog is safe for concurrent use; the Loader writes to it from several
// goroutines while a session reads from it.
type Catalog struct {
	mu          sync.RWMutex
	dataSources []DataSource
	tables      []Table
	metadata    map[Key]Table
	recorded    map[Key]struct{}
	logger      *zap.Logger
}

// New creates an empty catalog.
func New(logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		metadata: make(map[Key]Table),
		recorded: make(map[Key]struct{}),
		logger:   logger,
	}
}

// SetDataSources replaces the list of known data sources.
func (c *Catalog) SetDataSources(sources []DataSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataSources = slices.Clone(sources)
	c.logger.Debug("Updated data sources", zap.Int("count", len(sources)))
}

// DataSources returns a copy of the known data sources.
func (c *Catalog) DataSources() []DataSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.dataSources)
}

// DataSource looks a data source up by ID.
func (c *Catalog) DataSource(id string) (DataSource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ds := range c.dataSources {
		if ds.ID == id {
			return ds, true
		}
	}
	return DataSource{}, false
}

// SetTables replaces the table list wholesale and rebuilds the metadata
// index from it, keeping only entries recorded with AddTableMetadata.
func (c *Catalog) SetTables(tables []Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = slices.Clone(tables)
	for k := range c.metadata {
		if _, ok := c.recorded[k]; !ok {
			delete(c.metadata, k)
		}
	}
	for _, t := range tables {
		c.metadata[t.Key()] = cloneTable(t)
	}
	c.logger.Debug("Updated available tables", zap.Int("count", len(tables)))
}

// ReplaceDataSourceTables swaps the tables of a single data source, leaving
// the other sources untouched. Used when one source is refreshed.
func (c *Catalog) ReplaceDataSourceTables(dataSourceID string, tables []Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var kept []Table
	for _, t := range c.tables {
		if t.DataSourceID != dataSourceID {
			kept = append(kept, t)
		}
	}
	for k := range c.metadata {
		if _, ok := c.recorded[k]; !ok && k.DataSourceID == dataSourceID {
			delete(c.metadata, k)
		}
	}
	for _, t := range tables {
		kept = append(kept, t)
		c.metadata[t.Key()] = cloneTable(t)
	}
	c.tables = kept
}

// RemoveDataSource drops a data source and all of its tables.
func (c *Catalog) RemoveDataSource(dataSourceID string) {
	c.ReplaceDataSourceTables(dataSourceID, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataSources = slices.DeleteFunc(c.dataSources, func(ds DataSource) bool {
		return ds.ID == dataSourceID
	})
}

// Tables returns a copy of all available tables.
func (c *Catalog) Tables() []Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tables)
}

// TablesForDataSource returns the tables discovered for one data source.
func (c *Catalog) TablesForDataSource(dataSourceID string) []Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Table
	for _, t := range c.tables {
		if t.DataSourceID == dataSourceID {
			out = append(out, t)
		}
	}
	return out
}

// Table finds an available table by ID. An empty dataSourceID matches any
// source and returns the first hit.
func (c *Catalog) Table(tableID, dataSourceID string) (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tables {
		if t.ID == tableID && (dataSourceID == "" || t.DataSourceID == dataSourceID) {
			return t, true
		}
	}
	return Table{}, false
}

// AddTableMetadata records metadata for a single table. The entry is kept
// when the table list is later replaced.
func (c *Catalog) AddTableMetadata(t Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[t.Key()] = cloneTable(t)
	c.recorded[t.Key()] = struct{}{}
}

// TableMetadata returns the recorded metadata for a table.
func (c *Catalog) TableMetadata(dataSourceID, tableID string) (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.metadata[Key{DataSourceID: dataSourceID, TableID: tableID}]
	if !ok {
		return Table{}, false
	}
	return cloneTable(t), true
}

// ConnectionStatus counts data sources by state.
func (c *Catalog) ConnectionStatus() ConnectionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status := ConnectionStatus{Total: len(c.dataSources)}
	for _, ds := range c.dataSources {
		switch ds.Status {
		case StatusConnected:
			status.Connected++
		case StatusDisconnected, StatusFailed:
			status.Failed++
		}
	}
	return status
}

func cloneTable(t Table) Table {
	t.Columns = slices.Clone(t.Columns)
	return t
}
