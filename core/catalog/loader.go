package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrLoadInProgress is returned when a data source is already being loaded.
var ErrLoadInProgress = errors.New("tables are already loading for this data source")

// Introspector reads catalog information from the outside world. Tables
// returned by Tables need not carry columns; the Loader fetches those per
// table through Columns.
type Introspector interface {
	DataSources(ctx context.Context) ([]DataSource, error)
	Tables(ctx context.Context, dataSourceID string) ([]Table, error)
	Columns(ctx context.Context, dataSourceID, tableName string) ([]Column, error)
}

// Loader fills a Catalog from an Introspector. Connected data sources are
// loaded in parallel; a failing source is logged and skipped, and a table
// whose columns cannot be read is kept with an empty column list.
type Loader struct {
	introspector Introspector
	catalog      *Catalog
	logger       *zap.Logger

	mu      sync.Mutex
	loading map[string]bool
}

// NewLoader creates a Loader writing into cat.
func NewLoader(introspector Introspector, cat *Catalog, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		introspector: introspector,
		catalog:      cat,
		logger:       logger,
		loading:      make(map[string]bool),
	}
}

// LoadAll loads the data source list and then the tables of every connected
// source. If the data source list itself cannot be read, the catalog is
// cleared and the error returned.
func (l *Loader) LoadAll(ctx context.Context) error {
	sources, err := l.introspector.DataSources(ctx)
	if err != nil {
		l.logger.Error("Failed to load data sources", zap.Error(err))
		l.catalog.SetDataSources(nil)
		l.catalog.SetTables(nil)
		return fmt.Errorf("failed to load data sources: %w", err)
	}
	l.catalog.SetDataSources(sources)
	l.logger.Info("Loaded data sources", zap.Int("count", len(sources)))

	return l.loadConnected(ctx)
}

// RefreshAll drops every table and reloads all connected sources.
func (l *Loader) RefreshAll(ctx context.Context) error {
	l.catalog.SetTables(nil)
	return l.loadConnected(ctx)
}

func (l *Loader) loadConnected(ctx context.Context) error {
	var connected []DataSource
	for _, ds := range l.catalog.DataSources() {
		if ds.Status == StatusConnected {
			connected = append(connected, ds)
		}
	}
	if len(connected) == 0 {
		l.logger.Info("No connected data sources found")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ds := range connected {
		g.Go(func() error {
			if _, err := l.LoadDataSource(gctx, ds.ID); err != nil {
				// A single source failing does not abort the others.
				l.logger.Warn("Failed to load tables for data source",
					zap.String("dataSource", ds.ID), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// LoadDataSource (re)loads the tables of one data source and replaces them in
// the catalog.
func (l *Loader) LoadDataSource(ctx context.Context, dataSourceID string) ([]Table, error) {
	if !l.begin(dataSourceID) {
		return nil, ErrLoadInProgress
	}
	defer l.end(dataSourceID)

	tables, err := l.introspector.Tables(ctx, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables for data source %s: %w", dataSourceID, err)
	}
	l.logger.Debug("Found tables", zap.String("dataSource", dataSourceID), zap.Int("count", len(tables)))

	loaded := make([]Table, 0, len(tables))
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		columns, err := l.introspector.Columns(ctx, dataSourceID, t.Name)
		if err != nil {
			l.logger.Warn("Failed to load columns, keeping table without columns",
				zap.String("dataSource", dataSourceID), zap.String("table", t.Name), zap.Error(err))
			columns = []Column{}
		}
		loaded = append(loaded, Table{
			ID:           t.Name,
			Name:         t.Name,
			DataSourceID: dataSourceID,
			TableType:    tableTypeOrDefault(t.TableType),
			RowCount:     t.RowCount,
			Columns:      columns,
		})
	}

	l.catalog.ReplaceDataSourceTables(dataSourceID, loaded)
	l.logger.Info("Loaded tables", zap.String("dataSource", dataSourceID), zap.Int("count", len(loaded)))
	return loaded, nil
}

// IsLoading reports whether any data source is currently loading.
func (l *Loader) IsLoading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, busy := range l.loading {
		if busy {
			return true
		}
	}
	return false
}

func (l *Loader) begin(dataSourceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loading[dataSourceID] {
		return false
	}
	l.loading[dataSourceID] = true
	return true
}

func (l *Loader) end(dataSourceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading[dataSourceID] = false
}

func tableTypeOrDefault(t string) string {
	if t == "" {
		return "table"
	}
	return t
}
