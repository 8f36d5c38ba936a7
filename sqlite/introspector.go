// Package sqlite connects reportql to SQLite databases: it discovers tables
// and columns for the catalog and runs compiled queries for previews.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/asaidimu/go-reportql/core/catalog"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DriverName is the database/sql driver used to open sources.
const DriverName = "sqlite3"

// Source declares a SQLite database file as a data source.
type Source struct {
	ID   string
	Name string
	Path string
}

// Introspector discovers the catalog of one or more SQLite databases. Sources
// are opened lazily and kept open until Close.
type Introspector struct {
	sources []Source
	dbs     map[string]*sql.DB
	mu      sync.Mutex
	logger  *zap.Logger
}

// Ensure Introspector implements the catalog.Introspector interface.
var _ catalog.Introspector = (*Introspector)(nil)

// NewIntrospector creates an introspector over the given sources.
func NewIntrospector(sources []Source, logger *zap.Logger) *Introspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Introspector{
		sources: append([]Source(nil), sources...),
		dbs:     make(map[string]*sql.DB),
		logger:  logger,
	}
}

// Attach registers an already open database as a source. The introspector
// takes ownership and closes it on Close.
func (i *Introspector) Attach(id, name string, db *sql.DB) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if old, ok := i.dbs[id]; ok && old != db {
		old.Close()
	}
	i.dbs[id] = db
	for _, s := range i.sources {
		if s.ID == id {
			return
		}
	}
	i.sources = append(i.sources, Source{ID: id, Name: name})
}

// DB returns the connection pool of a source, opening it if needed.
func (i *Introspector) DB(dataSourceID string) (*sql.DB, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if db, ok := i.dbs[dataSourceID]; ok {
		return db, nil
	}
	for _, s := range i.sources {
		if s.ID != dataSourceID {
			continue
		}
		db, err := sql.Open(DriverName, s.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open data source %s: %w", s.ID, err)
		}
		i.dbs[s.ID] = db
		return db, nil
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrDataSourceNotFound, dataSourceID)
}

// DataSources lists the declared sources. Each one is pinged; sources that
// cannot be reached are reported as failed rather than returned as an error.
func (i *Introspector) DataSources(ctx context.Context) ([]catalog.DataSource, error) {
	i.mu.Lock()
	sources := append([]Source(nil), i.sources...)
	i.mu.Unlock()

	out := make([]catalog.DataSource, 0, len(sources))
	for _, s := range sources {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		ds := catalog.DataSource{ID: s.ID, Name: name, Type: "sqlite", Status: catalog.StatusConnected}

		db, err := i.DB(s.ID)
		if err == nil {
			err = db.PingContext(ctx)
		}
		if err != nil {
			i.logger.Warn("Data source is not reachable", zap.String("dataSource", s.ID), zap.Error(err))
			ds.Status = catalog.StatusFailed
		}
		out = append(out, ds)
	}
	return out, nil
}

// Tables lists user tables and views of a source, ordered by name. Row
// counts are best effort: a failed count is logged and left at zero.
func (i *Introspector) Tables(ctx context.Context, dataSourceID string) ([]catalog.Table, error) {
	db, err := i.DB(dataSourceID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %s: %w", dataSourceID, err)
	}
	defer rows.Close()

	var tables []catalog.Table
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, catalog.Table{
			ID:           name,
			Name:         name,
			DataSourceID: dataSourceID,
			TableType:    kind,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning tables: %w", err)
	}
	rows.Close()

	for idx := range tables {
		count, err := i.rowCount(ctx, db, tables[idx].Name)
		if err != nil {
			i.logger.Warn("Failed to count rows", zap.String("table", tables[idx].Name), zap.Error(err))
			continue
		}
		tables[idx].RowCount = count
	}
	return tables, nil
}

func (i *Introspector) rowCount(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdentifier(table)).Scan(&n)
	return n, err
}

// Columns reads a table's columns with PRAGMA table_info, in declaration
// order, mapping declared types with MapDataType.
func (i *Introspector) Columns(ctx context.Context, dataSourceID, tableName string) ([]catalog.Column, error) {
	db, err := i.DB(dataSourceID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteIdentifier(tableName)+")")
	if err != nil {
		return nil, fmt.Errorf("PRAGMA table_info for table %q failed: %w", tableName, err)
	}
	defer rows.Close()

	var cols []catalog.Column
	for rows.Next() {
		var (
			cid       int
			name      string
			declared  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %q: %w", tableName, err)
		}
		col := catalog.Column{
			Name:       name,
			Type:       MapDataType(declared),
			PrimaryKey: pk > 0,
			Nullable:   notNull == 0 && pk == 0,
		}
		if dfltValue.Valid {
			v := dfltValue.String
			col.DefaultValue = &v
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning columns of %q: %w", tableName, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", catalog.ErrTableNotFound, dataSourceID, tableName)
	}
	return cols, nil
}

// Close closes every opened source.
func (i *Introspector) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	var firstErr error
	for id, db := range i.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", id, err)
		}
		delete(i.dbs, id)
	}
	return firstErr
}
