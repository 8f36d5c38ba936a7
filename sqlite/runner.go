package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asaidimu/go-reportql/core/query"
	"go.uber.org/zap"
)

// DefaultPreviewRows caps previews when the query itself has no limit.
const DefaultPreviewRows = 100

// dbRunner abstracts *sql.DB and *sql.Tx.
type dbRunner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Runner executes compiled report queries against a SQLite database.
type Runner struct {
	db       dbRunner
	compiler *query.Compiler
	logger   *zap.Logger
	maxRows  int
}

// NewRunner creates a runner over db, which may be a *sql.DB or a *sql.Tx.
func NewRunner(db dbRunner, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		db:       db,
		compiler: query.NewCompiler(logger),
		logger:   logger,
		maxRows:  DefaultPreviewRows,
	}
}

// WithMaxRows sets how many rows Preview keeps at most. Zero or less keeps
// everything the query returns.
func (r *Runner) WithMaxRows(n int) *Runner {
	r.maxRows = n
	return r
}

// Preview compiles the model with bound parameters, runs it and stores the
// rows on the model. Result columns are named by the select aliases.
func (r *Runner) Preview(ctx context.Context, m *query.Model) (*query.PreviewResult, error) {
	sqlQuery, args, err := r.compiler.CompileBound(m)
	if err != nil {
		return nil, fmt.Errorf("failed to compile preview query: %w", err)
	}
	result, err := r.Run(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	m.SetPreview(result)
	return result, nil
}

// Run executes a SELECT and reads the rows.
func (r *Runner) Run(ctx context.Context, sqlQuery string, args ...any) (*query.PreviewResult, error) {
	r.logger.Debug("Executing SQL SELECT", zap.String("sql", sqlQuery), zap.Any("params", args))

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		r.logger.Error("Failed to execute SELECT query", zap.Error(err), zap.String("sql", sqlQuery))
		return nil, fmt.Errorf("failed to execute SELECT query: %w", err)
	}
	defer rows.Close()
	return readRows(rows, r.maxRows)
}

// readRows reads up to max rows (all when max <= 0). Text comes back from
// the driver as []byte for some column types and is turned into strings.
// Repeated result column names are made unique, see uniqueColumnNames.
func readRows(rows *sql.Rows, max int) (*query.PreviewResult, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columns := uniqueColumnNames(names)

	result := &query.PreviewResult{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		if max > 0 && len(result.Rows) >= max {
			break
		}
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return result, nil
}

// uniqueColumnNames suffixes repeated names with their occurrence number, so
// two "Id" columns are read as "Id" and "Id_2". Rows are keyed by name and a
// repeat would otherwise overwrite the earlier value.
func uniqueColumnNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]struct{}, len(names))
	for i, name := range names {
		candidate := name
		for n := 2; ; n++ {
			if _, ok := taken[candidate]; !ok {
				break
			}
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		taken[candidate] = struct{}{}
		out[i] = candidate
	}
	return out
}
