package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/asaidimu/go-reportql/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureSchema = `
CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER, status VARCHAR(20));
INSERT INTO customers VALUES (1, 'Ada'), (2, 'Grace');
INSERT INTO orders VALUES (1, 1, 'shipped'), (2, 2, 'pending'), (3, 2, 'shipped');
`

const fixtureSelection = `
tables:
  - id: orders
  - id: customers
columns:
  - table: orders
    column: id
  - table: customers
    column: name
filters:
  - table: orders
    column: status
    operator: "="
    value: shipped
sort:
  - field: orders.id
    direction: asc
`

// fixture writes a database, a config file and a selection file into a temp
// directory and returns the config and selection paths.
func fixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "shop.db")
	db, err := sql.Open(sqlite.DriverName, dbPath)
	require.NoError(t, err)
	_, err = db.Exec(fixtureSchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfgPath := filepath.Join(dir, "reportql.yaml")
	cfg := fmt.Sprintf("log_level: error\ndata_sources:\n  - id: shop\n    name: Shop\n    path: %s\n", dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	selPath := filepath.Join(dir, "selection.yaml")
	require.NoError(t, os.WriteFile(selPath, []byte(fixtureSelection), 0o600))
	return cfgPath, selPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "reportql", cmd.Use)

	for _, name := range []string{"tables", "compile", "config", "preview"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cfg, _ := fixture(t)
	_, err := run(t, "tables", "-c", cfg, "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestTablesCommand(t *testing.T) {
	cfg, _ := fixture(t)

	out, err := run(t, "tables", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "customers")
	assert.Contains(t, out, "customer_id")
	assert.Contains(t, out, "connected")

	out, err = run(t, "tables", "-c", cfg, "--format", "json")
	require.NoError(t, err)
	var tables []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	assert.Len(t, tables, 2)
}

func TestCompileCommand(t *testing.T) {
	cfg, sel := fixture(t)

	out, err := run(t, "compile", "-c", cfg, "-s", sel)
	require.NoError(t, err)
	assert.Contains(t, out, "FROM orders orders")
	assert.Contains(t, out, "LEFT JOIN customers customers ON orders.customer_id = customers.id")
	assert.Contains(t, out, "WHERE orders.status = 'shipped'")

	out, err = run(t, "compile", "-c", cfg, "-s", sel, "--bound", "--format", "json")
	require.NoError(t, err)
	var bound boundOutput
	require.NoError(t, json.Unmarshal([]byte(out), &bound))
	assert.Contains(t, bound.SQL, "orders.status = ?")
	assert.Equal(t, []any{"shipped"}, bound.Args)
}

func TestCompileCommand_RequiresSelection(t *testing.T) {
	cfg, _ := fixture(t)
	_, err := run(t, "compile", "-c", cfg)
	assert.ErrorContains(t, err, "selection file is required")
}

func TestQueryConfigCommand(t *testing.T) {
	cfg, sel := fixture(t)

	out, err := run(t, "config", "-c", cfg, "-s", sel)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc["tables"], 2)
	assert.Len(t, doc["fields"], 2)
	assert.Len(t, doc["filters"], 1)
	assert.Contains(t, doc["generated_sql"], "SELECT")
}

func TestPreviewCommand(t *testing.T) {
	cfg, sel := fixture(t)

	out, err := run(t, "preview", "-c", cfg, "-s", sel)
	require.NoError(t, err)
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "Grace")
	assert.Contains(t, out, "(2 rows)")

	out, err = run(t, "preview", "-c", cfg, "-s", sel, "--format", "json", "-n", "1")
	require.NoError(t, err)
	var result struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"Id", "Name"}, result.Columns)
	assert.Len(t, result.Rows, 1)
}
