package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIntrospector struct {
	mu          sync.Mutex
	sources     []DataSource
	sourcesErr  error
	tables      map[string][]Table
	tablesErr   map[string]error
	columns     map[string][]Column // keyed by "<ds>/<table>"
	columnsErr  map[string]error
	tableCalls  map[string]int
	columnCalls int
}

func (f *fakeIntrospector) DataSources(ctx context.Context) ([]DataSource, error) {
	return f.sources, f.sourcesErr
}

func (f *fakeIntrospector) Tables(ctx context.Context, dataSourceID string) ([]Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tableCalls == nil {
		f.tableCalls = make(map[string]int)
	}
	f.tableCalls[dataSourceID]++
	if err := f.tablesErr[dataSourceID]; err != nil {
		return nil, err
	}
	return f.tables[dataSourceID], nil
}

func (f *fakeIntrospector) Columns(ctx context.Context, dataSourceID, tableName string) ([]Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.columnCalls++
	key := dataSourceID + "/" + tableName
	if err := f.columnsErr[key]; err != nil {
		return nil, err
	}
	return f.columns[key], nil
}

func newFake() *fakeIntrospector {
	return &fakeIntrospector{
		sources: []DataSource{
			{ID: "shop", Name: "Shop", Type: "sqlite", Status: StatusConnected},
			{ID: "crm", Name: "CRM", Type: "sqlite", Status: StatusConnected},
			{ID: "old", Name: "Old", Type: "sqlite", Status: StatusDisconnected},
		},
		tables: map[string][]Table{
			"shop": {{Name: "orders", RowCount: 3}, {Name: "customers", TableType: "view"}},
			"crm":  {{Name: "contacts"}},
			"old":  {{Name: "legacy"}},
		},
		columns: map[string][]Column{
			"shop/orders":    {{Name: "id", Type: "INTEGER", PrimaryKey: true}, {Name: "customer_id", Type: "INTEGER", Nullable: true}},
			"shop/customers": {{Name: "id", Type: "INTEGER", PrimaryKey: true}},
			"crm/contacts":   {{Name: "email", Type: "TEXT"}},
		},
	}
}

func TestLoader_LoadAll(t *testing.T) {
	fake := newFake()
	cat := New(nil)
	loader := NewLoader(fake, cat, zap.NewNop())

	require.NoError(t, loader.LoadAll(context.Background()))

	assert.Len(t, cat.DataSources(), 3)
	assert.Len(t, cat.TablesForDataSource("shop"), 2)
	assert.Len(t, cat.TablesForDataSource("crm"), 1)
	assert.Empty(t, cat.TablesForDataSource("old"), "disconnected sources are not loaded")
	assert.Zero(t, fake.tableCalls["old"])

	orders, ok := cat.Table("orders", "shop")
	require.True(t, ok)
	assert.Equal(t, "orders", orders.ID)
	assert.Equal(t, "table", orders.TableType)
	assert.Equal(t, int64(3), orders.RowCount)
	assert.Len(t, orders.Columns, 2)

	customers, _ := cat.Table("customers", "shop")
	assert.Equal(t, "view", customers.TableType)
	assert.False(t, loader.IsLoading())
}

func TestLoader_ColumnFailureKeepsTable(t *testing.T) {
	fake := newFake()
	fake.columnsErr = map[string]error{"shop/orders": errors.New("permission denied")}
	cat := New(nil)

	require.NoError(t, NewLoader(fake, cat, nil).LoadAll(context.Background()))

	orders, ok := cat.Table("orders", "shop")
	require.True(t, ok)
	assert.NotNil(t, orders.Columns)
	assert.Empty(t, orders.Columns)

	customers, _ := cat.Table("customers", "shop")
	assert.Len(t, customers.Columns, 1, "other tables still load")
}

func TestLoader_SourceFailureIsSettled(t *testing.T) {
	fake := newFake()
	fake.tablesErr = map[string]error{"crm": errors.New("connection reset")}
	cat := New(nil)

	require.NoError(t, NewLoader(fake, cat, nil).LoadAll(context.Background()))

	assert.Empty(t, cat.TablesForDataSource("crm"))
	assert.Len(t, cat.TablesForDataSource("shop"), 2)
}

func TestLoader_DataSourceListFailureClearsCatalog(t *testing.T) {
	fake := newFake()
	cat := New(nil)
	cat.SetDataSources([]DataSource{{ID: "stale"}})
	cat.SetTables([]Table{{ID: "stale", DataSourceID: "stale"}})

	fake.sourcesErr = errors.New("server unreachable")
	err := NewLoader(fake, cat, nil).LoadAll(context.Background())

	require.Error(t, err)
	assert.ErrorContains(t, err, "server unreachable")
	assert.Empty(t, cat.DataSources())
	assert.Empty(t, cat.Tables())
}

func TestLoader_LoadDataSourceReplacesTables(t *testing.T) {
	fake := newFake()
	cat := New(nil)
	loader := NewLoader(fake, cat, nil)
	require.NoError(t, loader.LoadAll(context.Background()))

	fake.tables["shop"] = []Table{{Name: "products"}}
	tables, err := loader.LoadDataSource(context.Background(), "shop")
	require.NoError(t, err)
	require.Len(t, tables, 1)

	shop := cat.TablesForDataSource("shop")
	require.Len(t, shop, 1)
	assert.Equal(t, "products", shop[0].ID)
	assert.Len(t, cat.TablesForDataSource("crm"), 1)
}

func TestLoader_RejectsConcurrentLoadOfSameSource(t *testing.T) {
	loader := NewLoader(newFake(), New(nil), nil)
	require.True(t, loader.begin("shop"))
	assert.True(t, loader.IsLoading())

	_, err := loader.LoadDataSource(context.Background(), "shop")
	assert.ErrorIs(t, err, ErrLoadInProgress)

	loader.end("shop")
	assert.False(t, loader.IsLoading())
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(newFake(), New(nil), nil).LoadDataSource(ctx, "shop")
	assert.ErrorIs(t, err, context.Canceled)
}
