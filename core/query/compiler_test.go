package query

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// ordersAndCustomers builds the orders/customers selection with
// orders.status and customers.name picked.
func ordersAndCustomers(t *testing.T) *Model {
	t.Helper()
	m := newTestModel(t)
	require.True(t, m.AddTable(ordersTable()))
	require.True(t, m.AddTable(customersTable()))
	m.ToggleColumn(column(t, m, "orders", "status"))
	m.ToggleColumn(column(t, m, "customers", "name"))
	return m
}

func filterOn(t *testing.T, m *Model, col string, op Operator, value, dataType string) {
	t.Helper()
	f := m.AddFilter()
	require.NotNil(t, f)
	f.Column = col
	f.Operator = op
	f.Value = value
	f.DataType = dataType
	require.True(t, m.UpdateFilter(*f))
}

func TestCompile_EndToEnd(t *testing.T) {
	m := ordersAndCustomers(t)

	joins := m.Joins()
	require.Len(t, joins, 1)
	assert.Equal(t, "orders.customer_id = customers.id", joins[0].Condition)

	sql := m.GenerateSQL()
	assert.Contains(t, sql, "\nFROM orders orders\n")
	assert.Contains(t, sql, "\nLEFT JOIN customers customers ON orders.customer_id = customers.id")
	assert.Equal(t, sql, m.GeneratedSQL())
	newGolden(t).Assert(t, "orders_customers", []byte(sql))
}

func TestCompile_AllClauses(t *testing.T) {
	m := ordersAndCustomers(t)
	m.ToggleColumn(column(t, m, "orders", "id"))
	filterOn(t, m, "status", OperatorLike, "shipped", "string")
	filterOn(t, m, "id", OperatorGt, "10", "integer")
	m.AddSort("orders.id", SortDirectionDesc)
	m.AddSort("customers.name", SortDirectionAsc)
	m.SetLimit(10)

	newGolden(t).Assert(t, "all_clauses", []byte(NewCompiler(nil).Compile(m)))
}

func TestCompile_NotReady(t *testing.T) {
	c := NewCompiler(nil)
	assert.Empty(t, c.Compile(nil))

	m := newTestModel(t)
	assert.Empty(t, c.Compile(m), "no tables")

	m.AddTable(ordersTable())
	assert.Empty(t, c.Compile(m), "no columns")

	status := column(t, m, "orders", "status")
	m.ToggleColumn(status)
	require.NotEmpty(t, c.Compile(m))

	m.SetColumnVisible(status, false)
	assert.Empty(t, c.Compile(m), "all columns hidden")
}

func TestCompile_AnchorIsFirstTable(t *testing.T) {
	m := newTestModel(t)
	m.AddTable(customersTable())
	m.AddTable(ordersTable())
	m.ToggleColumn(column(t, m, "orders", "status"))

	sql := m.GenerateSQL()
	assert.Contains(t, sql, "\nFROM customers customers\n")
	assert.Contains(t, sql, "\nLEFT JOIN customers customers ON orders.customer_id = customers.id")
}

func TestCompile_HiddenColumnsAreLeftOut(t *testing.T) {
	m := ordersAndCustomers(t)
	m.SetColumnVisible(column(t, m, "customers", "name"), false)
	sql := m.GenerateSQL()
	assert.Contains(t, sql, `orders.status AS "Status"`)
	assert.NotContains(t, sql, "customers.name")
}

func TestCompile_FilterLiterals(t *testing.T) {
	tests := []struct {
		name     string
		op       Operator
		value    string
		dataType string
		want     string
	}{
		{"string equals", OperatorEq, "shipped", "string", "orders.status = 'shipped'"},
		{"string like", OperatorLike, "shipped", "string", "orders.status LIKE '%shipped%'"},
		{"varchar not like", OperatorNotLike, "ship", "VARCHAR(20)", "orders.status NOT LIKE '%ship%'"},
		{"text", OperatorNeq, "x", "text", "orders.status != 'x'"},
		{"number", OperatorEq, "5", "number", "orders.status = 5"},
		{"boolean", OperatorEq, "true", "boolean", "orders.status = true"},
		{"date", OperatorGte, "2024-01-01", "date", "orders.status >= '2024-01-01'"},
		{"timestamp like is quoted verbatim", OperatorLike, "2024", "timestamp", "orders.status LIKE '2024'"},
		{"is null", OperatorIsNull, "ignored", "string", "orders.status IS NULL"},
		{"is not null", OperatorIsNotNull, "ignored", "number", "orders.status IS NOT NULL"},
		{"embedded quote", OperatorEq, "O'Brien", "string", "orders.status = 'O''Brien'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			m.AddTable(ordersTable())
			m.ToggleColumn(column(t, m, "orders", "id"))
			filterOn(t, m, "status", tt.op, tt.value, tt.dataType)

			sql := m.GenerateSQL()
			assert.Contains(t, sql, "\nWHERE "+tt.want+"\n")
		})
	}
}

func TestCompile_AliasedFilterTarget(t *testing.T) {
	// Filter targets use the table alias, not the table name.
	m := newTestModel(t)
	m.AddTable(ordersTable())
	dup := ordersTable()
	dup.DataSourceID = "crm"
	m.AddTable(dup)
	m.ToggleColumn(column(t, m, "orders", "id"))

	f := m.AddFilter()
	f.DataSourceID = "crm"
	f.Column = "status"
	f.Value = "shipped"
	require.True(t, m.UpdateFilter(*f))

	assert.Contains(t, m.GenerateSQL(), "WHERE orders_1.status = 'shipped'")
}

func TestCompile_IncompleteFiltersAreDropped(t *testing.T) {
	m := newTestModel(t)
	m.AddTable(ordersTable())
	m.ToggleColumn(column(t, m, "orders", "id"))

	m.AddFilter()
	filterOn(t, m, "status", OperatorIsNull, "", "string")
	filterOn(t, m, "", OperatorEq, "x", "string")

	assert.NotContains(t, m.GenerateSQL(), "WHERE")
}

func TestCompile_Limit(t *testing.T) {
	m := newTestModel(t)
	m.AddTable(ordersTable())
	m.ToggleColumn(column(t, m, "orders", "id"))

	assert.True(t, strings.HasSuffix(m.GenerateSQL(), "\nLIMIT 25;"))

	m.SetLimit(0)
	sql := m.GenerateSQL()
	assert.NotContains(t, sql, "LIMIT")
	assert.True(t, strings.HasSuffix(sql, ";"))

	m.SetLimit(7)
	assert.True(t, strings.HasSuffix(m.GenerateSQL(), "\nLIMIT 7;"))
}

func TestCompile_JoinToRemovedTableIsSkipped(t *testing.T) {
	m := ordersAndCustomers(t)
	// Drop the right table behind the model's back; the join is left dangling.
	m.tables = m.tables[:1]
	m.columns = m.columns[:1]

	sql := m.GenerateSQL()
	assert.NotEmpty(t, sql)
	assert.NotContains(t, sql, "JOIN")
}

func TestCompile_ClauseOrder(t *testing.T) {
	m := ordersAndCustomers(t)
	filterOn(t, m, "status", OperatorEq, "open", "string")
	m.AddSort("orders.status", SortDirectionAsc)

	sql := m.GenerateSQL()
	order := []string{"SELECT\n", "\nFROM ", "\nLEFT JOIN ", "\nWHERE ", "\nORDER BY ", "\nLIMIT "}
	last := -1
	for _, kw := range order {
		idx := strings.Index(sql, kw)
		require.GreaterOrEqual(t, idx, 0, kw)
		assert.Greater(t, idx, last, kw)
		last = idx
	}
}
