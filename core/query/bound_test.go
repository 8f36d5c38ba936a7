package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileBound_KeepsLiteralsOutOfText(t *testing.T) {
	m := ordersAndCustomers(t)
	m.ToggleColumn(column(t, m, "orders", "id"))
	filterOn(t, m, "status", OperatorLike, "O'Brien", "string")
	filterOn(t, m, "id", OperatorGt, "10", "integer")
	filterOn(t, m, "status", OperatorIsNotNull, "x", "string")
	m.AddSort("orders.id", SortDirectionDesc)
	m.SetLimit(10)

	sql, args, err := NewCompiler(nil).CompileBound(m)
	require.NoError(t, err)

	assert.NotContains(t, sql, "Brien")
	assert.Contains(t, sql, "FROM orders orders")
	assert.Contains(t, sql, "LEFT JOIN customers customers ON orders.customer_id = customers.id")
	assert.Contains(t, sql, "orders.status LIKE ?")
	assert.Contains(t, sql, "orders.id > ?")
	assert.Contains(t, sql, "orders.status IS NOT NULL")
	assert.Contains(t, sql, "ORDER BY orders.id DESC")
	assert.Contains(t, sql, "LIMIT 10")
	assert.Equal(t, []any{"%O'Brien%", int64(10)}, args)
}

func TestCompileBound_NotReady(t *testing.T) {
	m := newTestModel(t)
	_, _, err := NewCompiler(nil).CompileBound(m)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCompileBound_UnsupportedOperator(t *testing.T) {
	m := newTestModel(t)
	m.AddTable(ordersTable())
	m.ToggleColumn(column(t, m, "orders", "id"))
	filterOn(t, m, "id", Operator("= 1 OR 1 ="), "1", "integer")

	// The text compiler renders operators verbatim; bound compilation refuses.
	_, _, err := NewCompiler(nil).CompileBound(m)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)
}

func TestCompileBound_NoLimit(t *testing.T) {
	m := newTestModel(t)
	m.AddTable(ordersTable())
	m.ToggleColumn(column(t, m, "orders", "id"))
	m.SetLimit(0)

	sql, args, err := NewCompiler(nil).CompileBound(m)
	require.NoError(t, err)
	assert.NotContains(t, sql, "LIMIT")
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}

func TestBindValue(t *testing.T) {
	assert.Equal(t, int64(5), bindValue(OperatorEq, "number", "5"))
	assert.Equal(t, 2.5, bindValue(OperatorEq, "decimal", "2.5"))
	assert.Equal(t, true, bindValue(OperatorEq, "boolean", "true"))
	assert.Equal(t, "abc", bindValue(OperatorEq, "number", "abc"))
	assert.Equal(t, "5", bindValue(OperatorEq, "text", "5"))
	assert.Equal(t, "%5%", bindValue(OperatorLike, "varchar", "5"))
	assert.Equal(t, "2024-01-01", bindValue(OperatorEq, "date", "2024-01-01"))
}
