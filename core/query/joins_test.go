package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selected(id, name, alias string) SelectedTable {
	return SelectedTable{ID: id, Name: name, Alias: alias, DataSourceID: "shop"}
}

func TestInferJoins_SubstitutesAliases(t *testing.T) {
	tables := []SelectedTable{
		selected("t1", "orders", "o"),
		selected("t2", "customers", "c"),
	}

	joins := InferJoins(tables, nil, DefaultJoinPatterns())
	require.Len(t, joins, 1)
	j := joins[0]
	assert.Equal(t, "t1", j.LeftTable)
	assert.Equal(t, "t2", j.RightTable)
	assert.Equal(t, JoinTypeLeft, j.JoinType)
	assert.Equal(t, "o.customer_id = c.id", j.Condition)
	assert.NotEmpty(t, j.ID)
}

func TestInferJoins_NeedsTwoTables(t *testing.T) {
	assert.Nil(t, InferJoins([]SelectedTable{selected("orders", "orders", "orders")}, nil, DefaultJoinPatterns()))
	assert.Nil(t, InferJoins(nil, nil, DefaultJoinPatterns()))
}

func TestInferJoins_IsIdempotent(t *testing.T) {
	tables := []SelectedTable{
		selected("order_items", "order_items", "order_items"),
		selected("orders", "orders", "orders"),
		selected("products", "products", "products"),
		selected("categories", "categories", "categories"),
	}

	first := InferJoins(tables, nil, DefaultJoinPatterns())
	require.Len(t, first, 3)
	assert.Empty(t, InferJoins(tables, first, DefaultJoinPatterns()))
}

func TestInferJoins_ExistingJoinInEitherDirection(t *testing.T) {
	tables := []SelectedTable{
		selected("orders", "orders", "orders"),
		selected("customers", "customers", "customers"),
	}
	manual := Join{
		ID:                "manual",
		LeftTable:         "customers",
		LeftDataSourceID:  "shop",
		RightTable:        "orders",
		RightDataSourceID: "shop",
		JoinType:          JoinTypeInner,
		Condition:         "customers.id = orders.customer_id",
	}
	assert.Empty(t, InferJoins(tables, []Join{manual}, DefaultJoinPatterns()))
}

func TestInferJoins_CaseInsensitiveNames(t *testing.T) {
	tables := []SelectedTable{
		selected("a", "Orders", "orders"),
		selected("b", "USERS", "users"),
	}
	joins := InferJoins(tables, nil, DefaultJoinPatterns())
	require.Len(t, joins, 1)
	assert.Equal(t, "orders.user_id = users.id", joins[0].Condition)
}

func TestInferJoins_CustomPatterns(t *testing.T) {
	patterns := []JoinPattern{
		{Left: "invoices", Right: "accounts", Condition: "invoices.account_id = accounts.id", Type: "inner"},
	}
	tables := []SelectedTable{
		selected("i", "invoices", "invoices"),
		selected("a", "accounts", "accounts_1"),
	}
	joins := InferJoins(tables, nil, patterns)
	require.Len(t, joins, 1)
	assert.Equal(t, JoinTypeInner, joins[0].JoinType)
	assert.Equal(t, "invoices.account_id = accounts_1.id", joins[0].Condition)
}

func TestSubstituteAliases_OnlyQualifiers(t *testing.T) {
	got := substituteAliases("orders.customer_id = customers.id AND orders.note = 'orders'",
		map[string]string{"orders": "o", "customers": "c"})
	assert.Equal(t, "o.customer_id = c.id AND o.note = 'orders'", got)
}
