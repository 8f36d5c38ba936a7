package query

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// JoinPattern is a foreign-key naming convention: when tables named Left and
// Right are both selected, they are joined on Condition. Condition refers to
// the tables by their bare names; those are swapped for aliases on inference.
type JoinPattern struct {
	Left      string   `json:"left"`
	Right     string   `json:"right"`
	Condition string   `json:"condition"`
	Type      JoinType `json:"type"`
}

// DefaultJoinPatterns returns the built-in conventions, in evaluation order.
func DefaultJoinPatterns() []JoinPattern {
	return []JoinPattern{
		{Left: "orders", Right: "customers", Condition: "orders.customer_id = customers.id", Type: JoinTypeLeft},
		{Left: "order_items", Right: "orders", Condition: "order_items.order_id = orders.id", Type: JoinTypeLeft},
		{Left: "order_items", Right: "products", Condition: "order_items.product_id = products.id", Type: JoinTypeLeft},
		{Left: "products", Right: "categories", Condition: "products.category_id = categories.id", Type: JoinTypeLeft},
		{Left: "payments", Right: "orders", Condition: "payments.order_id = orders.id", Type: JoinTypeLeft},
		{Left: "inventory", Right: "products", Condition: "inventory.product_id = products.id", Type: JoinTypeLeft},
		{Left: "orders", Right: "users", Condition: "orders.user_id = users.id", Type: JoinTypeLeft},
	}
}

var qualifierPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.`)

// InferJoins proposes joins between the selected tables from the given
// patterns. Only joins for table pairs not already connected by existing (in
// either direction) are returned, so calling it again on the same selection
// yields nothing new. Names match case-insensitively and the first selected
// table with a matching name is used.
func InferJoins(tables []SelectedTable, existing []Join, patterns []JoinPattern) []Join {
	if len(tables) < 2 {
		return nil
	}

	known := append([]Join(nil), existing...)
	var added []Join
	for _, p := range patterns {
		left, ok := findByName(tables, p.Left)
		if !ok {
			continue
		}
		right, ok := findByName(tables, p.Right)
		if !ok || (left.ID == right.ID && left.DataSourceID == right.DataSourceID) {
			continue
		}
		if pairJoined(known, left, right) {
			continue
		}

		joinType := p.Type
		if joinType == "" {
			joinType = JoinTypeLeft
		}
		j := Join{
			ID:                uuid.NewString(),
			LeftTable:         left.ID,
			LeftDataSourceID:  left.DataSourceID,
			RightTable:        right.ID,
			RightDataSourceID: right.DataSourceID,
			JoinType:          JoinType(strings.ToUpper(string(joinType))),
			Condition: substituteAliases(p.Condition, map[string]string{
				strings.ToLower(p.Left):  left.Alias,
				strings.ToLower(p.Right): right.Alias,
			}),
		}
		known = append(known, j)
		added = append(added, j)
	}
	return added
}

func findByName(tables []SelectedTable, name string) (SelectedTable, bool) {
	for _, t := range tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return SelectedTable{}, false
}

func pairJoined(joins []Join, a, b SelectedTable) bool {
	for _, j := range joins {
		if j.connects(a, b) {
			return true
		}
	}
	return false
}

// substituteAliases rewrites "name." qualifiers found in aliases.
func substituteAliases(condition string, aliases map[string]string) string {
	return qualifierPattern.ReplaceAllStringFunc(condition, func(m string) string {
		name := strings.TrimSuffix(m, ".")
		if alias, ok := aliases[strings.ToLower(name)]; ok {
			return alias + "."
		}
		return m
	})
}
