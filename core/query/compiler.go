package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const selectIndent = "    "

// Compiler turns a Model into SQL. It holds no selection state, so one
// Compiler may serve any number of models.
type Compiler struct {
	logger *zap.Logger
}

// NewCompiler creates a new Compiler.
func NewCompiler(logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{logger: logger}
}

// resolvedJoin is a join together with the selected table it brings in.
type resolvedJoin struct {
	Join
	table SelectedTable
}

// resolvedFilter is a complete filter together with its table alias.
type resolvedFilter struct {
	Filter
	alias string
}

// queryPlan is the structure shared by text and bound compilation.
type queryPlan struct {
	columns []SelectedColumn
	anchor  SelectedTable
	joins   []resolvedJoin
	filters []resolvedFilter
	sort    []SortSpec
	limit   int
}

// plan resolves the model into clauses. Soft-invalid selections return
// ErrNotReady.
func (c *Compiler) plan(m *Model) (*queryPlan, error) {
	if m == nil || !m.HasValidQuery() {
		return nil, ErrNotReady
	}

	p := &queryPlan{anchor: m.tables[0], sort: m.Sort(), limit: m.limit}
	for _, col := range m.columns {
		if col.Visible {
			p.columns = append(p.columns, col)
		}
	}
	if len(p.columns) == 0 {
		return nil, ErrNotReady
	}

	for _, j := range m.joins {
		right, ok := m.findTable(j.RightTable, j.RightDataSourceID)
		if !ok {
			c.logger.Debug("Skipping join to a table that is no longer selected", zap.String("join", j.ID))
			continue
		}
		p.joins = append(p.joins, resolvedJoin{Join: j, table: right})
	}

	for _, f := range m.filters {
		if !f.complete() {
			continue
		}
		t, ok := m.findTable(f.TableID, f.DataSourceID)
		if !ok {
			c.logger.Warn("Skipping filter on a table that is not selected",
				zap.String("filter", f.ID), zap.String("table", f.TableID))
			continue
		}
		p.filters = append(p.filters, resolvedFilter{Filter: f, alias: t.Alias})
	}
	return p, nil
}

// Compile renders the model as newline-formatted SQL terminated by ";". The
// empty string means the selection is not ready. Failures are logged and
// also produce the empty string.
func (c *Compiler) Compile(m *Model) (sql string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Error generating SQL", zap.Any("panic", r))
			sql = ""
		}
	}()

	p, err := c.plan(m)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			c.logger.Debug("Cannot generate SQL: no valid query configuration")
		} else {
			c.logger.Error("Error generating SQL", zap.Error(err))
		}
		return ""
	}
	return p.render()
}

func (p *queryPlan) render() string {
	var sb strings.Builder

	selects := make([]string, len(p.columns))
	for i, col := range p.columns {
		selects[i] = selectExpr(col)
	}
	sb.WriteString("SELECT\n")
	sb.WriteString(selectIndent)
	sb.WriteString(strings.Join(selects, ",\n"+selectIndent))

	sb.WriteString("\nFROM ")
	sb.WriteString(p.anchor.Name + " " + p.anchor.Alias)

	for _, j := range p.joins {
		fmt.Fprintf(&sb, "\n%s", joinClause(j))
	}

	if len(p.filters) > 0 {
		conds := make([]string, len(p.filters))
		for i, f := range p.filters {
			conds[i] = textPredicate(f)
		}
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(p.sort) > 0 {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(orderTerms(p.sort), ", "))
	}

	if p.limit > 0 {
		sb.WriteString("\nLIMIT ")
		sb.WriteString(strconv.Itoa(p.limit))
	}
	sb.WriteString(";")
	return sb.String()
}

func selectExpr(col SelectedColumn) string {
	return col.FullName + " AS " + quoteIdentifier(col.Alias)
}

func joinClause(j resolvedJoin) string {
	return fmt.Sprintf("%s JOIN %s %s ON %s", j.JoinType, j.table.Name, j.table.Alias, j.Condition)
}

func textPredicate(f resolvedFilter) string {
	target := f.alias + "." + f.Column
	if f.Operator.IsNullCheck() {
		return target + " " + string(f.Operator)
	}
	return target + " " + string(f.Operator) + " " + renderLiteral(f.Operator, f.DataType, f.Value)
}

func orderTerms(sort []SortSpec) []string {
	terms := make([]string, len(sort))
	for i, s := range sort {
		terms[i] = s.Field + " " + string(s.Direction)
	}
	return terms
}

// quoteIdentifier wraps s in double quotes, doubling embedded ones.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
