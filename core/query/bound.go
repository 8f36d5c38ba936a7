package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

var bindableOperators = map[Operator]struct{}{
	OperatorEq:        {},
	OperatorNeq:       {},
	OperatorLt:        {},
	OperatorLte:       {},
	OperatorGt:        {},
	OperatorGte:       {},
	OperatorLike:      {},
	OperatorNotLike:   {},
	OperatorIsNull:    {},
	OperatorIsNotNull: {},
}

// CompileBound builds the same statement as Compile but with "?" placeholders
// in place of filter literals, returning the values separately for the
// driver. Soft-invalid selections return ErrNotReady; operators outside the
// supported set return ErrUnsupportedOperator.
func (c *Compiler) CompileBound(m *Model) (string, []any, error) {
	p, err := c.plan(m)
	if err != nil {
		return "", nil, err
	}

	selects := make([]string, len(p.columns))
	for i, col := range p.columns {
		selects[i] = selectExpr(col)
	}

	builder := sq.Select(selects...).
		From(p.anchor.Name + " " + p.anchor.Alias)

	for _, j := range p.joins {
		builder = builder.JoinClause(joinClause(j))
	}

	for _, f := range p.filters {
		pred, err := boundPredicate(f)
		if err != nil {
			return "", nil, err
		}
		builder = builder.Where(pred)
	}

	if len(p.sort) > 0 {
		builder = builder.OrderBy(orderTerms(p.sort)...)
	}
	if p.limit > 0 {
		builder = builder.Limit(uint64(p.limit))
	}

	sql, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build bound query: %w", err)
	}
	c.logger.Debug("Built bound query", zap.String("sql", sql), zap.Int("args", len(args)))
	return sql, args, nil
}

func boundPredicate(f resolvedFilter) (sq.Sqlizer, error) {
	if _, ok := bindableOperators[f.Operator]; !ok {
		return nil, fmt.Errorf("filter %s: %q: %w", f.ID, f.Operator, ErrUnsupportedOperator)
	}
	target := f.alias + "." + f.Column
	if f.Operator.IsNullCheck() {
		return sq.Expr(target + " " + string(f.Operator)), nil
	}
	return sq.Expr(target+" "+string(f.Operator)+" ?", bindValue(f.Operator, f.DataType, f.Value)), nil
}
