package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/crossquery/crossquery/query/ast"
)

// embedSubquery compiles a one-to-many or through-join operation into a
// per-row scalar subquery. Matching foreign rows are aggregated into a single
// JSON-array column, so the outer result set keeps one row per base record
// instead of multiplying through an inline join.
func (c *Compiler) embedSubquery(ctx context.Context, resource string, op ast.Operation) (string, error) {
	d := c.dialect

	columns, err := c.columns.Columns(ctx, op.From)
	if err != nil {
		return "", err
	}

	// The joined table runs under the operation alias inside the subquery.
	// The alias invariant guarantees it differs from the table name, which
	// keeps self-referencing resources unambiguous.
	pairs := make([]string, 0, len(columns))
	for _, col := range columns {
		pairs = append(pairs, fmt.Sprintf("'%s', %s.%s", col, op.As, d.Quote(col)))
	}
	object := d.JSONObject(strings.Join(pairs, ", "))

	base := d.Quote(resource)
	localCol := d.Quote(toSnakeCase(op.LocalField))
	foreignCol := d.Quote(toSnakeCase(op.ForeignField))

	switch op.Kind {
	case ast.KindJoinMany:
		return fmt.Sprintf("(SELECT COALESCE(%s, %s) FROM %s AS %s WHERE %s.%s = %s.%s)",
			d.JSONArrayAgg(object), d.EmptyJSONArray(),
			d.Quote(op.From), op.As,
			op.As, foreignCol, base, localCol), nil

	case ast.KindJoinThrough, ast.KindJoinThroughMany:
		// Two-step: join the final table through the junction, then key the
		// whole subquery on the base record.
		junction := op.As + "_through"
		from := fmt.Sprintf("%s AS %s JOIN %s AS %s ON %s.%s = %s.%s",
			d.Quote(op.From), op.As,
			d.Quote(op.Through), junction,
			junction, d.Quote(toSnakeCase(op.ThroughForeignField)),
			op.As, foreignCol)
		where := fmt.Sprintf("%s.%s = %s.%s",
			junction, d.Quote(toSnakeCase(op.ThroughLocalField)), base, localCol)

		if op.Kind == ast.KindJoinThroughMany {
			return fmt.Sprintf("(SELECT COALESCE(%s, %s) FROM %s WHERE %s)",
				d.JSONArrayAgg(object), d.EmptyJSONArray(), from, where), nil
		}
		// Flattened to a single record; the scalar subquery is null when
		// nothing matches. Ordered by the foreign key so repeated executions
		// pick the same record.
		return fmt.Sprintf("(SELECT %s FROM %s WHERE %s ORDER BY %s.%s LIMIT 1)",
			object, from, where, op.As, foreignCol), nil
	}

	return "", fmt.Errorf("operation kind %q cannot be embedded", op.Kind)
}
