// Package sqlgen compiles operations and query options into parameterized
// SQL. Column lists come from live catalog introspection so SELECTs are
// always explicit and per-table aliasable; SELECT * is never emitted.
package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/crossquery/crossquery/query/ast"
	"github.com/crossquery/crossquery/query/introspect"
	"github.com/crossquery/crossquery/query/normalize"
)

// AliasSeparator joins a join alias and a column name in the SELECT list.
// The result reconstructor splits on it to rebuild nested entities.
const AliasSeparator = "__"

// Query is a compiled SQL statement with its positional arguments, suitable
// for a single prepared-statement execution call.
type Query struct {
	SQL  string
	Args []interface{}
}

// Compiler compiles backend-agnostic queries for one relational dialect. It
// is stateless per call and safe for unbounded concurrent use; the only I/O
// it performs is column introspection through the supplied Lister.
type Compiler struct {
	dialect Dialect
	columns introspect.Lister
	norm    normalize.Config
}

// NewCompiler creates a relational compiler.
func NewCompiler(dialect Dialect, columns introspect.Lister, norm normalize.Config) *Compiler {
	return &Compiler{
		dialect: dialect,
		columns: columns,
		norm:    norm,
	}
}

// Dialect exposes the compiler's dialect.
func (c *Compiler) Dialect() Dialect { return c.dialect }

// CompileSelect builds the SELECT for a resource with its joins, filters,
// ordering and pagination. One-to-one joins compile to inline JOINs with
// every joined column aliased <alias>__<column>; one-to-many variants compile
// to scalar JSON-array subqueries so result rows are never multiplied.
func (c *Compiler) CompileSelect(ctx context.Context, resource string, ops []ast.Operation, opts ast.QueryOptions) (*Query, error) {
	base := c.dialect.Quote(resource)

	baseColumns, err := c.columns.Columns(ctx, resource)
	if err != nil {
		return nil, err
	}

	selects := make([]string, 0, len(baseColumns))
	for _, col := range baseColumns {
		quoted := c.dialect.Quote(col)
		selects = append(selects, fmt.Sprintf("%s.%s AS %s", base, quoted, quoted))
	}

	var joinClauses []string
	for _, op := range ops {
		switch op.Kind {
		case ast.KindJoin:
			joined, err := c.columns.Columns(ctx, op.From)
			if err != nil {
				return nil, err
			}
			for _, col := range joined {
				selects = append(selects, fmt.Sprintf("%s.%s AS %s",
					op.As, c.dialect.Quote(col), c.dialect.Quote(op.As+AliasSeparator+col)))
			}
			joinClauses = append(joinClauses, c.joinClause(resource, op))

		case ast.KindJoinMany, ast.KindJoinThrough, ast.KindJoinThroughMany:
			sub, err := c.embedSubquery(ctx, resource, op)
			if err != nil {
				return nil, err
			}
			selects = append(selects, sub+" AS "+c.dialect.Quote(op.As))

		default:
			return nil, fmt.Errorf("unsupported operation kind %q", op.Kind)
		}
	}

	qualified := len(ops) > 0
	argIndex := 1
	where, args, err := c.compileWhere(resource, opts, qualified, &argIndex)
	if err != nil {
		return nil, err
	}

	parts := []string{
		"SELECT " + strings.Join(selects, ", "),
		"FROM " + base,
	}
	parts = append(parts, joinClauses...)
	if where != "" {
		parts = append(parts, "WHERE "+where)
	}
	if opts.OrderBy != "" {
		parts = append(parts, "ORDER BY "+c.orderClause(resource, opts, qualified))
	}
	if opts.Paged() {
		parts = append(parts, fmt.Sprintf("LIMIT %d OFFSET %d", opts.PageSize, opts.Offset()))
	}

	return &Query{SQL: strings.Join(parts, " "), Args: args}, nil
}

// CompileCount builds the COUNT(*) companion sharing the WHERE clause and
// inline joins of CompileSelect. Without a shared snapshot between the two
// statements, concurrent writes can make total and results diverge; that is a
// documented limitation of the relational engine, not one this compiler
// masks.
func (c *Compiler) CompileCount(ctx context.Context, resource string, ops []ast.Operation, opts ast.QueryOptions) (*Query, error) {
	var joinClauses []string
	for _, op := range ops {
		if op.Kind == ast.KindJoin {
			joinClauses = append(joinClauses, c.joinClause(resource, op))
		}
	}

	qualified := len(ops) > 0
	argIndex := 1
	where, args, err := c.compileWhere(resource, opts, qualified, &argIndex)
	if err != nil {
		return nil, err
	}

	parts := []string{"SELECT COUNT(*)", "FROM " + c.dialect.Quote(resource)}
	parts = append(parts, joinClauses...)
	if where != "" {
		parts = append(parts, "WHERE "+where)
	}

	return &Query{SQL: strings.Join(parts, " "), Args: args}, nil
}

// joinClause emits the inline JOIN for a one-to-one operation. The joined
// table runs under its alias so the same table can be joined more than once.
func (c *Compiler) joinClause(resource string, op ast.Operation) string {
	joinType := "LEFT"
	if op.Inner {
		joinType = "INNER"
	}
	return fmt.Sprintf("%s JOIN %s AS %s ON %s.%s = %s.%s",
		joinType,
		c.dialect.Quote(op.From),
		op.As,
		c.dialect.Quote(resource),
		c.dialect.Quote(toSnakeCase(op.LocalField)),
		op.As,
		c.dialect.Quote(toSnakeCase(op.ForeignField)),
	)
}

func (c *Compiler) orderClause(resource string, opts ast.QueryOptions, qualified bool) string {
	direction := "ASC"
	if opts.Descending() {
		direction = "DESC"
	}
	return c.columnRef(resource, opts.OrderBy, qualified) + " " + direction
}

// columnRef resolves a logical field to its physical column, table-qualified
// whenever joins are present to avoid ambiguity.
func (c *Compiler) columnRef(resource, field string, qualified bool) string {
	col := c.dialect.Quote(toSnakeCase(field))
	if qualified {
		return c.dialect.Quote(resource) + "." + col
	}
	return col
}
