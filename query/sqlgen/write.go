package sqlgen

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/crossquery/crossquery/query/ast"
)

// ErrUnconditionedDelete rejects a delete request lacking any filter, to
// prevent accidental full-table deletes.
var ErrUnconditionedDelete = errors.New("delete requires at least one filter")

// CompileInsert builds an INSERT from a logical document. Columns are emitted
// in sorted order so identical documents compile identically. Dialects that
// support it return the written row via RETURNING *.
func (c *Compiler) CompileInsert(resource string, doc map[string]interface{}) *Query {
	fields := make([]string, 0, len(doc))
	for field := range doc {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	columns := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]interface{}, len(fields))
	for i, field := range fields {
		columns[i] = c.dialect.Quote(toSnakeCase(field))
		placeholders[i] = c.dialect.Placeholder(i + 1)
		args[i] = doc[field]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.dialect.Quote(resource),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))
	if c.dialect.Returning() {
		sql += " RETURNING *"
	}
	return &Query{SQL: sql, Args: args}
}

// CompileUpdate builds an UPDATE with the given SET document and the filter
// map as its WHERE clause.
func (c *Compiler) CompileUpdate(resource string, set map[string]interface{}, opts ast.QueryOptions) (*Query, error) {
	fields := make([]string, 0, len(set))
	for field := range set {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	argIndex := 1
	assignments := make([]string, len(fields))
	args := make([]interface{}, 0, len(fields))
	for i, field := range fields {
		assignments[i] = fmt.Sprintf("%s = %s", c.dialect.Quote(toSnakeCase(field)), c.dialect.Placeholder(argIndex))
		args = append(args, set[field])
		argIndex++
	}

	where, whereArgs, err := c.compileWhere(resource, opts, false, &argIndex)
	if err != nil {
		return nil, err
	}

	parts := []string{
		"UPDATE " + c.dialect.Quote(resource),
		"SET " + strings.Join(assignments, ", "),
	}
	if where != "" {
		parts = append(parts, "WHERE "+where)
		args = append(args, whereArgs...)
	}
	return &Query{SQL: strings.Join(parts, " "), Args: args}, nil
}

// CompileDelete builds a DELETE. A request without any effective filter fails
// with ErrUnconditionedDelete.
func (c *Compiler) CompileDelete(resource string, opts ast.QueryOptions) (*Query, error) {
	argIndex := 1
	where, args, err := c.compileWhere(resource, opts, false, &argIndex)
	if err != nil {
		return nil, err
	}
	if where == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnconditionedDelete, resource)
	}
	return &Query{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s", c.dialect.Quote(resource), where),
		Args: args,
	}, nil
}
