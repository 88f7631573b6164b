// Package executor runs compiled relational queries and reshapes their raw
// rows into uniformly nested entities. Document-engine results are already
// nested, so no counterpart exists for that backend.
package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/crossquery/crossquery/query/ast"
	"github.com/crossquery/crossquery/query/sqlgen"
)

// Page is a uniformly shaped query result: reconstructed entities plus the
// total count of the fully filtered, pre-pagination record set.
type Page struct {
	Results []map[string]interface{}
	Total   int64
}

// Executor owns no connection lifecycle; it issues single statements against
// the *sql.DB the caller supplies and leaves cancellation to the caller's
// context.
type Executor struct {
	db       *sql.DB
	compiler *sqlgen.Compiler
	log      zerolog.Logger
}

// New creates an executor. Pass zerolog.Nop() to disable query logging.
func New(db *sql.DB, compiler *sqlgen.Compiler, log zerolog.Logger) *Executor {
	return &Executor{db: db, compiler: compiler, log: log}
}

// FindMany compiles and runs a select. When pagination is requested the total
// comes from a separate COUNT(*) sharing the WHERE clause; otherwise it is
// the result length.
func (e *Executor) FindMany(ctx context.Context, resource string, ops []ast.Operation, opts ast.QueryOptions) (*Page, error) {
	q, err := e.compiler.CompileSelect(ctx, resource, ops, opts)
	if err != nil {
		return nil, err
	}
	e.log.Debug().Str("sql", q.SQL).Interface("args", q.Args).Msg("compiled select")

	rows, err := e.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	results, err := scanRows(rows, ops)
	if err != nil {
		return nil, err
	}

	if !opts.Paged() {
		return &Page{Results: results, Total: int64(len(results))}, nil
	}

	total, err := e.count(ctx, resource, ops, opts)
	if err != nil {
		return nil, err
	}
	return &Page{Results: results, Total: total}, nil
}

func (e *Executor) count(ctx context.Context, resource string, ops []ast.Operation, opts ast.QueryOptions) (int64, error) {
	q, err := e.compiler.CompileCount(ctx, resource, ops, opts)
	if err != nil {
		return 0, err
	}
	e.log.Debug().Str("sql", q.SQL).Msg("compiled count")

	var total int64
	if err := e.db.QueryRowContext(ctx, q.SQL, q.Args...).Scan(&total); err != nil {
		return 0, Classify(err)
	}
	return total, nil
}

// Create inserts a logical document, classifying unique-violation errors.
func (e *Executor) Create(ctx context.Context, resource string, doc map[string]interface{}) error {
	q := e.compiler.CompileInsert(resource, doc)
	e.log.Debug().Str("sql", q.SQL).Msg("compiled insert")

	if _, err := e.db.ExecContext(ctx, q.SQL, q.Args...); err != nil {
		return Classify(err)
	}
	return nil
}

// Update applies the SET document to records matching the filters, then
// re-selects them. A re-select yielding zero rows means the target does not
// exist and surfaces as ErrNotFound.
func (e *Executor) Update(ctx context.Context, resource string, set map[string]interface{}, opts ast.QueryOptions) ([]map[string]interface{}, error) {
	q, err := e.compiler.CompileUpdate(resource, set, opts)
	if err != nil {
		return nil, err
	}
	e.log.Debug().Str("sql", q.SQL).Msg("compiled update")

	if _, err := e.db.ExecContext(ctx, q.SQL, q.Args...); err != nil {
		return nil, Classify(err)
	}

	reselect := ast.QueryOptions{Filters: opts.Filters}
	page, err := e.FindMany(ctx, resource, nil, reselect)
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, resource)
	}
	return page.Results, nil
}

// Delete removes matching records and reports how many went away. The
// compiler rejects a delete without any filter.
func (e *Executor) Delete(ctx context.Context, resource string, opts ast.QueryOptions) (int64, error) {
	q, err := e.compiler.CompileDelete(resource, opts)
	if err != nil {
		return 0, err
	}
	e.log.Debug().Str("sql", q.SQL).Msg("compiled delete")

	result, err := e.db.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, Classify(err)
	}
	return result.RowsAffected()
}

// scanRows drains rows into reconstructed entities.
func scanRows(rows *sql.Rows, ops []ast.Operation) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	shape := shapeFor(ops)
	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		results = append(results, reconstructRow(columns, values, shape))
	}
	return results, rows.Err()
}
