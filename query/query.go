// Package query wires the backend-specific compilers behind one entry point.
// Callers pick a backend at deployment time; the external behavior of the
// compiled queries is identical across engines.
package query

import (
	"database/sql"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crossquery/crossquery/query/ast"
	"github.com/crossquery/crossquery/query/executor"
	"github.com/crossquery/crossquery/query/introspect"
	"github.com/crossquery/crossquery/query/mongogen"
	"github.com/crossquery/crossquery/query/normalize"
	"github.com/crossquery/crossquery/query/sqlgen"
)

// Relational bundles the SQL compiler with its column cache and executor for
// one relational deployment.
type Relational struct {
	Compiler *sqlgen.Compiler
	Executor *executor.Executor

	// Columns is the process-lifetime column cache; call Invalidate after a
	// schema migration.
	Columns *introspect.Cache
}

// NewRelational assembles the relational stack for a provider
// ("postgresql", "mysql" or "sqlite"). Pass zerolog.Nop() to disable query
// logging.
func NewRelational(provider string, db *sql.DB, norm normalize.Config, log zerolog.Logger) *Relational {
	dialect := sqlgen.NewDialect(provider)

	var lister introspect.Lister
	switch dialect.Name() {
	case "mysql":
		lister = introspect.NewMySQL(db)
	case "sqlite":
		lister = introspect.NewSQLite(db)
	default:
		lister = introspect.NewPostgres(db)
	}

	columns := introspect.NewCache(lister)
	compiler := sqlgen.NewCompiler(dialect, columns, norm)
	return &Relational{
		Compiler: compiler,
		Executor: executor.New(db, compiler, log),
		Columns:  columns,
	}
}

// CompilePipeline compiles for the document engine. The caller executes the
// returned pipeline in a single aggregate call on the target collection.
func CompilePipeline(ops []ast.Operation, opts ast.QueryOptions, norm normalize.Config) (mongo.Pipeline, error) {
	return mongogen.Compile(ops, opts, norm)
}
