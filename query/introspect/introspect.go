// Package introspect resolves live table column lists from the database
// catalog. The relational compiler drives its explicit SELECT lists and join
// column resolution from these, never from a static model.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
)

// Lister resolves the ordered column list of a table.
type Lister interface {
	Columns(ctx context.Context, table string) ([]string, error)
}

type catalog struct {
	db    *sql.DB
	query string
}

// NewPostgres introspects the public schema via information_schema.
func NewPostgres(db *sql.DB) Lister {
	return &catalog{db: db, query: `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name = $1
		ORDER BY ordinal_position
	`}
}

// NewMySQL introspects the current database via information_schema.
func NewMySQL(db *sql.DB) Lister {
	return &catalog{db: db, query: `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position
	`}
}

// NewSQLite introspects via the pragma_table_info table-valued function.
func NewSQLite(db *sql.DB) Lister {
	return &catalog{db: db, query: `SELECT name FROM pragma_table_info(?)`}
}

func (c *catalog) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, c.query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect columns for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return columns, nil
}

// Static is a fixed table -> columns mapping. It serves offline compilation
// and tests, where no catalog connection exists.
type Static map[string][]string

func (s Static) Columns(_ context.Context, table string) ([]string, error) {
	columns, ok := s[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return columns, nil
}
