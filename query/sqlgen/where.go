package sqlgen

import (
	"fmt"
	"strings"

	"github.com/crossquery/crossquery/query/ast"
	"github.com/crossquery/crossquery/query/normalize"
)

var comparisonOperators = map[ast.FilterOp]string{
	ast.OpEq:  "=",
	ast.OpGte: ">=",
	ast.OpLte: "<=",
	ast.OpGt:  ">",
	ast.OpLt:  "<",
}

// compileWhere builds the parameterized WHERE clause from the flat filter
// map, fields in sorted order. argIndex is threaded so callers can prepend
// their own parameters (UPDATE does).
func (c *Compiler) compileWhere(resource string, opts ast.QueryOptions, qualified bool, argIndex *int) (string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	for _, field := range opts.FilterFields() {
		op, value, ok := opts.Filters[field].Arm()
		if !ok {
			continue
		}
		col := c.columnRef(resource, field, qualified)

		switch op {
		case ast.OpEq, ast.OpGte, ast.OpLte, ast.OpGt, ast.OpLt:
			conditions = append(conditions, fmt.Sprintf("%s %s %s", col, comparisonOperators[op], c.dialect.Placeholder(*argIndex)))
			args = append(args, c.norm.Value(field, value, normalize.TargetRelational))
			*argIndex++

		case ast.OpIn:
			values := c.norm.Values(field, value.([]interface{}), normalize.TargetRelational)
			placeholders := make([]string, len(values))
			for i, v := range values {
				placeholders[i] = c.dialect.Placeholder(*argIndex)
				args = append(args, v)
				*argIndex++
			}
			conditions = append(conditions, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))

		case ast.OpContains:
			conditions = append(conditions, fmt.Sprintf("LOWER(%s) LIKE LOWER(%s) ESCAPE %s",
				col, c.dialect.Placeholder(*argIndex), c.dialect.LikeEscape()))
			args = append(args, "%"+escapeLike(value.(string))+"%")
			*argIndex++
		}
	}

	return strings.Join(conditions, " AND "), args, nil
}

// likeEscaper neutralizes LIKE wildcards in a contains needle so it only ever
// matches as a literal substring, mirroring the escaped regex on the document
// engine.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
