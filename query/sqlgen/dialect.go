package sqlgen

import (
	"fmt"
	"strings"
)

// Dialect abstracts the engine-specific SQL surface: identifier quoting,
// parameter placeholders, and the JSON aggregation vocabulary used for
// embedded one-to-many results.
type Dialect interface {
	Name() string
	Quote(ident string) string
	// Placeholder returns the n-th (1-based) parameter marker.
	Placeholder(n int) string
	// JSONObject builds a JSON object from an alternating 'key', expr list.
	JSONObject(args string) string
	// JSONArrayAgg aggregates expr values into a JSON array.
	JSONArrayAgg(expr string) string
	// EmptyJSONArray is the literal an unmatched one-to-many coalesces to.
	EmptyJSONArray() string
	// LikeEscape is the ESCAPE clause literal accompanying LIKE patterns, as
	// it must appear in the statement text.
	LikeEscape() string
	// Returning reports whether the engine supports RETURNING on writes.
	Returning() bool
}

// NewDialect resolves a dialect by provider name, defaulting to PostgreSQL.
func NewDialect(provider string) Dialect {
	switch provider {
	case "mysql":
		return MySQL{}
	case "sqlite":
		return SQLite{}
	default:
		return Postgres{}
	}
}

// Postgres emits $n placeholders and the json_* function family.
type Postgres struct{}

func (Postgres) Name() string              { return "postgresql" }
func (Postgres) Quote(ident string) string { return `"` + ident + `"` }
func (Postgres) Placeholder(n int) string  { return fmt.Sprintf("$%d", n) }
func (Postgres) JSONObject(args string) string {
	return "json_build_object(" + args + ")"
}
func (Postgres) JSONArrayAgg(expr string) string { return "json_agg(" + expr + ")" }
func (Postgres) EmptyJSONArray() string          { return "'[]'::json" }
func (Postgres) LikeEscape() string              { return `'\'` }
func (Postgres) Returning() bool                 { return true }

// MySQL emits ? placeholders and the JSON_* function family.
type MySQL struct{}

func (MySQL) Name() string              { return "mysql" }
func (MySQL) Quote(ident string) string { return "`" + ident + "`" }
func (MySQL) Placeholder(int) string    { return "?" }
func (MySQL) JSONObject(args string) string {
	return "JSON_OBJECT(" + args + ")"
}
func (MySQL) JSONArrayAgg(expr string) string { return "JSON_ARRAYAGG(" + expr + ")" }
func (MySQL) EmptyJSONArray() string          { return "JSON_ARRAY()" }

// MySQL treats backslash as an escape inside string literals, so the literal
// itself needs doubling to reach the server as a single backslash.
func (MySQL) LikeEscape() string { return `'\\'` }
func (MySQL) Returning() bool    { return false }

// SQLite emits ? placeholders and the json1 extension functions.
type SQLite struct{}

func (SQLite) Name() string              { return "sqlite" }
func (SQLite) Quote(ident string) string { return `"` + ident + `"` }
func (SQLite) Placeholder(int) string    { return "?" }
func (SQLite) JSONObject(args string) string {
	return "json_object(" + args + ")"
}
func (SQLite) JSONArrayAgg(expr string) string { return "json_group_array(" + expr + ")" }
func (SQLite) EmptyJSONArray() string          { return "'[]'" }
func (SQLite) LikeEscape() string              { return `'\'` }
func (SQLite) Returning() bool                 { return false }

// toSnakeCase converts a case-mixed logical field name to the physical
// snake_case column convention. Acronym runs stay together (categoryID ->
// category_id, APIKey -> api_key). Fields carrying the system identifier
// marker (a leading underscore, e.g. _id) pass through unchanged.
func toSnakeCase(field string) string {
	if strings.HasPrefix(field, "_") {
		return field
	}
	runes := []rune(field)
	var b strings.Builder
	for i, r := range runes {
		if r < 'A' || r > 'Z' {
			b.WriteRune(r)
			continue
		}
		prevLower := i > 0 && (runes[i-1] >= 'a' && runes[i-1] <= 'z' || runes[i-1] >= '0' && runes[i-1] <= '9')
		prevUpper := i > 0 && runes[i-1] >= 'A' && runes[i-1] <= 'Z'
		nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
		if prevLower || (prevUpper && nextLower) {
			b.WriteByte('_')
		}
		b.WriteRune(r + ('a' - 'A'))
	}
	return b.String()
}
