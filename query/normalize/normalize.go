// Package normalize canonicalizes filter values against field identifier
// semantics per backend. Classification is driven by an explicit Config so
// behavior can vary per deployment and be tested in isolation.
package normalize

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crossquery/crossquery/query/ast"
)

// Target selects the backend whose native identifier representation values
// are coerced to.
type Target string

const (
	TargetDocument   Target = "document"
	TargetRelational Target = "relational"
)

// Config holds the identifier classification policy. The zero value uses the
// naming heuristic alone.
type Config struct {
	// Schema supplies explicit per-field hints; it wins over everything else.
	Schema ast.Schema

	// Exclusions lists fields that look like identifiers by name but are not.
	Exclusions []string
}

// IsIdentifier classifies a field using, in priority order: the schema hint,
// the exclusion list, and the naming heuristic (field ends in Id/Ids, or is
// the system identifier itself).
func (c Config) IsIdentifier(field string) bool {
	if c.Schema != nil {
		if hint, ok := c.Schema[field]; ok {
			return hint == ast.FieldTypeID
		}
	}
	for _, excluded := range c.Exclusions {
		if excluded == field {
			return false
		}
	}
	return field == "_id" || field == "id" ||
		strings.HasSuffix(field, "Id") || strings.HasSuffix(field, "Ids")
}

// Value canonicalizes a single filter value. Identifier-classified string
// values become the backend's native identifier representation when
// syntactically valid (24-hex ObjectID for the document target), fall back to
// a number when numeric-looking, and pass through as strings otherwise.
// Non-identifier values are never touched.
func (c Config) Value(field string, v interface{}, target Target) interface{} {
	if !c.IsIdentifier(field) {
		return v
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	if target == TargetDocument {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	if n, ok := coerceNumber(s); ok {
		return n
	}
	return v
}

// Values canonicalizes every element of an in-filter, preserving order.
func (c Config) Values(field string, vs []interface{}, target Target) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = c.Value(field, v, target)
	}
	return out
}

func coerceNumber(s string) (interface{}, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}
