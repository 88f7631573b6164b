package executor

import (
	"encoding/json"
	"strings"

	"github.com/crossquery/crossquery/query/ast"
	"github.com/crossquery/crossquery/query/sqlgen"
)

// rowShape precomputes, from the operation list, how row columns map back to
// nested entities: which aliases hold inline-joined columns and which hold
// JSON-encoded embeds.
type rowShape struct {
	inline map[string]bool         // one-to-one join aliases (alias__column buckets)
	embeds map[string]ast.JoinKind // JSON column aliases and their variant
}

func shapeFor(ops []ast.Operation) rowShape {
	shape := rowShape{
		inline: make(map[string]bool),
		embeds: make(map[string]ast.JoinKind),
	}
	for _, op := range ops {
		if op.Kind == ast.KindJoin {
			shape.inline[op.As] = true
		} else {
			shape.embeds[op.As] = op.Kind
		}
	}
	return shape
}

// Reconstruct un-flattens one relational row into a nested entity. Columns
// named <alias>__<column> for a recognized one-to-one alias are bucketed
// under that alias; a bucket whose values are all null resolves to null (an
// unmatched LEFT JOIN row), otherwise it becomes a nested object keyed by the
// unprefixed names. JSON-embed columns are decoded. Everything else is copied
// to the top level unchanged.
func Reconstruct(columns []string, values []interface{}, ops []ast.Operation) map[string]interface{} {
	return reconstructRow(columns, values, shapeFor(ops))
}

func reconstructRow(columns []string, values []interface{}, shape rowShape) map[string]interface{} {
	out := make(map[string]interface{}, len(columns))
	buckets := make(map[string]map[string]interface{})
	allNull := make(map[string]bool)

	for i, col := range columns {
		v := normalizeValue(values[i])

		if kind, ok := shape.embeds[col]; ok {
			out[col] = decodeEmbed(v, kind)
			continue
		}

		if alias, rest, ok := splitAlias(col); ok && shape.inline[alias] {
			bucket := buckets[alias]
			if bucket == nil {
				bucket = make(map[string]interface{})
				buckets[alias] = bucket
				allNull[alias] = true
			}
			bucket[rest] = v
			if v != nil {
				allNull[alias] = false
			}
			continue
		}

		out[col] = v
	}

	for alias, bucket := range buckets {
		if allNull[alias] {
			out[alias] = nil
		} else {
			out[alias] = bucket
		}
	}
	return out
}

func splitAlias(col string) (alias, rest string, ok bool) {
	idx := strings.Index(col, sqlgen.AliasSeparator)
	if idx <= 0 {
		return "", "", false
	}
	return col[:idx], col[idx+len(sqlgen.AliasSeparator):], true
}

// decodeEmbed decodes a JSON-typed subquery column. Many-variants always
// resolve to an array (empty, never null); the flattened through-variant
// resolves to an object or null.
func decodeEmbed(v interface{}, kind ast.JoinKind) interface{} {
	raw, ok := jsonBytes(v)
	many := kind == ast.KindJoinMany || kind == ast.KindJoinThroughMany

	if many {
		items := []interface{}{}
		if ok {
			_ = json.Unmarshal(raw, &items)
		}
		return items
	}

	if !ok {
		return nil
	}
	var record map[string]interface{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil
	}
	return record
}

func jsonBytes(v interface{}) ([]byte, bool) {
	switch raw := v.(type) {
	case nil:
		return nil, false
	case []byte:
		return raw, true
	case string:
		return []byte(raw), true
	}
	return nil, false
}

// normalizeValue converts driver byte slices to strings so entities are
// JSON-friendly maps.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
