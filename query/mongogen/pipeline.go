// Package mongogen compiles operations and query options into MongoDB
// aggregation pipelines. The compiler is purely functional: identical inputs
// always yield an identical ordered pipeline.
package mongogen

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crossquery/crossquery/query/ast"
	"github.com/crossquery/crossquery/query/normalize"
)

// Compile turns an ordered operation list plus query options into an
// aggregation pipeline suitable for a single aggregate call on the target
// collection. Join stages are emitted in the order operations were supplied;
// later stages may reference fields produced by earlier ones.
func Compile(ops []ast.Operation, opts ast.QueryOptions, cfg normalize.Config) (mongo.Pipeline, error) {
	pipeline := mongo.Pipeline{}

	if match := matchStage(opts, cfg); len(match) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	for _, op := range ops {
		stages, err := joinStages(op)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, stages...)
	}

	if opts.OrderBy != "" {
		direction := 1
		if opts.Descending() {
			direction = -1
		}
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: opts.OrderBy, Value: direction}}}})
	}

	if opts.Paged() {
		pipeline = append(pipeline, facetStage(opts))
	}

	return pipeline, nil
}

// matchStage builds the filter document, keyed by field name with fields in
// sorted order. Filter values are canonicalized against the document target.
func matchStage(opts ast.QueryOptions, cfg normalize.Config) bson.D {
	match := bson.D{}
	for _, field := range opts.FilterFields() {
		op, value, ok := opts.Filters[field].Arm()
		if !ok {
			continue
		}
		switch op {
		case ast.OpEq:
			match = append(match, bson.E{Key: field, Value: cfg.Value(field, value, normalize.TargetDocument)})
		case ast.OpIn:
			values := cfg.Values(field, value.([]interface{}), normalize.TargetDocument)
			match = append(match, bson.E{Key: field, Value: bson.D{{Key: "$in", Value: values}}})
		case ast.OpGte, ast.OpLte, ast.OpGt, ast.OpLt:
			match = append(match, bson.E{Key: field, Value: bson.D{
				{Key: "$" + string(op), Value: cfg.Value(field, value, normalize.TargetDocument)},
			}})
		case ast.OpContains:
			// Case-insensitive substring match; the needle is escaped so it
			// is never interpreted as a pattern.
			match = append(match, bson.E{Key: field, Value: bson.D{
				{Key: "$regex", Value: regexp.QuoteMeta(value.(string))},
				{Key: "$options", Value: "i"},
			}})
		}
	}
	return match
}

func joinStages(op ast.Operation) ([]bson.D, error) {
	switch op.Kind {
	case ast.KindJoin:
		stages := []bson.D{
			lookup(op.From, op.LocalField, op.ForeignField, op.As),
			collapseSingleton(op.As),
		}
		if op.Inner {
			stages = append(stages, bson.D{{Key: "$match", Value: bson.D{
				{Key: op.As, Value: bson.D{{Key: "$ne", Value: nil}}},
			}}})
		}
		return stages, nil

	case ast.KindJoinMany:
		// $lookup already yields an empty array when nothing matches.
		return []bson.D{lookup(op.From, op.LocalField, op.ForeignField, op.As)}, nil

	case ast.KindJoinThrough, ast.KindJoinThroughMany:
		// Two hops: resolve the junction first, then the final collection via
		// the junction's foreign keys, and project the junction away.
		junction := junctionAlias(op.As)
		stages := []bson.D{
			lookup(op.Through, op.LocalField, op.ThroughLocalField, junction),
			lookup(op.From, junction+"."+op.ThroughForeignField, op.ForeignField, op.As),
			{{Key: "$project", Value: bson.D{{Key: junction, Value: 0}}}},
		}
		if op.Kind == ast.KindJoinThrough {
			stages = append(stages, collapseSingleton(op.As))
		}
		return stages, nil
	}
	return nil, fmt.Errorf("unsupported operation kind %q", op.Kind)
}

func lookup(from, localField, foreignField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: foreignField},
		{Key: "as", Value: as},
	}}}
}

// collapseSingleton replaces the lookup's array with its first element, or
// null when the array is empty. One-to-one joins must never surface as
// arrays.
func collapseSingleton(as string) bson.D {
	return bson.D{{Key: "$addFields", Value: bson.D{
		{Key: as, Value: bson.D{{Key: "$ifNull", Value: bson.A{
			bson.D{{Key: "$arrayElemAt", Value: bson.A{"$" + as, 0}}},
			nil,
		}}}},
	}}}
}

// facetStage forks execution into a paged results branch and a count branch.
// Both branches observe the same point-in-time query execution, so total and
// results are mutually consistent even under concurrent writes.
func facetStage(opts ast.QueryOptions) bson.D {
	return bson.D{{Key: "$facet", Value: bson.D{
		{Key: "results", Value: bson.A{
			bson.D{{Key: "$skip", Value: opts.Offset()}},
			bson.D{{Key: "$limit", Value: opts.PageSize}},
		}},
		{Key: "total", Value: bson.A{
			bson.D{{Key: "$count", Value: "total"}},
		}},
	}}}
}

func junctionAlias(as string) string {
	return "__" + as + "_through"
}
