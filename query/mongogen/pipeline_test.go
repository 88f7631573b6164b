package mongogen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crossquery/crossquery/query/ast"
	"github.com/crossquery/crossquery/query/normalize"
)

func mustJoin(op ast.Operation, err error) ast.Operation {
	if err != nil {
		panic(err)
	}
	return op
}

func stageKey(t *testing.T, stage bson.D) string {
	t.Helper()
	require.Len(t, stage, 1)
	return stage[0].Key
}

func TestCompile_MatchStage(t *testing.T) {
	opts := ast.QueryOptions{Filters: map[string]ast.FilterCondition{
		"name":       {Contains: "wid"},
		"categoryId": {Eq: "64a6f2c8e4b0a1b2c3d4e5f6"},
		"price":      {Gte: 10},
	}}

	pipeline, err := Compile(nil, opts, normalize.Config{})
	require.NoError(t, err)
	require.Len(t, pipeline, 1)
	require.Equal(t, "$match", stageKey(t, pipeline[0]))

	match := pipeline[0][0].Value.(bson.D)
	require.Len(t, match, 3)

	// Fields are emitted in sorted order.
	assert.Equal(t, "categoryId", match[0].Key)
	assert.Equal(t, "name", match[1].Key)
	assert.Equal(t, "price", match[2].Key)

	oid, ok := match[0].Value.(primitive.ObjectID)
	require.True(t, ok)
	assert.Equal(t, "64a6f2c8e4b0a1b2c3d4e5f6", oid.Hex())

	assert.Equal(t, bson.D{
		{Key: "$regex", Value: "wid"},
		{Key: "$options", Value: "i"},
	}, match[1].Value)

	assert.Equal(t, bson.D{{Key: "$gte", Value: 10}}, match[2].Value)
}

func TestCompile_ContainsEscapesPattern(t *testing.T) {
	opts := ast.QueryOptions{Filters: map[string]ast.FilterCondition{
		"name": {Contains: "a.c+"},
	}}

	pipeline, err := Compile(nil, opts, normalize.Config{})
	require.NoError(t, err)

	match := pipeline[0][0].Value.(bson.D)
	regex := match[0].Value.(bson.D)
	assert.Equal(t, `a\.c\+`, regex[0].Value)
}

func TestCompile_JoinCollapsesSingleton(t *testing.T) {
	join := mustJoin(ast.NewJoin("categories", "categoryId", "_id", "category"))

	pipeline, err := Compile([]ast.Operation{join}, ast.QueryOptions{}, normalize.Config{})
	require.NoError(t, err)
	require.Len(t, pipeline, 2)

	require.Equal(t, "$lookup", stageKey(t, pipeline[0]))
	assert.Equal(t, bson.D{
		{Key: "from", Value: "categories"},
		{Key: "localField", Value: "categoryId"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "category"},
	}, pipeline[0][0].Value)

	// Singleton collapse: first element or null, never an array.
	require.Equal(t, "$addFields", stageKey(t, pipeline[1]))
	assert.Equal(t, bson.D{
		{Key: "category", Value: bson.D{{Key: "$ifNull", Value: bson.A{
			bson.D{{Key: "$arrayElemAt", Value: bson.A{"$category", 0}}},
			nil,
		}}}},
	}, pipeline[1][0].Value)
}

func TestCompile_InnerJoinFiltersUnmatched(t *testing.T) {
	join := mustJoin(ast.NewInnerJoin("categories", "categoryId", "_id", "category"))

	pipeline, err := Compile([]ast.Operation{join}, ast.QueryOptions{}, normalize.Config{})
	require.NoError(t, err)
	require.Len(t, pipeline, 3)

	require.Equal(t, "$match", stageKey(t, pipeline[2]))
	assert.Equal(t, bson.D{
		{Key: "category", Value: bson.D{{Key: "$ne", Value: nil}}},
	}, pipeline[2][0].Value)
}

func TestCompile_JoinManyKeepsArray(t *testing.T) {
	join := mustJoin(ast.NewJoinMany("reviews", "_id", "productId", "productReviews"))

	pipeline, err := Compile([]ast.Operation{join}, ast.QueryOptions{}, normalize.Config{})
	require.NoError(t, err)

	// A single lookup and nothing else: the native empty-array default is
	// exactly the required unmatched behavior.
	require.Len(t, pipeline, 1)
	assert.Equal(t, "$lookup", stageKey(t, pipeline[0]))
}

func TestCompile_ThroughJoinTwoHops(t *testing.T) {
	join := mustJoin(ast.NewJoinThroughMany("tags", "product_tags", "_id", "productId", "tagId", "_id", "productTags"))

	pipeline, err := Compile([]ast.Operation{join}, ast.QueryOptions{}, normalize.Config{})
	require.NoError(t, err)
	require.Len(t, pipeline, 3)

	hop1 := pipeline[0][0].Value.(bson.D)
	assert.Equal(t, "product_tags", hop1[0].Value)
	assert.Equal(t, "__productTags_through", hop1[3].Value)

	hop2 := pipeline[1][0].Value.(bson.D)
	assert.Equal(t, "tags", hop2[0].Value)
	assert.Equal(t, "__productTags_through.tagId", hop2[1].Value)
	assert.Equal(t, "productTags", hop2[3].Value)

	// Junction fields are projected away.
	require.Equal(t, "$project", stageKey(t, pipeline[2]))
	assert.Equal(t, bson.D{{Key: "__productTags_through", Value: 0}}, pipeline[2][0].Value)
}

func TestCompile_ThroughSingleCollapses(t *testing.T) {
	join := mustJoin(ast.NewJoinThrough("profiles", "memberships", "_id", "userId", "profileId", "_id", "profile"))

	pipeline, err := Compile([]ast.Operation{join}, ast.QueryOptions{}, normalize.Config{})
	require.NoError(t, err)
	require.Len(t, pipeline, 4)
	assert.Equal(t, "$addFields", stageKey(t, pipeline[3]))
}

func TestCompile_SortAndPagination(t *testing.T) {
	opts := ast.QueryOptions{
		OrderBy:  "name",
		Sort:     ast.SortDesc,
		Page:     2,
		PageSize: 10,
	}

	pipeline, err := Compile(nil, opts, normalize.Config{})
	require.NoError(t, err)
	require.Len(t, pipeline, 2)

	require.Equal(t, "$sort", stageKey(t, pipeline[0]))
	assert.Equal(t, bson.D{{Key: "name", Value: -1}}, pipeline[0][0].Value)

	require.Equal(t, "$facet", stageKey(t, pipeline[1]))
	facet := pipeline[1][0].Value.(bson.D)
	assert.Equal(t, bson.A{
		bson.D{{Key: "$skip", Value: 10}},
		bson.D{{Key: "$limit", Value: 10}},
	}, facet[0].Value)
	assert.Equal(t, bson.A{
		bson.D{{Key: "$count", Value: "total"}},
	}, facet[1].Value)
}

func TestCompile_UnpagedHasNoFacet(t *testing.T) {
	pipeline, err := Compile(nil, ast.QueryOptions{OrderBy: "name"}, normalize.Config{})
	require.NoError(t, err)
	require.Len(t, pipeline, 1)
	assert.Equal(t, "$sort", stageKey(t, pipeline[0]))
}

func TestCompile_Deterministic(t *testing.T) {
	join := mustJoin(ast.NewJoin("categories", "categoryId", "_id", "category"))
	opts := ast.QueryOptions{
		Filters: map[string]ast.FilterCondition{
			"name":  {Contains: "wid"},
			"price": {Lt: 100},
			"stock": {Gt: 0},
		},
		OrderBy:  "name",
		Page:     1,
		PageSize: 25,
	}

	first, err := Compile([]ast.Operation{join}, opts, normalize.Config{})
	require.NoError(t, err)
	second, err := Compile([]ast.Operation{join}, opts, normalize.Config{})
	require.NoError(t, err)

	a, err := bson.Marshal(bson.D{{Key: "p", Value: first}})
	require.NoError(t, err)
	b, err := bson.Marshal(bson.D{{Key: "p", Value: second}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
