package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_AliasCollision(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Operation, error)
	}{
		{
			name: "join",
			build: func() (Operation, error) {
				return NewJoin("categories", "categoryId", "_id", "categories")
			},
		},
		{
			name: "inner join",
			build: func() (Operation, error) {
				return NewInnerJoin("categories", "categoryId", "_id", "categories")
			},
		},
		{
			name: "join many",
			build: func() (Operation, error) {
				return NewJoinMany("reviews", "_id", "productId", "reviews")
			},
		},
		{
			name: "join through",
			build: func() (Operation, error) {
				return NewJoinThrough("tags", "product_tags", "_id", "productId", "tagId", "_id", "tags")
			},
		},
		{
			name: "join through many",
			build: func() (Operation, error) {
				return NewJoinThroughMany("tags", "product_tags", "_id", "productId", "tagId", "_id", "tags")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAliasCollision)
		})
	}
}

func TestConstructors_Valid(t *testing.T) {
	op, err := NewJoin("categories", "categoryId", "_id", "category")
	require.NoError(t, err)
	assert.Equal(t, KindJoin, op.Kind)
	assert.False(t, op.Inner)
	assert.False(t, op.Many())

	op, err = NewInnerJoin("categories", "categoryId", "_id", "category")
	require.NoError(t, err)
	assert.True(t, op.Inner)

	op, err = NewJoinMany("reviews", "_id", "productId", "productReviews")
	require.NoError(t, err)
	assert.Equal(t, KindJoinMany, op.Kind)
	assert.True(t, op.Many())

	op, err = NewJoinThroughMany("tags", "product_tags", "_id", "productId", "tagId", "_id", "productTags")
	require.NoError(t, err)
	assert.Equal(t, KindJoinThroughMany, op.Kind)
	assert.Equal(t, "product_tags", op.Through)
	assert.True(t, op.Many())
}

func TestFilterCondition_Arm(t *testing.T) {
	tests := []struct {
		name      string
		condition FilterCondition
		wantOp    FilterOp
		wantValue interface{}
		wantOK    bool
	}{
		{
			name:      "eq",
			condition: FilterCondition{Eq: "x"},
			wantOp:    OpEq,
			wantValue: "x",
			wantOK:    true,
		},
		{
			name:      "contains",
			condition: FilterCondition{Contains: "wid"},
			wantOp:    OpContains,
			wantValue: "wid",
			wantOK:    true,
		},
		{
			name:      "eq wins over in and contains",
			condition: FilterCondition{Eq: 1, In: []interface{}{2, 3}, Contains: "x"},
			wantOp:    OpEq,
			wantValue: 1,
			wantOK:    true,
		},
		{
			name:      "gte wins over lt",
			condition: FilterCondition{Gte: 5, Lt: 10},
			wantOp:    OpGte,
			wantValue: 5,
			wantOK:    true,
		},
		{
			name:      "empty",
			condition: FilterCondition{},
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, value, ok := tt.condition.Arm()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantOp, op)
				assert.Equal(t, tt.wantValue, value)
			}
		})
	}
}

func TestQueryOptions_Pagination(t *testing.T) {
	assert.False(t, QueryOptions{}.Paged())
	assert.False(t, QueryOptions{Page: 1}.Paged())
	assert.False(t, QueryOptions{PageSize: 10}.Paged())
	assert.False(t, QueryOptions{Page: 0, PageSize: 10}.Paged())

	opts := QueryOptions{Page: 2, PageSize: 10}
	assert.True(t, opts.Paged())
	assert.Equal(t, 10, opts.Offset())

	assert.Equal(t, 0, QueryOptions{Page: 1, PageSize: 25}.Offset())
}

func TestQueryOptions_FilterFields_Sorted(t *testing.T) {
	opts := QueryOptions{Filters: map[string]FilterCondition{
		"name":       {Contains: "a"},
		"categoryId": {Eq: "1"},
		"price":      {Gte: 2},
	}}
	assert.Equal(t, []string{"categoryId", "name", "price"}, opts.FilterFields())
}
