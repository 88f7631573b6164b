// Package ast defines the backend-agnostic query description consumed by
// both compilers: the join operation algebra and the per-request query
// options (filters, ordering, pagination).
package ast

import (
	"errors"
	"fmt"
	"sort"
)

// ErrAliasCollision is returned by the operation constructors when the join
// alias equals the source collection or table name. The alias is the only
// handle by which callers address the joined data, so a collision would make
// downstream disambiguation impossible.
var ErrAliasCollision = errors.New("join alias must differ from source name")

// JoinKind discriminates the closed set of operation variants.
type JoinKind string

const (
	KindJoin            JoinKind = "join"
	KindJoinMany        JoinKind = "joinMany"
	KindJoinThrough     JoinKind = "joinThrough"
	KindJoinThroughMany JoinKind = "joinThroughMany"
)

// Operation is a single join instruction. It is immutable once constructed;
// use the New* constructors, which enforce the alias invariant before any
// compilation is attempted.
type Operation struct {
	Kind JoinKind

	From         string // source collection/table
	LocalField   string // field on the base resource
	ForeignField string // field on From
	As           string // alias the joined result is exposed under

	// Through-variant fields: the junction collection/table and the two
	// fields that key its hops.
	Through             string
	ThroughLocalField   string // junction field matched against LocalField
	ThroughForeignField string // junction field matched against ForeignField

	// Inner selects inner-join semantics for KindJoin; the default is left.
	Inner bool
}

// Many reports whether the operation attaches an array of related records.
func (o Operation) Many() bool {
	return o.Kind == KindJoinMany || o.Kind == KindJoinThroughMany
}

func validateAlias(from, as string) error {
	if as == from {
		return fmt.Errorf("%w: %q", ErrAliasCollision, as)
	}
	return nil
}

// NewJoin builds a one-to-one left join: at most one related record is
// attached under as, or null when nothing matches.
func NewJoin(from, localField, foreignField, as string) (Operation, error) {
	if err := validateAlias(from, as); err != nil {
		return Operation{}, err
	}
	return Operation{
		Kind:         KindJoin,
		From:         from,
		LocalField:   localField,
		ForeignField: foreignField,
		As:           as,
	}, nil
}

// NewInnerJoin is NewJoin with inner-join semantics: base records without a
// match are dropped.
func NewInnerJoin(from, localField, foreignField, as string) (Operation, error) {
	op, err := NewJoin(from, localField, foreignField, as)
	if err != nil {
		return Operation{}, err
	}
	op.Inner = true
	return op, nil
}

// NewJoinMany builds a one-to-many join: zero or more related records are
// attached under as as an array, empty when nothing matches.
func NewJoinMany(from, localField, foreignField, as string) (Operation, error) {
	if err := validateAlias(from, as); err != nil {
		return Operation{}, err
	}
	return Operation{
		Kind:         KindJoinMany,
		From:         from,
		LocalField:   localField,
		ForeignField: foreignField,
		As:           as,
	}, nil
}

// NewJoinThrough builds a many-to-many join traversed via a junction
// collection/table, flattened to a single related record (null when nothing
// matches).
func NewJoinThrough(from, through, localField, throughLocalField, throughForeignField, foreignField, as string) (Operation, error) {
	if err := validateAlias(from, as); err != nil {
		return Operation{}, err
	}
	return Operation{
		Kind:                KindJoinThrough,
		From:                from,
		LocalField:          localField,
		ForeignField:        foreignField,
		As:                  as,
		Through:             through,
		ThroughLocalField:   throughLocalField,
		ThroughForeignField: throughForeignField,
	}, nil
}

// NewJoinThroughMany is NewJoinThrough keeping the related records as an
// array.
func NewJoinThroughMany(from, through, localField, throughLocalField, throughForeignField, foreignField, as string) (Operation, error) {
	op, err := NewJoinThrough(from, through, localField, throughLocalField, throughForeignField, foreignField, as)
	if err != nil {
		return Operation{}, err
	}
	op.Kind = KindJoinThroughMany
	return op, nil
}

// FilterOp identifies the effective arm of a FilterCondition.
type FilterOp string

const (
	OpEq       FilterOp = "eq"
	OpIn       FilterOp = "in"
	OpGte      FilterOp = "gte"
	OpLte      FilterOp = "lte"
	OpGt       FilterOp = "gt"
	OpLt       FilterOp = "lt"
	OpContains FilterOp = "contains"
)

// FilterCondition carries exactly one populated arm. If several arms are set,
// Arm applies the documented evaluation order eq > in > gte > lte > gt > lt >
// contains and the rest are ignored.
type FilterCondition struct {
	Eq       interface{}   `json:"eq,omitempty"`
	In       []interface{} `json:"in,omitempty"`
	Gte      interface{}   `json:"gte,omitempty"`
	Lte      interface{}   `json:"lte,omitempty"`
	Gt       interface{}   `json:"gt,omitempty"`
	Lt       interface{}   `json:"lt,omitempty"`
	Contains string        `json:"contains,omitempty"`
}

// Arm returns the single effective arm and its value. ok is false when no arm
// is populated.
func (f FilterCondition) Arm() (op FilterOp, value interface{}, ok bool) {
	switch {
	case f.Eq != nil:
		return OpEq, f.Eq, true
	case len(f.In) > 0:
		return OpIn, f.In, true
	case f.Gte != nil:
		return OpGte, f.Gte, true
	case f.Lte != nil:
		return OpLte, f.Lte, true
	case f.Gt != nil:
		return OpGt, f.Gt, true
	case f.Lt != nil:
		return OpLt, f.Lt, true
	case f.Contains != "":
		return OpContains, f.Contains, true
	}
	return "", nil, false
}

// SortDirection represents sort direction.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// QueryOptions is the per-request query shape: a flat field -> condition map,
// optional ordering and optional 1-based pagination.
type QueryOptions struct {
	Filters  map[string]FilterCondition `json:"filters,omitempty"`
	OrderBy  string                     `json:"orderBy,omitempty"`
	Sort     SortDirection              `json:"sortDirection,omitempty"`
	Page     int                        `json:"page,omitempty"`
	PageSize int                        `json:"pageSize,omitempty"`
}

// Paged reports whether pagination applies: page must be 1-based and pageSize
// positive; otherwise all matching records are returned.
func (q QueryOptions) Paged() bool {
	return q.Page >= 1 && q.PageSize > 0
}

// Offset is the number of records skipped before the requested page.
func (q QueryOptions) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Descending reports whether the sort direction is descending; ascending is
// the default.
func (q QueryOptions) Descending() bool {
	return q.Sort == SortDesc
}

// FilterFields returns the filtered field names in sorted order so both
// compilers emit deterministic output regardless of map iteration order.
func (q QueryOptions) FilterFields() []string {
	fields := make([]string, 0, len(q.Filters))
	for field := range q.Filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// FieldType is an explicit schema hint for a field.
type FieldType string

const (
	FieldTypeID     FieldType = "id"
	FieldTypeString FieldType = "string"
	FieldTypeNumber FieldType = "number"
	FieldTypeBool   FieldType = "bool"
	FieldTypeTime   FieldType = "time"
)

// Schema maps field names to type hints. It is optional; when supplied it
// takes precedence over name-based identifier classification.
type Schema map[string]FieldType
