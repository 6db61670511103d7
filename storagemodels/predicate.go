/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// Predicate is a backend-neutral filter expression. Renderers in the backend
// packages turn it into dialect text; values are never pre-rendered.
type Predicate interface {
	predicate()
}

// Operator is a binary comparison operator.
type Operator string

const (
	OpEq   Operator = "="
	OpNe   Operator = "!="
	OpGt   Operator = ">"
	OpGte  Operator = ">="
	OpLt   Operator = "<"
	OpLte  Operator = "<="
	OpLike Operator = "LIKE"
)

// Comparison compares a document field with a value.
type Comparison struct {
	Field string
	Op    Operator
	Value any
}

// Membership matches when the field equals one of Values.
type Membership struct {
	Field  string
	Values []any
}

// PresenceKind selects what Presence tests for.
type PresenceKind int

const (
	PresenceMissing PresenceKind = iota
	PresenceNull
	PresenceNotNull
)

// Presence tests whether a field is absent or null.
type Presence struct {
	Field string
	Kind  PresenceKind
}

// Logical joins terms with AND or OR.
type Logical struct {
	Or    bool
	Terms []Predicate
}

// Negation inverts a term.
type Negation struct {
	Term Predicate
}

func (Comparison) predicate() {}
func (Membership) predicate() {}
func (Presence) predicate()   {}
func (Logical) predicate()    {}
func (Negation) predicate()   {}

// FieldRef is the starting point for building comparisons on a field.
type FieldRef struct {
	name string
}

// Where starts a predicate on a field. Dotted names address nested fields.
func Where(field string) FieldRef {
	return FieldRef{name: field}
}

func (f FieldRef) Eq(v any) Predicate   { return Comparison{Field: f.name, Op: OpEq, Value: v} }
func (f FieldRef) Ne(v any) Predicate   { return Comparison{Field: f.name, Op: OpNe, Value: v} }
func (f FieldRef) Gt(v any) Predicate   { return Comparison{Field: f.name, Op: OpGt, Value: v} }
func (f FieldRef) Gte(v any) Predicate  { return Comparison{Field: f.name, Op: OpGte, Value: v} }
func (f FieldRef) Lt(v any) Predicate   { return Comparison{Field: f.name, Op: OpLt, Value: v} }
func (f FieldRef) Lte(v any) Predicate  { return Comparison{Field: f.name, Op: OpLte, Value: v} }
func (f FieldRef) Like(pattern string) Predicate {
	return Comparison{Field: f.name, Op: OpLike, Value: pattern}
}

// In matches any of values. An empty list matches nothing.
func (f FieldRef) In(values ...any) Predicate {
	cp := make([]any, len(values))
	copy(cp, values)
	return Membership{Field: f.name, Values: cp}
}

func (f FieldRef) IsMissing() Predicate { return Presence{Field: f.name, Kind: PresenceMissing} }
func (f FieldRef) IsNull() Predicate    { return Presence{Field: f.name, Kind: PresenceNull} }
func (f FieldRef) IsNotNull() Predicate { return Presence{Field: f.name, Kind: PresenceNotNull} }

// And conjoins the non-nil terms. It returns nil when no terms remain and the
// term itself when only one does.
func And(terms ...Predicate) Predicate {
	return join(false, terms)
}

// Or disjoins the non-nil terms with the same collapsing rules as And.
func Or(terms ...Predicate) Predicate {
	return join(true, terms)
}

// Not negates p. Not(nil) is nil.
func Not(p Predicate) Predicate {
	if p == nil {
		return nil
	}
	return Negation{Term: p}
}

func join(or bool, terms []Predicate) Predicate {
	kept := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			kept = append(kept, t)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return Logical{Or: or, Terms: kept}
}
