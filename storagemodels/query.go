/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// ScanConsistency controls whether a query waits for pending mutations to be
// indexed before it runs.
type ScanConsistency int

const (
	// ConsistencyUnset leaves the choice to the backend.
	ConsistencyUnset ScanConsistency = iota
	ConsistencyNotBounded
	ConsistencyRequestPlus
)

func (c ScanConsistency) String() string {
	switch c {
	case ConsistencyNotBounded:
		return "not_bounded"
	case ConsistencyRequestPlus:
		return "request_plus"
	default:
		return "unset"
	}
}

// Query is an immutable filter specification. The zero value matches every
// document of the target entity type.
type Query struct {
	predicate   Predicate
	consistency ScanConsistency
	projection  []string
	limit       int
}

// NewQuery returns a match-all query.
func NewQuery() Query {
	return Query{}
}

// Matching returns a copy of q whose predicate is q's predicate AND p.
func (q Query) Matching(p Predicate) Query {
	cp := q.clone()
	cp.predicate = And(q.predicate, p)
	return cp
}

// WithConsistency returns a copy of q with the given scan consistency.
func (q Query) WithConsistency(c ScanConsistency) Query {
	cp := q.clone()
	cp.consistency = c
	return cp
}

// WithProjection returns a copy of q that only fetches the named fields.
func (q Query) WithProjection(fields ...string) Query {
	cp := q.clone()
	cp.projection = append([]string(nil), fields...)
	return cp
}

// WithLimit returns a copy of q capped at n results. n <= 0 removes the cap.
func (q Query) WithLimit(n int) Query {
	cp := q.clone()
	if n < 0 {
		n = 0
	}
	cp.limit = n
	return cp
}

// Predicate returns the filter, or nil for match-all.
func (q Query) Predicate() Predicate { return q.predicate }

// Consistency returns the requested scan consistency.
func (q Query) Consistency() ScanConsistency { return q.consistency }

// Limit returns the row limit, 0 for none.
func (q Query) Limit() int { return q.limit }

// Projection returns a copy of the projected field list.
func (q Query) Projection() []string {
	return append([]string(nil), q.projection...)
}

// IsMatchAll reports whether the query has no predicate.
func (q Query) IsMatchAll() bool {
	return q.predicate == nil
}

func (q Query) clone() Query {
	cp := q
	if q.projection != nil {
		cp.projection = append([]string(nil), q.projection...)
	}
	return cp
}
