/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import "fmt"

// DefaultScope and DefaultCollection name the implicit sub-partition and
// collection of every bucket.
const (
	DefaultScope      = "_default"
	DefaultCollection = "_default"
)

// StatementKind is the operation a Statement performs.
type StatementKind int

const (
	StatementSelect StatementKind = iota
	StatementDelete
	StatementCount
)

func (k StatementKind) String() string {
	switch k {
	case StatementDelete:
		return "delete"
	case StatementCount:
		return "count"
	default:
		return "select"
	}
}

// ReturningMode selects what a DELETE statement reports per removed document.
type ReturningMode int

const (
	// ReturningMeta reports id and CAS only.
	ReturningMeta ReturningMode = iota
	// ReturningDocument also reports the removed body.
	ReturningDocument
)

// Keyspace addresses a collection inside a bucket and scope.
type Keyspace struct {
	Bucket     string
	Scope      string
	Collection string
}

// IsDefault reports whether the keyspace is the bucket's default collection.
func (k Keyspace) IsDefault() bool {
	return (k.Scope == "" || k.Scope == DefaultScope) &&
		(k.Collection == "" || k.Collection == DefaultCollection)
}

// ScopeName returns the scope, substituting the default for an empty name.
func (k Keyspace) ScopeName() string {
	if k.Scope == "" {
		return DefaultScope
	}
	return k.Scope
}

// CollectionName returns the collection, substituting the default for an
// empty name.
func (k Keyspace) CollectionName() string {
	if k.Collection == "" {
		return DefaultCollection
	}
	return k.Collection
}

func (k Keyspace) String() string {
	return fmt.Sprintf("%s.%s.%s", k.Bucket, k.ScopeName(), k.CollectionName())
}

// Statement is a structured, dialect-neutral description of a declarative
// operation. Each backend renders it with its own quoting routine.
type Statement struct {
	Kind        StatementKind
	Keyspace    Keyspace
	Predicate   Predicate
	Returning   ReturningMode
	Consistency ScanConsistency
	Projection  []string
	Limit       int
}
