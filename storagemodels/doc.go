/*
Package storagemodels defines the value types shared by docstore and its backends.

Query:
An immutable filter specification. Every refinement returns a copy:

	q := storagemodels.NewQuery().
	    Matching(storagemodels.Where("city").Eq("Lisbon")).
	    Matching(storagemodels.Where("rating").Gte(4)).
	    WithConsistency(storagemodels.ConsistencyRequestPlus)

Predicate:
A small expression tree (Comparison, Membership, Presence, Logical, Negation)
built with Where, And, Or and Not. Values stay as Go values until a backend
renders them.

Statement:
The structured form of a declarative operation (select, delete, count) over a
Keyspace. Each backend has exactly one renderer for it.

StreamResult:
Results from streaming operations with metadata:

	type StreamResult[T any] struct {
	    Item  T          // The typed entity
	    Error error      // Terminal error, if any
	    Meta  StreamMeta // Metadata about this item
	}

CapabilitySet:
The features a cluster advertises, used for fail-fast gating.
*/
package storagemodels
