/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import "encoding/json"

// RemoveResult describes one document removed by a remove operation.
type RemoveResult struct {
	// ID is the document key.
	ID string
	// Cas is the concurrency token observed at removal.
	Cas uint64
	// Content holds the removed body when ReturningDocument was requested.
	Content json.RawMessage
}

// HasContent reports whether the body was returned.
func (r RemoveResult) HasContent() bool {
	return len(r.Content) > 0
}

// Row is the backend-neutral shape of one result row. Backends convert their
// native rows into it.
type Row struct {
	ID      string
	Cas     uint64
	Content json.RawMessage
	// Count is set for StatementCount rows.
	Count int64
}

// Document is a stored body together with its key and concurrency token.
type Document struct {
	ID      string
	Cas     uint64
	Content json.RawMessage
}
