/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"encoding/json"

	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// Cluster is a connected document database. Implementations must be safe for
// concurrent use.
type Cluster interface {
	// Name identifies the backend for logs and metrics.
	Name() string

	// OpenBucket resolves a bucket. It fails when the bucket does not exist
	// or the cluster cannot be reached.
	OpenBucket(ctx context.Context, name string) (Bucket, error)

	// Capabilities probes the features the cluster currently offers.
	Capabilities(ctx context.Context) (storagemodels.CapabilitySet, error)

	// Execute renders stmt in the backend dialect and runs it.
	Execute(ctx context.Context, stmt *storagemodels.Statement) (Rows, error)

	// ExecuteRaw runs a caller-written statement in the backend dialect with
	// named parameters. Rows carry the raw result objects as Content.
	ExecuteRaw(ctx context.Context, statement string, params map[string]any) (Rows, error)

	// Classify recognizes backend-specific failures for the error translator.
	Classify(err error) (errors.Category, bool)

	Close(ctx context.Context) error
}

// Bucket is a top-level partition.
type Bucket interface {
	Name() string
	DefaultScope() Scope
	// Scope returns a handle on a named scope without any I/O. An empty name
	// is the default scope.
	Scope(name string) (Scope, error)
	// Collection returns key-value access to a collection inside scope.
	Collection(scope Scope, name string) DataStore
}

// Scope is a sub-partition inside a bucket.
type Scope interface {
	Name() string
	BucketName() string
}

// Rows iterates statement results. Close must be called when done; it is
// safe to call more than once.
type Rows interface {
	Next(ctx context.Context) bool
	Row() storagemodels.Row
	Err() error
	Close() error
}

// DataStore is key-value access to one collection. Bodies are JSON documents.
type DataStore interface {
	Get(ctx context.Context, id string) (*storagemodels.Document, error)

	Exists(ctx context.Context, id string) (bool, error)

	// Insert fails with an AlreadyExistsError when id is taken.
	Insert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error)

	Upsert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error)

	// Replace fails with a ConditionFailedError when cas is non-zero and does
	// not match the stored token.
	Replace(ctx context.Context, id string, cas uint64, body json.RawMessage) (*storagemodels.Document, error)

	// Remove deletes id. A non-zero cas must match the stored token.
	Remove(ctx context.Context, id string, cas uint64) (storagemodels.RemoveResult, error)
}
