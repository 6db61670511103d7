/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
	"encoding/json"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// Bucket is a handle on a mock bucket
type Bucket struct {
	cluster *Cluster
	name    string
}

// Scope is a handle on a mock scope
type Scope struct {
	bucket string
	name   string
}

func (s *Scope) Name() string       { return s.name }
func (s *Scope) BucketName() string { return s.bucket }

func (b *Bucket) Name() string { return b.name }

func (b *Bucket) DefaultScope() datastore.Scope {
	return &Scope{bucket: b.name, name: storagemodels.DefaultScope}
}

func (b *Bucket) Scope(name string) (datastore.Scope, error) {
	if name == "" {
		return b.DefaultScope(), nil
	}
	return &Scope{bucket: b.name, name: name}, nil
}

func (b *Bucket) Collection(scope datastore.Scope, name string) datastore.DataStore {
	return &Collection{cluster: b.cluster, bucket: b.name, scope: scope.Name(), name: collectionName(name)}
}

// Collection is key-value access to a mock collection
type Collection struct {
	cluster *Cluster
	bucket  string
	scope   string
	name    string
}

func (c *Collection) data() (collectionData, error) {
	if c.cluster.kvError != nil {
		return nil, c.cluster.kvError
	}
	return c.cluster.collectionLocked(c.bucket, c.scope, c.name)
}

// Get retrieves a document by id
func (c *Collection) Get(ctx context.Context, id string) (*storagemodels.Document, error) {
	c.cluster.mu.Lock()
	defer c.cluster.mu.Unlock()

	data, err := c.data()
	if err != nil {
		return nil, err
	}
	e, ok := data[id]
	if !ok {
		return nil, errors.NewNotFoundError(c.name, id)
	}
	return &storagemodels.Document{ID: id, Cas: e.cas, Content: e.raw}, nil
}

// Exists reports whether id is stored
func (c *Collection) Exists(ctx context.Context, id string) (bool, error) {
	c.cluster.mu.Lock()
	defer c.cluster.mu.Unlock()

	data, err := c.data()
	if err != nil {
		return false, err
	}
	_, ok := data[id]
	return ok, nil
}

// Insert stores a new document
func (c *Collection) Insert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error) {
	return c.mutate(id, body, func(existing *entry) error {
		if existing != nil {
			return errors.NewAlreadyExistsError(c.name, id)
		}
		return nil
	})
}

// Upsert stores a document whether or not it exists
func (c *Collection) Upsert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error) {
	return c.mutate(id, body, func(*entry) error { return nil })
}

// Replace overwrites an existing document, checking cas when non-zero
func (c *Collection) Replace(ctx context.Context, id string, cas uint64, body json.RawMessage) (*storagemodels.Document, error) {
	return c.mutate(id, body, func(existing *entry) error {
		if existing == nil {
			return errors.NewNotFoundError(c.name, id)
		}
		if cas != 0 && existing.cas != cas {
			return errors.NewConditionFailedError("replace", "cas mismatch")
		}
		return nil
	})
}

// Remove deletes a document, checking cas when non-zero
func (c *Collection) Remove(ctx context.Context, id string, cas uint64) (storagemodels.RemoveResult, error) {
	c.cluster.mu.Lock()
	defer c.cluster.mu.Unlock()

	data, err := c.data()
	if err != nil {
		return storagemodels.RemoveResult{}, err
	}
	e, ok := data[id]
	if !ok {
		return storagemodels.RemoveResult{}, errors.NewNotFoundError(c.name, id)
	}
	if cas != 0 && e.cas != cas {
		return storagemodels.RemoveResult{}, errors.NewConditionFailedError("remove", "cas mismatch")
	}
	delete(data, id)
	return storagemodels.RemoveResult{ID: id, Cas: e.cas}, nil
}

func (c *Collection) mutate(id string, body json.RawMessage, check func(*entry) error) (*storagemodels.Document, error) {
	if id == "" {
		return nil, errors.NewValidationError("id", "document id must not be empty")
	}

	c.cluster.mu.Lock()
	defer c.cluster.mu.Unlock()

	data, err := c.data()
	if err != nil {
		return nil, err
	}
	if err := check(data[id]); err != nil {
		return nil, err
	}
	e, err := c.cluster.newEntryLocked(body)
	if err != nil {
		return nil, err
	}
	data[id] = e
	return &storagemodels.Document{ID: id, Cas: e.cas, Content: e.raw}, nil
}
