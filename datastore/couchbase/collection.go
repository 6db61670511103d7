/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package couchbase

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/couchbase/gocb/v2"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// Bucket wraps a gocb bucket
type Bucket struct {
	bucket *gocb.Bucket
}

func (b *Bucket) Name() string { return b.bucket.Name() }

func (b *Bucket) DefaultScope() datastore.Scope {
	return &Scope{scope: b.bucket.DefaultScope(), bucket: b.bucket.Name()}
}

// Scope returns a handle on name. gocb resolves scopes on first use.
func (b *Bucket) Scope(name string) (datastore.Scope, error) {
	if name == "" || name == storagemodels.DefaultScope {
		return b.DefaultScope(), nil
	}
	return &Scope{scope: b.bucket.Scope(name), bucket: b.bucket.Name()}, nil
}

func (b *Bucket) Collection(scope datastore.Scope, name string) datastore.DataStore {
	if name == "" {
		name = storagemodels.DefaultCollection
	}
	s := b.bucket.Scope(scope.Name())
	return &Collection{collection: s.Collection(name), name: name}
}

// Scope wraps a gocb scope
type Scope struct {
	scope  *gocb.Scope
	bucket string
}

func (s *Scope) Name() string       { return s.scope.Name() }
func (s *Scope) BucketName() string { return s.bucket }

// Collection is key-value access to a gocb collection
type Collection struct {
	collection *gocb.Collection
	name       string
}

var _ datastore.DataStore = (*Collection)(nil)

func (c *Collection) Get(ctx context.Context, id string) (*storagemodels.Document, error) {
	res, err := c.collection.Get(id, &gocb.GetOptions{Context: ctx})
	if err != nil {
		return nil, c.kvError(err, "get", id)
	}
	var content json.RawMessage
	if err := res.Content(&content); err != nil {
		return nil, err
	}
	return &storagemodels.Document{ID: id, Cas: uint64(res.Cas()), Content: content}, nil
}

func (c *Collection) Exists(ctx context.Context, id string) (bool, error) {
	res, err := c.collection.Exists(id, &gocb.ExistsOptions{Context: ctx})
	if err != nil {
		return false, c.kvError(err, "exists", id)
	}
	return res.Exists(), nil
}

func (c *Collection) Insert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error) {
	res, err := c.collection.Insert(id, body, &gocb.InsertOptions{Context: ctx})
	if err != nil {
		return nil, c.kvError(err, "insert", id)
	}
	return &storagemodels.Document{ID: id, Cas: uint64(res.Cas()), Content: body}, nil
}

func (c *Collection) Upsert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error) {
	res, err := c.collection.Upsert(id, body, &gocb.UpsertOptions{Context: ctx})
	if err != nil {
		return nil, c.kvError(err, "upsert", id)
	}
	return &storagemodels.Document{ID: id, Cas: uint64(res.Cas()), Content: body}, nil
}

func (c *Collection) Replace(ctx context.Context, id string, cas uint64, body json.RawMessage) (*storagemodels.Document, error) {
	res, err := c.collection.Replace(id, body, &gocb.ReplaceOptions{Cas: gocb.Cas(cas), Context: ctx})
	if err != nil {
		return nil, c.kvError(err, "replace", id)
	}
	return &storagemodels.Document{ID: id, Cas: uint64(res.Cas()), Content: body}, nil
}

func (c *Collection) Remove(ctx context.Context, id string, cas uint64) (storagemodels.RemoveResult, error) {
	res, err := c.collection.Remove(id, &gocb.RemoveOptions{Cas: gocb.Cas(cas), Context: ctx})
	if err != nil {
		return storagemodels.RemoveResult{}, c.kvError(err, "remove", id)
	}
	return storagemodels.RemoveResult{ID: id, Cas: uint64(res.Cas())}, nil
}

// kvError turns the key-value outcomes callers branch on into domain errors
// and leaves everything else for the translator.
func (c *Collection) kvError(err error, op, id string) error {
	switch {
	case stderrors.Is(err, gocb.ErrDocumentNotFound):
		return errors.NewNotFoundError(c.name, id)
	case stderrors.Is(err, gocb.ErrDocumentExists):
		return errors.NewAlreadyExistsError(c.name, id)
	case stderrors.Is(err, gocb.ErrCasMismatch):
		return errors.NewConditionFailedError(op, "cas mismatch")
	}
	return err
}
