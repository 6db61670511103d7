/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package surreal

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// Bucket is a SurrealDB namespace
type Bucket struct {
	cluster *Cluster
	name    string
}

func (b *Bucket) Name() string { return b.name }

func (b *Bucket) DefaultScope() datastore.Scope {
	return &Scope{bucket: b.name, name: storagemodels.DefaultScope}
}

// Scope returns a handle on a database. The connection is dialed on first use.
func (b *Bucket) Scope(name string) (datastore.Scope, error) {
	if name == "" {
		return b.DefaultScope(), nil
	}
	return &Scope{bucket: b.name, name: name}, nil
}

func (b *Bucket) Collection(scope datastore.Scope, name string) datastore.DataStore {
	if name == "" {
		name = storagemodels.DefaultCollection
	}
	return &Collection{cluster: b.cluster, namespace: b.name, scope: scope.Name(), table: name}
}

// Scope is a SurrealDB database inside a namespace
type Scope struct {
	bucket string
	name   string
}

func (s *Scope) Name() string       { return s.name }
func (s *Scope) BucketName() string { return s.bucket }

// Collection is key-value access to a SurrealDB table
type Collection struct {
	cluster   *Cluster
	namespace string
	scope     string
	table     string
}

var _ datastore.DataStore = (*Collection)(nil)

var casSeq atomic.Uint64

// nextCas returns a token that increases across the process.
func nextCas() uint64 {
	now := uint64(time.Now().UnixNano())
	for {
		prev := casSeq.Load()
		next := max(now, prev+1)
		if casSeq.CompareAndSwap(prev, next) {
			return next
		}
	}
}

func (c *Collection) run(ctx context.Context, sql string, vars map[string]any) ([]map[string]any, error) {
	db, err := c.cluster.conn(ctx, c.namespace, c.scope)
	if err != nil {
		return nil, err
	}
	vars["tb"] = c.table
	return query(ctx, db, sql, vars)
}

func (c *Collection) Get(ctx context.Context, id string) (*storagemodels.Document, error) {
	recs, err := c.run(ctx, "SELECT * FROM type::thing($tb, $id)", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.NewNotFoundError(c.table, id)
	}
	return c.document(id, recs[0])
}

func (c *Collection) Exists(ctx context.Context, id string) (bool, error) {
	recs, err := c.run(ctx, "SELECT id FROM type::thing($tb, $id)", map[string]any{"id": id})
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

func (c *Collection) Insert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error) {
	content, cas, err := withCas(body)
	if err != nil {
		return nil, err
	}
	recs, err := c.run(ctx, "CREATE type::thing($tb, $id) CONTENT $body RETURN AFTER",
		map[string]any{"id": id, "body": content})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, errors.NewAlreadyExistsError(c.table, id)
		}
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.NewAlreadyExistsError(c.table, id)
	}
	return &storagemodels.Document{ID: id, Cas: cas, Content: body}, nil
}

func (c *Collection) Upsert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error) {
	content, cas, err := withCas(body)
	if err != nil {
		return nil, err
	}
	if _, err := c.run(ctx, "UPSERT type::thing($tb, $id) CONTENT $body RETURN NONE",
		map[string]any{"id": id, "body": content}); err != nil {
		return nil, err
	}
	return &storagemodels.Document{ID: id, Cas: cas, Content: body}, nil
}

func (c *Collection) Replace(ctx context.Context, id string, cas uint64, body json.RawMessage) (*storagemodels.Document, error) {
	content, next, err := withCas(body)
	if err != nil {
		return nil, err
	}
	sql := "UPDATE type::thing($tb, $id) CONTENT $body RETURN AFTER"
	vars := map[string]any{"id": id, "body": content}
	if cas != 0 {
		sql = "UPDATE type::thing($tb, $id) CONTENT $body WHERE _cas = $cas RETURN AFTER"
		vars["cas"] = cas
	}
	recs, err := c.run(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, c.missOrConflict(ctx, id, "replace")
	}
	return &storagemodels.Document{ID: id, Cas: next, Content: body}, nil
}

func (c *Collection) Remove(ctx context.Context, id string, cas uint64) (storagemodels.RemoveResult, error) {
	sql := "DELETE type::thing($tb, $id) RETURN BEFORE"
	vars := map[string]any{"id": id}
	if cas != 0 {
		sql = "DELETE type::thing($tb, $id) WHERE _cas = $cas RETURN BEFORE"
		vars["cas"] = cas
	}
	recs, err := c.run(ctx, sql, vars)
	if err != nil {
		return storagemodels.RemoveResult{}, err
	}
	if len(recs) == 0 {
		return storagemodels.RemoveResult{}, c.missOrConflict(ctx, id, "remove")
	}
	return storagemodels.RemoveResult{ID: id, Cas: uint64(toInt64(recs[0][casField]))}, nil
}

// missOrConflict explains why a conditional write touched nothing.
func (c *Collection) missOrConflict(ctx context.Context, id, op string) error {
	ok, err := c.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewNotFoundError(c.table, id)
	}
	return errors.NewConditionFailedError(op, "cas mismatch")
}

func (c *Collection) document(id string, rec map[string]any) (*storagemodels.Document, error) {
	row, err := recordRow(rec)
	if err != nil {
		return nil, err
	}
	return &storagemodels.Document{ID: id, Cas: row.Cas, Content: row.Content}, nil
}

// withCas decodes body and stamps a fresh CAS token on it.
func withCas(body json.RawMessage) (map[string]any, uint64, error) {
	var content map[string]any
	if err := json.Unmarshal(body, &content); err != nil {
		return nil, 0, errors.NewValidationError("body", "document must be a JSON object")
	}
	delete(content, idField)
	cas := nextCas()
	content[casField] = cas
	return content, cas, nil
}
