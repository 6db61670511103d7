/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory datastore.Cluster for testing
package mock

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// Failures the mock can be told to return. Classify maps them the way a
// real backend classifier would.
var (
	ErrTimeout        = stderrors.New("mock: operation timed out")
	ErrUnavailable    = stderrors.New("mock: cluster unavailable")
	ErrBucketNotFound = stderrors.New("mock: bucket not found")
	ErrRawUnsupported = stderrors.New("mock: raw statements not configured")
)

type entry struct {
	cas  uint64
	body map[string]any
	raw  json.RawMessage
}

// collection id -> entry
type collectionData map[string]*entry

// Cluster is an in-memory implementation of datastore.Cluster
type Cluster struct {
	mu           sync.RWMutex
	buckets      map[string]map[string]map[string]collectionData // bucket -> scope -> collection
	caps         storagemodels.CapabilitySet
	casSeq       uint64
	statements   []storagemodels.Statement
	openError    error
	capsError    error
	executeError error
	kvError      error
	executeDelay time.Duration
	rawFunc      func(ctx context.Context, statement string, params map[string]any) ([]storagemodels.Row, error)
	closed       bool
}

// NewCluster creates a mock cluster holding the given buckets. It advertises
// query, key-value and collections.
func NewCluster(buckets ...string) *Cluster {
	c := &Cluster{
		buckets: make(map[string]map[string]map[string]collectionData),
		caps: storagemodels.NewCapabilitySet(
			storagemodels.CapabilityQuery,
			storagemodels.CapabilityKeyValue,
			storagemodels.CapabilityCollections,
		),
	}
	for _, b := range buckets {
		c.buckets[b] = make(map[string]map[string]collectionData)
	}
	return c
}

// WithCapabilities replaces the advertised capability set
func (c *Cluster) WithCapabilities(caps ...storagemodels.Capability) *Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caps = storagemodels.NewCapabilitySet(caps...)
	return c
}

// WithOpenError makes OpenBucket return err
func (c *Cluster) WithOpenError(err error) *Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openError = err
	return c
}

// WithCapabilitiesError makes Capabilities return err
func (c *Cluster) WithCapabilitiesError(err error) *Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capsError = err
	return c
}

// WithExecuteError makes Execute and ExecuteRaw return err
func (c *Cluster) WithExecuteError(err error) *Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executeError = err
	return c
}

// WithKVError makes every key-value operation return err
func (c *Cluster) WithKVError(err error) *Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kvError = err
	return c
}

// WithExecuteDelay makes Execute wait d before running, honoring ctx
func (c *Cluster) WithExecuteDelay(d time.Duration) *Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executeDelay = d
	return c
}

// WithRawFunc sets the handler for ExecuteRaw
func (c *Cluster) WithRawFunc(f func(ctx context.Context, statement string, params map[string]any) ([]storagemodels.Row, error)) *Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rawFunc = f
	return c
}

// Seed stores doc under id and returns its CAS. The bucket must exist.
func (c *Cluster) Seed(bucket, scope, collection, id string, doc any) (uint64, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := c.collectionLocked(bucket, scope, collection)
	if err != nil {
		return 0, err
	}
	e, err := c.newEntryLocked(raw)
	if err != nil {
		return 0, err
	}
	data[id] = e
	return e.cas, nil
}

// Statements returns a copy of every statement passed to Execute
func (c *Cluster) Statements() []storagemodels.Statement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]storagemodels.Statement, len(c.statements))
	copy(out, c.statements)
	return out
}

// Contains reports whether a document is stored
func (c *Cluster) Contains(bucket, scope, collection, id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cols, ok := c.buckets[bucket][scopeName(scope)]
	if !ok {
		return false
	}
	_, ok = cols[collectionName(collection)][id]
	return ok
}

// Name implements datastore.Cluster
func (c *Cluster) Name() string { return "memory" }

// OpenBucket implements datastore.Cluster
func (c *Cluster) OpenBucket(ctx context.Context, name string) (datastore.Bucket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.openError != nil {
		return nil, c.openError
	}
	if c.closed {
		return nil, ErrUnavailable
	}
	if _, ok := c.buckets[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrBucketNotFound, name)
	}
	return &Bucket{cluster: c, name: name}, nil
}

// Capabilities implements datastore.Cluster
func (c *Cluster) Capabilities(ctx context.Context) (storagemodels.CapabilitySet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.capsError != nil {
		return storagemodels.CapabilitySet{}, c.capsError
	}
	return c.caps, nil
}

// Execute implements datastore.Cluster
func (c *Cluster) Execute(ctx context.Context, stmt *storagemodels.Statement) (datastore.Rows, error) {
	c.mu.Lock()
	c.statements = append(c.statements, *stmt)
	delay, execErr := c.executeDelay, c.executeError
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if execErr != nil {
		return nil, execErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ks := stmt.Keyspace
	data, err := c.collectionLocked(ks.Bucket, ks.Scope, ks.Collection)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rows []storagemodels.Row
	var count int64
	for _, id := range ids {
		e := data[id]
		ok, err := Matches(stmt.Predicate, e.body)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		switch stmt.Kind {
		case storagemodels.StatementCount:
			count++
		case storagemodels.StatementDelete:
			row := storagemodels.Row{ID: id, Cas: e.cas}
			if stmt.Returning == storagemodels.ReturningDocument {
				row.Content = e.raw
			}
			delete(data, id)
			rows = append(rows, row)
		default:
			content, err := project(e, stmt.Projection)
			if err != nil {
				return nil, err
			}
			rows = append(rows, storagemodels.Row{ID: id, Cas: e.cas, Content: content})
			if stmt.Limit > 0 && len(rows) >= stmt.Limit {
				return datastore.NewSliceRows(rows), nil
			}
		}
	}

	if stmt.Kind == storagemodels.StatementCount {
		rows = []storagemodels.Row{{Count: count}}
	}
	return datastore.NewSliceRows(rows), nil
}

// ExecuteRaw implements datastore.Cluster
func (c *Cluster) ExecuteRaw(ctx context.Context, statement string, params map[string]any) (datastore.Rows, error) {
	c.mu.RLock()
	fn, execErr := c.rawFunc, c.executeError
	c.mu.RUnlock()

	if execErr != nil {
		return nil, execErr
	}
	if fn == nil {
		return nil, ErrRawUnsupported
	}
	rows, err := fn(ctx, statement, params)
	if err != nil {
		return nil, err
	}
	return datastore.NewSliceRows(rows), nil
}

// Classify implements datastore.Cluster
func (c *Cluster) Classify(err error) (errors.Category, bool) {
	return Classify(err)
}

// Classify recognizes the mock's injected failures
func Classify(err error) (errors.Category, bool) {
	switch {
	case stderrors.Is(err, ErrTimeout):
		return errors.CategoryTimeout, true
	case stderrors.Is(err, ErrUnavailable), stderrors.Is(err, ErrBucketNotFound):
		return errors.CategoryConnectivity, true
	}
	return errors.CategoryUnknown, false
}

// Close implements datastore.Cluster
func (c *Cluster) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Cluster) collectionLocked(bucket, scope, collection string) (collectionData, error) {
	scopes, ok := c.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBucketNotFound, bucket)
	}
	cols, ok := scopes[scopeName(scope)]
	if !ok {
		cols = make(map[string]collectionData)
		scopes[scopeName(scope)] = cols
	}
	data, ok := cols[collectionName(collection)]
	if !ok {
		data = make(collectionData)
		cols[collectionName(collection)] = data
	}
	return data, nil
}

func (c *Cluster) newEntryLocked(raw json.RawMessage) (*entry, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errors.NewValidationError("body", "document must be a JSON object")
	}
	c.casSeq++
	return &entry{cas: c.casSeq, body: body, raw: append(json.RawMessage(nil), raw...)}, nil
}

func project(e *entry, fields []string) (json.RawMessage, error) {
	if len(fields) == 0 {
		return e.raw, nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := lookup(e.body, f); ok {
			out[f] = v
		}
	}
	return json.Marshal(out)
}

func scopeName(s string) string {
	if s == "" {
		return storagemodels.DefaultScope
	}
	return s
}

func collectionName(s string) string {
	if s == "" {
		return storagemodels.DefaultCollection
	}
	return s
}
