/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suparena/docstore/registry"
	"github.com/suparena/docstore/storagemodels"
	"github.com/suparena/docstore/stream"
)

// Identifiable entities receive their document id when decoded.
type Identifiable interface {
	GetID() string
	SetID(id string)
}

// ExecutableFindByQuery reads documents of entity type T that match a query.
type ExecutableFindByQuery[T any] struct {
	template *Template
	query    storagemodels.Query
}

// FindByQuery starts a read operation for T with a match-all query.
func FindByQuery[T any](t *Template) *ExecutableFindByQuery[T] {
	return &ExecutableFindByQuery[T]{template: t, query: storagemodels.NewQuery()}
}

// Matching returns a builder that reads documents matching q.
func (f *ExecutableFindByQuery[T]) Matching(q storagemodels.Query) *ExecutableFindByQuery[T] {
	cp := *f
	cp.query = q
	return &cp
}

// All returns every matching entity.
func (f *ExecutableFindByQuery[T]) All(ctx context.Context) ([]T, error) {
	items, err := f.Reactive().All().Collect(ctx)
	if err != nil {
		return nil, f.template.settle(ctx, err)
	}
	return items, nil
}

// First returns the first matching entity, with ok=false when none match.
func (f *ExecutableFindByQuery[T]) First(ctx context.Context) (item T, ok bool, err error) {
	item, ok, err = f.Matching(f.query.WithLimit(1)).Reactive().All().First(ctx)
	return item, ok, f.template.settle(ctx, err)
}

// Count returns the number of matching documents.
func (f *ExecutableFindByQuery[T]) Count(ctx context.Context) (int64, error) {
	n, _, err := f.Reactive().Count().First(ctx)
	if err != nil {
		return 0, f.template.settle(ctx, err)
	}
	return n, nil
}

// Exists reports whether any document matches.
func (f *ExecutableFindByQuery[T]) Exists(ctx context.Context) (bool, error) {
	n, err := f.Count(ctx)
	return n > 0, err
}

// Reactive returns the deferred surface of this operation.
func (f *ExecutableFindByQuery[T]) Reactive() *ReactiveFindByQuery[T] {
	return &ReactiveFindByQuery[T]{support: f}
}

// ReactiveFindByQuery is the deferred counterpart of ExecutableFindByQuery.
type ReactiveFindByQuery[T any] struct {
	support *ExecutableFindByQuery[T]
}

// All returns a cold publisher of decoded entities.
func (rf *ReactiveFindByQuery[T]) All() *stream.Publisher[T] {
	f := rf.support
	t := f.template
	info := registry.Resolve[T]()
	rows := t.publisher(t.rowSource("findByQuery", func() storagemodels.Statement {
		return t.composeStatement(storagemodels.StatementSelect, info, f.query)
	}))
	return stream.Map(rows, func(row storagemodels.Row) (T, error) {
		return decodeEntity[T](info.Alias, row.ID, row.Content)
	})
}

// Count returns a cold publisher emitting the match count once.
func (rf *ReactiveFindByQuery[T]) Count() *stream.Publisher[int64] {
	f := rf.support
	t := f.template
	rows := t.publisher(t.rowSource("countByQuery", func() storagemodels.Statement {
		stmt := t.composeStatement(storagemodels.StatementCount, registry.Resolve[T](), f.query)
		stmt.Projection = nil
		stmt.Limit = 0
		return stmt
	}))
	return stream.Map(rows, func(row storagemodels.Row) (int64, error) {
		return row.Count, nil
	})
}

// decodeEntity unmarshals content into T and assigns id when T is
// Identifiable.
func decodeEntity[T any](alias, id string, content json.RawMessage) (T, error) {
	var item T
	if len(content) > 0 {
		if err := json.Unmarshal(content, &item); err != nil {
			return item, fmt.Errorf("decode %s %q: %w", alias, id, err)
		}
	}
	if ident, ok := any(&item).(Identifiable); ok && id != "" {
		ident.SetID(id)
	}
	return item, nil
}

// DecodeEntity is decodeEntity for callers outside the package.
func DecodeEntity[T any](id string, content json.RawMessage) (T, error) {
	return decodeEntity[T](registry.Resolve[T]().Alias, id, content)
}
