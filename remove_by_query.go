/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"

	"github.com/suparena/docstore/registry"
	"github.com/suparena/docstore/storagemodels"
	"github.com/suparena/docstore/stream"
)

// ExecutableRemoveByQuery removes every document of entity type T that
// matches a query. Builders are immutable; each refinement returns a copy.
type ExecutableRemoveByQuery[T any] struct {
	template  *Template
	entity    registry.EntityInfo
	query     storagemodels.Query
	returning storagemodels.ReturningMode
}

// RemoveByQuery starts a remove operation for T with a match-all query.
func RemoveByQuery[T any](t *Template) *ExecutableRemoveByQuery[T] {
	return &ExecutableRemoveByQuery[T]{template: t, entity: registry.Resolve[T](), query: storagemodels.NewQuery()}
}

// RemoveByAlias starts a remove operation for the entity registered under
// alias. Unregistered aliases are matched on the type key alone.
func RemoveByAlias(t *Template, alias string) *ExecutableRemoveByQuery[storagemodels.Document] {
	info, ok := registry.LookupAlias(alias)
	if !ok {
		info = registry.EntityInfo{Alias: alias}
	}
	return &ExecutableRemoveByQuery[storagemodels.Document]{template: t, entity: info, query: storagemodels.NewQuery()}
}

// Matching returns a builder that removes documents matching q.
func (r *ExecutableRemoveByQuery[T]) Matching(q storagemodels.Query) *ExecutableRemoveByQuery[T] {
	cp := *r
	cp.query = q
	return &cp
}

// WithReturning selects whether removed bodies are reported.
func (r *ExecutableRemoveByQuery[T]) WithReturning(mode storagemodels.ReturningMode) *ExecutableRemoveByQuery[T] {
	cp := *r
	cp.returning = mode
	return &cp
}

// Query returns the configured query.
func (r *ExecutableRemoveByQuery[T]) Query() storagemodels.Query { return r.query }

// All executes the removal and blocks until every result has arrived. No
// matches yields an empty slice.
func (r *ExecutableRemoveByQuery[T]) All(ctx context.Context) ([]RemoveResult, error) {
	results, err := r.Reactive().All().Collect(ctx)
	if err != nil {
		return nil, r.template.settle(ctx, err)
	}
	return results, nil
}

// Reactive returns the deferred surface of this operation.
func (r *ExecutableRemoveByQuery[T]) Reactive() *ReactiveRemoveByQuery[T] {
	return &ReactiveRemoveByQuery[T]{support: r}
}

// ReactiveRemoveByQuery is the deferred counterpart of ExecutableRemoveByQuery.
type ReactiveRemoveByQuery[T any] struct {
	support *ExecutableRemoveByQuery[T]
}

// Matching returns a reactive builder that removes documents matching q.
func (rr *ReactiveRemoveByQuery[T]) Matching(q storagemodels.Query) *ReactiveRemoveByQuery[T] {
	return rr.support.Matching(q).Reactive()
}

// All returns a cold publisher. Each subscription composes and dispatches
// the statement anew; cancelling the subscription's context stops it.
func (rr *ReactiveRemoveByQuery[T]) All() *stream.Publisher[RemoveResult] {
	r := rr.support
	t := r.template
	rows := t.publisher(t.rowSource("removeByQuery", func() storagemodels.Statement {
		stmt := t.composeStatement(storagemodels.StatementDelete, r.entity, r.query)
		stmt.Returning = r.returning
		// projection and limit do not apply to removals
		stmt.Projection = nil
		stmt.Limit = 0
		return stmt
	}))
	return stream.Map(rows, func(row storagemodels.Row) (RemoveResult, error) {
		res := RemoveResult{ID: row.ID, Cas: row.Cas}
		if r.returning == storagemodels.ReturningDocument {
			res.Content = row.Content
		}
		return res, nil
	})
}
