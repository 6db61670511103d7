/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/suparena/docstore"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/logging"
	"github.com/suparena/docstore/registry"
	"github.com/suparena/docstore/storagemodels"
)

// CapabilityProber reports the capabilities a cluster currently offers.
// datastore.Cluster satisfies it.
type CapabilityProber interface {
	Capabilities(ctx context.Context) (storagemodels.CapabilitySet, error)
}

// Factory builds repositories bound to the templates of a mapping.
type Factory struct {
	mapping *docstore.OperationsMapping
	prober  CapabilityProber
}

// NewFactory creates a repository factory. A nil prober probes the cluster
// behind each entity's template.
func NewFactory(mapping *docstore.OperationsMapping, prober CapabilityProber) *Factory {
	return &Factory{mapping: mapping, prober: prober}
}

// Mapping returns the operations mapping the factory routes through.
func (f *Factory) Mapping() *docstore.OperationsMapping { return f.mapping }

type options struct {
	requires []storagemodels.Capability
}

// Option configures repository construction.
type Option func(*options)

// Requirements declares capabilities the repository needs in addition to
// the ones its kind implies.
func Requirements(caps ...storagemodels.Capability) Option {
	return func(o *options) {
		o.requires = append(o.requires, caps...)
	}
}

// KeyValueRepository stores and loads entities of type T by id.
type KeyValueRepository[T any] struct {
	template *docstore.Template
	entity   registry.EntityInfo
	store    datastore.DataStore
}

// QueryRepository adds query-backed operations to a KeyValueRepository.
type QueryRepository[T any] struct {
	*KeyValueRepository[T]
}

// NewKeyValueRepository builds a key-value repository for T. It only fails
// when extra requirements were declared and are missing.
func NewKeyValueRepository[T any](ctx context.Context, f *Factory, opts ...Option) (*KeyValueRepository[T], error) {
	return build[T](ctx, f, "keyValueRepository", nil, opts)
}

// NewQueryRepository builds a query repository for T. It fails immediately
// with an UnsupportedCapabilityError when the cluster has no query service.
func NewQueryRepository[T any](ctx context.Context, f *Factory, opts ...Option) (*QueryRepository[T], error) {
	kv, err := build[T](ctx, f, "queryRepository", []storagemodels.Capability{storagemodels.CapabilityQuery}, opts)
	if err != nil {
		return nil, err
	}
	return &QueryRepository[T]{KeyValueRepository: kv}, nil
}

func build[T any](ctx context.Context, f *Factory, kind string, implied []storagemodels.Capability, opts []Option) (*KeyValueRepository[T], error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	required := append(append([]storagemodels.Capability{}, implied...), o.requires...)

	info := registry.Resolve[T]()
	t := docstore.TemplateFor[T](f.mapping)
	if t == nil {
		return nil, errors.NewValidationError("mapping", fmt.Sprintf("no template for %q", info.Alias))
	}
	required = append(required, info.Requires...)

	if len(required) > 0 {
		if err := f.check(ctx, t, kind, required); err != nil {
			return nil, err
		}
	}

	logging.GetLogger().Debug("repository created", "kind", kind, "entity", info.Alias,
		"bucket", t.Factory().Bucket().Name(), "scope", t.Factory().Scope().Name())

	return &KeyValueRepository[T]{
		template: t,
		entity:   info,
		store:    t.Factory().Collection(info.Collection),
	}, nil
}

// check probes once and fails on the first missing capability.
func (f *Factory) check(ctx context.Context, t *docstore.Template, kind string, required []storagemodels.Capability) error {
	var prober CapabilityProber = t.Factory().Cluster()
	if f.prober != nil {
		prober = f.prober
	}

	caps, err := prober.Capabilities(ctx)
	if err != nil {
		return errors.NewConnectionError(t.Factory().Bucket().Name(), t.Factory().Scope().Name(), err)
	}
	if missing := caps.Missing(required...); len(missing) > 0 {
		return errors.NewUnsupportedCapabilityError(string(missing[0]), kind)
	}
	return nil
}

// Template returns the template the repository executes through.
func (r *KeyValueRepository[T]) Template() *docstore.Template { return r.template }

// FindByID loads the entity stored under id.
func (r *KeyValueRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return zero, r.translate(err)
	}
	return docstore.DecodeEntity[T](doc.ID, doc.Content)
}

// ExistsByID reports whether id is stored.
func (r *KeyValueRepository[T]) ExistsByID(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, id)
	if err != nil {
		return false, r.translate(err)
	}
	return ok, nil
}

// Save upserts entity. Entities implementing docstore.Identifiable without
// an id get a generated one. The stored body carries the type key.
func (r *KeyValueRepository[T]) Save(ctx context.Context, entity *T) (*storagemodels.Document, error) {
	id, body, err := r.encode(entity)
	if err != nil {
		return nil, err
	}
	doc, err := r.store.Upsert(ctx, id, body)
	if err != nil {
		return nil, r.translate(err)
	}
	return doc, nil
}

// Insert stores entity and fails when its id is taken.
func (r *KeyValueRepository[T]) Insert(ctx context.Context, entity *T) (*storagemodels.Document, error) {
	id, body, err := r.encode(entity)
	if err != nil {
		return nil, err
	}
	doc, err := r.store.Insert(ctx, id, body)
	if err != nil {
		return nil, r.translate(err)
	}
	return doc, nil
}

// Replace overwrites entity only while the stored CAS still equals cas.
func (r *KeyValueRepository[T]) Replace(ctx context.Context, entity *T, cas uint64) (*storagemodels.Document, error) {
	id, body, err := r.encode(entity)
	if err != nil {
		return nil, err
	}
	doc, err := r.store.Replace(ctx, id, cas, body)
	if err != nil {
		return nil, r.translate(err)
	}
	return doc, nil
}

// DeleteByID removes the document stored under id.
func (r *KeyValueRepository[T]) DeleteByID(ctx context.Context, id string) (storagemodels.RemoveResult, error) {
	res, err := r.store.Remove(ctx, id, 0)
	if err != nil {
		return storagemodels.RemoveResult{}, r.translate(err)
	}
	return res, nil
}

// DeleteEntity removes entity by its id.
func (r *KeyValueRepository[T]) DeleteEntity(ctx context.Context, entity *T) (storagemodels.RemoveResult, error) {
	ident, ok := any(entity).(docstore.Identifiable)
	if !ok || ident.GetID() == "" {
		return storagemodels.RemoveResult{}, errors.NewValidationError("id", r.entity.Alias+" has no id")
	}
	return r.DeleteByID(ctx, ident.GetID())
}

func (r *KeyValueRepository[T]) encode(entity *T) (string, json.RawMessage, error) {
	if entity == nil {
		return "", nil, errors.NewValidationError("entity", "must not be nil")
	}

	ident, ok := any(entity).(docstore.Identifiable)
	if !ok {
		return "", nil, errors.NewValidationError("entity", r.entity.Alias+" does not expose an id")
	}
	if ident.GetID() == "" {
		ident.SetID(uuid.NewString())
	}

	raw, err := json.Marshal(entity)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", r.entity.Alias, err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil, errors.NewValidationError("entity", r.entity.Alias+" must encode to a JSON object")
	}
	body[r.template.TypeKey()] = r.entity.Alias

	out, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", r.entity.Alias, err)
	}
	return ident.GetID(), out, nil
}

// translate keeps the key-value outcome errors callers branch on and maps
// everything else through the factory translator.
func (r *KeyValueRepository[T]) translate(err error) error {
	if errors.IsNotFound(err) || errors.IsAlreadyExists(err) || errors.IsConditionFailed(err) || errors.IsValidationError(err) {
		return err
	}
	return r.template.Factory().ExceptionTranslator().Translate(err)
}

// FindAll returns every stored entity.
func (r *QueryRepository[T]) FindAll(ctx context.Context) ([]T, error) {
	return docstore.FindByQuery[T](r.template).All(ctx)
}

// FindBy returns the entities matching q.
func (r *QueryRepository[T]) FindBy(ctx context.Context, q storagemodels.Query) ([]T, error) {
	return docstore.FindByQuery[T](r.template).Matching(q).All(ctx)
}

// Count returns the number of stored entities.
func (r *QueryRepository[T]) Count(ctx context.Context) (int64, error) {
	return docstore.FindByQuery[T](r.template).Count(ctx)
}

// DeleteAll removes every stored entity.
func (r *QueryRepository[T]) DeleteAll(ctx context.Context) ([]storagemodels.RemoveResult, error) {
	return docstore.RemoveByQuery[T](r.template).All(ctx)
}

// DeleteBy removes the entities matching q.
func (r *QueryRepository[T]) DeleteBy(ctx context.Context, q storagemodels.Query) ([]storagemodels.RemoveResult, error) {
	return docstore.RemoveByQuery[T](r.template).Matching(q).All(ctx)
}
