/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/logging"
	"github.com/suparena/docstore/metrics"
	"github.com/suparena/docstore/registry"
	"github.com/suparena/docstore/storagemodels"
	"github.com/suparena/docstore/stream"
)

// DefaultTypeKey is the document field that stores the entity alias.
const DefaultTypeKey = "_class"

// RemoveResult describes one removed document.
type RemoveResult = storagemodels.RemoveResult

// Template executes typed operations against the bucket and scope of a
// SimpleClientFactory.
type Template struct {
	factory     *SimpleClientFactory
	typeKey     string
	consistency storagemodels.ScanConsistency
	logger      logging.Logger
	metrics     *metrics.Metrics
	streamOpts  []storagemodels.StreamOption
	caps        storagemodels.CapabilitySet
}

// TemplateOption configures a Template
type TemplateOption func(*Template)

// WithTypeKey sets the discriminator field name
func WithTypeKey(key string) TemplateOption {
	return func(t *Template) {
		if key != "" {
			t.typeKey = key
		}
	}
}

// WithDefaultConsistency applies c to queries that leave consistency unset
func WithDefaultConsistency(c storagemodels.ScanConsistency) TemplateOption {
	return func(t *Template) {
		t.consistency = c
	}
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) TemplateOption {
	return func(t *Template) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *metrics.Metrics) TemplateOption {
	return func(t *Template) {
		t.metrics = m
	}
}

// WithStreamOptions sets the options used for every reactive publisher
func WithStreamOptions(opts ...storagemodels.StreamOption) TemplateOption {
	return func(t *Template) {
		t.streamOpts = append([]storagemodels.StreamOption(nil), opts...)
	}
}

// NewTemplate probes the cluster capabilities once and returns a template
// bound to factory. A failed probe is reported as ConnectionError.
func NewTemplate(ctx context.Context, factory *SimpleClientFactory, opts ...TemplateOption) (*Template, error) {
	if factory == nil {
		return nil, errors.NewValidationError("factory", "must not be nil")
	}
	t := &Template{
		factory: factory,
		typeKey: DefaultTypeKey,
		logger:  logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}

	caps, err := factory.Cluster().Capabilities(ctx)
	if err != nil {
		return nil, connectionError(factory.ExceptionTranslator(), factory.Bucket().Name(), factory.Scope().Name(), err)
	}
	t.caps = caps

	t.logger.Debug("template ready", "bucket", factory.Bucket().Name(), "scope", factory.Scope().Name(),
		"typeKey", t.typeKey, "capabilities", caps.String())
	return t, nil
}

// WithScope returns a template on another scope of the same bucket. Options
// and the probed capabilities carry over.
func (t *Template) WithScope(scopeName string) (*Template, error) {
	f, err := t.factory.WithScope(scopeName)
	if err != nil {
		return nil, err
	}
	cp := *t
	cp.factory = f
	return &cp, nil
}

// Factory returns the factory the template runs on.
func (t *Template) Factory() *SimpleClientFactory { return t.factory }

// TypeKey returns the discriminator field name.
func (t *Template) TypeKey() string { return t.typeKey }

// Capabilities returns the set probed at construction.
func (t *Template) Capabilities() storagemodels.CapabilitySet { return t.caps }

// Require fails with UnsupportedCapabilityError when c was not advertised.
func (t *Template) Require(c storagemodels.Capability, operation string) error {
	if t.caps.Has(c) {
		return nil
	}
	return errors.NewUnsupportedCapabilityError(string(c), operation)
}

// composeStatement scopes q to the entity's alias and keyspace.
func (t *Template) composeStatement(kind storagemodels.StatementKind, info registry.EntityInfo, q storagemodels.Query) storagemodels.Statement {
	consistency := q.Consistency()
	if consistency == storagemodels.ConsistencyUnset {
		consistency = t.consistency
	}
	return storagemodels.Statement{
		Kind: kind,
		Keyspace: storagemodels.Keyspace{
			Bucket:     t.factory.Bucket().Name(),
			Scope:      t.factory.Scope().Name(),
			Collection: info.Collection,
		},
		Predicate:   storagemodels.And(storagemodels.Where(t.typeKey).Eq(info.Alias), q.Predicate()),
		Consistency: consistency,
		Projection:  q.Projection(),
		Limit:       q.Limit(),
	}
}

// rowSource executes stmt on subscription and emits its rows in backend
// order. Failures are translated exactly once here.
func (t *Template) rowSource(operation string, stmt func() storagemodels.Statement) stream.Source[storagemodels.Row] {
	return func(ctx context.Context, emit func(storagemodels.Row) bool) error {
		if err := t.Require(storagemodels.CapabilityQuery, operation); err != nil {
			return err
		}

		s := stmt()
		desc := describe(&s)
		started := time.Now()
		t.logger.Debug("dispatching statement", "operation", operation, "kind", s.Kind.String(),
			"keyspace", s.Keyspace.String(), "backend", t.factory.Cluster().Name())

		rows, err := t.factory.Cluster().Execute(ctx, &s)
		if err != nil {
			t.metrics.ObserveStatement(s.Kind.String(), started, 0, err)
			return t.translate(err, desc)
		}
		defer rows.Close()

		n := 0
		stopped := false
		for rows.Next(ctx) {
			n++
			if !emit(rows.Row()) {
				stopped = true
				break
			}
		}
		err = rows.Err()
		if err == nil && stopped && ctx.Err() == context.DeadlineExceeded {
			err = ctx.Err()
		}
		t.metrics.ObserveStatement(s.Kind.String(), started, n, err)
		if err != nil {
			return t.translate(err, desc)
		}
		return nil
	}
}

func (t *Template) publisher(source stream.Source[storagemodels.Row]) *stream.Publisher[storagemodels.Row] {
	return stream.NewPublisher(source, t.streamOpts...)
}

// translate maps err through the factory's translator and records it.
func (t *Template) translate(err error, statement string) error {
	if err == nil {
		return nil
	}
	translated := t.factory.ExceptionTranslator().TranslateStatement(err, statement)
	kind := errors.KindOf(translated)
	t.metrics.ObserveError(kind.String())
	if kind != errors.KindPassthrough {
		t.logger.Warn("statement failed", "statement", statement, "kind", kind.String(), "error", translated.Error())
	}
	return translated
}

// settle translates an error that surfaced because ctx ended before the
// source could deliver its own, already translated, failure.
func (t *Template) settle(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil && errors.KindOf(err) == errors.KindPassthrough {
		return t.translate(err, "")
	}
	return err
}

func describe(s *storagemodels.Statement) string {
	return fmt.Sprintf("%s %s", s.Kind, s.Keyspace)
}
