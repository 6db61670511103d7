/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/suparena/docstore/storagemodels"
	"github.com/suparena/docstore/stream"
)

// QueryRaw returns a cold publisher over a caller-written statement in the
// backend's own dialect. Parameters are bound by name, never interpolated.
// It fails with UnsupportedCapabilityError when the cluster has no query
// service.
func (t *Template) QueryRaw(statement string, params map[string]any) *stream.Publisher[json.RawMessage] {
	rows := t.publisher(func(ctx context.Context, emit func(storagemodels.Row) bool) error {
		if err := t.Require(storagemodels.CapabilityQuery, "queryRaw"); err != nil {
			return err
		}

		started := time.Now()
		t.logger.Debug("dispatching raw statement", "backend", t.factory.Cluster().Name())

		rows, err := t.factory.Cluster().ExecuteRaw(ctx, statement, params)
		if err != nil {
			t.metrics.ObserveStatement("raw", started, 0, err)
			return t.translate(err, statement)
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
		t.metrics.ObserveStatement("raw", started, n, err)
		return t.translate(err, statement)
	})
	return stream.Map(rows, func(row storagemodels.Row) (json.RawMessage, error) {
		return row.Content, nil
	})
}

// FindByRaw runs a raw statement and decodes every result object into T.
func FindByRaw[T any](ctx context.Context, t *Template, statement string, params map[string]any) ([]T, error) {
	p := stream.Map(t.QueryRaw(statement, params), func(raw json.RawMessage) (T, error) {
		return DecodeEntity[T]("", raw)
	})
	items, err := p.Collect(ctx)
	if err != nil {
		return nil, t.settle(ctx, err)
	}
	return items, nil
}
