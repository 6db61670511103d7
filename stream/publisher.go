/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package stream provides cold, cancellable result streams.
package stream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/suparena/docstore/storagemodels"
)

// Source produces items by calling emit for each one. emit returns false when
// the subscriber has gone away; the source must then stop and return.
type Source[T any] func(ctx context.Context, emit func(T) bool) error

// Publisher is a cold stream: nothing runs until Subscribe, and every
// subscription runs the source again.
type Publisher[T any] struct {
	source  Source[T]
	options storagemodels.StreamOptions
}

// NewPublisher wraps source.
func NewPublisher[T any](source Source[T], opts ...storagemodels.StreamOption) *Publisher[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Publisher[T]{source: source, options: options}
}

// Subscribe starts the source in a goroutine and returns its results. The
// channel is closed when the source finishes, fails or ctx is cancelled. A
// failure is delivered as a final result with Error set, also when it was
// caused by ctx ending. The channel has one slot more than BufferSize so the
// final result can be queued while the consumer is still catching up.
func (p *Publisher[T]) Subscribe(ctx context.Context) <-chan storagemodels.StreamResult[T] {
	resultCh := make(chan storagemodels.StreamResult[T], p.options.BufferSize+1)
	go p.worker(ctx, resultCh)
	return resultCh
}

func (p *Publisher[T]) worker(ctx context.Context, resultCh chan<- storagemodels.StreamResult[T]) {
	defer close(resultCh)

	var index int64
	startTime := time.Now()

	reportProgress := func(done bool) {
		if p.options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: atomic.LoadInt64(&index),
			StartTime:      startTime,
			Done:           done,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		p.options.ProgressHandler(progress)
	}

	emit := func(item T) bool {
		if ctx.Err() != nil {
			return false
		}
		result := storagemodels.StreamResult[T]{
			Item: item,
			Meta: storagemodels.StreamMeta{
				Index:     atomic.LoadInt64(&index),
				Timestamp: time.Now(),
			},
		}
		select {
		case <-ctx.Done():
			return false
		case resultCh <- result:
		}
		atomic.AddInt64(&index, 1)
		reportProgress(false)
		return true
	}

	if err := p.source(ctx, emit); err != nil {
		final := storagemodels.StreamResult[T]{
			Error: err,
			Meta: storagemodels.StreamMeta{
				Index:     atomic.LoadInt64(&index),
				Timestamp: time.Now(),
			},
		}
		select {
		case resultCh <- final:
		default:
			select {
			case <-ctx.Done():
			case resultCh <- final:
			}
		}
	}

	reportProgress(true)
}

// Collect subscribes and gathers every item. It returns the first error
// delivered, or ctx's error when the subscription was cut short. An empty
// stream yields an empty, non-nil slice.
func (p *Publisher[T]) Collect(ctx context.Context) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make([]T, 0)
	for res := range p.Subscribe(ctx) {
		if res.Error != nil {
			return nil, res.Error
		}
		items = append(items, res.Item)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// First returns the first item, or ok=false when the stream is empty. The
// subscription is cancelled after the first item.
func (p *Publisher[T]) First(ctx context.Context) (item T, ok bool, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for res := range p.Subscribe(ctx) {
		if res.Error != nil {
			return item, false, res.Error
		}
		return res.Item, true, nil
	}
	if err := ctx.Err(); err != nil {
		return item, false, err
	}
	return item, false, nil
}

// Map returns a publisher that applies fn to every item of p. An error from
// fn terminates the stream.
func Map[T, U any](p *Publisher[T], fn func(T) (U, error)) *Publisher[U] {
	return &Publisher[U]{
		options: p.options,
		source: func(ctx context.Context, emit func(U) bool) error {
			var mapErr error
			err := p.source(ctx, func(item T) bool {
				u, err := fn(item)
				if err != nil {
					mapErr = err
					return false
				}
				return emit(u)
			})
			if mapErr != nil {
				return mapErr
			}
			return err
		},
	}
}
