/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package stream

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/docstore/storagemodels"
)

func counting(n int, runs *int32) Source[int] {
	return func(ctx context.Context, emit func(int) bool) error {
		atomic.AddInt32(runs, 1)
		for i := 0; i < n; i++ {
			if !emit(i) {
				return nil
			}
		}
		return nil
	}
}

func TestPublisherIsCold(t *testing.T) {
	var runs int32
	p := NewPublisher(counting(3, &runs))

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs), "nothing may run before Subscribe")

	first, err := p.Collect(context.Background())
	require.NoError(t, err)
	second, err := p.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs), "each subscription re-executes")
}

func TestPublisherEmpty(t *testing.T) {
	var runs int32
	items, err := NewPublisher(counting(0, &runs)).Collect(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	count := 0
	for range NewPublisher(counting(0, &runs)).Subscribe(context.Background()) {
		count++
	}
	assert.Zero(t, count)
}

func TestPublisherErrorIsTerminal(t *testing.T) {
	boom := errors.New("boom")
	p := NewPublisher(func(ctx context.Context, emit func(string) bool) error {
		emit("a")
		return boom
	})

	var results []storagemodels.StreamResult[string]
	for res := range p.Subscribe(context.Background()) {
		results = append(results, res)
	}
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Item)
	assert.Equal(t, int64(0), results[0].Meta.Index)
	assert.ErrorIs(t, results[1].Error, boom)
	assert.Equal(t, int64(1), results[1].Meta.Index)

	_, err := p.Collect(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPublisherCancellationStopsSource(t *testing.T) {
	stopped := make(chan struct{})
	p := NewPublisher(func(ctx context.Context, emit func(int) bool) error {
		defer close(stopped)
		for i := 0; ; i++ {
			if !emit(i) {
				return nil
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Subscribe(ctx)
	<-ch
	<-ch
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("source did not stop after cancellation")
	}
	for range ch {
	}
}

func TestPublisherBackpressure(t *testing.T) {
	var produced int32
	p := NewPublisher(func(ctx context.Context, emit func(int) bool) error {
		for i := 0; i < 100; i++ {
			if !emit(i) {
				return nil
			}
			atomic.AddInt32(&produced, 1)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := p.Subscribe(ctx)
	<-ch

	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&produced), int32(2), "unbuffered stream must wait for the consumer")
}

func TestCollectHonorsDeadline(t *testing.T) {
	p := NewPublisher(func(ctx context.Context, emit func(int) bool) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Collect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscribeDeliversErrorAfterDeadline(t *testing.T) {
	failed := errors.New("statement timed out")
	p := NewPublisher(func(ctx context.Context, emit func(int) bool) error {
		<-ctx.Done()
		return failed
	})

	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		var terminal error
		for res := range p.Subscribe(ctx) {
			terminal = res.Error
		}
		cancel()
		require.ErrorIs(t, terminal, failed, "run %d ended without its error", i)
	}
}

func TestEmitStopsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPublisher(func(_ context.Context, emit func(int) bool) error {
		cancel()
		if emit(1) {
			return errors.New("emit accepted an item after cancellation")
		}
		return nil
	})

	var results []storagemodels.StreamResult[int]
	for res := range p.Subscribe(ctx) {
		results = append(results, res)
	}
	assert.Empty(t, results)
}

func TestFirst(t *testing.T) {
	var runs int32
	item, ok, err := NewPublisher(counting(5, &runs)).First(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, item)

	_, ok, err = NewPublisher(counting(0, &runs)).First(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMap(t *testing.T) {
	var runs int32
	p := Map(NewPublisher(counting(3, &runs)), func(i int) (string, error) {
		return strconv.Itoa(i * 10), nil
	})
	items, err := p.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "10", "20"}, items)

	bad := errors.New("bad item")
	failing := Map(NewPublisher(counting(3, &runs)), func(i int) (int, error) {
		if i == 1 {
			return 0, bad
		}
		return i, nil
	})
	_, err = failing.Collect(context.Background())
	assert.ErrorIs(t, err, bad)
}

func TestProgressHandler(t *testing.T) {
	var runs int32
	var final atomic.Value
	p := NewPublisher(counting(4, &runs), storagemodels.WithBufferSize(4), storagemodels.WithProgressHandler(func(sp storagemodels.StreamProgress) {
		if sp.Done {
			final.Store(sp)
		}
	}))
	_, err := p.Collect(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return final.Load() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(4), final.Load().(storagemodels.StreamProgress).ItemsProcessed)
}
