package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterRunsCallsInSubmissionOrder(t *testing.T) {
	l := New(6000) // 10ms spacing keeps the test fast
	defer l.Close()

	var (
		mu    sync.Mutex
		order []int
	)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := l.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}(i)
		// Stagger submissions so enqueue order is deterministic.
		time.Sleep(3 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLimiterSpacesDispatches(t *testing.T) {
	l := New(600) // 100ms spacing
	defer l.Close()

	var stamps []time.Time
	for i := 0; i < 3; i++ {
		err := l.Do(context.Background(), func(context.Context) error {
			stamps = append(stamps, time.Now())
			return nil
		})
		require.NoError(t, err)
	}

	require.Len(t, stamps, 3)
	elapsed := stamps[2].Sub(stamps[0])
	assert.GreaterOrEqual(t, elapsed, 180*time.Millisecond,
		"three dispatches should span at least two intervals")
}

func TestLimiterPropagatesCallError(t *testing.T) {
	l := New(6000)
	defer l.Close()

	want := errors.New("upstream said no")
	err := l.Do(context.Background(), func(context.Context) error {
		return want
	})
	assert.ErrorIs(t, err, want)
}

func TestLimiterHonorsContextWhileQueued(t *testing.T) {
	l := New(60) // 1s spacing so the second call stays queued
	defer l.Close()

	started := make(chan struct{})
	go func() {
		_ = l.Do(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := l.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran, "canceled call must not run")
}

func TestLimiterCloseReleasesWaiters(t *testing.T) {
	l := New(60)

	started := make(chan struct{})
	go func() {
		_ = l.Do(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(200 * time.Millisecond)
			return nil
		})
	}()
	<-started

	done := make(chan error, 1)
	go func() {
		done <- l.Do(context.Background(), func(context.Context) error { return nil })
	}()

	time.Sleep(10 * time.Millisecond)
	l.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("queued caller was not released on Close")
	}
}

func TestLimiterDefaultsQuotaFloor(t *testing.T) {
	l := New(0)
	defer l.Close()
	assert.Equal(t, time.Minute/time.Duration(defaultRPM), l.Interval())
}
