package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(space string, attempt int) ReconcileRequest {
	return ReconcileRequest{Profile: "personal", SpaceID: space, ManifestPath: "/tmp/m.yaml", Attempt: attempt}
}

func TestWorkQueue_AddAndGet(t *testing.T) {
	q := NewQueue()
	q.Add(testRequest("space-1", 1))
	assert.Equal(t, 1, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "space-1", got.SpaceID)
	q.Done(got)
}

func TestWorkQueue_DeduplicatesBySpace(t *testing.T) {
	q := NewQueue()
	q.Add(testRequest("space-1", 1))
	q.Add(testRequest("space-1", 2))
	q.Add(ReconcileRequest{Profile: "work", SpaceID: "space-1", Attempt: 1})

	// Same space on another profile is a different key.
	assert.Equal(t, 2, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, "personal", got.Profile)
}

func TestWorkQueue_DirtyRequeue(t *testing.T) {
	q := NewQueue()
	q.Add(testRequest("space-1", 1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := q.Get(ctx)
	require.True(t, ok)

	q.Add(testRequest("space-1", 2))
	assert.Equal(t, 0, q.Len(), "a space being processed is not handed out twice")

	q.Done(got)
	assert.Equal(t, 1, q.Len())

	again, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, again.Attempt)
	q.Done(again)
	assert.Equal(t, 0, q.Len())
}

func TestWorkQueue_Shutdown(t *testing.T) {
	q := NewQueue()

	done := make(chan bool)
	go func() {
		_, ok := q.Get(context.Background())
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Shutdown()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get did not return after shutdown")
	}

	q.Add(testRequest("space-1", 1))
	assert.Equal(t, 0, q.Len(), "no requests accepted after shutdown")
}

func TestWorkQueue_GetHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, ok := q.Get(ctx)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWorkQueue_ConcurrentAccess(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	active := make(map[string]bool)
	overlap := false
	processed := 0

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				req, ok := q.Get(ctx)
				if !ok {
					return
				}
				key := requestKey(req)
				mu.Lock()
				if active[key] {
					overlap = true
				}
				active[key] = true
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				delete(active, key)
				processed++
				mu.Unlock()
				q.Done(req)
			}
		}()
	}

	for i := 0; i < 50; i++ {
		q.Add(testRequest([]string{"a", "b", "c"}[i%3], i))
	}

	require.Eventually(t, func() bool {
		return q.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Shutdown()
	cancel()
	wg.Wait()

	assert.False(t, overlap, "the same space was processed concurrently")
	assert.Greater(t, processed, 0)
}

func TestDelayedQueue_AddAfter(t *testing.T) {
	q := NewDelayedQueue()
	defer q.Shutdown()

	q.AddAfter(testRequest("space-1", 2), 30*time.Millisecond)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 1, q.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, 0, q.Pending())
}

func TestDelayedQueue_ReplacesPending(t *testing.T) {
	q := NewDelayedQueue()
	defer q.Shutdown()

	q.AddAfter(testRequest("space-1", 2), 20*time.Millisecond)
	q.AddAfter(testRequest("space-1", 3), 40*time.Millisecond)
	assert.Equal(t, 1, q.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 3, got.Attempt)
}

func TestDelayedQueue_ShutdownCancelsPending(t *testing.T) {
	q := NewDelayedQueue()
	q.AddAfter(testRequest("space-1", 2), 20*time.Millisecond)
	q.Shutdown()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Pending())
}
