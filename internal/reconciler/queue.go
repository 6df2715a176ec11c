package reconciler

import (
	"context"
	"sync"
	"time"
)

// requestKey identifies the space a request reconciles. Requests for the same space
// on the same profile collapse into one queue entry.
func requestKey(req ReconcileRequest) string {
	return req.Profile + "/" + req.SpaceID
}

// workQueue is a FIFO of spaces with at most one entry per space. A space is never
// handed out twice at once: adding it while it is being processed marks it dirty and
// it is queued again once Done is called.
type workQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue      []ReconcileRequest
	processing map[string]bool
	dirty      map[string]ReconcileRequest

	shuttingDown bool
}

// NewQueue creates an empty queue.
func NewQueue() ReconcileQueue {
	q := &workQueue{
		processing: make(map[string]bool),
		dirty:      make(map[string]ReconcileRequest),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add queues req, replacing a queued request for the same space.
func (q *workQueue) Add(req ReconcileRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shuttingDown {
		return
	}

	key := requestKey(req)
	if q.processing[key] {
		q.dirty[key] = req
		return
	}
	for i, existing := range q.queue {
		if requestKey(existing) == key {
			q.queue[i] = req
			return
		}
	}

	q.queue = append(q.queue, req)
	q.cond.Signal()
}

// Get blocks until a request is available. It returns false once ctx is done or the
// queue is shut down and drained.
func (q *workQueue) Get(ctx context.Context) (ReconcileRequest, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.queue) == 0 && !q.shuttingDown {
		if ctx.Err() != nil {
			return ReconcileRequest{}, false
		}
		q.cond.Wait()
	}
	if ctx.Err() != nil || len(q.queue) == 0 {
		return ReconcileRequest{}, false
	}

	req := q.queue[0]
	q.queue = q.queue[1:]
	q.processing[requestKey(req)] = true
	return req, true
}

// Done releases req's space and requeues it if it was added meanwhile.
func (q *workQueue) Done(req ReconcileRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := requestKey(req)
	delete(q.processing, key)

	if next, ok := q.dirty[key]; ok {
		delete(q.dirty, key)
		if q.shuttingDown {
			return
		}
		q.queue = append(q.queue, next)
		q.cond.Signal()
	}
}

// Len returns the number of queued requests.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Shutdown stops accepting requests and wakes all waiters.
func (q *workQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuttingDown = true
	q.cond.Broadcast()
}

// DelayedQueue adds delayed requeues on top of a queue, used to retry failed runs.
type DelayedQueue struct {
	queue ReconcileQueue

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewDelayedQueue creates a queue that supports delayed requeues.
func NewDelayedQueue() *DelayedQueue {
	return &DelayedQueue{
		queue:  NewQueue(),
		timers: make(map[string]*time.Timer),
	}
}

// Add queues req immediately.
func (d *DelayedQueue) Add(req ReconcileRequest) {
	d.queue.Add(req)
}

// AddAfter queues req after delay. A later call for the same space replaces the
// pending one.
func (d *DelayedQueue) AddAfter(req ReconcileRequest, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	key := requestKey(req)
	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.timers[key] != timer || d.closed {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		d.queue.Add(req)
	})
	d.timers[key] = timer
}

// Pending returns the number of delayed requests not yet queued.
func (d *DelayedQueue) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Get retrieves the next request.
func (d *DelayedQueue) Get(ctx context.Context) (ReconcileRequest, bool) {
	return d.queue.Get(ctx)
}

// Done marks a request as completed.
func (d *DelayedQueue) Done(req ReconcileRequest) {
	d.queue.Done(req)
}

// Len returns the number of queued requests, excluding pending delayed ones.
func (d *DelayedQueue) Len() int {
	return d.queue.Len()
}

// Shutdown cancels pending requeues and stops the queue.
func (d *DelayedQueue) Shutdown() {
	d.mu.Lock()
	d.closed = true
	for _, timer := range d.timers {
		timer.Stop()
	}
	d.timers = make(map[string]*time.Timer)
	d.mu.Unlock()

	d.queue.Shutdown()
}
