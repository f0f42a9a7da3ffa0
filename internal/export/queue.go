package export

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AttemptRecorder receives one Attempt per delivery try. Errors are logged,
// never fatal to delivery.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

// Option configures a Queue.
type Option func(*Queue)

// WithRecorder attaches an attempt recorder.
func WithRecorder(r AttemptRecorder) Option {
	return func(q *Queue) { q.recorder = r }
}

// WithSleep replaces the backoff wait. The function must return early with
// ctx.Err() when ctx is cancelled.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(q *Queue) { q.sleep = sleep }
}

// WithClock replaces the time source used for records.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// #region queue

type entry struct {
	item       Item
	attempts   int
	fromFailed bool
	journaled  bool // a copy of the item exists on disk
	rejected   bool // payload failed validation; never sent
}

// Queue delivers items FIFO on a single background loop. The loop starts on
// the first Enqueue and exits when the queue drains; a later Enqueue starts
// it again. At most one item is in flight at a time.
type Queue struct {
	sender   Sender
	journal  *Journal
	policy   RetryPolicy
	timeout  time.Duration
	recorder AttemptRecorder
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	pending   []*entry
	failed    []*entry
	states    map[string]ItemState
	delivered int
	running   bool
	closed    bool
	done      chan struct{}
}

// NewQueue creates an idle queue. journal may be nil, in which case nothing
// is written to disk and failed items live only in memory.
func NewQueue(sender Sender, journal *Journal, config Config, opts ...Option) *Queue {
	c := config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		sender:  sender,
		journal: journal,
		policy:  NewRetryPolicy(c),
		timeout: c.AttemptTimeout,
		sleep:   sleepCtx,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		states:  make(map[string]ItemState),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// #endregion queue

// #region enqueue

// Enqueue appends an item and returns immediately with its id. It never
// fails: an item that cannot be validated or accepted goes straight to
// manual sync.
func (q *Queue) Enqueue(item Item) string {
	item = item.clone()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	journaled := true
	if q.journal != nil {
		if err := q.journal.Record(recordOf(item, StateQueued, 0, nil, q.now())); err != nil {
			journaled = false
			log.Printf("[EXPORT] audit write failed for mission %s: %v", item.MissionID, err)
		}
	}

	e := &entry{item: item, journaled: journaled}
	if _, err := EncodePayload(PayloadOf(item)); err != nil {
		log.Printf("[EXPORT] mission %s payload rejected: %v", item.MissionID, err)
		e.rejected = true
		q.persistFailed(e, err)
		return item.ID
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.persistFailed(e, fmt.Errorf("queue closed"))
		return item.ID
	}
	q.pending = append(q.pending, e)
	q.states[item.ID] = StateQueued
	q.startLocked()
	q.mu.Unlock()

	log.Printf("[EXPORT] enqueued mission=%s item=%s", item.MissionID, item.ID)
	return item.ID
}

func (q *Queue) startLocked() {
	if q.running {
		return
	}
	q.running = true
	q.done = make(chan struct{})
	q.wg.Add(1)
	go q.run(q.done)
}

// #endregion enqueue

// #region loop

func (q *Queue) run(done chan struct{}) {
	defer q.wg.Done()
	defer close(done)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		e := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.deliver(e)
	}
}

func (q *Queue) deliver(e *entry) {
	payload := PayloadOf(e.item)
	for {
		if err := q.ctx.Err(); err != nil {
			q.persistFailed(e, fmt.Errorf("shutdown before delivery: %w", err))
			return
		}

		q.setState(e.item.ID, StateSending)
		e.attempts++
		receipt, err := q.send(payload)

		if err == nil {
			q.mu.Lock()
			q.states[e.item.ID] = StateDelivered
			q.delivered++
			q.mu.Unlock()
			q.record(e, StateDelivered, nil, receipt.ReplayID)
			if e.fromFailed && q.journal != nil {
				if rmErr := q.journal.RemoveFailed(payload); rmErr != nil {
					log.Printf("[EXPORT] mission %s delivered but failed record remains: %v", e.item.MissionID, rmErr)
				}
			}
			log.Printf("[EXPORT] delivered mission=%s attempts=%d replayId=%q", e.item.MissionID, e.attempts, receipt.ReplayID)
			return
		}

		if !q.policy.ShouldRetry(e.attempts) {
			q.record(e, StatePersistedForManualSync, err, "")
			q.persistFailed(e, err)
			return
		}

		wait := q.policy.Delay(e.attempts)
		q.setState(e.item.ID, StateRetryPending)
		q.record(e, StateRetryPending, err, "")
		log.Printf("[EXPORT] mission %s attempt %d failed: %v (retry in %s)", e.item.MissionID, e.attempts, err, wait)

		if err := q.sleep(q.ctx, wait); err != nil {
			q.persistFailed(e, fmt.Errorf("shutdown during backoff: %w", err))
			return
		}
	}
}

func (q *Queue) send(p Payload) (Receipt, error) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()
	return q.sender.Send(ctx, p)
}

func (q *Queue) setState(id string, s ItemState) {
	q.mu.Lock()
	q.states[id] = s
	q.mu.Unlock()
}

func (q *Queue) record(e *entry, state ItemState, err error, replayID string) {
	if q.recorder == nil {
		return
	}
	a := Attempt{
		ItemID:    e.item.ID,
		MissionID: e.item.MissionID,
		Digest:    e.item.Digest,
		Number:    e.attempts,
		State:     state,
		ReplayID:  replayID,
		CreatedAt: q.now(),
	}
	if err != nil {
		a.Error = err.Error()
	}
	if recErr := q.recorder.RecordAttempt(context.Background(), a); recErr != nil {
		log.Printf("[EXPORT] attempt record failed for mission %s: %v", e.item.MissionID, recErr)
	}
}

// persistFailed moves an item to manual sync. If no earlier copy reached disk
// and this write fails too, the item exists only in memory.
func (q *Queue) persistFailed(e *entry, cause error) {
	q.mu.Lock()
	q.states[e.item.ID] = StatePersistedForManualSync
	q.failed = append(q.failed, e)
	q.mu.Unlock()

	if q.journal == nil {
		log.Printf("[EXPORT] mission %s held for manual sync (memory only): %v", e.item.MissionID, cause)
		return
	}
	err := q.journal.PersistFailed(recordOf(e.item, StatePersistedForManualSync, e.attempts, cause, q.now()))
	if err == nil {
		q.mu.Lock()
		e.journaled = true
		q.mu.Unlock()
		log.Printf("[EXPORT] mission %s persisted for manual sync after %d attempts: %v", e.item.MissionID, e.attempts, cause)
		return
	}
	q.mu.Lock()
	journaled := e.journaled
	q.mu.Unlock()
	if !journaled {
		log.Printf("[EXPORT] CRITICAL: mission %s lost: delivery failed (%v) and local writes failed (%v)", e.item.MissionID, cause, err)
		return
	}
	log.Printf("[EXPORT] failed record write for mission %s: %v (audit copy kept in items/)", e.item.MissionID, err)
}

// #endregion loop

// #region manual-sync

// RetryFailedItems re-enqueues every sendable item held for manual sync, each
// once, with a fresh attempt budget. Items whose payload was rejected stay
// held. Returns the number re-enqueued.
func (q *Queue) RetryFailedItems() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.failed) == 0 {
		return 0
	}
	var held []*entry
	n := 0
	for _, e := range q.failed {
		if e.rejected {
			held = append(held, e)
			continue
		}
		e.attempts = 0
		e.fromFailed = true
		q.states[e.item.ID] = StateQueued
		q.pending = append(q.pending, e)
		n++
	}
	q.failed = held
	if n == 0 {
		return 0
	}
	q.startLocked()
	log.Printf("[EXPORT] re-enqueued %d failed items", n)
	return n
}

// LoadPersistedOnStartup reads items left in Failed/ by an earlier process.
// They are held for manual sync, not retried. Items already known are skipped.
func (q *Queue) LoadPersistedOnStartup() (int, error) {
	if q.journal == nil {
		return 0, nil
	}
	recs, err := q.journal.LoadFailed()
	if err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	loaded := 0
	for _, rec := range recs {
		if _, known := q.states[rec.ID]; known {
			continue
		}
		q.failed = append(q.failed, &entry{item: rec.Payload.Item(rec.ID), attempts: rec.Attempts, fromFailed: true, journaled: true})
		q.states[rec.ID] = StatePersistedForManualSync
		loaded++
	}
	if loaded > 0 {
		log.Printf("[EXPORT] loaded %d items awaiting manual sync", loaded)
	}
	return loaded, nil
}

// GetFailedCount returns the number of items held for manual sync.
func (q *Queue) GetFailedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.failed)
}

// FailedItems returns copies of the items held for manual sync.
func (q *Queue) FailedItems() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.failed))
	for i, e := range q.failed {
		out[i] = e.item.clone()
	}
	return out
}

// #endregion manual-sync

// #region status

// State returns the delivery state of an item by id.
func (q *Queue) State(id string) (ItemState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.states[id]
	return s, ok
}

// Stats returns counts for pending, failed and delivered items.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending:   len(q.pending),
		Failed:    len(q.failed),
		Delivered: q.delivered,
		Running:   q.running,
	}
}

// Flush blocks until the loop is idle or ctx ends.
func (q *Queue) Flush(ctx context.Context) error {
	for {
		q.mu.Lock()
		if !q.running {
			q.mu.Unlock()
			return nil
		}
		done := q.done
		q.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting work, interrupts any backoff wait, and persists
// whatever has not been delivered. It waits for the loop up to ctx.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close export queue: %w", ctx.Err())
	}
}

// #endregion status
