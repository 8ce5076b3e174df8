package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"oceanwatch/internal/utils"
	"oceanwatch/pkg/types"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// ErrCorrupted means the persisted queue could not be decoded, or a write
// was not read back intact. Queue state must not be assumed after it.
var ErrCorrupted = errors.New("offline queue corrupted")

// SubmitFunc delivers one queued draft. A nil error is an acknowledgment.
type SubmitFunc func(ctx context.Context, draft types.ReportDraft) error

type DrainResult struct {
	// Submitted counts drafts acknowledged and removed during this drain.
	Submitted int
	// Remaining is the queue size when the drain stopped.
	Remaining int
	// Skipped is set when another drain was already running.
	Skipped bool
	// Failure is the submit error that stopped the drain, if any.
	Failure error
}

// Queue is a durable FIFO of drafts waiting for acknowledgment.
type Queue struct {
	backend Backend
	logger  *logrus.Logger
	clock   clockwork.Clock

	mu       sync.Mutex
	draining atomic.Bool
}

type Option func(*Queue)

func WithClock(c clockwork.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

func New(backend Backend, logger *logrus.Logger, opts ...Option) *Queue {
	q := &Queue{
		backend: backend,
		logger:  logger,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends draft to the tail. It returns only after the new queue has
// been written and read back.
func (q *Queue) Enqueue(ctx context.Context, draft types.ReportDraft) (types.QueuedReport, error) {
	if err := ctx.Err(); err != nil {
		return types.QueuedReport{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	unlock, err := q.lockBackend()
	if err != nil {
		return types.QueuedReport{}, err
	}
	defer unlock()

	items, err := q.load()
	if err != nil {
		return types.QueuedReport{}, err
	}

	entry := types.QueuedReport{
		ID:         utils.ShortNanoID(),
		Draft:      draft,
		EnqueuedAt: q.clock.Now().UTC(),
	}
	items = append(items, entry)

	if err := q.save(items); err != nil {
		return types.QueuedReport{}, err
	}

	q.logger.WithFields(logrus.Fields{
		"queue_id":    entry.ID,
		"hazard_type": draft.HazardType,
		"queue_size":  len(items),
	}).Info("report queued for sync")

	return entry, nil
}

// Drain submits queued drafts head first. Each acknowledged draft is removed
// and the queue persisted before the next one is attempted. The first
// submit failure stops the drain and leaves that draft at the head.
//
// Only one drain runs at a time, across processes sharing a file backend; a
// concurrent call returns immediately with Skipped set.
func (q *Queue) Drain(ctx context.Context, submit SubmitFunc) (DrainResult, error) {
	if !q.draining.CompareAndSwap(false, true) {
		return DrainResult{Skipped: true}, nil
	}
	defer q.draining.Store(false)

	if locker, ok := q.backend.(Locker); ok {
		unlock, held, err := locker.TryLockDrain()
		if err != nil {
			return DrainResult{}, err
		}
		if !held {
			q.logger.Debug("queue drain held by another queue handle")
			return DrainResult{Skipped: true}, nil
		}
		defer unlock()
	}

	var result DrainResult

	for {
		head, ok, err := q.Peek()
		if err != nil {
			return result, err
		}
		if !ok {
			break
		}

		if err := ctx.Err(); err != nil {
			result.Failure = err
			break
		}

		if err := submit(ctx, head.Draft); err != nil {
			q.logger.WithError(err).WithField("queue_id", head.ID).Warn("queued report not delivered, stopping sync")
			result.Failure = err
			break
		}

		if err := q.remove(head.ID); err != nil {
			return result, err
		}
		result.Submitted++

		q.logger.WithField("queue_id", head.ID).Info("queued report delivered")
	}

	size, err := q.Size()
	if err != nil {
		return result, err
	}
	result.Remaining = size

	return result, nil
}

// Peek returns the head of the queue without removing it.
func (q *Queue) Peek() (types.QueuedReport, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		return types.QueuedReport{}, false, err
	}
	if len(items) == 0 {
		return types.QueuedReport{}, false, nil
	}
	return items[0], true, nil
}

func (q *Queue) Size() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// List returns every queued draft oldest first.
func (q *Queue) List() ([]types.QueuedReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.load()
}

// Clear drops every queued draft, including ones the server would reject.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	unlock, err := q.lockBackend()
	if err != nil {
		return err
	}
	defer unlock()

	return q.save(nil)
}

func (q *Queue) remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	unlock, err := q.lockBackend()
	if err != nil {
		return err
	}
	defer unlock()

	items, err := q.load()
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}

	return q.save(kept)
}

// lockBackend holds the backend's cross-process lock when it has one.
func (q *Queue) lockBackend() (func(), error) {
	locker, ok := q.backend.(Locker)
	if !ok {
		return func() {}, nil
	}
	return locker.Lock()
}

func (q *Queue) load() ([]types.QueuedReport, error) {
	data, err := q.backend.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load offline queue: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var items []types.QueuedReport
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return items, nil
}

func (q *Queue) save(items []types.QueuedReport) error {
	if items == nil {
		items = []types.QueuedReport{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode offline queue: %w", err)
	}

	if err := q.backend.Save(data); err != nil {
		return fmt.Errorf("failed to persist offline queue: %w", err)
	}

	readback, err := q.backend.Load()
	if err != nil {
		return fmt.Errorf("%w: readback failed: %v", ErrCorrupted, err)
	}
	if !bytes.Equal(readback, data) {
		return fmt.Errorf("%w: readback does not match the written queue", ErrCorrupted)
	}

	return nil
}
