package queue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"oceanwatch/pkg/types"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newTestQueue(t *testing.T, backend Backend) *Queue {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
	return New(backend, logger, WithClock(clock))
}

func draft(description string) types.ReportDraft {
	d := types.NewReportDraft()
	d.HazardType = types.HazardTsunami
	d.Description = description
	d.LocationDescription = "Marina Beach"
	d.Latitude = "13.05"
	d.Longitude = "80.28"
	d.TimeOfObservation = "2024-06-01T10:00:00Z"
	return d
}

// lossyBackend acknowledges writes but never keeps them.
type lossyBackend struct{}

func (lossyBackend) Load() ([]byte, error) { return nil, nil }
func (lossyBackend) Save([]byte) error     { return nil }

type failingBackend struct{ MemoryBackend }

func (*failingBackend) Save([]byte) error { return errors.New("disk full") }

// --- tests ---

func TestEnqueue_AppendsInOrder(t *testing.T) {
	q := newTestQueue(t, &MemoryBackend{})
	ctx := context.Background()

	a, err := q.Enqueue(ctx, draft("A"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, draft("B"))
	require.NoError(t, err)

	items, err := q.List()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Draft.Description)
	assert.Equal(t, "B", items[1].Draft.Description)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC), items[0].EnqueuedAt)

	head, ok, err := q.Peek()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", head.Draft.Description)
}

func TestEnqueue_PreservesDraftVerbatim(t *testing.T) {
	q := newTestQueue(t, &MemoryBackend{})

	d := draft("  Large wave observed ")
	d.Media = &types.Media{Filename: "wave.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	d.DeviceInfo = types.DeviceInfo{UserAgent: "field-tablet", Language: "ta-IN"}

	_, err := q.Enqueue(context.Background(), d)
	require.NoError(t, err)

	head, _, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, d, head.Draft)
}

func TestEnqueue_ReadbackMismatchIsCorruption(t *testing.T) {
	q := newTestQueue(t, lossyBackend{})

	_, err := q.Enqueue(context.Background(), draft("A"))
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestEnqueue_SaveFailure(t *testing.T) {
	q := newTestQueue(t, &failingBackend{})

	_, err := q.Enqueue(context.Background(), draft("A"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorrupted)
}

func TestLoad_UndecodableIsCorruption(t *testing.T) {
	backend := &MemoryBackend{}
	require.NoError(t, backend.Save([]byte("{not json")))
	q := newTestQueue(t, backend)

	_, err := q.Size()
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestDrain_EmptyIsNoop(t *testing.T) {
	backend := &MemoryBackend{}
	q := newTestQueue(t, backend)

	calls := 0
	res, err := q.Drain(context.Background(), func(context.Context, types.ReportDraft) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, res)
	assert.Zero(t, calls)

	data, _ := backend.Load()
	assert.Empty(t, data, "an empty drain must not write")
}

func TestDrain_SubmitsInOrderAndRemoves(t *testing.T) {
	q := newTestQueue(t, &MemoryBackend{})
	ctx := context.Background()
	for _, d := range []string{"A", "B", "C"} {
		_, err := q.Enqueue(ctx, draft(d))
		require.NoError(t, err)
	}

	var order []string
	res, err := q.Drain(ctx, func(_ context.Context, d types.ReportDraft) error {
		order = append(order, d.Description)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, order)
	assert.Equal(t, 3, res.Submitted)
	assert.Zero(t, res.Remaining)
	size, _ := q.Size()
	assert.Zero(t, size)
}

func TestDrain_StopsOnFirstFailure(t *testing.T) {
	q := newTestQueue(t, &MemoryBackend{})
	ctx := context.Background()
	for _, d := range []string{"A", "B", "C"} {
		_, err := q.Enqueue(ctx, draft(d))
		require.NoError(t, err)
	}

	offline := &types.NetworkError{Err: errors.New("connection refused")}
	var attempted []string
	res, err := q.Drain(ctx, func(_ context.Context, d types.ReportDraft) error {
		attempted = append(attempted, d.Description)
		if d.Description == "B" {
			return offline
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, attempted)
	assert.Equal(t, 1, res.Submitted)
	assert.Equal(t, 2, res.Remaining)
	assert.ErrorIs(t, res.Failure, offline)

	items, _ := q.List()
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].Draft.Description)
	assert.Equal(t, "C", items[1].Draft.Description)
}

func TestDrain_SecondConcurrentCallIsSkipped(t *testing.T) {
	q := newTestQueue(t, &MemoryBackend{})
	ctx := context.Background()
	_, err := q.Enqueue(ctx, draft("A"))
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	var first DrainResult
	go func() {
		defer wg.Done()
		first, _ = q.Drain(ctx, func(context.Context, types.ReportDraft) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	second, err := q.Drain(ctx, func(context.Context, types.ReportDraft) error {
		t.Error("second drain must not submit")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	close(release)
	wg.Wait()
	assert.Equal(t, 1, first.Submitted)
}

func TestDrain_EnqueueDuringDrainIsKept(t *testing.T) {
	q := newTestQueue(t, &MemoryBackend{})
	ctx := context.Background()
	_, err := q.Enqueue(ctx, draft("A"))
	require.NoError(t, err)

	res, err := q.Drain(ctx, func(_ context.Context, d types.ReportDraft) error {
		if d.Description == "A" {
			_, err := q.Enqueue(ctx, draft("late"))
			require.NoError(t, err)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Submitted)
}

func TestClear(t *testing.T) {
	q := newTestQueue(t, &MemoryBackend{})
	_, err := q.Enqueue(context.Background(), draft("A"))
	require.NoError(t, err)

	require.NoError(t, q.Clear())
	size, err := q.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := NewFileBackend(dir, "pendingReports")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pendingReports.json"), backend.Path())

	_, err = newTestQueue(t, backend).Enqueue(ctx, draft("A"))
	require.NoError(t, err)

	reopened, err := NewFileBackend(dir, "pendingReports")
	require.NoError(t, err)
	items, err := newTestQueue(t, reopened).List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Draft.Description)

	tmps, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps, "temp files must not be left behind")
}

func TestFileBackend_SecondQueueSkipsRunningDrain(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileBackend(dir, "pendingReports")
	require.NoError(t, err)
	second, err := NewFileBackend(dir, "pendingReports")
	require.NoError(t, err)

	qa := newTestQueue(t, first)
	qb := newTestQueue(t, second)

	_, err = qa.Enqueue(ctx, draft("A"))
	require.NoError(t, err)

	var deliveries atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan DrainResult, 1)
	go func() {
		res, err := qa.Drain(ctx, func(context.Context, types.ReportDraft) error {
			deliveries.Add(1)
			close(started)
			<-release
			return nil
		})
		assert.NoError(t, err)
		done <- res
	}()

	<-started
	res, err := qb.Drain(ctx, func(context.Context, types.ReportDraft) error {
		deliveries.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	close(release)
	firstRes := <-done
	assert.Equal(t, 1, firstRes.Submitted)
	assert.Equal(t, int32(1), deliveries.Load())

	// the drain lock is released once the first drain returns
	res, err = qb.Drain(ctx, func(context.Context, types.ReportDraft) error { return nil })
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Zero(t, res.Remaining)
}

func TestFileBackend_ConcurrentEnqueuesAreNotLost(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	const perQueue = 10
	queues := make([]*Queue, 3)
	for i := range queues {
		backend, err := NewFileBackend(dir, "pendingReports")
		require.NoError(t, err)
		queues[i] = newTestQueue(t, backend)
	}

	var wg sync.WaitGroup
	for _, q := range queues {
		wg.Add(1)
		go func(q *Queue) {
			defer wg.Done()
			for i := 0; i < perQueue; i++ {
				_, err := q.Enqueue(ctx, draft("A"))
				assert.NoError(t, err)
			}
		}(q)
	}
	wg.Wait()

	size, err := queues[0].Size()
	require.NoError(t, err)
	assert.Equal(t, perQueue*len(queues), size)
}

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), "pendingReports")
	require.NoError(t, err)

	data, err := backend.Load()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestNewFileBackend_RejectsBadNamespace(t *testing.T) {
	_, err := NewFileBackend(t.TempDir(), "../escape")
	assert.Error(t, err)

	_, err = NewFileBackend(t.TempDir(), " ")
	assert.Error(t, err)
}
