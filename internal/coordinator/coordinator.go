package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"oceanwatch/internal/connectivity"
	"oceanwatch/internal/queue"
	"oceanwatch/pkg/types"

	"github.com/sirupsen/logrus"
)

const DefaultSubmitTimeout = 15 * time.Second

// Outcome is what happened to a submitted draft. Submitted and Queued must
// never be presented to a user as the same result.
type Outcome int

const (
	OutcomeSubmitted Outcome = iota + 1
	OutcomeQueued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeQueued:
		return "saved, will sync"
	default:
		return "unknown"
	}
}

// Connectivity is the view of the connectivity monitor the coordinator needs.
type Connectivity interface {
	Online() bool
	Subscribe(fn func(connectivity.State)) (unsubscribe func())
}

// Submitter delivers a draft to the ingestion service.
type Submitter interface {
	Submit(ctx context.Context, draft types.ReportDraft) (*types.IncidentReport, error)
}

type Result struct {
	Outcome Outcome
	// Report is set when the server acknowledged the draft.
	Report *types.IncidentReport
	// Queued is set when the draft was saved for a later sync.
	Queued *types.QueuedReport
	// Cause is the failure that sent the draft to the queue, nil when the
	// monitor reported offline.
	Cause error
}

// Coordinator routes drafts either straight to the ingestion service or into
// the offline queue, and drains the queue when connectivity returns.
type Coordinator struct {
	monitor       Connectivity
	queue         *queue.Queue
	submitter     Submitter
	logger        *logrus.Logger
	submitTimeout time.Duration

	mu          sync.Mutex
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

type Option func(*Coordinator)

func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.submitTimeout = d
		}
	}
}

func New(monitor Connectivity, q *queue.Queue, submitter Submitter, logger *logrus.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		monitor:       monitor,
		queue:         q,
		submitter:     submitter,
		logger:        logger,
		submitTimeout: DefaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates draft and then either delivers it or queues it.
//
// A *types.ValidationError from local validation is returned without any
// network call. A server rejection that would fail identically on retry is
// returned to the caller and not queued. Every other failure queues the
// draft and is reported as OutcomeQueued, not as an error.
func (c *Coordinator) Submit(ctx context.Context, draft types.ReportDraft) (Result, error) {
	if verr := ValidateDraft(draft); verr != nil {
		return Result{}, verr
	}

	if !c.monitor.Online() {
		return c.enqueue(ctx, draft, nil)
	}

	report, err := c.deliver(ctx, draft)
	if err == nil {
		c.logger.WithField("report_id", report.ID).Info("report submitted")
		return Result{Outcome: OutcomeSubmitted, Report: report}, nil
	}

	if !types.IsRetryable(err) {
		return Result{}, err
	}

	c.logger.WithError(err).Warn("direct submission failed, saving report for sync")
	return c.enqueue(ctx, draft, err)
}

// Sync drains the offline queue through the direct submission path. It
// stops at the first draft that is not acknowledged.
func (c *Coordinator) Sync(ctx context.Context) (queue.DrainResult, error) {
	return c.queue.Drain(ctx, func(ctx context.Context, draft types.ReportDraft) error {
		if !c.monitor.Online() {
			return &types.NetworkError{Err: errors.New("offline")}
		}
		_, err := c.deliver(ctx, draft)
		return err
	})
}

// Start drains the queue once if already online and then on every
// offline to online transition until Close.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.unsubscribe = c.monitor.Subscribe(func(state connectivity.State) {
		if state == connectivity.Online {
			c.syncAsync()
		}
	})
	c.mu.Unlock()

	if c.monitor.Online() {
		c.syncAsync()
	}
}

// Close stops reacting to connectivity changes and waits for an in-flight
// drain to finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Coordinator) syncAsync() {
	c.mu.Lock()
	if c.unsubscribe == nil {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	ctx := c.ctx
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		res, err := c.Sync(ctx)
		if err != nil {
			c.logger.WithError(err).Error("offline queue sync failed")
			return
		}
		if res.Skipped {
			return
		}

		fields := logrus.Fields{"submitted": res.Submitted, "remaining": res.Remaining}
		if res.Failure != nil {
			c.logger.WithError(res.Failure).WithFields(fields).Warn("offline queue sync stopped")
			return
		}
		c.logger.WithFields(fields).Info("offline queue synced")
	}()
}

func (c *Coordinator) deliver(ctx context.Context, draft types.ReportDraft) (*types.IncidentReport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	report, err := c.submitter.Submit(ctx, draft)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		var terr *types.TimeoutError
		if !errors.As(err, &terr) {
			err = &types.TimeoutError{Err: err}
		}
	}
	return report, err
}

func (c *Coordinator) enqueue(ctx context.Context, draft types.ReportDraft, cause error) (Result, error) {
	entry, err := c.queue.Enqueue(ctx, draft)
	if err != nil {
		if cause != nil {
			return Result{}, fmt.Errorf("failed to queue report after %v: %w", cause, err)
		}
		return Result{}, fmt.Errorf("failed to queue report: %w", err)
	}
	return Result{Outcome: OutcomeQueued, Queued: &entry, Cause: cause}, nil
}

// ValidateDraft reports every required field that is missing. Whitespace-only
// values count as missing. Coordinates are not range checked here.
func ValidateDraft(draft types.ReportDraft) *types.ValidationError {
	required := []struct {
		name  string
		value string
	}{
		{"hazardType", string(draft.HazardType)},
		{"severity", string(draft.Severity)},
		{"description", draft.Description},
		{"locationDescription", draft.LocationDescription},
		{"latitude", draft.Latitude},
		{"longitude", draft.Longitude},
		{"timeOfObservation", draft.TimeOfObservation},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return &types.ValidationError{MissingFields: missing}
}
