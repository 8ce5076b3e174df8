package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

type State int

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

const (
	DefaultInterval = 5 * time.Second
	DefaultDebounce = 2 * time.Second
)

// Monitor tracks whether the ingestion service is reachable and notifies
// subscribers on every committed transition.
//
// The state starts offline. The first probe result is committed
// immediately; after that a new state must be observed continuously for the
// debounce window before it is committed. A probe error always reads as
// offline.
type Monitor struct {
	prober   Prober
	logger   *logrus.Logger
	clock    clockwork.Clock
	interval time.Duration
	debounce time.Duration

	mu             sync.Mutex
	state          State
	probed         bool
	candidateSince time.Time
	nextID         uint64
	subscribers    map[uint64]func(State)
}

type Option func(*Monitor)

func WithClock(c clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithDebounce(d time.Duration) Option {
	return func(m *Monitor) {
		if d >= 0 {
			m.debounce = d
		}
	}
}

func NewMonitor(prober Prober, logger *logrus.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		prober:      prober,
		logger:      logger,
		clock:       clockwork.NewRealClock(),
		interval:    DefaultInterval,
		debounce:    DefaultDebounce,
		state:       Offline,
		subscribers: make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) Online() bool {
	return m.State() == Online
}

// Subscribe registers fn for transition notifications. fn runs on the
// goroutine that observed the transition and must not block for long.
func (m *Monitor) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Check runs a single probe and returns the resulting state.
func (m *Monitor) Check(ctx context.Context) State {
	observed := Online
	if err := m.prober.Probe(ctx); err != nil {
		m.logger.WithError(err).Debug("connectivity probe failed")
		observed = Offline
	}
	return m.observe(observed)
}

// Run probes immediately and then once per interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Check(ctx)
		}
	}
}

func (m *Monitor) observe(observed State) State {
	m.mu.Lock()

	now := m.clock.Now()

	if observed == m.state {
		m.probed = true
		m.candidateSince = time.Time{}
		m.mu.Unlock()
		return observed
	}

	if m.probed {
		if m.candidateSince.IsZero() {
			m.candidateSince = now
		}
		if now.Sub(m.candidateSince) < m.debounce {
			current := m.state
			m.mu.Unlock()
			return current
		}
	}

	m.probed = true
	m.state = observed
	m.candidateSince = time.Time{}

	subscribers := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.mu.Unlock()

	m.logger.WithField("state", observed.String()).Info("connectivity changed")

	for _, fn := range subscribers {
		fn(observed)
	}

	return observed
}
