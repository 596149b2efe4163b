// Copyright (c) 2025 BVK Chaitanya

// Package session implements the state-aggregation core of the fleet console.
//
// A Session owns the worker fleet, the market series, the log tail and the KPI
// aggregator. While running, a single goroutine pulls one event batch from the
// ingestor on every tick and applies it to those components in a fixed order:
// worker heartbeats, market ticks, log lines and finally the KPIs. Readers
// only ever see immutable snapshots published after each mutation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvk/fleetdeck/fleet"
	"github.com/bvk/fleetdeck/ingest"
	"github.com/bvk/fleetdeck/kpi"
	"github.com/bvk/fleetdeck/ringbuf"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

var errStopped = errors.New("session is stopped")

type Session struct {
	id string

	opts Options

	ingestor ingest.Ingestor

	// ctlMu serializes Start and Stop.
	ctlMu  sync.Mutex
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	// mu protects all state below. It is held by the tick goroutine while
	// applying a batch and by SetStatus.
	mu sync.Mutex

	state  State
	ticks  uint64
	closed bool

	fleet  *fleet.Fleet
	market *ringbuf.Ring[MarketTick]
	logs   *ringbuf.Ring[LogEvent]
	kpi    *kpi.Aggregator

	lastLogID uint64

	// diagnostics holds log lines raised by earlier stages of the current
	// tick. They are emitted ahead of the batch's own log lines.
	diagnostics []ingest.LogLine

	now func() time.Time

	snapshot atomic.Pointer[Snapshot]
	updates  *topic.Topic[*Snapshot]
}

// New creates a stopped session over the given roster. All state components
// are allocated here and live as long as the session.
func New(ingestor ingest.Ingestor, roster []*fleet.Worker, opts *Options) (*Session, error) {
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor cannot be nil: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	fopts := &fleet.Options{
		Floor:       opts.RTTFloor,
		JitterBound: opts.RTTJitterBound,
		Rand:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	fl, err := fleet.New(roster, fopts)
	if err != nil {
		return nil, fmt.Errorf("could not create worker fleet: %w", err)
	}

	market, err := ringbuf.New[MarketTick](opts.MarketBufferCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create market buffer: %w", err)
	}
	logs, err := ringbuf.New[LogEvent](opts.LogBufferCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create log buffer: %w", err)
	}

	kopts := &kpi.Options{
		MinRPM:        opts.RPMBounds[0],
		MaxRPM:        opts.RPMBounds[1],
		Interval:      opts.TickInterval(),
		Window:        opts.KPIWindow,
		InitialProfit: decimal.RequireFromString(opts.InitialProfit),
	}
	agg, err := kpi.New(kopts)
	if err != nil {
		return nil, fmt.Errorf("could not create kpi aggregator: %w", err)
	}
	agg.Recount(fl.Workers())

	s := &Session{
		id:       uuid.New().String(),
		opts:     *opts,
		ingestor: ingestor,
		state:    Stopped,
		fleet:    fl,
		market:   market,
		logs:     logs,
		kpi:      agg,
		now:      time.Now,
		updates:  topic.New[*Snapshot](),
	}

	s.mu.Lock()
	s.publishLocked()
	s.mu.Unlock()

	slog.Debug("session created", "session", s.id, "workers", fl.Len(), "interval", opts.TickInterval())
	return s, nil
}

// Close stops the session and releases the update topic.
func (s *Session) Close() {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.updates.Close()
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Options() Options {
	return s.opts
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins ticking at the configured interval. It is a no-op when the
// session is already running, so there is never more than one tick source.
func (s *Session) Start() {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	s.cancel = cancel

	s.mu.Lock()
	s.state = Running
	s.publishLocked()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.goRun(ctx)

	slog.InfoContext(ctx, "session started", "session", s.id, "interval", s.opts.TickInterval())
}

// Stop cancels the tick source and waits for an in-flight tick to finish. No
// tick mutates the session after Stop returns. It is a no-op when the session
// is already stopped.
func (s *Session) Stop() {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel(errStopped)
	s.cancel = nil
	s.wg.Wait()

	s.mu.Lock()
	s.state = Stopped
	s.publishLocked()
	s.mu.Unlock()

	slog.Info("session stopped", "session", s.id)
}

// SetStatus changes the status of a worker on behalf of the fleet manager.
func (s *Session) SetStatus(id string, status fleet.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fleet.SetStatus(id, status); err != nil {
		return err
	}
	s.kpi.Recount(s.fleet.Workers())
	s.publishLocked()
	return nil
}

// Worker returns the current record of a worker. Unknown ids fail with
// fleet.ErrUnknownWorker.
func (s *Session) Worker(id string) (fleet.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fleet.Get(id)
}

// Snapshot returns the most recently published view of the session. It never
// mutates state; repeated calls without an intervening mutation return the
// same snapshot.
func (s *Session) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Updates returns a receiver for snapshots published after every mutation.
// Slow receivers only see the latest snapshot.
func (s *Session) Updates() (*topic.Receiver[*Snapshot], error) {
	return topic.Subscribe(s.updates, 1, true)
}

// Subscribe returns a receiver that queues up to limit snapshots published
// after the call. When a receiver falls behind, the oldest queued snapshots
// are dropped. Callers take their baseline with Snapshot after subscribing.
func (s *Session) Subscribe(limit int) (*topic.Receiver[*Snapshot], error) {
	if limit < 1 {
		return nil, fmt.Errorf("subscription limit must be positive: %w", os.ErrInvalid)
	}
	return topic.Subscribe(s.updates, limit, false)
}
