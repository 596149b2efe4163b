// Copyright (c) 2025 BVK Chaitanya

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/bvk/fleetdeck/ringbuf"
	"github.com/shopspring/decimal"
)

// Event is a single pushed observation. Any subset of the fields may be set.
type Event struct {
	Heartbeat *Heartbeat
	Tick      *PriceTick
	Log       *LogLine

	Requests int
	Profit   decimal.Decimal
}

// Feed is an Ingestor for events pushed by producers (http handlers, worker
// agents). Next collects everything pushed since the previous call.
//
// At most maxBatch events are held between two Next calls. When producers push
// more, the oldest pending events are dropped and the next batch carries a
// WARN log line with the number of dropped events.
type Feed struct {
	mu sync.Mutex

	closed bool

	pending *ringbuf.Ring[*Event]

	// dropped counts events evicted since the last Next.
	dropped int
}

var _ Ingestor = &Feed{}

// NewFeed creates a push feed. Next returns at most maxBatch events per call;
// zero selects a default of 1024.
func NewFeed(maxBatch int) (*Feed, error) {
	if maxBatch <= 0 {
		maxBatch = 1024
	}
	pending, err := ringbuf.New[*Event](maxBatch)
	if err != nil {
		return nil, fmt.Errorf("could not create pending events buffer: %w", err)
	}
	return &Feed{pending: pending}, nil
}

// Close stops the feed. Pending events are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.pending.Reset()
}

// MaxBatch returns the largest number of events in one batch.
func (f *Feed) MaxBatch() int {
	return f.pending.Cap()
}

// Push queues an event for the next batch.
func (f *Feed) Push(e *Event) error {
	if e == nil {
		return fmt.Errorf("event cannot be nil: %w", os.ErrInvalid)
	}
	if e.Requests < 0 || e.Profit.IsNegative() {
		return fmt.Errorf("request count and profit cannot be negative: %w", os.ErrInvalid)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return os.ErrClosed
	}
	if f.pending.Len() == f.pending.Cap() {
		f.dropped++
	}
	f.pending.Append(e)
	return nil
}

// Next returns all pending events as one batch without waiting for more.
func (f *Feed) Next(ctx context.Context) (*Batch, error) {
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, os.ErrClosed
	}
	events := f.pending.Snapshot()
	f.pending.Reset()
	dropped := f.dropped
	f.dropped = 0
	f.mu.Unlock()

	b := new(Batch)
	if dropped > 0 {
		slog.WarnContext(ctx, "pushed events were dropped before they could be batched", "dropped", dropped, "pending", len(events))
		b.Logs = append(b.Logs, LogLine{
			Severity: string(Warn),
			Message:  fmt.Sprintf("dropped %d pushed events; producers are faster than the tick", dropped),
		})
	}
	for _, e := range events {
		b.add(e)
	}
	return b, nil
}

func (b *Batch) add(e *Event) {
	if e.Heartbeat != nil {
		b.Heartbeats = append(b.Heartbeats, *e.Heartbeat)
	}
	if e.Tick != nil {
		b.Ticks = append(b.Ticks, *e.Tick)
	}
	if e.Log != nil {
		b.Logs = append(b.Logs, *e.Log)
	}
	// Saturates instead of wrapping around.
	b.Requests = min(b.Requests, math.MaxInt-e.Requests) + e.Requests
	b.Profit = b.Profit.Add(e.Profit)
}
