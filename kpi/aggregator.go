// Copyright (c) 2025 BVK Chaitanya

// Package kpi derives the session statistics shown on the console from the
// per-tick event stream.
package kpi

import (
	"fmt"
	"os"
	"time"

	"github.com/bvk/fleetdeck/fleet"
	"github.com/bvk/fleetdeck/ringbuf"
	"github.com/shopspring/decimal"
)

type Stats struct {
	// TotalProfit never decreases for the lifetime of an aggregator.
	TotalProfit decimal.Decimal `json:"totalProfit"`

	RequestsPerMinute int `json:"requestsPerMinute"`
	ActiveProxyCount  int `json:"activeProxyCount"`
}

// Sample holds the observations from one tick.
type Sample struct {
	// Events is the number of events received in the tick.
	Events int

	// Requests is the number of marketplace requests the workers reported in
	// the tick.
	Requests int

	// Profit is the realized profit reported in the tick. Negative values are
	// rejected.
	Profit decimal.Decimal
}

type Options struct {
	MinRPM int
	MaxRPM int

	// Interval is the time between two ticks.
	Interval time.Duration

	// Window is the number of most recent ticks used for the throughput rate.
	Window int

	InitialProfit decimal.Decimal
}

func (v *Options) setDefaults() {
	if v.MinRPM == 0 && v.MaxRPM == 0 {
		v.MinRPM, v.MaxRPM = 3000, 5000
	}
	if v.Interval == 0 {
		v.Interval = 800 * time.Millisecond
	}
	if v.Window == 0 {
		v.Window = 10
	}
}

func (v *Options) Check() error {
	if v.MinRPM < 0 || v.MaxRPM < v.MinRPM {
		return fmt.Errorf("invalid rpm bounds [%d, %d]: %w", v.MinRPM, v.MaxRPM, os.ErrInvalid)
	}
	if v.Interval <= 0 {
		return fmt.Errorf("tick interval must be positive: %w", os.ErrInvalid)
	}
	if v.InitialProfit.IsNegative() {
		return fmt.Errorf("initial profit cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

type Aggregator struct {
	opts Options

	window *ringbuf.Ring[int64]

	stats Stats
}

func New(opts *Options) (*Aggregator, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	window, err := ringbuf.New[int64](opts.Window)
	if err != nil {
		return nil, fmt.Errorf("could not create throughput window: %w", err)
	}
	a := &Aggregator{
		opts:   *opts,
		window: window,
		stats: Stats{
			TotalProfit:       opts.InitialProfit,
			RequestsPerMinute: opts.MinRPM,
		},
	}
	return a, nil
}

// OnTick folds one tick worth of observations into the statistics. A negative
// profit is rejected with an error, but the throughput and proxy counts are
// still updated.
func (a *Aggregator) OnTick(s *Sample, workers []fleet.Worker) error {
	a.window.Append(tickCount(s))
	a.stats.RequestsPerMinute = a.rate()
	a.stats.ActiveProxyCount = fleet.CountActive(workers)

	if s.Profit.IsNegative() {
		return fmt.Errorf("profit delta %s is negative (ignored): %w", s.Profit, os.ErrInvalid)
	}
	a.stats.TotalProfit = a.stats.TotalProfit.Add(s.Profit)
	return nil
}

// Recount refreshes only the active proxy count.
func (a *Aggregator) Recount(workers []fleet.Worker) {
	a.stats.ActiveProxyCount = fleet.CountActive(workers)
}

func (a *Aggregator) Stats() Stats {
	return a.stats
}

// maxTickCount caps the counts of a single tick so that sums over the window
// cannot overflow.
const maxTickCount = 1 << 31

func tickCount(s *Sample) int64 {
	events := min(int64(max(s.Events, 0)), maxTickCount)
	requests := min(int64(max(s.Requests, 0)), maxTickCount)
	return events + requests
}

func (a *Aggregator) rate() int {
	counts := a.window.Snapshot()
	if len(counts) == 0 {
		return a.opts.MinRPM
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	// Computed in float64 because total*time.Minute overflows int64 for large
	// counts.
	span := float64(len(counts)) * float64(a.opts.Interval)
	rpm := float64(total) * float64(time.Minute) / span
	if rpm >= float64(a.opts.MaxRPM) {
		return a.opts.MaxRPM
	}
	return max(int(rpm), a.opts.MinRPM)
}
