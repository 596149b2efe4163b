// Copyright (c) 2025 BVK Chaitanya

// Package fleet keeps the observable state of the worker roster.
//
// Fleet is not safe for concurrent use. A single owner (the session) applies
// all mutations and hands out value copies to readers.
package fleet

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"
)

type Options struct {
	// Floor is the minimum round-trip time kept for non-banned workers.
	Floor int

	// JitterBound is the half-width J of the symmetric [-J, J] interval the
	// per-tick RTT jitter is drawn from.
	JitterBound int

	// Rand is the jitter source. A time-seeded source is used when nil.
	Rand *rand.Rand
}

func (v *Options) setDefaults() {
	if v.Floor == 0 {
		v.Floor = 10
	}
	if v.JitterBound == 0 {
		v.JitterBound = 10
	}
	if v.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		v.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
}

func (v *Options) Check() error {
	if v.Floor < 0 {
		return fmt.Errorf("rtt floor cannot be negative: %w", os.ErrInvalid)
	}
	if v.JitterBound < 0 {
		return fmt.Errorf("rtt jitter bound cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

type Fleet struct {
	opts Options

	order   []string
	workers map[string]*Worker

	// hints holds rtt delta hints from heartbeats observed since the last tick.
	hints map[string]int
}

// New creates a fleet seeded with the given roster. Roster order is kept for
// all views.
func New(roster []*Worker, opts *Options) (*Fleet, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	f := &Fleet{
		opts:    *opts,
		workers: make(map[string]*Worker, len(roster)),
		hints:   make(map[string]int),
	}
	for _, w := range roster {
		if err := w.check(); err != nil {
			return nil, err
		}
		if _, ok := f.workers[w.ID]; ok {
			return nil, fmt.Errorf("worker %q is listed more than once: %w", w.ID, os.ErrExist)
		}
		v := *w
		f.workers[w.ID] = &v
		f.order = append(f.order, w.ID)
	}
	return f, nil
}

func (f *Fleet) Len() int {
	return len(f.order)
}

// Get returns a copy of a worker record.
func (f *Fleet) Get(id string) (Worker, error) {
	w, ok := f.workers[id]
	if !ok {
		return Worker{}, fmt.Errorf("worker %q: %w", id, ErrUnknownWorker)
	}
	return *w, nil
}

// Workers returns copies of all worker records in roster order.
func (f *Fleet) Workers() []Worker {
	ws := make([]Worker, 0, len(f.order))
	for _, id := range f.order {
		ws = append(ws, *f.workers[id])
	}
	return ws
}

// Observe records a heartbeat from a worker. Banned workers are left
// untouched. Optional hint replaces the random jitter for the worker in the
// next tick.
func (f *Fleet) Observe(id string, hint *int, at time.Time) error {
	w, ok := f.workers[id]
	if !ok {
		return fmt.Errorf("heartbeat from worker %q: %w", id, ErrUnknownWorker)
	}
	if w.Status == Banned {
		return nil
	}
	w.LastSeen = at
	if hint != nil {
		f.hints[id] = *hint
	}
	return nil
}

// Tick moves the round-trip time of every non-banned worker by a jitter in
// [-J, J] and keeps it at or above the floor.
func (f *Fleet) Tick() {
	J := f.opts.JitterBound
	for _, id := range f.order {
		w := f.workers[id]
		if w.Status == Banned {
			continue
		}
		var jitter int
		if hint, ok := f.hints[id]; ok {
			jitter = min(max(hint, -J), J)
		} else {
			jitter = f.opts.Rand.IntN(2*J+1) - J
		}
		w.RTTMillis = max(f.opts.Floor, w.RTTMillis+jitter)
	}
	clear(f.hints)
}

// SetStatus changes the status of a worker. Status changes are requested only
// by the fleet-management side; the fleet never infers them on its own.
func (f *Fleet) SetStatus(id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid worker status %q: %w", status, os.ErrInvalid)
	}
	w, ok := f.workers[id]
	if !ok {
		return fmt.Errorf("could not set status of worker %q: %w", id, ErrUnknownWorker)
	}
	if status == Banned {
		delete(f.hints, id)
	}
	w.Status = status
	return nil
}

// CountActive returns number of workers that are not banned.
func CountActive(ws []Worker) int {
	n := 0
	for i := range ws {
		if ws[i].Status != Banned {
			n++
		}
	}
	return n
}
