// Copyright (c) 2025 BVK Chaitanya

package session

import (
	"time"

	"github.com/bvk/fleetdeck/fleet"
	"github.com/bvk/fleetdeck/ingest"
	"github.com/bvk/fleetdeck/kpi"
	"github.com/shopspring/decimal"
)

type State string

const (
	Stopped State = "STOPPED"
	Running State = "RUNNING"
)

type MarketTick struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

type LogEvent struct {
	// ID is strictly increasing in emission order and never reused.
	ID uint64 `json:"id"`

	Timestamp time.Time       `json:"timestamp"`
	Severity  ingest.Severity `json:"severity"`
	Message   string          `json:"message"`
}

// Snapshot is a point-in-time view of the session. Snapshots are shared
// between readers and must be treated as read-only.
type Snapshot struct {
	SessionID string    `json:"sessionId"`
	State     State     `json:"state"`
	Ticks     uint64    `json:"ticks"`
	TakenAt   time.Time `json:"takenAt"`

	Workers      []fleet.Worker `json:"workers"`
	MarketSeries []MarketTick   `json:"marketSeries"`
	LogTail      []LogEvent     `json:"logTail"`
	Stats        kpi.Stats      `json:"stats"`
}

// Worker returns the worker record with the given id from the snapshot.
func (s *Snapshot) Worker(id string) (fleet.Worker, bool) {
	for _, w := range s.Workers {
		if w.ID == id {
			return w, true
		}
	}
	return fleet.Worker{}, false
}

// newSnapshotLocked builds a fresh snapshot from the current state. Every
// slice is a new copy, so published snapshots never alias mutable state.
func (s *Session) newSnapshotLocked() *Snapshot {
	return &Snapshot{
		SessionID:    s.id,
		State:        s.state,
		Ticks:        s.ticks,
		TakenAt:      s.now(),
		Workers:      s.fleet.Workers(),
		MarketSeries: s.market.Snapshot(),
		LogTail:      s.logs.Snapshot(),
		Stats:        s.kpi.Stats(),
	}
}

func (s *Session) publishLocked() {
	snap := s.newSnapshotLocked()
	s.snapshot.Store(snap)
	if !s.closed {
		s.updates.Send(snap)
	}
}
