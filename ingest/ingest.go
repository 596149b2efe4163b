// Copyright (c) 2025 BVK Chaitanya

// Package ingest defines the per-tick event batch contract between the session
// and the event sources, and implements two sources: a randomized Simulator
// and a push-based Feed.
package ingest

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type Severity string

const (
	Info    Severity = "INFO"
	Success Severity = "SUCCESS"
	Warn    Severity = "WARN"
	Error   Severity = "ERROR"
)

// ParseSeverity converts a case-insensitive severity name. Unrecognized names
// map to Info with ok set to false.
func ParseSeverity(s string) (_ Severity, ok bool) {
	switch v := Severity(strings.ToUpper(strings.TrimSpace(s))); v {
	case Info, Success, Warn, Error:
		return v, true
	case "WARNING":
		return Warn, true
	}
	return Info, false
}

type Heartbeat struct {
	WorkerID string `json:"workerId"`

	// RTTDeltaHint is an optional round-trip time change, in milliseconds,
	// suggested by the worker.
	RTTDeltaHint *int `json:"rttDeltaHint,omitempty"`
}

type PriceTick struct {
	Price decimal.Decimal `json:"price"`
}

type LogLine struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Batch holds all events received for one tick.
type Batch struct {
	Heartbeats []Heartbeat
	Ticks      []PriceTick
	Logs       []LogLine

	// Requests is the number of marketplace requests reported by workers.
	Requests int

	// Profit is the realized profit reported by workers.
	Profit decimal.Decimal
}

// Len returns the number of events in the batch.
func (b *Batch) Len() int {
	return len(b.Heartbeats) + len(b.Ticks) + len(b.Logs)
}

// Ingestor is the source of event batches. Next returns the batch for the
// next tick; it may block until a batch is ready or the context is canceled.
type Ingestor interface {
	Next(ctx context.Context) (*Batch, error)
}
