// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"

	"github.com/bvk/fleetdeck/ingest"
	"github.com/shopspring/decimal"
)

const IngestPath = "/ingest/events"

// MaxRequests is the largest request count accepted in one IngestRequest.
const MaxRequests = 1000000

// IngestRequest carries events reported by the workers. Every heartbeat, tick
// and log line becomes one event in the push feed; Requests and Profit are
// added to the batch of the tick that picks them up.
type IngestRequest struct {
	Heartbeats []ingest.Heartbeat
	Ticks      []ingest.PriceTick
	Logs       []ingest.LogLine

	Requests int
	Profit   decimal.Decimal
}

type IngestResponse struct {
	Accepted int
}

func (r *IngestRequest) Check() error {
	for _, hb := range r.Heartbeats {
		if len(hb.WorkerID) == 0 {
			return fmt.Errorf("heartbeat worker id cannot be empty: %w", os.ErrInvalid)
		}
	}
	if r.Requests < 0 {
		return fmt.Errorf("request count cannot be negative: %w", os.ErrInvalid)
	}
	if r.Requests > MaxRequests {
		return fmt.Errorf("request count %d is more than the limit %d: %w", r.Requests, MaxRequests, os.ErrInvalid)
	}
	if r.Profit.IsNegative() {
		return fmt.Errorf("profit cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

// Events converts the request into push feed events.
func (r *IngestRequest) Events() []*ingest.Event {
	var events []*ingest.Event
	for i := range r.Heartbeats {
		events = append(events, &ingest.Event{Heartbeat: &r.Heartbeats[i]})
	}
	for i := range r.Ticks {
		events = append(events, &ingest.Event{Tick: &r.Ticks[i]})
	}
	for i := range r.Logs {
		events = append(events, &ingest.Event{Log: &r.Logs[i]})
	}
	if r.Requests > 0 || r.Profit.IsPositive() {
		events = append(events, &ingest.Event{Requests: r.Requests, Profit: r.Profit})
	}
	return events
}
