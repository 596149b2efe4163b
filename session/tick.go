// Copyright (c) 2025 BVK Chaitanya

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/bvk/fleetdeck/ingest"
	"github.com/bvk/fleetdeck/kpi"
)

func (s *Session) goRun(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.TickInterval())
	defer ticker.Stop()

	// A tick that takes longer than the interval makes the ticker drop the
	// ticks it missed, so slow ticks are coalesced.
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// pull fetches the batch for one tick. An ingestor that doesn't produce a
// batch within the tick budget stalls the tick, which then runs with an empty
// batch.
func (s *Session) pull(ctx context.Context) (*ingest.Batch, error) {
	tctx, tcancel := context.WithTimeout(ctx, s.opts.TickBudget())
	defer tcancel()

	batch, err := s.ingestor.Next(tctx)
	if err != nil {
		if context.Cause(ctx) == nil && errors.Is(err, context.DeadlineExceeded) {
			slog.DebugContext(ctx, "ingestor stalled; using an empty batch", "session", s.id, "budget", s.opts.TickBudget())
			return new(ingest.Batch), nil
		}
		return new(ingest.Batch), err
	}
	if batch == nil {
		batch = new(ingest.Batch)
	}
	return batch, nil
}

func (s *Session) tick(ctx context.Context) {
	batch, err := s.pull(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop may have been called while we were waiting for the batch.
	if context.Cause(ctx) != nil {
		return
	}

	if err != nil {
		slog.WarnContext(ctx, "could not get the event batch (using an empty batch)", "session", s.id, "err", err)
		s.diagnose(ingest.Warn, "ingestor failed: %v", err)
	}
	s.applyLocked(ctx, batch)
	s.publishLocked()
}

// applyLocked applies a batch in the fixed stage order. Each stage is isolated
// so that a failing stage doesn't keep the later stages from running.
func (s *Session) applyLocked(ctx context.Context, batch *ingest.Batch) {
	s.ticks++
	s.stage(ctx, "heartbeats", func() error { return s.applyHeartbeats(batch.Heartbeats) })
	s.stage(ctx, "market", func() error { return s.applyTicks(batch.Ticks) })
	s.stage(ctx, "logs", func() error { return s.applyLogs(batch.Logs) })
	s.stage(ctx, "kpi", func() error {
		sample := &kpi.Sample{
			Events:   batch.Len(),
			Requests: batch.Requests,
			Profit:   batch.Profit,
		}
		return s.kpi.OnTick(sample, s.fleet.Workers())
	})
	// Diagnostics raised by the kpi stage are emitted in the next tick.
}

func (s *Session) stage(ctx context.Context, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "CAUGHT PANIC", "session", s.id, "stage", name, "panic", r)
			slog.ErrorContext(ctx, string(debug.Stack()))
			s.diagnose(ingest.Error, "%s stage failed: %v", name, r)
		}
	}()

	if err := fn(); err != nil {
		slog.WarnContext(ctx, "tick stage reported an error (ignored)", "session", s.id, "stage", name, "tick", s.ticks, "err", err)
		s.diagnose(ingest.Warn, "%s: %v", name, err)
	}
}

func (s *Session) diagnose(severity ingest.Severity, format string, args ...any) {
	s.diagnostics = append(s.diagnostics, ingest.LogLine{
		Severity: string(severity),
		Message:  fmt.Sprintf(format, args...),
	})
}

func (s *Session) applyHeartbeats(heartbeats []ingest.Heartbeat) error {
	now := s.now()
	for _, hb := range heartbeats {
		if err := s.fleet.Observe(hb.WorkerID, hb.RTTDeltaHint, now); err != nil {
			s.diagnose(ingest.Warn, "%v", err)
		}
	}
	s.fleet.Tick()
	return nil
}

func (s *Session) applyTicks(ticks []ingest.PriceTick) error {
	for _, t := range ticks {
		if !t.Price.IsPositive() {
			s.diagnose(ingest.Warn, "dropped market tick with non-positive price %s", t.Price)
			continue
		}
		ts := s.now()
		if last, ok := s.market.Last(); ok && ts.Before(last.Timestamp) {
			ts = last.Timestamp
		}
		s.market.Append(MarketTick{Timestamp: ts, Price: t.Price})
	}
	return nil
}

func (s *Session) applyLogs(lines []ingest.LogLine) error {
	pending := s.diagnostics
	s.diagnostics = nil

	for _, line := range pending {
		s.appendLog(line)
	}
	for _, line := range lines {
		s.appendLog(line)
	}
	return nil
}

func (s *Session) appendLog(line ingest.LogLine) {
	severity, ok := ingest.ParseSeverity(line.Severity)
	if !ok {
		slog.Debug("log line with unknown severity is logged as INFO", "session", s.id, "severity", line.Severity)
	}
	s.lastLogID++
	s.logs.Append(LogEvent{
		ID:        s.lastLogID,
		Timestamp: s.now(),
		Severity:  severity,
		Message:   line.Message,
	})
}
