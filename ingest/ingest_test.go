// Copyright (c) 2025 BVK Chaitanya

package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"info", Info, true},
		{"SUCCESS", Success, true},
		{" Warn ", Warn, true},
		{"warning", Warn, true},
		{"error", Error, true},
		{"FATAL", Info, false},
		{"", Info, false},
	}
	for _, test := range tests {
		got, ok := ParseSeverity(test.in)
		if got != test.want || ok != test.ok {
			t.Fatalf("%q: wanted %s/%v, got %s/%v", test.in, test.want, test.ok, got, ok)
		}
	}
}

func TestSimulator(t *testing.T) {
	ctx := context.Background()
	ids := []string{"W-01", "W-02"}
	sim := NewSimulator(ids, &SimulatorOptions{Rand: rand.New(rand.NewPCG(5, 6))})

	last := decimal.NewFromInt(1500000)
	step := decimal.NewFromInt(2500)
	for i := 0; i < 200; i++ {
		b, err := sim.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(b.Heartbeats) != len(ids) || len(b.Ticks) != 1 || len(b.Logs) != 1 {
			t.Fatalf("unexpected batch shape: %d heartbeats, %d ticks, %d logs", len(b.Heartbeats), len(b.Ticks), len(b.Logs))
		}
		price := b.Ticks[0].Price
		if price.Sub(last).Abs().GreaterThan(step) {
			t.Fatalf("price moved from %s to %s", last, price)
		}
		last = price

		if _, ok := ParseSeverity(b.Logs[0].Severity); !ok {
			t.Fatalf("simulated log has unknown severity %q", b.Logs[0].Severity)
		}
		if b.Profit.IsNegative() || b.Requests < 0 {
			t.Fatalf("negative profit or request count in %+v", b)
		}
		// 3000-5000 requests per minute at 800ms ticks is 40-66 per tick.
		if n := b.Requests + b.Len(); n < 40 || n > 67 {
			t.Fatalf("wanted 40-66 requests per tick, got %d", n)
		}
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := sim.Next(cctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("wanted context.Canceled, got %v", err)
	}
}

func TestFeed(t *testing.T) {
	ctx := context.Background()

	feed, err := NewFeed(0)
	if err != nil {
		t.Fatal(err)
	}
	defer feed.Close()

	hint := 5
	events := []*Event{
		{Heartbeat: &Heartbeat{WorkerID: "W-01", RTTDeltaHint: &hint}},
		{Tick: &PriceTick{Price: decimal.NewFromInt(1500100)}},
		{Log: &LogLine{Severity: "info", Message: "hello"}},
		{Requests: 40, Profit: decimal.NewFromInt(1500)},
	}
	for _, e := range events {
		if err := feed.Push(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := feed.Push(&Event{Profit: decimal.NewFromInt(-1)}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid, got %v", err)
	}

	b, err := feed.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 3 || b.Requests != 40 {
		t.Fatalf("wanted all pushed events in one batch, got %+v", b)
	}
	if b.Heartbeats[0].WorkerID != "W-01" || *b.Heartbeats[0].RTTDeltaHint != 5 {
		t.Fatalf("unexpected heartbeat %+v", b.Heartbeats[0])
	}
	if !b.Profit.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("wanted profit 1500, got %s", b.Profit)
	}

	// An idle feed yields empty batches.
	b, err = feed.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 || b.Requests != 0 {
		t.Fatalf("wanted empty batch, got %+v", b)
	}

	feed.Close()
	if err := feed.Push(&Event{Requests: 1}); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("wanted ErrClosed, got %v", err)
	}
	if _, err := feed.Next(ctx); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("wanted ErrClosed, got %v", err)
	}
}

func TestFeedBatchHoldsAllPending(t *testing.T) {
	ctx := context.Background()

	feed, err := NewFeed(1024)
	if err != nil {
		t.Fatal(err)
	}
	defer feed.Close()

	for i := 0; i < 500; i++ {
		if err := feed.Push(&Event{Log: &LogLine{Message: fmt.Sprintf("e-%d", i)}}); err != nil {
			t.Fatal(err)
		}
	}

	b, err := feed.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Logs) != 500 {
		t.Fatalf("wanted 500 events in one batch, got %d", len(b.Logs))
	}
	for i, line := range b.Logs {
		if want := fmt.Sprintf("e-%d", i); line.Message != want {
			t.Fatalf("wanted %s at %d, got %s", want, i, line.Message)
		}
	}
	if b, _ := feed.Next(ctx); b.Len() != 0 {
		t.Fatalf("wanted empty batch after a full drain, got %d events", b.Len())
	}
}

func TestFeedIsBounded(t *testing.T) {
	ctx := context.Background()

	feed, err := NewFeed(8)
	if err != nil {
		t.Fatal(err)
	}
	defer feed.Close()

	// Nobody calls Next while producers keep pushing.
	for i := 0; i < 200000; i++ {
		if err := feed.Push(&Event{Requests: 1, Log: &LogLine{Message: fmt.Sprintf("e-%d", i)}}); err != nil {
			t.Fatal(err)
		}
	}
	feed.mu.Lock()
	n := feed.pending.Len()
	feed.mu.Unlock()
	if n != feed.MaxBatch() {
		t.Fatalf("wanted %d pending events, got %d", feed.MaxBatch(), n)
	}

	b, err := feed.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// One drop report followed by the newest eight events.
	if len(b.Logs) != 9 || b.Requests != 8 {
		t.Fatalf("wanted 9 log lines and 8 requests, got %d and %d", len(b.Logs), b.Requests)
	}
	if sev, _ := ParseSeverity(b.Logs[0].Severity); sev != Warn || !strings.Contains(b.Logs[0].Message, "dropped 199992") {
		t.Fatalf("wanted a drop report, got %+v", b.Logs[0])
	}
	for i, line := range b.Logs[1:] {
		if want := fmt.Sprintf("e-%d", 199992+i); line.Message != want {
			t.Fatalf("wanted %s, got %s", want, line.Message)
		}
	}

	b, err = feed.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Fatalf("wanted the drop report to be cleared, got %+v", b)
	}
}

func TestBatchRequestsSaturate(t *testing.T) {
	b := new(Batch)
	b.add(&Event{Requests: math.MaxInt - 1})
	b.add(&Event{Requests: 10})
	if b.Requests != math.MaxInt {
		t.Fatalf("wanted %d, got %d", math.MaxInt, b.Requests)
	}
}
