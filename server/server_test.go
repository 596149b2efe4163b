// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bvk/fleetdeck/api"
	"github.com/bvk/fleetdeck/fleet"
	"github.com/bvk/fleetdeck/ingest"
	"github.com/bvk/fleetdeck/session"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

type testServer struct {
	*Server

	feed *ingest.Feed
	http *httptest.Server
}

func newTestServer(t *testing.T, simulate bool, opts *Options) *testServer {
	t.Helper()

	var feed *ingest.Feed
	var in ingest.Ingestor
	if simulate {
		in = ingest.NewSimulator([]string{"W-01", "W-02", "W-03", "W-04"}, nil)
	} else {
		v, err := ingest.NewFeed(100)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(v.Close)
		feed, in = v, v
	}

	sess, err := session.New(in, fleet.DefaultRoster(), &session.Options{TickIntervalMs: 10, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sess.Close)

	s, err := New(sess, feed, opts)
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	for k, v := range s.HandlerMap() {
		mux.Handle(k, v)
	}
	hs := httptest.NewServer(mux)
	t.Cleanup(func() {
		s.Close()
		hs.Close()
	})
	return &testServer{Server: s, feed: feed, http: hs}
}

func post[RESP any](t *testing.T, ts *testServer, path string, req any) (*RESP, int) {
	t.Helper()

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.http.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode
	}
	v := new(RESP)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
	return v, resp.StatusCode
}

func TestSessionControl(t *testing.T) {
	ts := newTestServer(t, true, nil)

	start, code := post[api.SessionStartResponse](t, ts, api.SessionStartPath, &api.SessionStartRequest{})
	if code != http.StatusOK || start.State != session.Running {
		t.Fatalf("wanted RUNNING, got %d %v", code, start)
	}
	if start.SessionID != ts.session.ID() {
		t.Fatalf("wanted session id %s, got %s", ts.session.ID(), start.SessionID)
	}

	deadline := time.Now().Add(5 * time.Second)
	for ts.session.Snapshot().Ticks < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("session did not tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stop, code := post[api.SessionStopResponse](t, ts, api.SessionStopPath, &api.SessionStopRequest{})
	if code != http.StatusOK || stop.State != session.Stopped {
		t.Fatalf("wanted STOPPED, got %d %v", code, stop)
	}

	snap, code := post[api.SnapshotResponse](t, ts, api.SnapshotPath, &api.SnapshotRequest{})
	if code != http.StatusOK {
		t.Fatalf("wanted 200, got %d", code)
	}
	if snap.Snapshot.State != session.Stopped || snap.Snapshot.Ticks < 3 {
		t.Fatalf("unexpected snapshot %+v", snap.Snapshot)
	}
	if len(snap.Snapshot.Workers) != 4 {
		t.Fatalf("wanted 4 workers, got %d", len(snap.Snapshot.Workers))
	}
}

func TestSetStatus(t *testing.T) {
	ts := newTestServer(t, true, nil)

	if _, code := post[api.SetStatusResponse](t, ts, api.SetStatusPath, &api.SetStatusRequest{WorkerID: "W-99", Status: "ACTIVE"}); code != http.StatusNotFound {
		t.Fatalf("wanted 404 for an unknown worker, got %d", code)
	}
	if _, code := post[api.SetStatusResponse](t, ts, api.SetStatusPath, &api.SetStatusRequest{WorkerID: "W-01", Status: "SLEEPING"}); code != http.StatusBadRequest {
		t.Fatalf("wanted 400 for an invalid status, got %d", code)
	}

	resp, code := post[api.SetStatusResponse](t, ts, api.SetStatusPath, &api.SetStatusRequest{WorkerID: "W-02", Status: "banned"})
	if code != http.StatusOK {
		t.Fatalf("wanted 200, got %d", code)
	}
	if resp.Worker.Status != fleet.Banned {
		t.Fatalf("wanted W-02 BANNED, got %s", resp.Worker.Status)
	}
	if n := ts.session.Snapshot().Stats.ActiveProxyCount; n != 2 {
		t.Fatalf("wanted 2 active proxies, got %d", n)
	}
}

func TestIngest(t *testing.T) {
	ts := newTestServer(t, false, nil)

	hint := 2
	req := &api.IngestRequest{
		Heartbeats: []ingest.Heartbeat{{WorkerID: "W-01", RTTDeltaHint: &hint}},
		Ticks:      []ingest.PriceTick{{Price: decimal.NewFromInt(1500000)}},
		Logs:       []ingest.LogLine{{Severity: "SUCCESS", Message: "bid placed"}},
		Requests:   60,
		Profit:     decimal.NewFromInt(1500),
	}
	resp, code := post[api.IngestResponse](t, ts, api.IngestPath, req)
	if code != http.StatusOK {
		t.Fatalf("wanted 200, got %d", code)
	}
	if resp.Accepted != 4 {
		t.Fatalf("wanted 4 accepted events, got %d", resp.Accepted)
	}

	ts.session.Start()
	defer ts.session.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for ts.session.Snapshot().Ticks == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session did not tick")
		}
		time.Sleep(time.Millisecond)
	}

	// Everything accepted before the first tick is applied by that tick.
	snap := ts.session.Snapshot()
	if !snap.Stats.TotalProfit.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("wanted profit 1500 after the first tick, got %s", snap.Stats.TotalProfit)
	}
	found := false
	for _, e := range snap.LogTail {
		found = found || e.Message == "bid placed"
	}
	if !found || len(snap.MarketSeries) != 1 {
		t.Fatalf("wanted the pushed log line and market tick, got %+v", snap)
	}

	unknown := &api.IngestRequest{Heartbeats: []ingest.Heartbeat{{WorkerID: "W-99"}}}
	if _, code := post[api.IngestResponse](t, ts, api.IngestPath, unknown); code != http.StatusNotFound {
		t.Fatalf("wanted 404 for an unknown worker, got %d", code)
	}
	negative := &api.IngestRequest{Profit: decimal.NewFromInt(-1)}
	if _, code := post[api.IngestResponse](t, ts, api.IngestPath, negative); code != http.StatusBadRequest {
		t.Fatalf("wanted 400 for a negative profit, got %d", code)
	}
}

func TestIngestSingleBatch(t *testing.T) {
	ts := newTestServer(t, false, nil)

	req := new(api.IngestRequest)
	for i := 0; i < 300; i++ {
		req.Logs = append(req.Logs, ingest.LogLine{Message: fmt.Sprintf("line-%d", i)})
	}
	resp, code := post[api.IngestResponse](t, ts, api.IngestPath, req)
	if code != http.StatusOK || resp.Accepted != 300 {
		t.Fatalf("wanted 300 accepted events, got %d %v", code, resp)
	}

	// The session is stopped, so the feed still holds every accepted event.
	b, err := ts.feed.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Logs) != 300 {
		t.Fatalf("wanted 300 events in one batch, got %d", len(b.Logs))
	}

	big := &api.IngestRequest{Requests: api.MaxRequests + 1}
	if _, code := post[api.IngestResponse](t, ts, api.IngestPath, big); code != http.StatusBadRequest {
		t.Fatalf("wanted 400 for too many requests, got %d", code)
	}
}

func TestIngestRateLimit(t *testing.T) {
	ts := newTestServer(t, false, &Options{IngestRate: 0.001, IngestBurst: 2})

	req := &api.IngestRequest{Logs: []ingest.LogLine{{Message: "a"}, {Message: "b"}}}
	if _, code := post[api.IngestResponse](t, ts, api.IngestPath, req); code != http.StatusOK {
		t.Fatalf("wanted 200, got %d", code)
	}
	if _, code := post[api.IngestResponse](t, ts, api.IngestPath, req); code != http.StatusTooManyRequests {
		t.Fatalf("wanted 429, got %d", code)
	}

	big := &api.IngestRequest{Logs: []ingest.LogLine{{Message: "a"}, {Message: "b"}, {Message: "c"}}}
	if _, code := post[api.IngestResponse](t, ts, api.IngestPath, big); code != http.StatusBadRequest {
		t.Fatalf("wanted 400 for a request larger than the burst, got %d", code)
	}
}

func TestIngestSimulated(t *testing.T) {
	ts := newTestServer(t, true, nil)

	req := &api.IngestRequest{Logs: []ingest.LogLine{{Message: "a"}}}
	if _, code := post[api.IngestResponse](t, ts, api.IngestPath, req); code != http.StatusServiceUnavailable {
		t.Fatalf("wanted 503 in simulator mode, got %d", code)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, true, nil)

	resp, err := http.Get(ts.http.URL + api.HealthPath)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wanted 200, got %d", resp.StatusCode)
	}
	health := new(api.HealthResponse)
	if err := json.NewDecoder(resp.Body).Decode(health); err != nil {
		t.Fatal(err)
	}
	if health.SessionID != ts.session.ID() || health.State != session.Stopped {
		t.Fatalf("unexpected health response %+v", health)
	}
	if health.Goroutines == 0 {
		t.Fatalf("wanted a non-zero goroutine count")
	}
}

func TestStream(t *testing.T) {
	ts := newTestServer(t, true, nil)

	u := "ws" + strings.TrimPrefix(ts.http.URL, "http") + api.StreamPath
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	first := new(session.Snapshot)
	if err := conn.ReadJSON(first); err != nil {
		t.Fatal(err)
	}
	if first.SessionID != ts.session.ID() {
		t.Fatalf("wanted session id %s, got %s", ts.session.ID(), first.SessionID)
	}

	ts.session.Start()
	defer ts.session.Stop()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		snap := new(session.Snapshot)
		if err := conn.ReadJSON(snap); err != nil {
			t.Fatal(err)
		}
		if snap.Ticks > 0 {
			break
		}
	}
}
