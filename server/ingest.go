// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bvk/fleetdeck/api"
	"github.com/bvk/fleetdeck/fleet"
	"github.com/bvk/fleetdeck/httputil"
)

var errSimulated = errors.New("session is driven by the simulator")

// doIngest pushes worker events into the feed. Events are checked against the
// current roster so that callers learn about unknown workers immediately.
func (s *Server) doIngest(ctx context.Context, req *api.IngestRequest) (*api.IngestResponse, error) {
	if s.feed == nil {
		return nil, httputil.WithStatus(http.StatusServiceUnavailable, errSimulated)
	}
	if err := req.Check(); err != nil {
		return nil, err
	}

	for _, hb := range req.Heartbeats {
		if _, err := s.session.Worker(hb.WorkerID); err != nil {
			if errors.Is(err, fleet.ErrUnknownWorker) {
				return nil, httputil.WithStatus(http.StatusNotFound, fmt.Errorf("heartbeat: %w", err))
			}
			return nil, err
		}
	}

	events := req.Events()
	if len(events) == 0 {
		return &api.IngestResponse{}, nil
	}
	if limit := min(s.limiter.Burst(), s.feed.MaxBatch()); len(events) > limit {
		return nil, fmt.Errorf("request has %d events which is more than the limit %d: %w", len(events), limit, os.ErrInvalid)
	}
	if !s.limiter.AllowN(time.Now(), len(events)) {
		return nil, httputil.WithStatus(http.StatusTooManyRequests, fmt.Errorf("ingestion rate limit is exceeded"))
	}

	for i, e := range events {
		if err := s.feed.Push(e); err != nil {
			if errors.Is(err, os.ErrClosed) {
				return nil, httputil.WithStatus(http.StatusServiceUnavailable, err)
			}
			return nil, fmt.Errorf("could not push event %d: %w", i, err)
		}
	}
	return &api.IngestResponse{Accepted: len(events)}, nil
}
