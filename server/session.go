// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bvk/fleetdeck/api"
	"github.com/bvk/fleetdeck/fleet"
	"github.com/bvk/fleetdeck/httputil"
)

func (s *Server) doStart(ctx context.Context, _ *api.SessionStartRequest) (*api.SessionStartResponse, error) {
	s.session.Start()
	resp := &api.SessionStartResponse{
		SessionID: s.session.ID(),
		State:     s.session.State(),
	}
	return resp, nil
}

func (s *Server) doStop(ctx context.Context, _ *api.SessionStopRequest) (*api.SessionStopResponse, error) {
	s.session.Stop()
	resp := &api.SessionStopResponse{
		SessionID: s.session.ID(),
		State:     s.session.State(),
	}
	return resp, nil
}

func (s *Server) doSnapshot(ctx context.Context, _ *api.SnapshotRequest) (*api.SnapshotResponse, error) {
	return &api.SnapshotResponse{Snapshot: s.session.Snapshot()}, nil
}

func (s *Server) doSetStatus(ctx context.Context, req *api.SetStatusRequest) (*api.SetStatusResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	status, _ := fleet.ParseStatus(req.Status)
	if err := s.session.SetStatus(req.WorkerID, status); err != nil {
		if errors.Is(err, fleet.ErrUnknownWorker) {
			return nil, httputil.WithStatus(http.StatusNotFound, err)
		}
		return nil, err
	}

	w, err := s.session.Worker(req.WorkerID)
	if err != nil {
		return nil, fmt.Errorf("could not get updated worker: %w", err)
	}
	slog.InfoContext(ctx, "worker status is updated", "worker", w.ID, "status", w.Status)
	return &api.SetStatusResponse{Worker: w}, nil
}
