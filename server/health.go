// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/bvk/fleetdeck/api"
	"github.com/shirou/gopsutil/v4/process"
)

func (s *Server) doHealth(ctx context.Context) (*api.HealthResponse, error) {
	resp := &api.HealthResponse{
		SessionID:  s.session.ID(),
		State:      s.session.State(),
		Uptime:     time.Since(s.start).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err != nil {
		slog.WarnContext(ctx, "could not inspect the daemon process (ignored)", "err", err)
	} else if mem, err := p.MemoryInfoWithContext(ctx); err != nil {
		slog.WarnContext(ctx, "could not get memory usage (ignored)", "err", err)
	} else {
		resp.RSSBytes = mem.RSS
	}
	return resp, nil
}
