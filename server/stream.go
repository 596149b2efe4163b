// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bvk/fleetdeck/session"
	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

// serveStream upgrades the request to a websocket and sends the current
// snapshot followed by every published snapshot. Clients that fall behind
// skip intermediate snapshots.
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request) {
	if err := context.Cause(s.ctx); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	updates, err := s.session.Updates()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer updates.Close()

	updatesCh, err := topic.ReceiveCh(updates)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "could not upgrade to websocket", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	s.wg.Add(1)
	defer s.wg.Done()

	ctx, cancel := context.WithCancelCause(s.ctx)
	defer cancel(nil)

	// Clients don't send anything; reading detects a closed connection.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel(err)
				return
			}
		}
	}()

	slog.InfoContext(ctx, "stream client connected", "remote", r.RemoteAddr)
	defer slog.InfoContext(ctx, "stream client disconnected", "remote", r.RemoteAddr)

	if err := s.writeSnapshot(conn, s.session.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			if context.Cause(s.ctx) != nil {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			}
			return

		case snap, ok := <-updatesCh:
			if !ok {
				return
			}
			if err := s.writeSnapshot(conn, snap); err != nil {
				slog.WarnContext(ctx, "could not send snapshot to the stream client", "remote", r.RemoteAddr, "err", err)
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn, snap *session.Snapshot) error {
	if snap == nil {
		return os.ErrInvalid
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.opts.StreamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(snap)
}
