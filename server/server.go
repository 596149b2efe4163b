// Copyright (c) 2025 BVK Chaitanya

// Package server implements the HTTP surface of the fleetdeck daemon. It
// exposes session control, the snapshot view, fleet status changes and the
// ingestion gateway that feeds worker events into the session.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bvk/fleetdeck/api"
	"github.com/bvk/fleetdeck/httputil"
	"github.com/bvk/fleetdeck/ingest"
	"github.com/bvk/fleetdeck/session"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type Server struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	opts Options

	start time.Time

	session *session.Session

	// feed is nil when the session is driven by the simulator.
	feed *ingest.Feed

	limiter *rate.Limiter

	upgrader websocket.Upgrader
}

// New creates the api server for a session. Ingestion requests are rejected
// when feed is nil.
func New(sess *session.Session, feed *ingest.Feed, opts *Options) (*Server, error) {
	if sess == nil {
		return nil, fmt.Errorf("session cannot be nil: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	s := &Server{
		ctx:     ctx,
		cancel:  cancel,
		opts:    *opts,
		start:   time.Now(),
		session: sess,
		feed:    feed,
		limiter: rate.NewLimiter(rate.Limit(opts.IngestRate), opts.IngestBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	return s, nil
}

// Close disconnects all stream clients.
func (s *Server) Close() error {
	s.cancel(os.ErrClosed)
	s.wg.Wait()
	return nil
}

// HandlerMap returns the api handlers keyed by their paths.
func (s *Server) HandlerMap() map[string]http.Handler {
	n := s.opts.MaxRequestBytes
	return map[string]http.Handler{
		api.SessionStartPath: httputil.PostJSONHandler(n, s.doStart),
		api.SessionStopPath:  httputil.PostJSONHandler(n, s.doStop),
		api.SnapshotPath:     httputil.PostJSONHandler(n, s.doSnapshot),
		api.SetStatusPath:    httputil.PostJSONHandler(n, s.doSetStatus),
		api.IngestPath:       httputil.PostJSONHandler(n, s.doIngest),
		api.HealthPath:       httputil.GetJSONHandler(s.doHealth),
		api.StreamPath:       http.HandlerFunc(s.serveStream),
	}
}
