// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// IngestRate limits the number of events accepted per second through the
	// ingestion endpoint. IngestBurst is the largest number of events accepted
	// at once.
	IngestRate  float64
	IngestBurst int

	// MaxRequestBytes limits the size of JSON request bodies.
	MaxRequestBytes int64

	// StreamWriteTimeout limits the time to write one snapshot to a websocket
	// client. Slow clients are disconnected.
	StreamWriteTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.IngestRate == 0 {
		v.IngestRate = 200
	}
	if v.IngestBurst == 0 {
		v.IngestBurst = 400
	}
	if v.MaxRequestBytes == 0 {
		v.MaxRequestBytes = 1 << 20
	}
	if v.StreamWriteTimeout == 0 {
		v.StreamWriteTimeout = 5 * time.Second
	}
}

func (v *Options) Check() error {
	if v.IngestRate < 0 {
		return fmt.Errorf("ingest rate cannot be negative: %w", os.ErrInvalid)
	}
	if v.IngestBurst < 1 {
		return fmt.Errorf("ingest burst must be at least one: %w", os.ErrInvalid)
	}
	if v.StreamWriteTimeout < 0 {
		return fmt.Errorf("stream write timeout cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
