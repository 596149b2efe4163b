// Copyright (c) 2025 BVK Chaitanya

package fleet

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Status string

const (
	Idle     Status = "IDLE"
	Active   Status = "ACTIVE"
	Cooldown Status = "COOLDOWN"
	Banned   Status = "BANNED"
)

// ErrUnknownWorker is returned for operations on a worker id that is not in
// the roster.
var ErrUnknownWorker = errors.New("unknown worker")

func (s Status) Valid() bool {
	return s == Idle || s == Active || s == Cooldown || s == Banned
}

// ParseStatus converts a case-insensitive status name.
func ParseStatus(s string) (Status, error) {
	v := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid worker status %q: %w", s, os.ErrInvalid)
	}
	return v, nil
}

type Worker struct {
	ID           string `json:"id" yaml:"id"`
	Status       Status `json:"status" yaml:"status"`
	ProxyAddress string `json:"proxyAddress" yaml:"proxyAddress"`
	Kind         string `json:"kind" yaml:"kind"`
	RTTMillis    int    `json:"rttMs" yaml:"rttMs"`

	// LastSeen is the time of the last heartbeat. It is zero until the first
	// heartbeat is observed.
	LastSeen time.Time `json:"lastSeen" yaml:"-"`
}

func (w *Worker) check() error {
	if len(w.ID) == 0 {
		return fmt.Errorf("worker id cannot be empty: %w", os.ErrInvalid)
	}
	if !w.Status.Valid() {
		return fmt.Errorf("worker %q has invalid status %q: %w", w.ID, w.Status, os.ErrInvalid)
	}
	if w.RTTMillis < 0 {
		return fmt.Errorf("worker %q has negative rtt %d: %w", w.ID, w.RTTMillis, os.ErrInvalid)
	}
	return nil
}

func (w *Worker) String() string {
	return "worker:" + w.ID
}
