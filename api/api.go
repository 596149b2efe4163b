// Copyright (c) 2025 BVK Chaitanya

// Package api defines the request and response types for the fleetdeck
// daemon's HTTP interface. Commands are JSON objects POSTed to the paths
// defined here.
package api

import (
	"github.com/bvk/fleetdeck/session"
)

// SessionResponse is returned by the start and stop commands.
type SessionResponse struct {
	SessionID string
	State     session.State
}
