// Copyright (c) 2025 BVK Chaitanya

package api

import "github.com/bvk/fleetdeck/session"

const HealthPath = "/health"

type HealthResponse struct {
	SessionID string
	State     session.State

	Uptime string

	RSSBytes   uint64
	Goroutines int
}
