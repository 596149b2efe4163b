// Copyright (c) 2025 BVK Chaitanya

package api

import "github.com/bvk/fleetdeck/session"

const SnapshotPath = "/session/snapshot"

// StreamPath is the websocket endpoint that sends a JSON encoded snapshot
// after every mutation.
const StreamPath = "/session/stream"

type SnapshotRequest struct {
}

type SnapshotResponse struct {
	Snapshot *session.Snapshot
}
