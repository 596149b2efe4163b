// Copyright (c) 2025 BVK Chaitanya

package api

const SessionStopPath = "/session/stop"

type SessionStopRequest struct {
}

type SessionStopResponse = SessionResponse
