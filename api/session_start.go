// Copyright (c) 2025 BVK Chaitanya

package api

const SessionStartPath = "/session/start"

type SessionStartRequest struct {
}

type SessionStartResponse = SessionResponse
