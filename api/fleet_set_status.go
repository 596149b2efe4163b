// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"

	"github.com/bvk/fleetdeck/fleet"
)

const SetStatusPath = "/fleet/set-status"

type SetStatusRequest struct {
	WorkerID string
	Status   string
}

type SetStatusResponse struct {
	Worker fleet.Worker
}

func (r *SetStatusRequest) Check() error {
	if len(r.WorkerID) == 0 {
		return fmt.Errorf("WorkerID cannot be empty: %w", os.ErrInvalid)
	}
	if _, err := fleet.ParseStatus(r.Status); err != nil {
		return err
	}
	return nil
}
