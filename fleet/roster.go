// Copyright (c) 2025 BVK Chaitanya

package fleet

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultRoster returns the seed roster the console starts with.
func DefaultRoster() []*Worker {
	return []*Worker{
		{ID: "W-01", Status: Idle, ProxyAddress: "192.168.1.101", Kind: "Sniper (Go)", RTTMillis: 45},
		{ID: "W-02", Status: Active, ProxyAddress: "45.32.11.22", Kind: "Bidder (Py)", RTTMillis: 112},
		{ID: "W-03", Status: Cooldown, ProxyAddress: "88.12.44.12", Kind: "Sniper (Go)", RTTMillis: 55},
		{ID: "W-04", Status: Banned, ProxyAddress: "102.11.23.99", Kind: "Bidder (Py)", RTTMillis: 0},
	}
}

type rosterFile struct {
	Workers []*Worker `yaml:"workers"`
}

// RosterFromFile loads a roster from a YAML file of the form
//
//	workers:
//	  - id: W-01
//	    status: idle
//	    proxyAddress: 192.168.1.101
//	    kind: Sniper (Go)
//	    rttMs: 45
//
// Status names are case-insensitive.
func RosterFromFile(fpath string) ([]*Worker, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, fmt.Errorf("could not read roster file %q: %w", fpath, err)
	}
	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("could not parse roster file %q: %w", fpath, err)
	}
	for i, w := range rf.Workers {
		if w == nil {
			return nil, fmt.Errorf("roster entry %d is empty: %w", i, os.ErrInvalid)
		}
		status, err := ParseStatus(string(w.Status))
		if err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
		w.Status = status
		if err := w.check(); err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
	}
	return rf.Workers, nil
}
