// Copyright (c) 2025 BVK Chaitanya

package session

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/bvk/fleetdeck/ingest"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Options holds the session configuration. YAML keys match the names used in
// the console's configuration file.
type Options struct {
	TickIntervalMs int `yaml:"tickIntervalMs"`

	MarketBufferCapacity int `yaml:"marketBufferCapacity"`
	LogBufferCapacity    int `yaml:"logBufferCapacity"`

	RTTJitterBound int `yaml:"rttJitterBound"`
	RTTFloor       int `yaml:"rttFloor"`

	// RPMBounds holds the [min, max] requests-per-minute range.
	RPMBounds [2]int `yaml:"rpmBounds"`

	// TickBudgetMs limits how long a tick waits for the ingestor. A batch that
	// doesn't arrive in time is treated as empty.
	TickBudgetMs int `yaml:"tickBudgetMs"`

	// KPIWindow is the number of ticks in the rolling throughput window.
	KPIWindow int `yaml:"kpiWindowTicks"`

	InitialProfit string `yaml:"initialProfit"`

	// Seed makes the rtt jitter and the simulated feed reproducible when
	// non-zero.
	Seed uint64 `yaml:"seed"`
}

func (v *Options) setDefaults() {
	if v.TickIntervalMs == 0 {
		v.TickIntervalMs = 800
	}
	if v.MarketBufferCapacity == 0 {
		v.MarketBufferCapacity = 20
	}
	if v.LogBufferCapacity == 0 {
		v.LogBufferCapacity = 16
	}
	if v.RTTJitterBound == 0 {
		v.RTTJitterBound = 10
	}
	if v.RTTFloor == 0 {
		v.RTTFloor = 10
	}
	if v.RPMBounds == [2]int{} {
		v.RPMBounds = [2]int{3000, 5000}
	}
	if v.TickBudgetMs == 0 {
		v.TickBudgetMs = v.TickIntervalMs
	}
	if v.KPIWindow == 0 {
		v.KPIWindow = 10
	}
	if v.InitialProfit == "" {
		v.InitialProfit = "0"
	}
}

func (v *Options) Check() error {
	if v.TickIntervalMs <= 0 {
		return fmt.Errorf("tick interval must be positive: %w", os.ErrInvalid)
	}
	if v.TickBudgetMs <= 0 {
		return fmt.Errorf("tick budget must be positive: %w", os.ErrInvalid)
	}
	if v.MarketBufferCapacity < 1 || v.LogBufferCapacity < 1 {
		return fmt.Errorf("buffer capacities must be at least one: %w", os.ErrInvalid)
	}
	if v.RPMBounds[0] < 0 || v.RPMBounds[1] < v.RPMBounds[0] {
		return fmt.Errorf("invalid rpm bounds %v: %w", v.RPMBounds, os.ErrInvalid)
	}
	if v.KPIWindow < 1 {
		return fmt.Errorf("kpi window must be at least one tick: %w", os.ErrInvalid)
	}
	if _, err := decimal.NewFromString(v.InitialProfit); err != nil {
		return fmt.Errorf("invalid initial profit %q: %w", v.InitialProfit, err)
	}
	return nil
}

func (v *Options) TickInterval() time.Duration {
	return time.Duration(v.TickIntervalMs) * time.Millisecond
}

func (v *Options) TickBudget() time.Duration {
	return time.Duration(v.TickBudgetMs) * time.Millisecond
}

// SimulatorOptions returns the simulator configuration that matches the
// session's tick interval, rpm bounds and seed.
func (v *Options) SimulatorOptions() *ingest.SimulatorOptions {
	opts := *v
	opts.setDefaults()

	sopts := &ingest.SimulatorOptions{
		Interval: opts.TickInterval(),
		MinRPM:   opts.RPMBounds[0],
		MaxRPM:   opts.RPMBounds[1],
	}
	if opts.Seed != 0 {
		sopts.Rand = rand.New(rand.NewPCG(opts.Seed, opts.Seed>>1))
	}
	return sopts
}

// OptionsFromFile loads options from a YAML file. Missing keys take default
// values.
func OptionsFromFile(fpath string) (*Options, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, fmt.Errorf("could not read options file %q: %w", fpath, err)
	}
	opts := new(Options)
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("could not parse options file %q: %w", fpath, err)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return opts, nil
}
