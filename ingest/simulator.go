// Copyright (c) 2025 BVK Chaitanya

package ingest

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var simulatedLogs = []LogLine{
	{Severity: "INFO", Message: "[TLS-Fingerprint] JA3 signature matched (iOS 17)"},
	{Severity: "SUCCESS", Message: "[SNIPE] 200 OK | POST /transfermarket | 42ms"},
	{Severity: "WARN", Message: "[Heuristic] Mouse movement entropy too low. Injecting noise."},
	{Severity: "INFO", Message: "[Proxy] Rotating IP due to HTTP 429."},
	{Severity: "ERROR", Message: "[Auth] Token refresh failed for W-04. Kill switch."},
	{Severity: "INFO", Message: "[Market] Parsing 50 items. Found 2 targets."},
}

type SimulatorOptions struct {
	// Interval is the expected time between two Next calls; it scales the
	// simulated request counts.
	Interval time.Duration

	StartPrice decimal.Decimal

	// PriceStep is the maximum price move per tick in either direction.
	PriceStep int64

	// SaleProfit is credited with probability SaleChance on every tick.
	SaleProfit decimal.Decimal
	SaleChance float64

	// MinRPM and MaxRPM bound the simulated request rate.
	MinRPM, MaxRPM int

	Rand *rand.Rand
}

func (v *SimulatorOptions) setDefaults() {
	if v.Interval == 0 {
		v.Interval = 800 * time.Millisecond
	}
	if v.StartPrice.IsZero() {
		v.StartPrice = decimal.NewFromInt(1500000)
	}
	if v.PriceStep == 0 {
		v.PriceStep = 2500
	}
	if v.SaleProfit.IsZero() {
		v.SaleProfit = decimal.NewFromInt(1500)
	}
	if v.SaleChance == 0 {
		v.SaleChance = 0.2
	}
	if v.MinRPM == 0 && v.MaxRPM == 0 {
		v.MinRPM, v.MaxRPM = 3000, 5000
	}
	if v.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		v.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
}

// Simulator generates randomized batches the way the console's demo mode
// does. It never blocks.
type Simulator struct {
	mu sync.Mutex

	opts SimulatorOptions

	workerIDs []string

	price decimal.Decimal
}

var _ Ingestor = &Simulator{}

func NewSimulator(workerIDs []string, opts *SimulatorOptions) *Simulator {
	if opts == nil {
		opts = new(SimulatorOptions)
	}
	opts.setDefaults()
	return &Simulator{
		opts:      *opts,
		workerIDs: append([]string(nil), workerIDs...),
		price:     opts.StartPrice,
	}
}

func (s *Simulator) Next(ctx context.Context) (*Batch, error) {
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.opts.Rand
	b := new(Batch)
	for _, id := range s.workerIDs {
		b.Heartbeats = append(b.Heartbeats, Heartbeat{WorkerID: id})
	}

	step := r.Int64N(2*s.opts.PriceStep+1) - s.opts.PriceStep
	if next := s.price.Add(decimal.NewFromInt(step)); next.IsPositive() {
		s.price = next
	}
	b.Ticks = append(b.Ticks, PriceTick{Price: s.price})

	b.Logs = append(b.Logs, simulatedLogs[r.IntN(len(simulatedLogs))])

	rpm := s.opts.MinRPM + r.IntN(s.opts.MaxRPM-s.opts.MinRPM+1)
	perTick := int(int64(rpm) * int64(s.opts.Interval) / int64(time.Minute))
	b.Requests = max(0, perTick-b.Len())

	if r.Float64() < s.opts.SaleChance {
		b.Profit = s.opts.SaleProfit
	}
	return b, nil
}
