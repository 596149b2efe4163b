// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/fleetdeck/api"
	"github.com/bvk/fleetdeck/ingest"
	"github.com/bvk/fleetdeck/subcmds/cmdutil"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Push struct {
	cmdutil.ClientFlags

	heartbeat string
	rttDelta  int
	hasDelta  bool

	price string

	severity string
	message  string

	requests int
	profit   string
}

func (c *Push) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("push", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.heartbeat, "heartbeat", "", "worker id to report a heartbeat for")
	fset.Func("rtt-delta", "rtt change hint in milliseconds for the heartbeat", func(s string) error {
		if _, err := fmt.Sscanf(s, "%d", &c.rttDelta); err != nil {
			return err
		}
		c.hasDelta = true
		return nil
	})
	fset.StringVar(&c.price, "price", "", "market price tick")
	fset.StringVar(&c.severity, "severity", "INFO", "log line severity")
	fset.StringVar(&c.message, "message", "", "log line message")
	fset.IntVar(&c.requests, "requests", 0, "number of requests sent by the workers")
	fset.StringVar(&c.profit, "profit", "", "realized profit")
	return "push", fset, cli.CmdFunc(c.run)
}

func (c *Push) Purpose() string {
	return "Pushes worker events into the session"
}

func (c *Push) request() (*api.IngestRequest, error) {
	req := &api.IngestRequest{
		Requests: c.requests,
	}
	if len(c.heartbeat) != 0 {
		hb := ingest.Heartbeat{WorkerID: c.heartbeat}
		if c.hasDelta {
			delta := c.rttDelta
			hb.RTTDeltaHint = &delta
		}
		req.Heartbeats = append(req.Heartbeats, hb)
	}
	if len(c.price) != 0 {
		price, err := decimal.NewFromString(c.price)
		if err != nil {
			return nil, fmt.Errorf("could not parse price %q: %w", c.price, err)
		}
		req.Ticks = append(req.Ticks, ingest.PriceTick{Price: price})
	}
	if len(c.message) != 0 {
		req.Logs = append(req.Logs, ingest.LogLine{Severity: c.severity, Message: c.message})
	}
	if len(c.profit) != 0 {
		profit, err := decimal.NewFromString(c.profit)
		if err != nil {
			return nil, fmt.Errorf("could not parse profit %q: %w", c.profit, err)
		}
		req.Profit = profit
	}
	if err := req.Check(); err != nil {
		return nil, err
	}
	return req, nil
}

func (c *Push) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	req, err := c.request()
	if err != nil {
		return err
	}
	resp, err := cmdutil.Post[api.IngestResponse](ctx, &c.ClientFlags, api.IngestPath, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "accepted %d events\n", resp.Accepted)
	return nil
}
