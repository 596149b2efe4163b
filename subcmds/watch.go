// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/bvk/fleetdeck/api"
	"github.com/bvk/fleetdeck/session"
	"github.com/bvk/fleetdeck/subcmds/cmdutil"
	"github.com/gorilla/websocket"
	"github.com/visvasity/cli"
)

type Watch struct {
	cmdutil.ClientFlags

	full bool
}

func (c *Watch) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("watch", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.full, "full", false, "when true, prints the full snapshot instead of one line")
	return "watch", fset, cli.CmdFunc(c.run)
}

func (c *Watch) Purpose() string {
	return "Prints session snapshots as they are published"
}

func (c *Watch) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	u := c.ClientFlags.WebsocketURL(api.StreamPath)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", u, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	stdout := cli.Stdout(ctx)
	for {
		snap := new(session.Snapshot)
		if err := conn.ReadJSON(snap); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("could not read snapshot: %w", err)
		}
		if c.full {
			printSnapshot(stdout, snap)
			fmt.Fprintln(stdout)
			continue
		}
		fmt.Fprintln(stdout, summary(snap))
	}
}

func summary(snap *session.Snapshot) string {
	price := "-"
	if n := len(snap.MarketSeries); n > 0 {
		price = snap.MarketSeries[n-1].Price.StringFixed(2)
	}
	last := ""
	if n := len(snap.LogTail); n > 0 {
		e := snap.LogTail[n-1]
		last = fmt.Sprintf(" [%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("%s tick=%d state=%s profit=%s rpm=%d active=%d price=%s%s",
		snap.TakenAt.Format("15:04:05.000"), snap.Ticks, snap.State,
		snap.Stats.TotalProfit.StringFixed(2), snap.Stats.RequestsPerMinute,
		snap.Stats.ActiveProxyCount, price, last)
}
