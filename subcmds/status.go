// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bvk/fleetdeck/api"
	"github.com/bvk/fleetdeck/session"
	"github.com/bvk/fleetdeck/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.ClientFlags

	printJSON bool
	health    bool
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.printJSON, "json", false, "when true, prints the snapshot in JSON format")
	fset.BoolVar(&c.health, "health", false, "when true, also prints the daemon health")
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) Purpose() string {
	return "Prints the current session snapshot"
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	stdout := cli.Stdout(ctx)

	resp, err := cmdutil.Post[api.SnapshotResponse](ctx, &c.ClientFlags, api.SnapshotPath, &api.SnapshotRequest{})
	if err != nil {
		return err
	}
	if c.printJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.Snapshot)
	}

	if c.health {
		h, err := cmdutil.Get[api.HealthResponse](ctx, &c.ClientFlags, api.HealthPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Uptime: %s\n", h.Uptime)
		fmt.Fprintf(stdout, "RSS: %.1f MiB\n", float64(h.RSSBytes)/(1<<20))
		fmt.Fprintf(stdout, "Goroutines: %d\n", h.Goroutines)
		fmt.Fprintln(stdout)
	}

	printSnapshot(stdout, resp.Snapshot)
	return nil
}

func printSnapshot(w io.Writer, snap *session.Snapshot) {
	fmt.Fprintf(w, "Session: %s\n", snap.SessionID)
	fmt.Fprintf(w, "State: %s\n", snap.State)
	fmt.Fprintf(w, "Ticks: %d\n", snap.Ticks)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Profit: %s\n", snap.Stats.TotalProfit.StringFixed(2))
	fmt.Fprintf(w, "Requests/Minute: %d\n", snap.Stats.RequestsPerMinute)
	fmt.Fprintf(w, "Active Proxies: %d\n", snap.Stats.ActiveProxyCount)

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "ID\tStatus\tProxy\tKind\tRTT(ms)\tLastSeen\t\n")
	for _, v := range snap.Workers {
		seen := "-"
		if !v.LastSeen.IsZero() {
			seen = v.LastSeen.Format(time.TimeOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t\n", v.ID, v.Status, v.ProxyAddress, v.Kind, v.RTTMillis, seen)
	}
	tw.Flush()

	if n := len(snap.MarketSeries); n > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "Time\tPrice\t\n")
		for _, t := range snap.MarketSeries[max(0, n-5):] {
			fmt.Fprintf(tw, "%s\t%s\t\n", t.Timestamp.Format(time.TimeOnly), t.Price.StringFixed(2))
		}
		tw.Flush()
	}

	if len(snap.LogTail) > 0 {
		fmt.Fprintln(w)
		for _, e := range snap.LogTail {
			fmt.Fprintf(w, "%s %-7s %s\n", e.Timestamp.Format(time.TimeOnly), e.Severity, e.Message)
		}
	}
}
