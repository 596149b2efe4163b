// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/fleetdeck/api"
	"github.com/bvk/fleetdeck/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Start struct {
	cmdutil.ClientFlags
}

func (c *Start) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("start", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "start", fset, cli.CmdFunc(c.run)
}

func (c *Start) Purpose() string {
	return "Starts the session clock"
}

func (c *Start) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	resp, err := cmdutil.Post[api.SessionStartResponse](ctx, &c.ClientFlags, api.SessionStartPath, &api.SessionStartRequest{})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "session %s is %s\n", resp.SessionID, resp.State)
	return nil
}

type Stop struct {
	cmdutil.ClientFlags
}

func (c *Stop) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("stop", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "stop", fset, cli.CmdFunc(c.run)
}

func (c *Stop) Purpose() string {
	return "Stops the session clock"
}

func (c *Stop) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	resp, err := cmdutil.Post[api.SessionStopResponse](ctx, &c.ClientFlags, api.SessionStopPath, &api.SessionStopRequest{})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "session %s is %s\n", resp.SessionID, resp.State)
	return nil
}
