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

type SetStatus struct {
	cmdutil.ClientFlags
}

func (c *SetStatus) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("set-status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "set-status", fset, cli.CmdFunc(c.run)
}

func (c *SetStatus) Purpose() string {
	return "Changes the status of a worker (IDLE, ACTIVE, COOLDOWN or BANNED)"
}

func (c *SetStatus) run(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("this command takes two (worker-id, status) arguments")
	}
	req := &api.SetStatusRequest{
		WorkerID: args[0],
		Status:   args[1],
	}
	if err := req.Check(); err != nil {
		return err
	}
	resp, err := cmdutil.Post[api.SetStatusResponse](ctx, &c.ClientFlags, api.SetStatusPath, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.Stdout(ctx), resp.Worker.String())
	return nil
}
