// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/fleetdeck/envfile"
	"github.com/bvk/fleetdeck/subcmds"
	"github.com/visvasity/cli"
)

func main() {
	// Variables from ~/.fleetdeck.env are visible as FLEETDECK_<NAME>.
	if err := envfile.UpdateEnv(".fleetdeck.env", envfile.VariableNamePrefix("FLEETDECK_")); err != nil {
		log.Printf("could not load the env file (ignored): %v", err)
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		new(subcmds.Start),
		new(subcmds.Stop),
		new(subcmds.SetStatus),
		new(subcmds.Push),
		new(subcmds.Watch),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
