// Package main is the entry point for the fleetsync engine.
//
// fleetsync keeps a persisted inventory of running compute instances in
// step with what each infrastructure provider actually reports: EC2
// hosts, autoscaling groups, CodeDeploy fleets, Kubernetes pods, ECS
// tasks and platform application instances.
//
// For detailed usage information, run:
//
//	fleetsync --help
package main

import (
	"fmt"
	"os"

	"github.com/fleetsync/fleetsync/cmd/fleetsync/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
