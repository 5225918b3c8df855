// Package main provides the qmsflow command: the HTTP API, the event worker
// and rule definition tooling.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:                  "qmsflow",
		Usage:                 "Automation rules and workflows for quality management modules",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewAPICommand(),
			NewWorkerCommand(),
			NewRulesCommand(),
		},
	}
}

func main() {
	err := newRootCommand().Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
