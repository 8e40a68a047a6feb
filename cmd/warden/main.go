// Package main is the entry point for the warden CLI.
package main

import (
	"os"

	"github.com/AgentWarden/AgentWarden/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
