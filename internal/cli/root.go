// Package cli implements the warden command tree.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/AgentWarden/AgentWarden/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		" __        __            _\n" +
		" \\ \\      / /_ _ _ __ __| | ___ _ __\n" +
		"  \\ \\ /\\ / / _` | '__/ _` |/ _ \\ '_ \\\n" +
		"   \\ V  V / (_| | | | (_| |  __/ | | |\n" +
		"    \\_/\\_/ \\__,_|_|  \\__,_|\\___|_| |_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - maturity-based action gating for autonomous agents",
	Long:  color.CyanString(logo) + "\nWarden decides which actions an autonomous agent may perform,\npromotes agents that earn trust, and demotes those that lose it.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(episodeCmd)
	rootCmd.AddCommand(approvalCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}
