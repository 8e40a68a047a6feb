package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AgentWarden/AgentWarden/internal/config"
	"github.com/AgentWarden/AgentWarden/internal/store"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Warden Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Warden Status")
		fmt.Printf("Version: %s\n", version)

		path, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + path + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (using defaults)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			return
		}

		if _, err := os.Stat(cfg.Paths.DBPath); err != nil {
			fmt.Println("Database: ✗ Not found (" + cfg.Paths.DBPath + ")")
			return
		}
		fmt.Println("Database: ✓ Found (" + cfg.Paths.DBPath + ")")

		s, err := store.New(cfg.Paths.DBPath)
		if err != nil {
			fmt.Printf("Database error: %v\n", err)
			return
		}
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		agents, err := s.ListAgents(ctx)
		if err != nil {
			fmt.Printf("Agent listing error: %v\n", err)
			return
		}
		fmt.Printf("Agents:   %d\n", len(agents))

		pending, err := s.PendingApprovals(ctx)
		if err == nil {
			fmt.Printf("Pending approvals: %d\n", len(pending))
		}

		if cfg.Audit.KafkaBrokers != "" {
			fmt.Println("Audit mirror: ✓ Kafka (" + cfg.Audit.KafkaBrokers + ")")
		} else {
			fmt.Println("Audit mirror: ✗ Disabled (database trail only)")
		}
	},
}
