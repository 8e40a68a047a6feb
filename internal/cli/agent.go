package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AgentWarden/AgentWarden/internal/config"
	"github.com/AgentWarden/AgentWarden/internal/graduation"
	"github.com/AgentWarden/AgentWarden/internal/maturity"
	"github.com/AgentWarden/AgentWarden/internal/permcache"
	"github.com/AgentWarden/AgentWarden/internal/resolver"
	"github.com/AgentWarden/AgentWarden/internal/store"
)

var (
	agentWorkspaceID string
	agentName        string
	agentCategory    string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Inspect and manage governed agents",
}

func init() {
	agentCmd.PersistentFlags().StringVarP(&agentWorkspaceID, "workspace", "w", "default", "Workspace ID")
	agentRegisterCmd.Flags().StringVarP(&agentName, "name", "n", "", "Agent name")
	agentRegisterCmd.Flags().StringVarP(&agentCategory, "category", "c", "custom", "Agent category")
	agentCmd.AddCommand(agentListCmd, agentShowCmd, agentRegisterCmd, agentEvaluateCmd, agentSetSessionCmd, agentSetWorkspaceDefaultCmd)
}

// loadRuntime loads configuration and opens the database. A malformed
// config file is an error, never a silent fallback.
func loadRuntime() (*config.Config, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	s, err := store.New(cfg.Paths.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, s, nil
}

// openStore is loadRuntime for commands that exit on failure.
func openStore() (*config.Config, *store.Store) {
	cfg, s, err := loadRuntime()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return cfg, s
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	Run: func(cmd *cobra.Command, args []string) {
		_, s := openStore()
		defer s.Close()

		agents, err := s.ListAgents(context.Background())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(agents) == 0 {
			fmt.Println("No agents registered.")
			return
		}
		fmt.Printf("%-38s %-12s %-20s %-12s %s\n", "ID", "MATURITY", "NAME", "CATEGORY", "CONFIDENCE")
		for _, a := range agents {
			fmt.Printf("%-38s %-12s %-20s %-12s %.2f\n", a.ID, a.Maturity, a.Name, a.Category, a.Confidence)
		}
	},
}

var agentShowCmd = &cobra.Command{
	Use:   "show <agent-id>",
	Short: "Show one agent with its graduation history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := openStore()
		defer s.Close()

		ctx := context.Background()
		a, err := s.GetAgent(ctx, args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		printHeader("🤖 " + a.Name)
		fmt.Printf("ID:         %s\n", a.ID)
		fmt.Printf("Workspace:  %s\n", a.WorkspaceID)
		fmt.Printf("Category:   %s\n", a.Category)
		fmt.Printf("Maturity:   %s\n", color.CyanString(string(a.Maturity)))
		fmt.Printf("Confidence: %.2f\n", a.Confidence)
		fmt.Printf("Created:    %s\n", a.CreatedAt.Format(time.RFC3339))

		events, err := s.GraduationEvents(ctx, a.ID)
		if err != nil || len(events) == 0 {
			return
		}
		fmt.Println("\nGraduation history:")
		for _, ev := range events {
			fmt.Printf("  %s  %s → %s (score %.2f) %s\n",
				ev.Timestamp.Format("2006-01-02 15:04"), ev.FromState, ev.ToState, ev.Score, ev.Rationale)
		}
	},
}

var agentRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new agent (starts as student)",
	Run: func(cmd *cobra.Command, args []string) {
		if agentName == "" {
			fmt.Println("Error: --name is required")
			os.Exit(1)
		}
		_, s := openStore()
		defer s.Close()

		now := time.Now().UTC()
		a := store.Agent{
			ID:          uuid.NewString(),
			WorkspaceID: agentWorkspaceID,
			Name:        agentName,
			Category:    agentCategory,
			Maturity:    maturity.Student,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.UpsertAgent(context.Background(), a); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registered agent %s (%s)\n", a.ID, a.Name)
	},
}

var agentEvaluateCmd = &cobra.Command{
	Use:   "evaluate <agent-id>",
	Short: "Run a graduation evaluation for one agent now",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s := openStore()
		defer s.Close()

		engineCfg, err := cfg.GraduationEngineConfig()
		if err != nil {
			fmt.Printf("Graduation config error: %v\n", err)
			os.Exit(1)
		}
		cache := permcache.New()
		engine := graduation.New(engineCfg, s, cache, nil)

		result, err := engine.Evaluate(context.Background(), args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		printHeader("📊 Evaluation")
		fmt.Printf("Action:    %s\n", result.Action)
		fmt.Printf("State:     %s → %s\n", result.FromState, result.ToState)
		fmt.Printf("Score:     %.3f\n", result.Score)
		fmt.Printf("Rationale: %s\n", result.Rationale)
		b := result.Breakdown
		fmt.Printf("Episodes:  %d (avg constitutional %.2f, interventions %d, skills %d)\n",
			b.EpisodeCount, b.AvgConstitutional, b.TotalInterventions, b.UniqueSkills)
	},
}

var agentSetSessionCmd = &cobra.Command{
	Use:   "set-session <session-id> <agent-id>",
	Short: "Pin a session to an agent",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := openStore()
		defer s.Close()

		res := resolver.New(s, s, s)
		if err := res.SetSessionAgent(context.Background(), args[0], args[1]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Session %s pinned to agent %s\n", args[0], args[1])
	},
}

var agentSetWorkspaceDefaultCmd = &cobra.Command{
	Use:   "set-workspace-default <agent-id>",
	Short: "Set the workspace default agent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := openStore()
		defer s.Close()

		res := resolver.New(s, s, s)
		if err := res.SetWorkspaceDefaultAgent(context.Background(), agentWorkspaceID, args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workspace %s default agent set to %s\n", agentWorkspaceID, args[0])
	},
}
