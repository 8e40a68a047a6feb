package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AgentWarden/AgentWarden/internal/authorizer"
	"github.com/AgentWarden/AgentWarden/internal/maturity"
	"github.com/AgentWarden/AgentWarden/internal/permcache"
	"github.com/AgentWarden/AgentWarden/internal/resolver"
)

var (
	checkAgentID     string
	checkSessionID   string
	checkWorkspaceID string
	checkUserID      string
	checkAction      string
	checkComplexity  int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a one-off authorization check",
	Run:   runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkAgentID, "agent", "a", "", "Explicit agent ID (optional)")
	checkCmd.Flags().StringVarP(&checkSessionID, "session", "s", "", "Session ID (optional)")
	checkCmd.Flags().StringVarP(&checkWorkspaceID, "workspace", "w", "default", "Workspace ID")
	checkCmd.Flags().StringVarP(&checkUserID, "user", "u", "cli", "Requesting user ID")
	checkCmd.Flags().StringVarP(&checkAction, "action", "t", "", "Action type to authorize")
	checkCmd.Flags().IntVarP(&checkComplexity, "complexity", "c", 1, "Action complexity (1=low 2=moderate 3=high)")
}

func runCheck(cmd *cobra.Command, args []string) {
	if checkAction == "" {
		fmt.Println("Error: --action is required")
		os.Exit(1)
	}

	printHeader("🛡️ Warden Check")

	cfg, s := openStore()
	defer s.Close()

	policy, err := cfg.PolicyTable()
	if err != nil {
		fmt.Printf("Policy error: %v\n", err)
		os.Exit(1)
	}

	cache := permcache.New(permcache.WithTTL(cfg.CacheTTL()), permcache.WithMaxSize(cfg.Cache.MaxSize))
	auth := authorizer.New(resolver.New(s, s, s), cache, policy,
		authorizer.WithCheckTimeout(cfg.CheckTimeout()))
	for _, action := range cfg.Policy.Actions {
		if err := auth.RegisterDefault(action); err != nil {
			fmt.Printf("Action registry error: %v\n", err)
			os.Exit(1)
		}
	}

	result := auth.Authorize(context.Background(), authorizer.Request{
		UserID:      checkUserID,
		WorkspaceID: checkWorkspaceID,
		SessionID:   checkSessionID,
		AgentID:     checkAgentID,
		ActionType:  checkAction,
		Complexity:  maturity.Complexity(checkComplexity),
		Requester:   checkUserID,
	})

	switch result.Outcome {
	case authorizer.OutcomeAllowed:
		fmt.Println(color.GreenString("ALLOWED"))
	case authorizer.OutcomeDenied:
		fmt.Println(color.RedString("DENIED"))
	default:
		fmt.Println(color.YellowString("UNAVAILABLE"))
	}
	fmt.Printf("Reason:  %s\n", result.Reason)
	if result.AgentID != "" {
		fmt.Printf("Agent:   %s (%s)\n", result.AgentID, result.Level)
	}
	if result.NeedsApproval {
		fmt.Println("Approval required before the action may run.")
	}
	if len(result.Trace) > 0 {
		fmt.Printf("Trace:   %v\n", result.Trace)
	}
}
