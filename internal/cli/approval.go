package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AgentWarden/AgentWarden/internal/approval"
)

var approvalCmd = &cobra.Command{
	Use:   "approval",
	Short: "Review pending approval requests",
}

var approvalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending approval requests",
	Run: func(cmd *cobra.Command, args []string) {
		_, s := openStore()
		defer s.Close()

		pending, err := s.PendingApprovals(context.Background())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(pending) == 0 {
			fmt.Println("No pending approvals.")
			return
		}
		fmt.Printf("%-18s %-38s %-16s %-4s %s\n", "APPROVAL", "AGENT", "ACTION", "CPLX", "AGE")
		for _, r := range pending {
			fmt.Printf("%-18s %-38s %-16s %-4d %s\n",
				r.ApprovalID, r.AgentID, r.ActionType, r.Complexity,
				time.Since(r.CreatedAt).Round(time.Second))
		}
	},
}

var approvalResolveCmd = &cobra.Command{
	Use:   "resolve <approval-id> <approve|deny>",
	Short: "Resolve a pending approval request",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var status string
		switch args[1] {
		case "approve":
			status = approval.StatusApproved
		case "deny":
			status = approval.StatusDenied
		default:
			fmt.Println("Error: decision must be approve or deny")
			os.Exit(1)
		}

		_, s := openStore()
		defer s.Close()

		// Resolution lands in the store, the shared record between this
		// process and a running daemon. Unknown IDs are reported.
		if err := s.UpdateApprovalStatus(context.Background(), args[0], status); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Approval %s marked %s\n", args[0], status)
	},
}

func init() {
	approvalCmd.AddCommand(approvalListCmd, approvalResolveCmd)
}
