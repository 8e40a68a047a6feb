package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AgentWarden/AgentWarden/internal/store"
)

var (
	episodeAgentID       string
	episodeScore         float64
	episodeInterventions int
	episodeIntervTypes   string
	episodeSkillID       string
)

var episodeCmd = &cobra.Command{
	Use:   "episode",
	Short: "Record agent activity episodes",
}

var episodeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append one episode for an agent",
	Run:   runEpisodeAdd,
}

func init() {
	episodeAddCmd.Flags().StringVarP(&episodeAgentID, "agent", "a", "", "Agent ID")
	episodeAddCmd.Flags().Float64VarP(&episodeScore, "score", "s", 1.0, "Constitutional score in [0,1]")
	episodeAddCmd.Flags().IntVarP(&episodeInterventions, "interventions", "i", 0, "Number of human interventions")
	episodeAddCmd.Flags().StringVar(&episodeIntervTypes, "intervention-types", "", "Comma-separated intervention types")
	episodeAddCmd.Flags().StringVar(&episodeSkillID, "skill", "", "Skill ID exercised (optional)")
	episodeCmd.AddCommand(episodeAddCmd)
}

func runEpisodeAdd(cmd *cobra.Command, args []string) {
	if episodeAgentID == "" {
		fmt.Println("Error: --agent is required")
		os.Exit(1)
	}
	if episodeScore < 0 || episodeScore > 1 {
		fmt.Println("Error: --score must be in [0,1]")
		os.Exit(1)
	}

	_, s := openStore()
	defer s.Close()

	ctx := context.Background()
	if _, err := s.GetAgent(ctx, episodeAgentID); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var types []string
	if episodeIntervTypes != "" {
		types = strings.Split(episodeIntervTypes, ",")
	}

	e := store.Episode{
		ID:                  uuid.NewString(),
		AgentID:             episodeAgentID,
		ConstitutionalScore: episodeScore,
		InterventionCount:   episodeInterventions,
		InterventionTypes:   types,
		SkillID:             episodeSkillID,
		OccurredAt:          time.Now().UTC(),
	}
	if err := s.AppendEpisode(ctx, e); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Episode %s recorded for agent %s\n", e.ID, e.AgentID)
}
