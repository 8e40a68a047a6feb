// Package readiness computes an agent's graduation-readiness score from
// episode history. The computation is a pure function of its input: no
// clocks, no stores, no hidden state, so it is safe to recompute on demand
// or on a schedule.
package readiness

import "github.com/AgentWarden/AgentWarden/internal/store"

// Component weights. Episode volume, intervention rate, and constitutional
// compliance split the base score; skill diversity is a small additive bonus.
const (
	episodeWeight        = 0.40
	interventionWeight   = 0.30
	constitutionalWeight = 0.30

	episodeSaturation = 10 // episodes beyond this add nothing

	skillBonusPerSkill = 0.005
	skillBonusCap      = 0.05
)

// Breakdown is a readiness score with its per-component contributions.
type Breakdown struct {
	Score               float64 `json:"score"`
	EpisodesComponent   float64 `json:"episodes_component"`
	InterventionComp    float64 `json:"intervention_component"`
	ConstitutionalComp  float64 `json:"constitutional_component"`
	SkillDiversityBonus float64 `json:"skill_diversity_bonus"`

	EpisodeCount       int     `json:"episode_count"`
	AvgConstitutional  float64 `json:"avg_constitutional"`
	TotalInterventions int     `json:"total_interventions"`
	UniqueSkills       int     `json:"unique_skills"`
}

// Score computes the readiness breakdown for a set of episodes.
// With zero episodes every component is 0 except the intervention
// component, which treats an empty history as intervention-free; absence
// of history is never rewarded on the constitutional axis.
func Score(episodes []store.Episode) Breakdown {
	b := Breakdown{EpisodeCount: len(episodes)}

	skills := map[string]struct{}{}
	var scoreSum float64
	for _, e := range episodes {
		b.TotalInterventions += e.InterventionCount
		scoreSum += e.ConstitutionalScore
		if e.SkillID != "" {
			skills[e.SkillID] = struct{}{}
		}
	}
	b.UniqueSkills = len(skills)

	volume := float64(b.EpisodeCount) / episodeSaturation
	if volume > 1 {
		volume = 1
	}
	b.EpisodesComponent = volume * episodeWeight

	// The rate can exceed 1 when episodes carry multiple interventions;
	// the component then goes negative and the final clamp absorbs it.
	interventionRate := 0.0
	if b.EpisodeCount > 0 {
		interventionRate = float64(b.TotalInterventions) / float64(b.EpisodeCount)
	}
	b.InterventionComp = (1 - interventionRate) * interventionWeight

	if b.EpisodeCount > 0 {
		b.AvgConstitutional = scoreSum / float64(b.EpisodeCount)
	}
	b.ConstitutionalComp = b.AvgConstitutional * constitutionalWeight

	b.SkillDiversityBonus = float64(b.UniqueSkills) * skillBonusPerSkill
	if b.SkillDiversityBonus > skillBonusCap {
		b.SkillDiversityBonus = skillBonusCap
	}

	b.Score = clamp01(b.EpisodesComponent + b.InterventionComp + b.ConstitutionalComp + b.SkillDiversityBonus)
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
