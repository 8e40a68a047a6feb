package readiness

import (
	"fmt"
	"math"
	"testing"

	"github.com/AgentWarden/AgentWarden/internal/store"
)

func episodes(n int, constitutional float64, interventionsEach int) []store.Episode {
	eps := make([]store.Episode, n)
	for i := range eps {
		eps[i] = store.Episode{
			ID:                  fmt.Sprintf("ep-%d", i),
			AgentID:             "a",
			ConstitutionalScore: constitutional,
			InterventionCount:   interventionsEach,
		}
	}
	return eps
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestZeroEpisodes(t *testing.T) {
	b := Score(nil)
	if b.EpisodesComponent != 0 || b.ConstitutionalComp != 0 {
		t.Fatalf("empty history should contribute nothing: %+v", b)
	}
	if !almostEqual(b.InterventionComp, 0.30) {
		t.Fatalf("intervention component with no episodes should be 0.30, got %f", b.InterventionComp)
	}
	if b.Score < 0 || b.Score > 1 {
		t.Fatalf("score out of range: %f", b.Score)
	}
}

func TestEpisodeComponentSaturates(t *testing.T) {
	at10 := Score(episodes(10, 1.0, 0))
	at50 := Score(episodes(50, 1.0, 0))
	if !almostEqual(at10.EpisodesComponent, 0.40) {
		t.Fatalf("10 episodes should saturate at 0.40, got %f", at10.EpisodesComponent)
	}
	if !almostEqual(at50.EpisodesComponent, 0.40) {
		t.Fatalf("50 episodes should still be 0.40, got %f", at50.EpisodesComponent)
	}
	at5 := Score(episodes(5, 1.0, 0))
	if !almostEqual(at5.EpisodesComponent, 0.20) {
		t.Fatalf("5 episodes should give 0.20, got %f", at5.EpisodesComponent)
	}
}

func TestPromotionScenario(t *testing.T) {
	// 15 episodes: 10 clean at 1.0, 5 at 1.0 with one intervention each.
	eps := append(episodes(10, 1.0, 0), episodes(5, 1.0, 1)...)
	b := Score(eps)

	if !almostEqual(b.EpisodesComponent, 0.40) {
		t.Fatalf("episodes component: %f", b.EpisodesComponent)
	}
	want := (1 - 5.0/15.0) * 0.30
	if !almostEqual(b.InterventionComp, want) {
		t.Fatalf("intervention component: got %f want %f", b.InterventionComp, want)
	}
	if !almostEqual(b.ConstitutionalComp, 0.30) {
		t.Fatalf("constitutional component: %f", b.ConstitutionalComp)
	}
	if math.Abs(b.Score-0.90) > 1e-9 {
		t.Fatalf("expected readiness 0.90, got %f", b.Score)
	}
}

func TestSkillDiversityBonusCapped(t *testing.T) {
	eps := episodes(10, 1.0, 0)
	for i := range eps {
		eps[i].SkillID = fmt.Sprintf("skill-%d", i%3)
	}
	b := Score(eps)
	if !almostEqual(b.SkillDiversityBonus, 0.015) {
		t.Fatalf("3 skills should give 0.015, got %f", b.SkillDiversityBonus)
	}

	for i := range eps {
		eps[i].SkillID = fmt.Sprintf("skill-%d", i+100)
	}
	eps = append(eps, episodes(10, 1.0, 0)...)
	for i := 10; i < 20; i++ {
		eps[i].SkillID = fmt.Sprintf("extra-%d", i)
	}
	b = Score(eps)
	if !almostEqual(b.SkillDiversityBonus, 0.05) {
		t.Fatalf("bonus should cap at 0.05, got %f", b.SkillDiversityBonus)
	}
}

func TestScoreClampedToOne(t *testing.T) {
	eps := episodes(20, 1.0, 0)
	for i := range eps {
		eps[i].SkillID = fmt.Sprintf("skill-%d", i)
	}
	b := Score(eps)
	if b.Score > 1 {
		t.Fatalf("score must not exceed 1, got %f", b.Score)
	}
}

func TestHeavyInterventionsClampAtZero(t *testing.T) {
	b := Score(episodes(2, 0.0, 5))
	if b.Score < 0 {
		t.Fatalf("score must not go negative, got %f", b.Score)
	}
}

func TestMonotonicInConstitutionalAverage(t *testing.T) {
	prev := -1.0
	for _, avg := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		b := Score(episodes(10, avg, 0))
		if b.Score < prev {
			t.Fatalf("score decreased as constitutional average rose: %f < %f", b.Score, prev)
		}
		prev = b.Score
	}
}

func TestMonotonicInEpisodeCount(t *testing.T) {
	prev := -1.0
	for n := 0; n <= 12; n++ {
		b := Score(episodes(n, 0.8, 0))
		if b.Score < prev {
			t.Fatalf("score decreased as episode count rose at n=%d: %f < %f", n, b.Score, prev)
		}
		prev = b.Score
	}
}

func TestDeterministic(t *testing.T) {
	eps := append(episodes(7, 0.85, 1), episodes(3, 0.6, 0)...)
	first := Score(eps)
	second := Score(eps)
	if first != second {
		t.Fatalf("identical inputs must yield identical output: %+v vs %+v", first, second)
	}
}
