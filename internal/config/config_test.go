package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AgentWarden/AgentWarden/internal/maturity"
)

func TestDefaultPolicyTableConversion(t *testing.T) {
	cfg := DefaultConfig()
	tbl, err := cfg.PolicyTable()
	if err != nil {
		t.Fatalf("policy table: %v", err)
	}
	if tbl.MaxComplexity[maturity.Student] != maturity.ComplexityLow {
		t.Fatalf("student max complexity: %d", tbl.MaxComplexity[maturity.Student])
	}
	if !tbl.ApprovalRequired[maturity.Supervised] {
		t.Fatal("supervised should require approval")
	}
	if tbl.ApprovalRequired[maturity.Autonomous] {
		t.Fatal("autonomous should not require approval")
	}
}

func TestPolicyTableRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MaxComplexity["wizard"] = 2
	if _, err := cfg.PolicyTable(); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestPolicyTableRejectsBadComplexity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MaxComplexity[string(maturity.Intern)] = 9
	if _, err := cfg.PolicyTable(); err == nil {
		t.Fatal("expected error for out-of-range complexity")
	}
}

func TestGraduationEngineConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	g, err := cfg.GraduationEngineConfig()
	if err != nil {
		t.Fatalf("graduation config: %v", err)
	}
	th, ok := g.Promotion[maturity.Intern]
	if !ok || th.MinEpisodes != 10 || th.MinReadiness != 0.70 {
		t.Fatalf("unexpected intern thresholds: %+v", th)
	}
	if g.DemotionFloor != 0.70 {
		t.Fatalf("demotion floor: %f", g.DemotionFloor)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"cache": {"ttlSeconds": 120}, "metrics": {"enabled": false}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WARDEN_CONFIG", path)
	t.Setenv("WARDEN_CACHE_MAX_SIZE", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.TTLSeconds != 120 {
		t.Fatalf("file value not applied: %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Cache.MaxSize != 50 {
		t.Fatalf("env override not applied: %d", cfg.Cache.MaxSize)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("metrics should be disabled by file")
	}
	if cfg.Cache.SweepIntervalSecs != 30 {
		t.Fatalf("untouched defaults should survive: %d", cfg.Cache.SweepIntervalSecs)
	}
	if cfg.Paths.DBPath == "" {
		t.Fatal("db path default should be filled in")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("WARDEN_CONFIG", filepath.Join(t.TempDir(), "absent.json"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.TTLSeconds != 60 || cfg.Cache.MaxSize != 1000 {
		t.Fatalf("unexpected defaults: %+v", cfg.Cache)
	}
}
