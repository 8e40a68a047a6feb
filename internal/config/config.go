// Package config provides configuration types and loading for warden.
package config

import (
	"fmt"
	"time"

	"github.com/AgentWarden/AgentWarden/internal/graduation"
	"github.com/AgentWarden/AgentWarden/internal/maturity"
)

// Config is the root configuration struct.
// Top-level groups: Paths, Cache, Policy, Graduation, Approval, Audit, Metrics.
type Config struct {
	Paths      PathsConfig      `json:"paths"`
	Cache      CacheConfig      `json:"cache"`
	Policy     PolicyConfig     `json:"policy"`
	Graduation GraduationConfig `json:"graduation"`
	Approval   ApprovalConfig   `json:"approval"`
	Audit      AuditConfig      `json:"audit"`
	Metrics    MetricsConfig    `json:"metrics"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
	DBPath  string `json:"dbPath" envconfig:"DB_PATH"`
}

// CacheConfig groups decision cache settings.
type CacheConfig struct {
	TTLSeconds         int `json:"ttlSeconds" envconfig:"TTL_SECONDS"`
	MaxSize            int `json:"maxSize" envconfig:"MAX_SIZE"`
	SweepIntervalSecs  int `json:"sweepIntervalSeconds" envconfig:"SWEEP_INTERVAL_SECONDS"`
	CheckTimeoutMillis int `json:"checkTimeoutMillis" envconfig:"CHECK_TIMEOUT_MILLIS"`
}

// PolicyConfig is the externally supplied action policy table.
type PolicyConfig struct {
	// MaxComplexity maps maturity level to the highest complexity allowed.
	MaxComplexity map[string]int `json:"maxComplexity"`
	// ApprovalRequired lists levels whose high-complexity actions need a
	// human sign-off.
	ApprovalRequired []string `json:"approvalRequired"`
	// Actions is the set of action kinds the authorizer accepts.
	Actions []string `json:"actions"`
}

// GraduationConfig groups the threshold table and the evaluation tick.
type GraduationConfig struct {
	TickMinutes   int                              `json:"tickMinutes" envconfig:"TICK_MINUTES"`
	WindowDays    int                              `json:"windowDays" envconfig:"WINDOW_DAYS"`
	DemotionFloor float64                          `json:"demotionFloor" envconfig:"DEMOTION_FLOOR"`
	Promotion     map[string]graduation.Thresholds `json:"promotion"`
}

// ApprovalConfig groups the human sign-off queue settings.
type ApprovalConfig struct {
	WaitTimeoutSeconds int `json:"waitTimeoutSeconds" envconfig:"WAIT_TIMEOUT_SECONDS"`
}

// AuditConfig groups the Kafka graduation event mirror. Empty brokers
// disable the mirror; the database audit trail is always written.
type AuditConfig struct {
	KafkaBrokers string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	Topic        string `json:"topic" envconfig:"TOPIC"`
}

// MetricsConfig groups the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Listen  string `json:"listen" envconfig:"LISTEN"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			TTLSeconds:         60,
			MaxSize:            1000,
			SweepIntervalSecs:  30,
			CheckTimeoutMillis: 200,
		},
		Policy: PolicyConfig{
			MaxComplexity: map[string]int{
				string(maturity.Student):    int(maturity.ComplexityLow),
				string(maturity.Intern):     int(maturity.ComplexityModerate),
				string(maturity.Supervised): int(maturity.ComplexityHigh),
				string(maturity.Autonomous): int(maturity.ComplexityHigh),
			},
			ApprovalRequired: []string{string(maturity.Supervised)},
			Actions: []string{
				"send_message",
				"read_resource",
				"write_resource",
				"execute_skill",
				"deploy_service",
			},
		},
		Graduation: GraduationConfig{
			TickMinutes:   5,
			WindowDays:    30,
			DemotionFloor: 0.70,
			Promotion: map[string]graduation.Thresholds{
				string(maturity.Intern):     {MinEpisodes: 10, MinConstitutional: 0.70, MinReadiness: 0.70},
				string(maturity.Supervised): {MinEpisodes: 25, MinConstitutional: 0.80, MinReadiness: 0.80},
				string(maturity.Autonomous): {MinEpisodes: 50, MinConstitutional: 0.90, MinReadiness: 0.90},
			},
		},
		Approval: ApprovalConfig{
			WaitTimeoutSeconds: 300,
		},
		Audit: AuditConfig{
			Topic: "warden.graduation",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9464",
		},
	}
}

// PolicyTable converts the config group into the runtime policy table.
func (c *Config) PolicyTable() (maturity.PolicyTable, error) {
	t := maturity.PolicyTable{
		MaxComplexity:    make(map[maturity.Level]maturity.Complexity),
		ApprovalRequired: make(map[maturity.Level]bool),
	}
	for levelName, max := range c.Policy.MaxComplexity {
		level, err := maturity.ParseLevel(levelName)
		if err != nil {
			return maturity.PolicyTable{}, fmt.Errorf("policy.maxComplexity: %w", err)
		}
		cx := maturity.Complexity(max)
		if !cx.Valid() {
			return maturity.PolicyTable{}, fmt.Errorf("policy.maxComplexity[%s]: invalid complexity %d", levelName, max)
		}
		t.MaxComplexity[level] = cx
	}
	for _, levelName := range c.Policy.ApprovalRequired {
		level, err := maturity.ParseLevel(levelName)
		if err != nil {
			return maturity.PolicyTable{}, fmt.Errorf("policy.approvalRequired: %w", err)
		}
		t.ApprovalRequired[level] = true
	}
	return t, nil
}

// GraduationEngineConfig converts the config group into the engine config.
func (c *Config) GraduationEngineConfig() (graduation.Config, error) {
	g := graduation.Config{
		WindowDays:    c.Graduation.WindowDays,
		DemotionFloor: c.Graduation.DemotionFloor,
		Promotion:     make(map[maturity.Level]graduation.Thresholds),
	}
	for levelName, th := range c.Graduation.Promotion {
		level, err := maturity.ParseLevel(levelName)
		if err != nil {
			return graduation.Config{}, fmt.Errorf("graduation.promotion: %w", err)
		}
		g.Promotion[level] = th
	}
	return g, nil
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// SweepInterval returns the cache sweep cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalSecs) * time.Second
}

// CheckTimeout returns the governance check deadline as a duration.
func (c *Config) CheckTimeout() time.Duration {
	return time.Duration(c.Cache.CheckTimeoutMillis) * time.Millisecond
}

// GraduationTick returns the periodic evaluation interval.
func (c *Config) GraduationTick() time.Duration {
	return time.Duration(c.Graduation.TickMinutes) * time.Minute
}

// ApprovalWait returns how long a gated action waits for sign-off.
func (c *Config) ApprovalWait() time.Duration {
	return time.Duration(c.Approval.WaitTimeoutSeconds) * time.Second
}
