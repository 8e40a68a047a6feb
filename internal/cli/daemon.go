package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AgentWarden/AgentWarden/internal/approval"
	"github.com/AgentWarden/AgentWarden/internal/audit"
	"github.com/AgentWarden/AgentWarden/internal/authorizer"
	"github.com/AgentWarden/AgentWarden/internal/config"
	"github.com/AgentWarden/AgentWarden/internal/graduation"
	"github.com/AgentWarden/AgentWarden/internal/metrics"
	"github.com/AgentWarden/AgentWarden/internal/permcache"
	"github.com/AgentWarden/AgentWarden/internal/resolver"
	"github.com/AgentWarden/AgentWarden/internal/store"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the governance daemon",
}

var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the daemon (graduation loop, metrics, admin endpoint)",
	Run:   runDaemon,
}

var daemonSignalNotify = signal.Notify
var daemonSignalStop = signal.Stop

func init() {
	daemonCmd.AddCommand(daemonRunCmd)
}

func runDaemon(cmd *cobra.Command, args []string) {
	printHeader("🛡️ Warden Daemon")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	policy, err := cfg.PolicyTable()
	if err != nil {
		fmt.Printf("Policy error: %v\n", err)
		os.Exit(1)
	}
	engineCfg, err := cfg.GraduationEngineConfig()
	if err != nil {
		fmt.Printf("Graduation config error: %v\n", err)
		os.Exit(1)
	}

	// 2. Open the store
	s, err := store.New(cfg.Paths.DBPath)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	// 3. Decision cache with background sweeper
	cache := permcache.New(
		permcache.WithTTL(cfg.CacheTTL()),
		permcache.WithMaxSize(cfg.Cache.MaxSize),
		permcache.WithSweepInterval(cfg.SweepInterval()),
	)
	cache.Start()
	defer cache.Stop()

	// 4. Resolver, approvals, audit mirror
	res := resolver.New(s, s, s)
	queue := approval.New(s)

	var mirror graduation.EventMirror
	var kafkaMirror *audit.KafkaMirror
	if cfg.Audit.KafkaBrokers != "" {
		kafkaMirror = audit.NewKafkaMirror(cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		mirror = kafkaMirror
		defer kafkaMirror.Close()
		slog.Info("audit mirror enabled", "brokers", cfg.Audit.KafkaBrokers, "topic", cfg.Audit.Topic)
	}

	// 5. Graduation engine and metrics
	engine := graduation.New(engineCfg, s, cache, mirror)
	mets := metrics.New(cache)

	// 6. Authorization facade with the configured action registry
	auth := authorizer.New(res, cache, policy,
		authorizer.WithApprovals(queue),
		authorizer.WithLatencyObserver(mets.LookupLatency()),
		authorizer.WithCheckTimeout(cfg.CheckTimeout()),
	)
	for _, action := range cfg.Policy.Actions {
		if err := auth.RegisterDefault(action); err != nil {
			fmt.Printf("Action registry error: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	daemonSignalNotify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer daemonSignalStop(sigChan)

	// 7. Graduation loop
	go func() {
		ticker := time.NewTicker(cfg.GraduationTick())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				results := engine.EvaluateAll(ctx)
				for _, r := range results {
					if r.Action == graduation.Hold {
						continue
					}
					mets.RecordTransition(string(r.Action), string(r.ToState))
					slog.Info("graduation transition",
						"agent_id", r.AgentID,
						"action", r.Action,
						"from", r.FromState,
						"to", r.ToState,
						"score", r.Score)
				}
			}
		}
	}()

	// 8. Metrics and admin endpoint
	var srv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", mets.Handler())
		mux.HandleFunc("/check", checkHandler(auth, mets))
		srv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		fmt.Printf("Metrics listening on %s\n", cfg.Metrics.Listen)
	}

	fmt.Println("Daemon running. Press Ctrl+C to stop.")
	<-sigChan

	fmt.Println("Shutting down...")
	if srv != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(stopCtx)
		stopCancel()
	}
}

// checkHandler serves one-off authorization checks for operators. It is
// not a production ingress; transports integrate the facade directly.
func checkHandler(auth *authorizer.Authorizer, mets *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req authorizer.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		result := auth.Authorize(r.Context(), req)
		mets.RecordDecision(string(result.Outcome))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}
