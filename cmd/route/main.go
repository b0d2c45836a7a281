// Command route exercises the trust-and-control core end to end: it
// validates a routing config, builds a TieredRouter wired to a cost
// tracker and rate limiter, routes one request, checks a plugin
// manifest against the sandbox, and lists the available skills.
//
// Usage:
//
//	go run ./cmd/route/ -sender alice -tier user -complexity 0.6 -tokens 2000
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/weave-logic-ai/clawft-core/pkg/budget"
	"github.com/weave-logic-ai/clawft-core/pkg/prompt"
	"github.com/weave-logic-ai/clawft-core/pkg/ratelimit"
	"github.com/weave-logic-ai/clawft-core/pkg/routing"
	"github.com/weave-logic-ai/clawft-core/pkg/sandbox"
	"github.com/weave-logic-ai/clawft-core/pkg/types"
)

func main() {
	sender := flag.String("sender", "cli", "sender ID for budget/rate-limit tracking")
	tier := flag.String("tier", "admin", "permission level: zero_trust, user, or admin")
	complexity := flag.Float64("complexity", 0.4, "task complexity score in [0,1]")
	tokens := flag.Int("tokens", 1000, "estimated tokens for the request")
	persistPath := flag.String("persist", "", "path to persist cost snapshots (empty disables persistence)")
	flag.Parse()

	cfg := routing.RoutingConfig{
		Mode:              "tiered",
		Tiers:             routing.DefaultTiers(),
		SelectionStrategy: routing.PreferenceOrder,
		FallbackModel:     "anthropic/claude-3-haiku",
		Escalation: routing.EscalationConfigRaw{
			Enabled:            true,
			Threshold:          0.8,
			MaxEscalationTiers: 1,
		},
		CostBudgets: routing.CostBudgetsConfig{
			GlobalDailyLimitUSD:   50,
			GlobalMonthlyLimitUSD: 1000,
			ResetHourUTC:          0,
		},
		RateLimiting: routing.RateLimitingConfig{
			WindowSeconds: 60,
			Strategy:      "sliding_window",
		},
	}

	if errs := routing.Validate(cfg); len(errs) > 0 {
		fatal := false
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.String())
			if e.Severity == routing.SeverityError {
				fatal = true
			}
		}
		if fatal {
			os.Exit(1)
		}
	}

	tracker := budget.New(cfg.CostBudgets.ResetHourUTC)
	if *persistPath != "" {
		tracker = tracker.WithPersistence(*persistPath)
		if err := tracker.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not load cost snapshot: %v\n", err)
		}
	}

	limiter := ratelimit.New(cfg.RateLimiting.WindowSeconds, 0)

	router := routing.NewTieredRouter(routing.Config{
		Tiers:             cfg.Tiers,
		SelectionStrategy: cfg.SelectionStrategy,
		Escalation:        routing.EscalationConfig(cfg.Escalation),
		FallbackModel:     cfg.FallbackModel,
	}).WithCostTracker(tracker).WithRateLimiter(limiter)

	auth := routing.AuthContext{
		SenderID:    *sender,
		Channel:     "cli",
		Permissions: permissionsForLevel(*tier),
	}
	profile := routing.TaskProfile{Complexity: *complexity, EstimatedTokens: *tokens}

	decision := router.Route(auth, profile)
	fmt.Printf("Decision: provider=%s model=%s tier=%s reason=%q escalated=%v budget_constrained=%v cost=$%.6f\n",
		decision.Provider, decision.Model, decision.Tier, decision.Reason,
		decision.Escalated, decision.BudgetConstrained, decision.CostEstimateUSD)

	if *persistPath != "" {
		if err := tracker.Persist(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not persist cost snapshot: %v\n", err)
		}
	}

	fmt.Println(strings.Repeat("-", 60))
	reviewSandboxExample()

	fmt.Println(strings.Repeat("-", 60))
	listSkills()
}

// permissionsForLevel returns a resolved UserPermissions for one of the
// three named levels, standing in for a config-layered resolution a
// real deployment would run once per request.
func permissionsForLevel(level string) routing.UserPermissions {
	switch level {
	case "zero_trust":
		return routing.ZeroTrustPermissions()
	case "user":
		return routing.UserPermissions{
			Level:                1,
			MaxTier:              "standard",
			ToolAccess:           []string{"Read", "Grep", "mcp__github__*"},
			RateLimit:            30,
			StreamingAllowed:     true,
			CostBudgetDailyUSD:   2.00,
			CostBudgetMonthlyUSD: 30.00,
		}
	default:
		return routing.CLIDefaultAuthContext().Permissions
	}
}

// reviewSandboxExample builds a sandbox from a sample plugin manifest
// and checks one network and one filesystem request against it.
func reviewSandboxExample() {
	sb := sandbox.FromManifest("example-plugin",
		sandbox.PluginPermissions{
			Network:    []string{"*.github.com", "api.openai.com"},
			Filesystem: []string{"./data"},
			EnvVars:    []string{"EXAMPLE_PLUGIN_TOKEN"},
		},
		sandbox.ResourceConfig{
			MaxMemoryMB:              16,
			MaxFuel:                  1_000_000,
			ExecutionSeconds:         10,
			MaxHTTPRequestsPerMinute: 30,
			MaxLogMessagesPerMinute:  60,
		},
	)

	if err := sb.ValidateHTTPRequest("https://api.github.com/repos/weave-logic-ai/clawft-core", nil); err != nil {
		fmt.Printf("sandbox: network request denied: %v\n", err)
	} else {
		fmt.Println("sandbox: network request to api.github.com permitted")
	}

	if _, err := sb.ValidateFileAccess("./data/cache.json", true); err != nil {
		fmt.Printf("sandbox: file write denied: %v\n", err)
	} else {
		fmt.Println("sandbox: file write to ./data/cache.json permitted")
	}
}

// listSkills discovers the embedded builtin skills (no user/workspace
// directories in this demo) and prints their names.
func listSkills() {
	embedded := prompt.LoadEmbeddedSkills()
	defs := make([]types.SkillDefinition, 0, len(embedded))
	for _, entry := range embedded {
		defs = append(defs, entry.SkillDefinition)
	}

	registry := prompt.NewSkillRegistry()
	registry.Discover("", "", defs)

	fmt.Printf("Skills available: %s\n", strings.Join(registry.Names(), ", "))
}
