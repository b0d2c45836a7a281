// Package routing implements the tiered routing engine: model tiers,
// permission-resolved user capabilities, the route algorithm, and the
// routing-config validator plus workspace-ceiling enforcement.
package routing

import "github.com/weave-logic-ai/clawft-core/pkg/budget"

// ModelTier is a named group of models sharing a complexity range and
// a blended cost. Tiers are immutable after construction; Ordinal is
// assigned by position in the configured list (0 = cheapest).
type ModelTier struct {
	Name               string
	Models             []string // "provider/model" strings, in preference order
	ComplexityMin      float64
	ComplexityMax      float64
	CostPer1kTokens    float64
	MaxContextTokens   int
	Ordinal            int
}

// MatchesComplexity reports whether complexity falls within the
// tier's inclusive range.
func (t ModelTier) MatchesComplexity(complexity float64) bool {
	return complexity >= t.ComplexityMin && complexity <= t.ComplexityMax
}

// TierSelectionStrategy controls which model within a tier is chosen.
type TierSelectionStrategy string

const (
	PreferenceOrder TierSelectionStrategy = "preference_order"
	RoundRobin      TierSelectionStrategy = "round_robin"
	LowestCost      TierSelectionStrategy = "lowest_cost"
	Random          TierSelectionStrategy = "random"
)

// EscalationConfig controls whether and how far a request may be
// promoted above the user's max tier when complexity demands it.
type EscalationConfig struct {
	Enabled          bool
	Threshold        float64
	MaxEscalationTiers int
}

// UserPermissions is a resolved, concrete capability set — the output
// of layering built-in defaults, named level defaults, workspace
// overrides, and per-channel/per-user overrides (spec.md §4.4).
type UserPermissions struct {
	Level                 int // 0, 1, or 2
	MaxTier               string
	ModelAccess           []string // allow-list patterns; empty = all
	ModelDenylist         []string
	ToolAccess            []string
	MaxContextTokens      int
	MaxOutputTokens       int
	RateLimit             int // requests per window; 0 = unlimited
	StreamingAllowed      bool
	EscalationAllowed     bool
	EscalationThreshold   float64
	ModelOverride         string
	CostBudgetDailyUSD    float64 // 0 = unlimited
	CostBudgetMonthlyUSD  float64 // 0 = unlimited
	Custom                map[string]string
}

// ZeroTrustPermissions returns the default zero-trust capability set:
// level 0, tier "free", no tool access, $0.10/day and $2.00/month.
func ZeroTrustPermissions() UserPermissions {
	return UserPermissions{
		Level:                0,
		MaxTier:              "free",
		CostBudgetDailyUSD:   0.10,
		CostBudgetMonthlyUSD: 2.00,
	}
}

// AuthContext carries sender identity, channel, and resolved
// permissions through the routing pipeline.
type AuthContext struct {
	SenderID    string // empty = unauthenticated
	Channel     string
	Permissions UserPermissions
}

// DefaultAuthContext is the zero-trust default used when a request
// carries no auth context.
func DefaultAuthContext() AuthContext {
	return AuthContext{Permissions: ZeroTrustPermissions()}
}

// CLIDefaultAuthContext yields admin privileges for local CLI use.
func CLIDefaultAuthContext() AuthContext {
	return AuthContext{
		SenderID: "cli",
		Channel:  "cli",
		Permissions: UserPermissions{
			Level:                2,
			MaxTier:              "elite",
			EscalationAllowed:    true,
			EscalationThreshold:  0.0,
			StreamingAllowed:     true,
			CostBudgetDailyUSD:   0,
			CostBudgetMonthlyUSD: 0,
		},
	}
}

// TaskProfile is the output of request classification: a single
// complexity score in [0,1] plus the estimated token count used for
// cost estimation.
type TaskProfile struct {
	Complexity      float64
	EstimatedTokens int
}

// RoutingDecision is the router's output for one request.
type RoutingDecision struct {
	Provider          string
	Model             string
	Reason            string
	Tier              string
	CostEstimateUSD   float64
	Escalated         bool
	BudgetConstrained bool
	SenderID          string
	Denied            bool
}

// CostTrackable is satisfied by *budget.Tracker; routers depend on
// this narrow interface so tests can substitute mocks.
type CostTrackable interface {
	ReserveBudget(sender string, estimatedCost, dailyLimit, monthlyLimit float64) budget.Result
	CheckBudget(sender string, estimatedCost, dailyLimit, monthlyLimit float64) budget.Result
	ReconcileActual(sender string, estimated, actual float64)
	RecordEstimated(sender string, estimatedCost float64)
	RecordActual(sender string, estimated, actual float64)
}

// RateLimitable is satisfied by *ratelimit.Limiter.
type RateLimitable interface {
	Check(sender string, limit int) bool
}
