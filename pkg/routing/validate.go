package routing

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Severity classifies a ValidationError.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARNING"
}

// ValidationError is one field-level diagnostic from Validate or
// ValidateWorkspaceCeiling.
type ValidationError struct {
	Field    string
	Message  string
	Severity Severity
}

func (e ValidationError) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Field, e.Message)
}

// PermissionLevelConfig is the config-layer (all-optional) form of a
// permission level's settings, used for zero_trust/user/admin
// defaults and per-user/per-channel overrides.
type PermissionLevelConfig struct {
	Level                *int
	MaxTier              *string
	EscalationAllowed    *bool
	EscalationThreshold  *float64
	CostBudgetDailyUSD   *float64
	CostBudgetMonthlyUSD *float64
	RateLimit            *int
	ToolAccess           []string
}

// PermissionsConfig bundles the three named defaults plus per-user and
// per-channel override maps.
type PermissionsConfig struct {
	ZeroTrust PermissionLevelConfig
	User      PermissionLevelConfig
	Admin     PermissionLevelConfig
	Users     map[string]PermissionLevelConfig
	Channels  map[string]PermissionLevelConfig
}

// EscalationConfigRaw mirrors EscalationConfig but as config input
// (validated before use).
type EscalationConfigRaw struct {
	Enabled            bool
	Threshold          float64
	MaxEscalationTiers int
}

// CostBudgetsConfig is the routing.cost_budgets config section.
type CostBudgetsConfig struct {
	GlobalDailyLimitUSD   float64
	GlobalMonthlyLimitUSD float64
	ResetHourUTC          int
}

// RateLimitingConfig is the routing.rate_limiting config section.
type RateLimitingConfig struct {
	WindowSeconds int
	Strategy      string
}

// RoutingConfig is the full routing.* config section.
type RoutingConfig struct {
	Mode              string
	Tiers             []ModelTier
	SelectionStrategy TierSelectionStrategy
	FallbackModel     string
	Permissions       PermissionsConfig
	Escalation        EscalationConfigRaw
	CostBudgets       CostBudgetsConfig
	RateLimiting      RateLimitingConfig
}

// Validate runs the full semantic rule set against cfg, never
// short-circuiting so every issue is surfaced in one pass. Returns nil
// immediately if cfg.Mode == "static".
func Validate(cfg RoutingConfig) []ValidationError {
	if cfg.Mode == "static" {
		return nil
	}

	var errs []ValidationError
	errs = append(errs, validateMode(cfg.Mode)...)
	errs = append(errs, validateTiers(cfg.Tiers)...)
	errs = append(errs, validatePermissions(cfg.Permissions, cfg.Tiers)...)
	errs = append(errs, validateEscalation(cfg.Escalation, len(cfg.Tiers))...)
	errs = append(errs, validateCostBudgets(cfg.CostBudgets)...)
	errs = append(errs, validateRateLimiting(cfg.RateLimiting)...)
	errs = append(errs, validateFallbackModel(cfg.FallbackModel)...)
	return errs
}

func validateMode(mode string) []ValidationError {
	if mode != "static" && mode != "tiered" {
		return []ValidationError{{Field: "routing.mode", Message: fmt.Sprintf("must be 'static' or 'tiered', got %q", mode), Severity: SeverityError}}
	}
	return nil
}

func validateTiers(tiers []ModelTier) []ValidationError {
	var errs []ValidationError

	if len(tiers) == 0 {
		errs = append(errs, ValidationError{Field: "routing.tiers", Message: "tiered mode requires at least one tier", Severity: SeverityError})
		return errs
	}

	seen := make(map[string]struct{}, len(tiers))
	for i, t := range tiers {
		if _, dup := seen[t.Name]; dup {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("routing.tiers[%d].name", i), Message: fmt.Sprintf("duplicate tier name %q", t.Name), Severity: SeverityError})
		}
		seen[t.Name] = struct{}{}
		errs = append(errs, validateSingleTier(i, t)...)
	}

	for i := 0; i < len(tiers); i++ {
		for j := i + 1; j < len(tiers); j++ {
			overlapMin := max64(tiers[i].ComplexityMin, tiers[j].ComplexityMin)
			overlapMax := min64(tiers[i].ComplexityMax, tiers[j].ComplexityMax)
			if overlapMin < overlapMax {
				errs = append(errs, ValidationError{
					Field:    fmt.Sprintf("routing.tiers[%d,%d]", i, j),
					Message:  fmt.Sprintf("overlapping complexity ranges between %q and %q", tiers[i].Name, tiers[j].Name),
					Severity: SeverityWarning,
				})
			}
		}
	}

	return errs
}

func validateSingleTier(index int, t ModelTier) []ValidationError {
	var errs []ValidationError
	prefix := fmt.Sprintf("routing.tiers[%d]", index)

	if len(t.Models) == 0 {
		errs = append(errs, ValidationError{Field: prefix + ".models", Message: "tier has no models", Severity: SeverityWarning})
	}
	for _, m := range t.Models {
		if !strings.Contains(m, "/") {
			errs = append(errs, ValidationError{Field: prefix + ".models", Message: fmt.Sprintf("model %q lacks a provider prefix", m), Severity: SeverityWarning})
		}
	}

	if t.ComplexityMin > t.ComplexityMax {
		errs = append(errs, ValidationError{Field: prefix + ".complexity_range", Message: "min must be <= max", Severity: SeverityError})
	}
	if t.ComplexityMin < 0 || t.ComplexityMin > 1 {
		errs = append(errs, ValidationError{Field: prefix + ".complexity_range[0]", Message: "must be in [0,1]", Severity: SeverityError})
	}
	if t.ComplexityMax < 0 || t.ComplexityMax > 1 {
		errs = append(errs, ValidationError{Field: prefix + ".complexity_range[1]", Message: "must be in [0,1]", Severity: SeverityError})
	}

	if t.CostPer1kTokens < 0 {
		errs = append(errs, ValidationError{Field: prefix + ".cost_per_1k_tokens", Message: "must be >= 0", Severity: SeverityError})
	}
	if t.MaxContextTokens == 0 {
		errs = append(errs, ValidationError{Field: prefix + ".max_context_tokens", Message: "must be > 0", Severity: SeverityError})
	}

	return errs
}

func validatePermissions(perms PermissionsConfig, tiers []ModelTier) []ValidationError {
	validTiers := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		validTiers[t.Name] = struct{}{}
	}

	var errs []ValidationError
	errs = append(errs, validatePermissionLevel(perms.ZeroTrust, "routing.permissions.zero_trust", validTiers)...)
	errs = append(errs, validatePermissionLevel(perms.User, "routing.permissions.user", validTiers)...)
	errs = append(errs, validatePermissionLevel(perms.Admin, "routing.permissions.admin", validTiers)...)

	for id, plc := range perms.Users {
		errs = append(errs, validatePermissionLevel(plc, fmt.Sprintf("routing.permissions.users.%s", id), validTiers)...)
	}
	for id, plc := range perms.Channels {
		errs = append(errs, validatePermissionLevel(plc, fmt.Sprintf("routing.permissions.channels.%s", id), validTiers)...)
	}
	return errs
}

func validatePermissionLevel(plc PermissionLevelConfig, fieldPrefix string, validTiers map[string]struct{}) []ValidationError {
	var errs []ValidationError

	if plc.Level != nil && *plc.Level > 2 {
		errs = append(errs, ValidationError{Field: fieldPrefix + ".level", Message: "level > 2 is unusual", Severity: SeverityWarning})
	}
	if plc.EscalationThreshold != nil && (*plc.EscalationThreshold < 0 || *plc.EscalationThreshold > 1) {
		errs = append(errs, ValidationError{Field: fieldPrefix + ".escalation_threshold", Message: "must be in [0,1]", Severity: SeverityError})
	}
	if plc.CostBudgetDailyUSD != nil && *plc.CostBudgetDailyUSD < 0 {
		errs = append(errs, ValidationError{Field: fieldPrefix + ".cost_budget_daily_usd", Message: "must be >= 0", Severity: SeverityError})
	}
	if plc.CostBudgetMonthlyUSD != nil && *plc.CostBudgetMonthlyUSD < 0 {
		errs = append(errs, ValidationError{Field: fieldPrefix + ".cost_budget_monthly_usd", Message: "must be >= 0", Severity: SeverityError})
	}
	if plc.MaxTier != nil && len(validTiers) > 0 {
		if _, ok := validTiers[*plc.MaxTier]; !ok {
			errs = append(errs, ValidationError{Field: fieldPrefix + ".max_tier", Message: fmt.Sprintf("%q is not a declared tier", *plc.MaxTier), Severity: SeverityWarning})
		}
	}
	for _, tool := range plc.ToolAccess {
		if strings.Contains(tool, "*") && !doublestar.ValidatePattern(tool) {
			errs = append(errs, ValidationError{Field: fieldPrefix + ".tool_access", Message: fmt.Sprintf("entry %q is not a valid glob pattern", tool), Severity: SeverityError})
		}
	}

	return errs
}

func validateEscalation(esc EscalationConfigRaw, tierCount int) []ValidationError {
	var errs []ValidationError
	if esc.Enabled && esc.MaxEscalationTiers == 0 {
		errs = append(errs, ValidationError{Field: "routing.escalation.max_escalation_tiers", Message: "must be > 0 when escalation is enabled", Severity: SeverityError})
	}
	if esc.Threshold < 0 || esc.Threshold > 1 {
		errs = append(errs, ValidationError{Field: "routing.escalation.threshold", Message: "must be in [0,1]", Severity: SeverityError})
	}
	if esc.MaxEscalationTiers > tierCount {
		errs = append(errs, ValidationError{Field: "routing.escalation.max_escalation_tiers", Message: "exceeds the number of defined tiers", Severity: SeverityWarning})
	}
	return errs
}

func validateCostBudgets(cb CostBudgetsConfig) []ValidationError {
	var errs []ValidationError
	if cb.GlobalDailyLimitUSD < 0 {
		errs = append(errs, ValidationError{Field: "routing.cost_budgets.global_daily_limit_usd", Message: "must be >= 0", Severity: SeverityError})
	}
	if cb.GlobalMonthlyLimitUSD < 0 {
		errs = append(errs, ValidationError{Field: "routing.cost_budgets.global_monthly_limit_usd", Message: "must be >= 0", Severity: SeverityError})
	}
	if cb.ResetHourUTC > 23 {
		errs = append(errs, ValidationError{Field: "routing.cost_budgets.reset_hour_utc", Message: "must be <= 23", Severity: SeverityError})
	}
	return errs
}

func validateRateLimiting(rl RateLimitingConfig) []ValidationError {
	var errs []ValidationError
	if rl.WindowSeconds == 0 {
		errs = append(errs, ValidationError{Field: "routing.rate_limiting.window_seconds", Message: "must be > 0", Severity: SeverityError})
	}
	if rl.Strategy != "sliding_window" && rl.Strategy != "fixed_window" {
		errs = append(errs, ValidationError{Field: "routing.rate_limiting.strategy", Message: fmt.Sprintf("must be 'sliding_window' or 'fixed_window', got %q", rl.Strategy), Severity: SeverityError})
	}
	return errs
}

func validateFallbackModel(model string) []ValidationError {
	if model != "" && !strings.Contains(model, "/") {
		return []ValidationError{{Field: "routing.fallback_model", Message: fmt.Sprintf("%q lacks a provider prefix", model), Severity: SeverityWarning}}
	}
	return nil
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
