package routing

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxGrantableLevel is the highest permission level a workspace
// config may grant without an explicit global override.
const DefaultMaxGrantableLevel = 1

// ValidateWorkspaceCeiling checks that a workspace-level permissions
// config never WIDENS what the trusted global config allows — it may
// only narrow. Named levels (zero_trust/user/admin) and per-user/
// per-channel overrides are all checked the same way.
func ValidateWorkspaceCeiling(global, workspace PermissionsConfig) []ValidationError {
	var errs []ValidationError

	errs = append(errs, checkLevelCeiling(global.ZeroTrust, workspace.ZeroTrust, "routing.permissions.zero_trust")...)
	errs = append(errs, checkLevelCeiling(global.User, workspace.User, "routing.permissions.user")...)
	errs = append(errs, checkLevelCeiling(global.Admin, workspace.Admin, "routing.permissions.admin")...)

	for id, wksp := range workspace.Users {
		glob := global.Users[id]
		errs = append(errs, checkLevelCeiling(glob, wksp, fmt.Sprintf("routing.permissions.users.%s", id))...)
	}
	for id, wksp := range workspace.Channels {
		glob := global.Channels[id]
		errs = append(errs, checkLevelCeiling(glob, wksp, fmt.Sprintf("routing.permissions.channels.%s", id))...)
	}

	return errs
}

func checkLevelCeiling(global, workspace PermissionLevelConfig, fieldPrefix string) []ValidationError {
	var errs []ValidationError

	maxGrantable := DefaultMaxGrantableLevel
	if global.Level != nil {
		maxGrantable = *global.Level
	}
	if workspace.Level != nil && *workspace.Level > maxGrantable {
		errs = append(errs, ValidationError{
			Field:    fieldPrefix + ".level",
			Message:  fmt.Sprintf("workspace level %d exceeds the grantable ceiling %d", *workspace.Level, maxGrantable),
			Severity: SeverityError,
		})
	}

	if global.EscalationAllowed != nil && workspace.EscalationAllowed != nil {
		if !*global.EscalationAllowed && *workspace.EscalationAllowed {
			errs = append(errs, ValidationError{
				Field:    fieldPrefix + ".escalation_allowed",
				Message:  "workspace cannot grant escalation the global config denies",
				Severity: SeverityError,
			})
		}
	}

	if global.ToolAccess != nil && workspace.ToolAccess != nil {
		if !containsStar(global.ToolAccess) {
			if containsStar(workspace.ToolAccess) {
				errs = append(errs, ValidationError{
					Field:    fieldPrefix + ".tool_access",
					Message:  "workspace cannot grant wildcard tool access the global config does not",
					Severity: SeverityError,
				})
			} else if extra := toolsNotInSet(workspace.ToolAccess, global.ToolAccess); len(extra) > 0 {
				errs = append(errs, ValidationError{
					Field:    fieldPrefix + ".tool_access",
					Message:  fmt.Sprintf("workspace grants tools outside the global allow-list: %v", extra),
					Severity: SeverityError,
				})
			}
		}
	}

	if global.RateLimit != nil && workspace.RateLimit != nil {
		g, w := *global.RateLimit, *workspace.RateLimit
		if g > 0 && (w > g || w == 0) {
			errs = append(errs, ValidationError{
				Field:    fieldPrefix + ".rate_limit",
				Message:  fmt.Sprintf("workspace rate_limit %d exceeds global ceiling %d", w, g),
				Severity: SeverityError,
			})
		}
	}

	if global.CostBudgetDailyUSD != nil && workspace.CostBudgetDailyUSD != nil {
		g, w := *global.CostBudgetDailyUSD, *workspace.CostBudgetDailyUSD
		if g > 0 && (w > g || w == 0) {
			errs = append(errs, ValidationError{
				Field:    fieldPrefix + ".cost_budget_daily_usd",
				Message:  fmt.Sprintf("workspace daily budget %.4f exceeds global ceiling %.4f", w, g),
				Severity: SeverityError,
			})
		}
	}
	if global.CostBudgetMonthlyUSD != nil && workspace.CostBudgetMonthlyUSD != nil {
		g, w := *global.CostBudgetMonthlyUSD, *workspace.CostBudgetMonthlyUSD
		if g > 0 && (w > g || w == 0) {
			errs = append(errs, ValidationError{
				Field:    fieldPrefix + ".cost_budget_monthly_usd",
				Message:  fmt.Sprintf("workspace monthly budget %.4f exceeds global ceiling %.4f", w, g),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

func containsStar(tools []string) bool {
	for _, t := range tools {
		if t == "*" {
			return true
		}
	}
	return false
}

// toolsNotInSet returns the entries in tools that neither match
// exactly nor match (via doublestar glob semantics, same engine
// modelMatchesPattern uses for model names) any pattern in allowed. A
// global allow-list entry like "mcp__github__*" grants every tool
// under that prefix without the workspace having to enumerate them.
func toolsNotInSet(tools, allowed []string) []string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	var extra []string
	for _, t := range tools {
		if _, ok := allowedSet[t]; ok {
			continue
		}
		if toolMatchesAny(t, allowed) {
			continue
		}
		extra = append(extra, t)
	}
	return extra
}

func toolMatchesAny(tool string, patterns []string) bool {
	for _, p := range patterns {
		if !strings.Contains(p, "*") {
			continue
		}
		if matched, _ := doublestar.Match(p, tool); matched {
			return true
		}
	}
	return false
}
