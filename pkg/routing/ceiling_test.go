package routing

import "testing"

func intPtr(v int) *int          { return &v }
func boolPtr(v bool) *bool       { return &v }
func f64Ptr(v float64) *float64  { return &v }

// Scenario 6: global level=1, workspace tries to grant level=2 -> one
// Error at routing.permissions.user.level.
func TestWorkspaceCeilingBlocksLevelEscalation(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{Level: intPtr(1)}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{Level: intPtr(2)}}

	errs := ValidateWorkspaceCeiling(global, workspace)

	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	if errs[0].Field != "routing.permissions.user.level" || errs[0].Severity != SeverityError {
		t.Fatalf("expected a level error at routing.permissions.user.level, got %v", errs[0])
	}
}

func TestWorkspaceCeilingAllowsNarrowing(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{Level: intPtr(2)}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{Level: intPtr(1)}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if len(errs) != 0 {
		t.Fatalf("expected no errors when narrowing, got %v", errs)
	}
}

func TestWorkspaceCeilingDefaultsToLevelOneWhenGlobalUnset(t *testing.T) {
	global := PermissionsConfig{}
	workspace := PermissionsConfig{User: PermissionLevelConfig{Level: intPtr(2)}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if len(errs) != 1 {
		t.Fatalf("expected the default ceiling of %d to block level 2, got %v", DefaultMaxGrantableLevel, errs)
	}
}

func TestWorkspaceCeilingBlocksEscalationGrant(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{EscalationAllowed: boolPtr(false)}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{EscalationAllowed: boolPtr(true)}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if !hasField(errs, "routing.permissions.user.escalation_allowed") {
		t.Fatalf("expected an escalation_allowed error, got %v", errs)
	}
}

func TestWorkspaceCeilingToolAccessGlobalWildcardShortCircuits(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"*"}}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"*"}}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if len(errs) != 0 {
		t.Fatalf("expected no errors when global already grants '*', got %v", errs)
	}
}

func TestWorkspaceCeilingToolAccessWorkspaceWildcardAlwaysErrors(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"read", "write"}}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"*"}}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if !hasField(errs, "routing.permissions.user.tool_access") {
		t.Fatalf("expected a tool_access error, got %v", errs)
	}
}

func TestWorkspaceCeilingToolAccessOutsideAllowlistErrors(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"read"}}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"read", "write"}}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if !hasField(errs, "routing.permissions.user.tool_access") {
		t.Fatalf("expected a tool_access error for the extra 'write' entry, got %v", errs)
	}
}

func TestWorkspaceCeilingToolAccessGlobPatternCoversWorkspaceEntries(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"mcp__github__*"}}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"mcp__github__create_issue", "mcp__github__list_prs"}}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if hasField(errs, "routing.permissions.user.tool_access") {
		t.Fatalf("expected the global glob to cover both workspace tools, got %v", errs)
	}
}

func TestWorkspaceCeilingToolAccessGlobPatternDoesNotCoverUnrelatedTool(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"mcp__github__*"}}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{ToolAccess: []string{"mcp__github__create_issue", "Bash"}}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if !hasField(errs, "routing.permissions.user.tool_access") {
		t.Fatalf("expected a tool_access error for 'Bash' falling outside the glob, got %v", errs)
	}
}

func TestWorkspaceCeilingCostBudgetAboveGlobalErrors(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{CostBudgetDailyUSD: f64Ptr(5)}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{CostBudgetDailyUSD: f64Ptr(10)}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if !hasField(errs, "routing.permissions.user.cost_budget_daily_usd") {
		t.Fatalf("expected a cost_budget_daily_usd error, got %v", errs)
	}
}

func TestWorkspaceCeilingCostBudgetZeroTreatedAsUnboundedErrors(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{CostBudgetDailyUSD: f64Ptr(5)}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{CostBudgetDailyUSD: f64Ptr(0)}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if !hasField(errs, "routing.permissions.user.cost_budget_daily_usd") {
		t.Fatalf("expected workspace 0 (unbounded) to be treated as exceeding a positive global ceiling, got %v", errs)
	}
}

func TestWorkspaceCeilingCostBudgetIgnoredWhenGlobalUnbounded(t *testing.T) {
	global := PermissionsConfig{User: PermissionLevelConfig{CostBudgetDailyUSD: f64Ptr(0)}}
	workspace := PermissionsConfig{User: PermissionLevelConfig{CostBudgetDailyUSD: f64Ptr(1000)}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if len(errs) != 0 {
		t.Fatalf("expected no ceiling check when the global budget is itself unbounded, got %v", errs)
	}
}

func TestWorkspaceCeilingPerUserOverrideChecked(t *testing.T) {
	global := PermissionsConfig{Users: map[string]PermissionLevelConfig{"alice": {Level: intPtr(1)}}}
	workspace := PermissionsConfig{Users: map[string]PermissionLevelConfig{"alice": {Level: intPtr(2)}}}

	errs := ValidateWorkspaceCeiling(global, workspace)
	if !hasField(errs, "routing.permissions.users.alice.level") {
		t.Fatalf("expected a per-user ceiling error, got %v", errs)
	}
}
