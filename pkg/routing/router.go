package routing

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/weave-logic-ai/clawft-core/pkg/budget"
)

// Config configures a TieredRouter.
type Config struct {
	Tiers              []ModelTier
	SelectionStrategy  TierSelectionStrategy
	Escalation         EscalationConfig
	FallbackModel      string // "provider/model"
}

// TieredRouter selects a provider+model for each request under
// permission, complexity, budget, and rate constraints (spec.md §4.6).
type TieredRouter struct {
	tiers              []ModelTier
	tierIndex          map[string]int // name -> ordinal
	selectionStrategy  TierSelectionStrategy
	roundRobinCounters []atomic.Uint64
	escalation         EscalationConfig
	fallbackModel      string

	costTracker CostTrackable
	rateLimiter RateLimitable
}

// NewTieredRouter constructs a router from cfg. Tier ordinals are
// assigned by position in cfg.Tiers.
func NewTieredRouter(cfg Config) *TieredRouter {
	tiers := make([]ModelTier, len(cfg.Tiers))
	tierIndex := make(map[string]int, len(cfg.Tiers))
	for i, t := range cfg.Tiers {
		t.Ordinal = i
		tiers[i] = t
		tierIndex[t.Name] = i
	}

	strategy := cfg.SelectionStrategy
	if strategy == "" {
		strategy = PreferenceOrder
	}

	return &TieredRouter{
		tiers:              tiers,
		tierIndex:          tierIndex,
		selectionStrategy:  strategy,
		roundRobinCounters: make([]atomic.Uint64, len(tiers)),
		escalation:         cfg.Escalation,
		fallbackModel:      cfg.FallbackModel,
	}
}

// WithCostTracker attaches a cost tracker used for budget gating.
func (r *TieredRouter) WithCostTracker(ct CostTrackable) *TieredRouter {
	r.costTracker = ct
	return r
}

// WithRateLimiter attaches a rate limiter used for the rate-limit gate.
func (r *TieredRouter) WithRateLimiter(rl RateLimitable) *TieredRouter {
	r.rateLimiter = rl
	return r
}

// Route implements the 8-step algorithm from spec.md §4.6.
func (r *TieredRouter) Route(auth AuthContext, profile TaskProfile) RoutingDecision {
	perms := auth.Permissions

	// Step 2: rate-limit gate.
	if r.rateLimiter != nil && perms.RateLimit > 0 {
		if !r.rateLimiter.Check(auth.SenderID, perms.RateLimit) {
			return r.rateLimitedDecision(auth)
		}
	}

	// Step 3: permission filter.
	allowed := r.filterTiersByPermissions(perms)
	if len(allowed) == 0 {
		return r.noTiersAvailableDecision(auth)
	}

	// Step 4: tier selection (+ escalation).
	selection := r.selectTier(profile.Complexity, allowed, perms)

	// Step 5: budget constraints.
	budgetResult := r.applyBudgetConstraints(selection.tier, allowed, auth)

	// Step 6: model selection.
	provider, model, ok := r.selectModel(budgetResult.tier, perms)
	if !ok {
		// Step 7: fallback chain.
		fp, fm, reason, ok := r.fallbackChain(budgetResult.tier, allowed, perms)
		if !ok {
			return r.noTiersAvailableDecision(auth)
		}
		provider, model = fp, fm
		decision := RoutingDecision{
			Provider:          provider,
			Model:             model,
			Reason:            reason,
			Tier:              budgetResult.tier.Name,
			Escalated:         selection.escalated,
			BudgetConstrained: budgetResult.constrained,
			SenderID:          auth.SenderID,
		}
		r.recordCost(auth.SenderID, budgetResult.tier, profile, &decision)
		return decision
	}

	decision := RoutingDecision{
		Provider:          provider,
		Model:             model,
		Reason:            "selected",
		Tier:              budgetResult.tier.Name,
		Escalated:         selection.escalated,
		BudgetConstrained: budgetResult.constrained,
		SenderID:          auth.SenderID,
	}
	r.recordCost(auth.SenderID, budgetResult.tier, profile, &decision)
	return decision
}

func (r *TieredRouter) recordCost(sender string, tier ModelTier, profile TaskProfile, decision *RoutingDecision) {
	cost := tier.CostPer1kTokens * float64(profile.EstimatedTokens) / 1000.0
	decision.CostEstimateUSD = cost
	if r.costTracker != nil {
		r.costTracker.RecordEstimated(sender, cost)
	}
}

// Update reconciles a prior decision with an observed outcome cost:
// actualCostUSD is passed with the decision's CostEstimateUSD to the
// tracker's RecordActual, which adds only the amount by which the
// actual cost exceeds the estimate.
func (r *TieredRouter) Update(decision RoutingDecision, actualCostUSD float64) {
	if r.costTracker == nil {
		return
	}
	r.costTracker.RecordActual(decision.SenderID, decision.CostEstimateUSD, actualCostUSD)
}

// filterTiersByPermissions retains tiers whose ordinal <= the user's
// max-tier ordinal. An unrecognised tier name allows every tier
// (fail-open by name resolution only).
func (r *TieredRouter) filterTiersByPermissions(perms UserPermissions) []ModelTier {
	maxOrdinal, ok := r.tierIndex[perms.MaxTier]
	if !ok {
		maxOrdinal = int(^uint(0) >> 1) // unknown tier name: allow all (fail-open by name resolution)
	}

	var out []ModelTier
	for _, t := range r.tiers {
		if t.Ordinal <= maxOrdinal {
			out = append(out, t)
		}
	}
	return out
}

type tierSelection struct {
	tier      ModelTier
	escalated bool
}

// selectTier picks the highest-ordinal allowed tier whose complexity
// range covers the task, escalating above the user's max tier when
// permitted and no in-range match exists among allowed tiers.
func (r *TieredRouter) selectTier(complexity float64, allowed []ModelTier, perms UserPermissions) tierSelection {
	if best, ok := highestOrdinalMatch(allowed, complexity); ok {
		return tierSelection{tier: best}
	}

	if perms.EscalationAllowed && r.escalation.Enabled && complexity > perms.EscalationThreshold {
		maxOrdinal, ok := r.tierIndex[perms.MaxTier]
		if !ok {
			maxOrdinal = -1
		}
		var candidates []ModelTier
		for _, t := range r.tiers {
			if t.Ordinal > maxOrdinal && t.Ordinal <= maxOrdinal+r.escalation.MaxEscalationTiers && t.MatchesComplexity(complexity) {
				candidates = append(candidates, t)
			}
		}
		if best, ok := highestOrdinal(candidates); ok {
			return tierSelection{tier: best, escalated: true}
		}
	}

	if best, ok := highestOrdinal(allowed); ok {
		return tierSelection{tier: best}
	}

	if len(r.tiers) > 0 {
		return tierSelection{tier: r.tiers[0]}
	}
	return tierSelection{}
}

func highestOrdinalMatch(tiers []ModelTier, complexity float64) (ModelTier, bool) {
	var matches []ModelTier
	for _, t := range tiers {
		if t.MatchesComplexity(complexity) {
			matches = append(matches, t)
		}
	}
	return highestOrdinal(matches)
}

func highestOrdinal(tiers []ModelTier) (ModelTier, bool) {
	if len(tiers) == 0 {
		return ModelTier{}, false
	}
	best := tiers[0]
	for _, t := range tiers[1:] {
		if t.Ordinal > best.Ordinal {
			best = t
		}
	}
	return best, true
}

type tierBudgetResult struct {
	tier        ModelTier
	constrained bool
}

// applyBudgetConstraints downgrades the selected tier to the
// highest-ordinal cheaper allowed tier that passes a non-reserving
// budget check, falling back to the cheapest allowed tier (still
// marked constrained) if none pass.
func (r *TieredRouter) applyBudgetConstraints(selected ModelTier, allowed []ModelTier, auth AuthContext) tierBudgetResult {
	if r.costTracker == nil {
		return tierBudgetResult{tier: selected}
	}
	perms := auth.Permissions
	if perms.CostBudgetDailyUSD <= 0 && perms.CostBudgetMonthlyUSD <= 0 {
		return tierBudgetResult{tier: selected}
	}

	res := r.costTracker.CheckBudget(auth.SenderID, selected.CostPer1kTokens, perms.CostBudgetDailyUSD, perms.CostBudgetMonthlyUSD)
	if res.Kind == budget.Approved {
		return tierBudgetResult{tier: selected}
	}

	var cheaper []ModelTier
	for _, t := range allowed {
		if t.Ordinal < selected.Ordinal {
			cheaper = append(cheaper, t)
		}
	}
	sort.Slice(cheaper, func(i, j int) bool { return cheaper[i].Ordinal > cheaper[j].Ordinal })

	for _, t := range cheaper {
		res := r.costTracker.CheckBudget(auth.SenderID, t.CostPer1kTokens, perms.CostBudgetDailyUSD, perms.CostBudgetMonthlyUSD)
		if res.Kind == budget.Approved {
			return tierBudgetResult{tier: t, constrained: true}
		}
	}

	if cheapest, ok := lowestOrdinal(allowed); ok {
		return tierBudgetResult{tier: cheapest, constrained: true}
	}
	return tierBudgetResult{tier: selected, constrained: true}
}

func lowestOrdinal(tiers []ModelTier) (ModelTier, bool) {
	if len(tiers) == 0 {
		return ModelTier{}, false
	}
	best := tiers[0]
	for _, t := range tiers[1:] {
		if t.Ordinal < best.Ordinal {
			best = t
		}
	}
	return best, true
}

// selectModel filters tier.Models by the user's allow/deny lists and
// applies the configured selection strategy.
func (r *TieredRouter) selectModel(tier ModelTier, perms UserPermissions) (provider, model string, ok bool) {
	candidates := filterModelsByPermissions(tier.Models, perms)
	if len(candidates) == 0 {
		return "", "", false
	}

	var chosen string
	switch r.selectionStrategy {
	case RoundRobin:
		idx := int(r.roundRobinCounters[tier.Ordinal].Add(1)-1) % len(candidates)
		chosen = candidates[idx]
	case LowestCost, PreferenceOrder:
		chosen = candidates[0]
	case Random:
		chosen = candidates[pseudoRandomIndex(len(candidates))]
	default:
		chosen = candidates[0]
	}

	p, m := splitProviderModel(chosen)
	return p, m, true
}

func filterModelsByPermissions(models []string, perms UserPermissions) []string {
	var out []string
	for _, m := range models {
		if len(perms.ModelAccess) > 0 && !anyPatternMatches(perms.ModelAccess, m) {
			continue
		}
		if anyPatternMatches(perms.ModelDenylist, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func anyPatternMatches(patterns []string, model string) bool {
	for _, p := range patterns {
		if modelMatchesPattern(model, p) {
			return true
		}
	}
	return false
}

// modelMatchesPattern supports "*" (always), "prefix*" (prefix match,
// via doublestar so the same glob semantics back both this and tool
// permission matching elsewhere in the module), and exact match.
func modelMatchesPattern(model, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		matched, _ := doublestar.Match(pattern, model)
		if matched {
			return true
		}
		return strings.HasPrefix(model, strings.TrimSuffix(pattern, "*"))
	}
	return model == pattern
}

// splitProviderModel splits "provider/model" on the first '/',
// defaulting to provider "openai" if no slash is present.
func splitProviderModel(s string) (provider, model string) {
	idx := strings.Index(s, "/")
	if idx < 0 {
		return "openai", s
	}
	return s[:idx], s[idx+1:]
}

// fallbackChain tries lower-ordinal allowed tiers in descending order,
// then the configured global fallback model (only if its tier ordinal
// is within the user's max tier).
func (r *TieredRouter) fallbackChain(primary ModelTier, allowed []ModelTier, perms UserPermissions) (provider, model, reason string, ok bool) {
	maxOrdinal, hasMax := r.tierIndex[perms.MaxTier]

	var lower []ModelTier
	for _, t := range allowed {
		if t.Ordinal < primary.Ordinal {
			lower = append(lower, t)
		}
	}
	sort.Slice(lower, func(i, j int) bool { return lower[i].Ordinal > lower[j].Ordinal })

	for _, t := range lower {
		if hasMax && t.Ordinal > maxOrdinal {
			continue
		}
		if p, m, ok := r.selectModel(t, perms); ok {
			return p, m, "fallback to lower tier", true
		}
	}

	if r.fallbackModel != "" {
		fallbackOrdinal := -1
		for _, t := range r.tiers {
			for _, m := range t.Models {
				if m == r.fallbackModel {
					fallbackOrdinal = t.Ordinal
					break
				}
			}
		}
		if fallbackOrdinal == -1 || !hasMax || fallbackOrdinal <= maxOrdinal {
			p, m := splitProviderModel(r.fallbackModel)
			return p, m, "global fallback model", true
		}
	}

	return "", "", "", false
}

func (r *TieredRouter) rateLimitedDecision(auth AuthContext) RoutingDecision {
	if r.fallbackModel == "" {
		return RoutingDecision{
			Denied:            true,
			Reason:            "rate limited: no fallback model configured",
			SenderID:          auth.SenderID,
			BudgetConstrained: true,
		}
	}

	maxOrdinal, hasMax := r.tierIndex[auth.Permissions.MaxTier]
	fallbackOrdinal := -1
	for _, t := range r.tiers {
		for _, m := range t.Models {
			if m == r.fallbackModel {
				fallbackOrdinal = t.Ordinal
			}
		}
	}
	if hasMax && fallbackOrdinal > maxOrdinal {
		return RoutingDecision{
			Denied:   true,
			Reason:   "rate limited: fallback model not permitted for user tier",
			SenderID: auth.SenderID,
		}
	}

	p, m := splitProviderModel(r.fallbackModel)
	return RoutingDecision{
		Provider: p,
		Model:    m,
		Reason:   "rate limited: using fallback model",
		SenderID: auth.SenderID,
	}
}

func (r *TieredRouter) noTiersAvailableDecision(auth AuthContext) RoutingDecision {
	if r.fallbackModel != "" {
		p, m := splitProviderModel(r.fallbackModel)
		return RoutingDecision{
			Provider: p,
			Model:    m,
			Reason:   "no tiers available: using fallback model",
			SenderID: auth.SenderID,
		}
	}
	return RoutingDecision{
		Denied:   true,
		Reason:   "no tiers available",
		SenderID: auth.SenderID,
	}
}

// pseudoRandomIndex mirrors the original's "not cryptographic,
// time-based hash to avoid an extra dependency" selection.
func pseudoRandomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	return int(time.Now().UnixNano() % int64(n))
}
