package routing

// DefaultTiers returns a minimal built-in free/standard/premium tier
// set that a caller can put in a config before validating it (as
// cmd/route does). Validate does not substitute it: a tiered config
// with zero tiers still fails the "tiered requires >= 1 tier" rule.
func DefaultTiers() []ModelTier {
	return []ModelTier{
		{
			Name:             "free",
			Models:           []string{"openai/gpt-4o-mini", "anthropic/claude-3-haiku"},
			ComplexityMin:    0.0,
			ComplexityMax:    0.3,
			CostPer1kTokens:  0,
			MaxContextTokens: 8192,
		},
		{
			Name:             "standard",
			Models:           []string{"openai/gpt-4o", "anthropic/claude-3-5-sonnet"},
			ComplexityMin:    0.0,
			ComplexityMax:    0.7,
			CostPer1kTokens:  0.001,
			MaxContextTokens: 32768,
		},
		{
			Name:             "premium",
			Models:           []string{"anthropic/claude-3-opus", "openai/o1"},
			ComplexityMin:    0.3,
			ComplexityMax:    1.0,
			CostPer1kTokens:  0.01,
			MaxContextTokens: 128000,
		},
	}
}
