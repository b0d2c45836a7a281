package prompt

import "github.com/weave-logic-ai/clawft-core/pkg/types"

// embeddedSkillDef describes an embedded skill's metadata.
// Embedded skills don't have YAML frontmatter; their metadata is defined here.
type embeddedSkillDef struct {
	Name        string
	Description string
	WhenToUse   string
	FileName    string // filename in prompts/skills/ directory
}

// embeddedSkillDefs lists all built-in embedded skills. These ship with
// the core itself (priority 0, always present) rather than being
// discovered from a user or workspace directory.
var embeddedSkillDefs = []embeddedSkillDef{
	{
		Name:        "routing-diagnostics",
		Description: "Explain why a request was routed, downgraded, or denied by the tiered router",
		WhenToUse:   "Use when a user asks why their request landed on a particular model or tier, or why it was rejected",
		FileName:    "skill-routing-diagnostics.md",
	},
	{
		Name:        "budget-tuning",
		Description: "Help adjust cost budgets and rate limits for a permission level",
		WhenToUse:   "Use when the user wants to raise or lower daily/monthly cost budgets or per-sender rate limits",
		FileName:    "skill-budget-tuning.md",
	},
	{
		Name:        "sandbox-policy-review",
		Description: "Review a plugin's declared permissions before it is loaded into the sandbox",
		WhenToUse:   "Use when the user wants a second opinion on a plugin manifest's network/filesystem/env permissions",
		FileName:    "skill-sandbox-policy-review.md",
	},
	{
		Name:        "skill-authoring",
		Description: "Help author a new SKILL.md with correct frontmatter",
		WhenToUse:   "Use when the user wants to create a new skill or is unsure what frontmatter fields SKILL.md supports",
		FileName:    "skill-skill-authoring.md",
	},
}

// LoadEmbeddedSkills returns all built-in embedded skills as SkillEntry map.
func LoadEmbeddedSkills() map[string]types.SkillEntry {
	skills := make(map[string]types.SkillEntry, len(embeddedSkillDefs))
	for _, def := range embeddedSkillDefs {
		body := loadSkillPrompt(def.FileName)
		skills[def.Name] = types.SkillEntry{
			SkillDefinition: types.SkillDefinition{
				Name:        def.Name,
				Description: def.Description,
				WhenToUse:   def.WhenToUse,
				Body:        body,
			},
			Source:   types.SkillSourceEmbedded,
			Priority: 0,
		}
	}
	return skills
}
