package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weave-logic-ai/clawft-core/pkg/types"
)

// legacySkillJSON is the shape of a pre-SKILL.md skill.json manifest.
type legacySkillJSON struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	WhenToUse    string   `json:"when_to_use,omitempty"`
	ArgumentHint string   `json:"argument-hint,omitempty"`
	Arguments    []string `json:"arguments,omitempty"`
	AllowedTools []string `json:"allowed-tools,omitempty"`
	Context      string   `json:"context,omitempty"`
}

// loadLegacySkill loads a pre-SKILL.md skill directory: a skill.json
// manifest plus an optional adjacent prompt.md holding the instruction
// body. skill.json failing to parse is fatal for that skill; a missing
// prompt.md is not (the body is simply empty).
func loadLegacySkill(jsonPath, skillDir string) (*types.SkillEntry, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", jsonPath, err)
	}

	var manifest legacySkillJSON
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("legacy skill.json %s: %w", jsonPath, err)
	}
	if manifest.Name == "" {
		return nil, fmt.Errorf("legacy skill.json %s: missing required field 'name'", jsonPath)
	}

	body := ""
	promptPath := filepath.Join(skillDir, "prompt.md")
	if promptData, err := os.ReadFile(promptPath); err == nil {
		body = string(promptData)
	}

	entry := &types.SkillEntry{
		SkillDefinition: types.SkillDefinition{
			Name:         manifest.Name,
			Description:  manifest.Description,
			WhenToUse:    manifest.WhenToUse,
			ArgumentHint: manifest.ArgumentHint,
			Arguments:    manifest.Arguments,
			AllowedTools: manifest.AllowedTools,
			Context:      manifest.Context,
			Format:       types.SkillFormatLegacy,
			Body:         body,
		},
		FilePath: jsonPath,
	}
	return entry, nil
}
