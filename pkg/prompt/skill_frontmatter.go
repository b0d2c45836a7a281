package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/weave-logic-ai/clawft-core/pkg/types"
	"gopkg.in/yaml.v3"
)

// skillFrontmatter represents the YAML frontmatter fields in a SKILL.md file.
type skillFrontmatter struct {
	Name                   string   `yaml:"name"`
	Description            string   `yaml:"description"`
	Version                string   `yaml:"version"`
	Variables              []string `yaml:"variables"`
	AllowedTools           []string `yaml:"allowed-tools"`
	AllowedToolsUnderscore []string `yaml:"allowed_tools"`
	WhenToUse              string   `yaml:"when_to_use"`
	ArgumentHint           string   `yaml:"argument-hint"`
	ArgumentHintUnderscore string   `yaml:"argument_hint"`
	Arguments              []string `yaml:"arguments"`
	Context                string   `yaml:"context"`
	UserInvocable          bool     `yaml:"user-invocable"`
	UserInvocableU         bool     `yaml:"user_invocable"`
	DisableModelInvocation bool     `yaml:"disable-model-invocation"`
	DisableModelInvocU     bool     `yaml:"disable_model_invocation"`
}

// knownSkillKeys is the set of frontmatter keys surfaced as typed fields,
// rather than passed through as Metadata.
var knownSkillKeys = map[string]bool{
	"name":                     true,
	"description":              true,
	"version":                  true,
	"variables":                true,
	"allowed-tools":            true,
	"allowed_tools":            true,
	"when_to_use":              true,
	"argument-hint":            true,
	"argument_hint":            true,
	"arguments":                true,
	"context":                  true,
	"user-invocable":           true,
	"user_invocable":           true,
	"disable-model-invocation": true,
	"disable_model_invocation": true,
}

// ParseSkillFile reads a skill definition from a SKILL.md file.
func ParseSkillFile(path string) (*types.SkillEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skill file %s: %w", path, err)
	}
	return ParseSkillContent(data, path)
}

// ParseSkillContent parses a skill definition from raw content with an
// associated file path. The file must begin with YAML frontmatter
// delimited by "---" lines; everything after the closing delimiter is
// treated as the skill's LLM instructions. Only "name" is a required
// frontmatter field; "description" defaults to empty.
func ParseSkillContent(data []byte, filePath string) (*types.SkillEntry, error) {
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, fmt.Errorf("SKILL.md is empty: %s", filePath)
	}

	if err := validateFileSize(len(content), MaxSkillMDSizeBytes, "SKILL.md"); err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	yamlPart, body, ok := splitSkillFrontmatter(content)
	if !ok {
		return nil, fmt.Errorf("%s: missing or malformed YAML frontmatter (expected --- delimiters)", filePath)
	}

	if err := validateYAMLDepth(yamlPart); err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	var fm skillFrontmatter
	if err := yaml.Unmarshal([]byte(yamlPart), &fm); err != nil {
		return nil, fmt.Errorf("parsing YAML in %s: %w", filePath, err)
	}

	if fm.Name == "" {
		return nil, fmt.Errorf("%s: frontmatter missing required field 'name'", filePath)
	}

	if fm.Context != "" && fm.Context != "inline" && fm.Context != "fork" {
		return nil, fmt.Errorf("invalid context %q in %s; must be \"inline\" or \"fork\"", fm.Context, filePath)
	}

	for i, arg := range fm.Arguments {
		if strings.TrimSpace(arg) == "" {
			return nil, fmt.Errorf("empty argument name at index %d in %s", i, filePath)
		}
	}

	allowedTools := fm.AllowedTools
	if len(allowedTools) == 0 {
		allowedTools = fm.AllowedToolsUnderscore
	}
	argumentHint := fm.ArgumentHint
	if argumentHint == "" {
		argumentHint = fm.ArgumentHintUnderscore
	}
	userInvocable := fm.UserInvocable || fm.UserInvocableU
	disableModelInvocation := fm.DisableModelInvocation || fm.DisableModelInvocU

	metadata, err := extractSkillMetadata(yamlPart)
	if err != nil {
		return nil, fmt.Errorf("parsing YAML in %s: %w", filePath, err)
	}

	sanitizedBody, _ := sanitizeSkillInstructions(strings.TrimSpace(body))

	entry := &types.SkillEntry{
		SkillDefinition: types.SkillDefinition{
			Name:                   fm.Name,
			Description:            fm.Description,
			Version:                fm.Version,
			Variables:              fm.Variables,
			AllowedTools:           allowedTools,
			WhenToUse:              fm.WhenToUse,
			ArgumentHint:           argumentHint,
			Arguments:              fm.Arguments,
			Context:                fm.Context,
			UserInvocable:          userInvocable,
			DisableModelInvocation: disableModelInvocation,
			Metadata:               metadata,
			Format:                 types.SkillFormatSkillMd,
			Body:                   sanitizedBody,
		},
		FilePath: filePath,
	}

	return entry, nil
}

// extractSkillMetadata parses the frontmatter a second time into a generic
// value tree so that unrecognized keys (e.g. vendor-specific "openclaw-*"
// fields, or nested configuration blocks) survive as Metadata instead of
// being silently dropped.
func extractSkillMetadata(yamlPart string) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlPart), &raw); err != nil {
		return nil, err
	}

	metadata := make(map[string]interface{})
	for k, v := range raw {
		if knownSkillKeys[k] {
			continue
		}
		metadata[k] = coerceYAMLValue(v)
	}
	if len(metadata) == 0 {
		return nil, nil
	}
	return metadata, nil
}

// coerceYAMLValue recursively stringifies float scalars so that values
// like "version: 1.0" round-trip as "1.0" rather than the ambiguous 1.0.
func coerceYAMLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.1f", val)
		}
		return fmt.Sprintf("%g", val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = coerceYAMLValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = coerceYAMLValue(item)
		}
		return out
	default:
		return v
	}
}

// splitSkillFrontmatter extracts YAML frontmatter and body from Markdown
// content. Frontmatter is delimited by "---" lines at the start of the
// file. Returns ok=false if no frontmatter delimiters are present.
func splitSkillFrontmatter(content string) (yamlPart, body string, ok bool) {
	if !strings.HasPrefix(content, "---") {
		return "", content, false
	}

	rest := content[3:]
	rest = strings.TrimPrefix(rest, "\n")
	rest = strings.TrimPrefix(rest, "\r\n")

	endIdx := strings.Index(rest, "\n---")
	if endIdx < 0 {
		return "", content, false
	}

	yamlContent := rest[:endIdx]
	remaining := rest[endIdx+4:]
	remaining = strings.TrimPrefix(remaining, "\n")
	remaining = strings.TrimPrefix(remaining, "\r\n")

	return yamlContent, strings.TrimSpace(remaining), true
}

// ValidationWarning is a non-fatal issue found in an otherwise valid skill.
type ValidationWarning struct {
	Field   string
	Message string
}

// ValidateSkill returns a list of non-fatal validation warnings.
func ValidateSkill(entry types.SkillEntry) []ValidationWarning {
	var warnings []ValidationWarning

	if entry.WhenToUse == "" {
		warnings = append(warnings, ValidationWarning{
			Field:   "when_to_use",
			Message: "missing 'when_to_use' field; skill may not be auto-invoked effectively",
		})
	}

	if entry.Description == "" {
		warnings = append(warnings, ValidationWarning{
			Field:   "description",
			Message: "missing 'description' field; skill may not be discoverable",
		})
	}

	return warnings
}
