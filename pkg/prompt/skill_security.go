package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxSkillMDSizeBytes bounds how large a single SKILL.md file may be.
// Files larger than this are rejected before any YAML parsing happens.
const MaxSkillMDSizeBytes = 50 * 1024

// maxYAMLDepth bounds how deeply frontmatter mappings/sequences may nest.
// A malicious SKILL.md could otherwise force an expensive or stack-heavy
// parse via deeply nested structures.
const maxYAMLDepth = 10

// validateFileSize rejects content whose size exceeds max.
func validateFileSize(size, max int, label string) error {
	if size > max {
		return fmt.Errorf("%s exceeds maximum size of %d bytes (got %d)", label, max, size)
	}
	return nil
}

// validateDirectoryName rejects skill directory names that could escape
// the skills directory: empty names, ".", "..", embedded path separators,
// and leading dots (hidden directories).
func validateDirectoryName(name string) error {
	if name == "" {
		return fmt.Errorf("skill directory name must not be empty")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("skill directory name %q is not allowed", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("skill directory name %q must not contain path separators", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("skill directory name %q must not contain '..'", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("skill directory name %q must not start with '.'", name)
	}
	return nil
}

// validateYAMLDepth rejects frontmatter whose mapping/sequence nesting
// exceeds maxYAMLDepth, without caring what the values actually are.
func validateYAMLDepth(yamlBlock string) error {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(yamlBlock), &node); err != nil {
		// Malformed YAML is reported later by the real parse; depth
		// validation only rejects things it can actually measure.
		return nil
	}
	depth := nodeDepth(&node)
	if depth > maxYAMLDepth {
		return fmt.Errorf("frontmatter nesting depth %d exceeds maximum of %d", depth, maxYAMLDepth)
	}
	return nil
}

func nodeDepth(n *yaml.Node) int {
	if n == nil || len(n.Content) == 0 {
		return 0
	}
	max := 0
	for _, child := range n.Content {
		if d := nodeDepth(child); d > max {
			max = d
		}
	}
	return max + 1
}

var systemTagPattern = regexp.MustCompile(`(?is)</?\s*system\s*>`)

// sanitizeSkillInstructions strips tags that could be used to smuggle a
// fake system-role turn into the skill body, returning the cleaned body
// plus a human-readable warning per occurrence removed.
func sanitizeSkillInstructions(body string) (string, []string) {
	var warnings []string
	cleaned := systemTagPattern.ReplaceAllStringFunc(body, func(match string) string {
		warnings = append(warnings, fmt.Sprintf("stripped %q tag from skill instructions", strings.ToLower(strings.TrimSpace(match))))
		return ""
	})
	return cleaned, warnings
}
