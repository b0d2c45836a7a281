package prompt

import (
	"path/filepath"

	"github.com/weave-logic-ai/clawft-core/pkg/types"
)

// SkillLoader discovers and loads skill definitions from the filesystem.
type SkillLoader struct {
	cwd        string
	userDir    string
	pluginDirs []string
}

// NewSkillLoader creates a SkillLoader that scans the given directories.
// cwd is used to find project skills at {cwd}/.claude/skills/.
// userDir is used to find user skills at {userDir}/skills/.
// Optional pluginDirs are scanned for plugin-provided skills.
func NewSkillLoader(cwd, userDir string, pluginDirs ...string) *SkillLoader {
	return &SkillLoader{
		cwd:        cwd,
		userDir:    userDir,
		pluginDirs: pluginDirs,
	}
}

// LoadAll discovers and loads all skill definitions from configured directories.
// Returns a map keyed by skill name. Higher-priority sources overwrite lower.
// Priority: Plugin (10) < User (20) < Project (30).
// LoadAll never fails on its own account: missing directories and
// individually malformed skills are logged and skipped by loadSkillDir,
// the same discovery primitive SkillRegistry.Discover uses. The error
// return is kept for interface stability with existing callers.
func (l *SkillLoader) LoadAll() (map[string]types.SkillEntry, error) {
	skills := make(map[string]types.SkillEntry)

	// Plugin dirs (priority 10, below user and project).
	for _, dir := range l.pluginDirs {
		for name, entry := range loadSkillDir(dir, types.SkillSourcePlugin, 10) {
			skills[name] = entry
		}
	}

	// User dir: {userDir}/skills/
	if l.userDir != "" {
		userSkillsDir := filepath.Join(l.userDir, "skills")
		for name, entry := range loadSkillDir(userSkillsDir, types.SkillSourceUser, 20) {
			if existing, ok := skills[name]; !ok || entry.Priority >= existing.Priority {
				skills[name] = entry
			}
		}
	}

	// Project dir: {cwd}/.claude/skills/
	if l.cwd != "" {
		projectSkillsDir := filepath.Join(l.cwd, ".claude", "skills")
		for name, entry := range loadSkillDir(projectSkillsDir, types.SkillSourceProject, 30) {
			if existing, ok := skills[name]; !ok || entry.Priority >= existing.Priority {
				skills[name] = entry
			}
		}
	}

	return skills, nil
}
