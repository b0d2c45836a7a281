package prompt

import (
	"embed"
	"io/fs"
	"sync"
)

//go:embed prompts/skills/*.md
var skillPrompts embed.FS

var (
	promptCache   = make(map[string]string)
	promptCacheMu sync.RWMutex
)

// loadPrompt reads and caches a prompt from an embedded filesystem.
// name should be the full path within the FS (e.g., "prompts/skills/skill-foo.md").
func loadPrompt(fsys embed.FS, name string) string {
	promptCacheMu.RLock()
	if v, ok := promptCache[name]; ok {
		promptCacheMu.RUnlock()
		return v
	}
	promptCacheMu.RUnlock()

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return ""
	}
	content := string(data)

	promptCacheMu.Lock()
	promptCache[name] = content
	promptCacheMu.Unlock()

	return content
}

// loadSkillPrompt loads a prompt from the skills directory.
func loadSkillPrompt(name string) string {
	return loadPrompt(skillPrompts, "prompts/skills/"+name)
}
