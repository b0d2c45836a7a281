package prompt

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/weave-logic-ai/clawft-core/pkg/types"
)

// Source priority ordinals. Workspace always wins over user, which
// always wins over builtin, when the same skill name is loaded from
// more than one tier.
const (
	priorityBuiltin   = 0
	priorityUser      = 20
	priorityWorkspace = 30
)

// SkillRegistry holds all available skills, merging builtin, user, and
// workspace-loaded skills. It is safe for concurrent use: readers take
// an RLock, and Discover/Rebuild/Upsert/Remove take a write Lock.
type SkillRegistry struct {
	mu     sync.RWMutex
	skills map[string]types.SkillEntry
}

// NewSkillRegistry creates an empty SkillRegistry.
func NewSkillRegistry() *SkillRegistry {
	return &SkillRegistry{
		skills: make(map[string]types.SkillEntry),
	}
}

// Discover loads skills from builtin, user, and workspace sources, with
// workspace skills trusted by default. See DiscoverWithTrust.
func (r *SkillRegistry) Discover(workspaceDir, userDir string, builtinSkills []types.SkillDefinition) {
	r.DiscoverWithTrust(workspaceDir, userDir, builtinSkills, true)
}

// DiscoverWithTrust replaces the registry's contents with a fresh
// discovery pass across three tiers, in ascending priority:
//
//  1. Builtin skills, passed in directly (lowest priority).
//  2. User skills, from {userDir}/*/SKILL.md or skill.json.
//  3. Workspace skills, from {workspaceDir}/*/SKILL.md or skill.json --
//     loaded only if trustWorkspace is true; otherwise skipped with a
//     warning so a caller can't silently execute untrusted workspace
//     skill content just because a directory happens to exist.
//
// Skills with the same name loaded from a higher-priority tier
// overwrite ones from a lower tier. Missing directories, unreadable
// files, and individually malformed skills are logged and skipped --
// none of those conditions fail discovery as a whole.
func (r *SkillRegistry) DiscoverWithTrust(workspaceDir, userDir string, builtinSkills []types.SkillDefinition, trustWorkspace bool) {
	skills := make(map[string]types.SkillEntry, len(builtinSkills))

	for _, def := range builtinSkills {
		skills[def.Name] = types.SkillEntry{
			SkillDefinition: def,
			Source:          types.SkillSourceEmbedded,
			Priority:        priorityBuiltin,
		}
	}

	if userDir != "" {
		for name, entry := range loadSkillDir(userDir, types.SkillSourceUser, priorityUser) {
			skills[name] = entry
		}
	}

	if workspaceDir != "" {
		if !trustWorkspace {
			log.Printf("skill registry: workspace skills at %s skipped (workspace not trusted)", workspaceDir)
		} else {
			for name, entry := range loadSkillDir(workspaceDir, types.SkillSourceProject, priorityWorkspace) {
				skills[name] = entry
			}
		}
	}

	r.mu.Lock()
	r.skills = skills
	r.mu.Unlock()
}

// Rebuild re-runs DiscoverWithTrust, replacing the entire skill set.
// Intended for the file-system watcher to call after a directory-level
// change it can't easily reason about incrementally (a rename, a batch
// of creates/deletes).
func (r *SkillRegistry) Rebuild(workspaceDir, userDir string, builtinSkills []types.SkillDefinition, trustWorkspace bool) {
	r.DiscoverWithTrust(workspaceDir, userDir, builtinSkills, trustWorkspace)
}

// loadSkillDir scans dir's immediate subdirectories for SKILL.md (preferred)
// or legacy skill.json files. Directory names are validated against path
// traversal (SEC-SKILL-02 in the original); SKILL.md files are size-checked
// before being read (SEC-SKILL-07). Any failure for an individual entry is
// logged and that entry is skipped; a missing dir is not an error at all.
func loadSkillDir(dir string, source types.SkillSource, priority int) map[string]types.SkillEntry {
	skills := make(map[string]types.SkillEntry)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("skill registry: reading %s: %v", dir, err)
		}
		return skills
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		if err := validateDirectoryName(name); err != nil {
			log.Printf("skill registry: rejected skill directory %q: %v", name, err)
			continue
		}

		skillDir := filepath.Join(dir, name)
		skillMDPath := filepath.Join(skillDir, "SKILL.md")
		skillJSONPath := filepath.Join(skillDir, "skill.json")

		if info, statErr := os.Stat(skillMDPath); statErr == nil {
			if sizeErr := validateFileSize(int(info.Size()), MaxSkillMDSizeBytes, "SKILL.md"); sizeErr != nil {
				log.Printf("skill registry: %s: %v", skillMDPath, sizeErr)
				continue
			}
			loaded, parseErr := ParseSkillFile(skillMDPath)
			if parseErr != nil {
				log.Printf("skill registry: failed to parse %s: %v", skillMDPath, parseErr)
				continue
			}
			loaded.Source = source
			loaded.Priority = priority
			skills[loaded.Name] = *loaded
			continue
		}

		if _, statErr := os.Stat(skillJSONPath); statErr == nil {
			loaded, loadErr := loadLegacySkill(skillJSONPath, skillDir)
			if loadErr != nil {
				log.Printf("skill registry: failed to load legacy skill %s: %v", skillJSONPath, loadErr)
				continue
			}
			loaded.Source = source
			loaded.Priority = priority
			skills[loaded.Name] = *loaded
		}
	}

	return skills
}

// Register adds or overwrites a skill entry by name. Kept as the name the
// file-system watcher historically used; equivalent to Upsert.
func (r *SkillRegistry) Register(entry types.SkillEntry) {
	r.Upsert(entry)
}

// Unregister removes a skill by name. Equivalent to Remove.
func (r *SkillRegistry) Unregister(name string) {
	r.Remove(name)
}

// Upsert inserts or replaces a skill entry, returning the entry it
// replaced, if any. Used by the file-system watcher for incremental
// single-file updates that don't warrant a full Rebuild.
func (r *SkillRegistry) Upsert(entry types.SkillEntry) (types.SkillEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, existed := r.skills[entry.Name]
	r.skills[entry.Name] = entry
	return previous, existed
}

// Remove deletes a skill by name, returning the removed entry, if any.
func (r *SkillRegistry) Remove(name string) (types.SkillEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, existed := r.skills[name]
	delete(r.skills, name)
	return entry, existed
}

// Get retrieves a skill by name.
func (r *SkillRegistry) Get(name string) (types.SkillEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.skills[name]
	return entry, ok
}

// GetSkill retrieves a skill by name (satisfies SkillProvider interface).
func (r *SkillRegistry) GetSkill(name string) (types.SkillEntry, bool) {
	return r.Get(name)
}

// List returns all skill entries sorted by name.
func (r *SkillRegistry) List() []types.SkillEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]types.SkillEntry, 0, len(r.skills))
	for _, e := range r.skills {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// ListSkills returns all skill entries sorted by name (satisfies SkillProvider interface).
func (r *SkillRegistry) ListSkills() []types.SkillEntry {
	return r.List()
}

// Names returns all registered skill names in sorted order.
func (r *SkillRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SkillNames returns all skill names in sorted order (satisfies SkillProvider interface).
func (r *SkillRegistry) SkillNames() []string {
	return r.Names()
}

// Len reports the number of loaded skills.
func (r *SkillRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}

// IsEmpty reports whether the registry has no skills loaded.
func (r *SkillRegistry) IsEmpty() bool {
	return r.Len() == 0
}

// SlashCommands returns skill names formatted as slash commands.
func (r *SkillRegistry) SlashCommands() []string {
	names := r.Names()
	cmds := make([]string, len(names))
	copy(cmds, names)
	return cmds
}

// FormatSkillsList generates a formatted string listing all skills for system prompt injection.
func (r *SkillRegistry) FormatSkillsList() string {
	entries := r.List()
	if len(entries) == 0 {
		return ""
	}

	var lines []string
	for _, e := range entries {
		line := fmt.Sprintf("- %s: %s", e.Name, e.Description)
		if e.WhenToUse != "" {
			line += fmt.Sprintf(". %s", e.WhenToUse)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
