package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weave-logic-ai/clawft-core/pkg/types"
)

func writeSkillMD(t *testing.T, base, name, desc, body string) {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "---\nname: " + name + "\ndescription: " + desc + "\n---\n\n" + body
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeLegacySkill(t *testing.T, base, name, desc, prompt string) {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	json := `{"name":"` + name + `","description":"` + desc + `"}`
	if err := os.WriteFile(filepath.Join(dir, "skill.json"), []byte(json), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "prompt.md"), []byte(prompt), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSkillRegistry_RegisterAndGet(t *testing.T) {
	r := NewSkillRegistry()
	entry := types.SkillEntry{
		SkillDefinition: types.SkillDefinition{
			Name:        "test",
			Description: "A test skill",
		},
	}

	r.Register(entry)

	got, ok := r.Get("test")
	if !ok {
		t.Fatal("expected to find skill 'test'")
	}
	if got.Description != "A test skill" {
		t.Errorf("Description = %q", got.Description)
	}
}

func TestSkillRegistry_GetSkill(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(types.SkillEntry{
		SkillDefinition: types.SkillDefinition{Name: "x", Description: "X"},
	})

	got, ok := r.GetSkill("x")
	if !ok {
		t.Fatal("expected to find skill")
	}
	if got.Name != "x" {
		t.Errorf("Name = %q", got.Name)
	}
}

func TestSkillRegistry_GetNotFound(t *testing.T) {
	r := NewSkillRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("expected not found")
	}
}

func TestSkillRegistry_Unregister(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(types.SkillEntry{
		SkillDefinition: types.SkillDefinition{Name: "temp", Description: "Temporary"},
	})

	r.Unregister("temp")
	_, ok := r.Get("temp")
	if ok {
		t.Error("expected skill to be unregistered")
	}
}

func TestSkillRegistry_ListSorted(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "charlie", Description: "C"}})
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "alpha", Description: "A"}})
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "bravo", Description: "B"}})

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 skills, got %d", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "bravo" || list[2].Name != "charlie" {
		t.Errorf("list order: %s, %s, %s", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestSkillRegistry_Names(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "b", Description: "B"}})
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "a", Description: "A"}})

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names = %v", names)
	}
}

func TestSkillRegistry_SlashCommands(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "commit", Description: "Git commit"}})
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "deploy", Description: "Deploy"}})

	cmds := r.SlashCommands()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
}

func TestSkillRegistry_FormatSkillsList(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(types.SkillEntry{
		SkillDefinition: types.SkillDefinition{
			Name:        "deploy",
			Description: "Deploy the app",
			WhenToUse:   "When user asks to deploy",
		},
	})
	r.Register(types.SkillEntry{
		SkillDefinition: types.SkillDefinition{
			Name:        "commit",
			Description: "Create a git commit",
		},
	})

	formatted := r.FormatSkillsList()

	if !strings.Contains(formatted, "- commit: Create a git commit") {
		t.Errorf("missing commit entry in:\n%s", formatted)
	}
	if !strings.Contains(formatted, "- deploy: Deploy the app. When user asks to deploy") {
		t.Errorf("missing deploy entry with when_to_use in:\n%s", formatted)
	}

	// Verify alphabetical order
	commitIdx := strings.Index(formatted, "commit")
	deployIdx := strings.Index(formatted, "deploy")
	if commitIdx > deployIdx {
		t.Error("expected alphabetical order (commit before deploy)")
	}
}

func TestSkillRegistry_FormatSkillsListEmpty(t *testing.T) {
	r := NewSkillRegistry()
	if got := r.FormatSkillsList(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestResolveSkills_PriorityOverride(t *testing.T) {
	embedded := map[string]types.SkillEntry{
		"shared": {
			SkillDefinition: types.SkillDefinition{Name: "shared", Description: "Embedded"},
			Priority:        0,
		},
	}
	fileBased := map[string]types.SkillEntry{
		"shared": {
			SkillDefinition: types.SkillDefinition{Name: "shared", Description: "File"},
			Priority:        30,
		},
		"extra": {
			SkillDefinition: types.SkillDefinition{Name: "extra", Description: "Extra"},
			Priority:        30,
		},
	}

	result := ResolveSkills(embedded, fileBased)

	if len(result) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(result))
	}
	if result["shared"].Description != "File" {
		t.Errorf("shared Description = %q, want %q", result["shared"].Description, "File")
	}
}

func TestResolveSkills_LowerPriorityDoesNotOverwrite(t *testing.T) {
	high := map[string]types.SkillEntry{
		"x": {
			SkillDefinition: types.SkillDefinition{Name: "x", Description: "High"},
			Priority:        30,
		},
	}
	low := map[string]types.SkillEntry{
		"x": {
			SkillDefinition: types.SkillDefinition{Name: "x", Description: "Low"},
			Priority:        10,
		},
	}

	// High first, then low â€” low should NOT overwrite
	result := ResolveSkills(high, low)
	if result["x"].Description != "High" {
		t.Errorf("Description = %q, want %q", result["x"].Description, "High")
	}
}

func TestLoadEmbeddedSkills(t *testing.T) {
	skills := LoadEmbeddedSkills()
	if len(skills) != 4 {
		t.Fatalf("expected 4 embedded skills, got %d", len(skills))
	}

	for _, name := range []string{"routing-diagnostics", "budget-tuning", "sandbox-policy-review", "skill-authoring"} {
		skill, ok := skills[name]
		if !ok {
			t.Errorf("missing embedded skill %q", name)
			continue
		}
		if skill.Source != types.SkillSourceEmbedded {
			t.Errorf("%s Source = %v, want Embedded", name, skill.Source)
		}
		if skill.Priority != 0 {
			t.Errorf("%s Priority = %d, want 0", name, skill.Priority)
		}
		if skill.Description == "" {
			t.Errorf("%s has empty description", name)
		}
	}
}

func TestLoadEmbeddedSkills_HaveBodies(t *testing.T) {
	skills := LoadEmbeddedSkills()
	for name, skill := range skills {
		if skill.Body == "" {
			t.Errorf("embedded skill %q has empty body", name)
		}
	}
}

func TestDiscover_EmptyWhenNoSources(t *testing.T) {
	r := NewSkillRegistry()
	r.Discover("", "", nil)
	if !r.IsEmpty() || r.Len() != 0 {
		t.Errorf("expected empty registry, got %d entries", r.Len())
	}
}

func TestDiscover_LoadsBuiltinSkills(t *testing.T) {
	r := NewSkillRegistry()
	r.Discover("", "", []types.SkillDefinition{
		{Name: "alpha", Description: "Alpha skill"},
		{Name: "beta", Description: "Beta skill"},
	})

	if r.Len() != 2 {
		t.Fatalf("expected 2 skills, got %d", r.Len())
	}
	if _, ok := r.Get("alpha"); !ok {
		t.Error("expected alpha to be loaded")
	}
	if _, ok := r.Get("gamma"); ok {
		t.Error("did not expect gamma to be loaded")
	}
}

func TestDiscover_WorkspaceOverridesUserOverridesBuiltin(t *testing.T) {
	userDir := t.TempDir()
	wsDir := t.TempDir()

	writeSkillMD(t, userDir, "shared", "User version", "User instructions")
	writeSkillMD(t, wsDir, "shared", "Workspace version", "Workspace instructions")

	r := NewSkillRegistry()
	r.Discover(wsDir, userDir, []types.SkillDefinition{{Name: "shared", Description: "Builtin version"}})

	skill, ok := r.Get("shared")
	if !ok {
		t.Fatal("expected 'shared' to be loaded")
	}
	if skill.Description != "Workspace version" {
		t.Errorf("Description = %q, want workspace version to win", skill.Description)
	}
}

func TestDiscover_UserOverridesBuiltin(t *testing.T) {
	userDir := t.TempDir()
	writeSkillMD(t, userDir, "tool", "User tool", "User tool prompt")

	r := NewSkillRegistry()
	r.Discover("", userDir, []types.SkillDefinition{{Name: "tool", Description: "Builtin tool"}})

	skill, ok := r.Get("tool")
	if !ok {
		t.Fatal("expected 'tool' to be loaded")
	}
	if skill.Description != "User tool" {
		t.Errorf("Description = %q, want user skill to win", skill.Description)
	}
}

func TestDiscover_MissingDirectoriesAreHarmless(t *testing.T) {
	r := NewSkillRegistry()
	r.Discover("/tmp/clawft-definitely-missing-xyz", "/tmp/clawft-also-missing-xyz",
		[]types.SkillDefinition{{Name: "only", Description: "The only skill"}})

	if r.Len() != 1 {
		t.Fatalf("expected 1 skill, got %d", r.Len())
	}
}

func TestDiscover_LoadsLegacySkillJSON(t *testing.T) {
	dir := t.TempDir()
	writeLegacySkill(t, dir, "legacy", "Legacy skill", "Legacy prompt")

	r := NewSkillRegistry()
	r.Discover(dir, "", nil)

	skill, ok := r.Get("legacy")
	if !ok {
		t.Fatal("expected legacy skill to load")
	}
	if skill.Description != "Legacy skill" || skill.Body != "Legacy prompt" {
		t.Errorf("legacy skill = %+v", skill)
	}
	if skill.Format != types.SkillFormatLegacy {
		t.Errorf("Format = %v, want legacy", skill.Format)
	}
}

func TestDiscover_SkillMDPreferredOverLegacyJSON(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "dual")
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	md := "---\nname: dual\ndescription: SKILL.md version\n---\n\nBody."
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(md), 0o644); err != nil {
		t.Fatal(err)
	}
	json := `{"name":"dual","description":"Legacy version"}`
	if err := os.WriteFile(filepath.Join(skillDir, "skill.json"), []byte(json), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewSkillRegistry()
	r.Discover(dir, "", nil)

	skill, ok := r.Get("dual")
	if !ok {
		t.Fatal("expected 'dual' to load")
	}
	if skill.Description != "SKILL.md version" || skill.Format != types.SkillFormatSkillMd {
		t.Errorf("skill = %+v, expected SKILL.md to win", skill)
	}
}

func TestDiscover_SkipsInvalidSkillDirectories(t *testing.T) {
	dir := t.TempDir()
	writeSkillMD(t, dir, "good", "Good skill", "Good prompt")

	badDir := filepath.Join(dir, "bad")
	if err := os.MkdirAll(badDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(badDir, "SKILL.md"), []byte("---\ndescription: No name\n---\n\nBody."), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewSkillRegistry()
	r.Discover(dir, "", nil)

	if r.Len() != 1 {
		t.Fatalf("expected only the valid skill to load, got %d", r.Len())
	}
	if _, ok := r.Get("good"); !ok {
		t.Error("expected 'good' to be loaded")
	}
}

func TestDiscoverWithTrust_WorkspaceBlockedWithoutTrust(t *testing.T) {
	wsDir := t.TempDir()
	writeSkillMD(t, wsDir, "ws_skill", "WS skill", "WS prompt")

	r := NewSkillRegistry()
	r.DiscoverWithTrust(wsDir, "", []types.SkillDefinition{{Name: "builtin", Description: "Built-in"}}, false)

	if _, ok := r.Get("ws_skill"); ok {
		t.Error("expected workspace skill to be blocked without trust")
	}
	if _, ok := r.Get("builtin"); !ok {
		t.Error("expected builtin skill to still load")
	}
}

func TestDiscoverWithTrust_WorkspaceAllowedWithTrust(t *testing.T) {
	wsDir := t.TempDir()
	writeSkillMD(t, wsDir, "ws_skill", "WS skill", "WS prompt")

	r := NewSkillRegistry()
	r.DiscoverWithTrust(wsDir, "", nil, true)

	if _, ok := r.Get("ws_skill"); !ok {
		t.Error("expected workspace skill to load when trusted")
	}
}

func TestDiscover_RejectsTraversalDirectoryName(t *testing.T) {
	dir := t.TempDir()
	evilDir := filepath.Join(dir, "..evil")
	if err := os.MkdirAll(evilDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(evilDir, "SKILL.md"), []byte("---\nname: evil\ndescription: Evil\n---\n\nEvil."), 0o644); err != nil {
		t.Fatal(err)
	}
	writeSkillMD(t, dir, "good", "Good skill", "Good prompt")

	r := NewSkillRegistry()
	r.Discover(dir, "", nil)

	if _, ok := r.Get("good"); !ok {
		t.Error("expected 'good' to load")
	}
	if _, ok := r.Get("evil"); ok {
		t.Error("expected skill from traversal-named directory to be rejected")
	}
}

func TestRegistry_RebuildReplacesContents(t *testing.T) {
	wsDir := t.TempDir()
	writeSkillMD(t, wsDir, "first", "First", "First body")

	r := NewSkillRegistry()
	r.Discover(wsDir, "", nil)
	if _, ok := r.Get("first"); !ok {
		t.Fatal("expected 'first' after initial discovery")
	}

	if err := os.RemoveAll(filepath.Join(wsDir, "first")); err != nil {
		t.Fatal(err)
	}
	writeSkillMD(t, wsDir, "second", "Second", "Second body")

	r.Rebuild(wsDir, "", nil, true)

	if _, ok := r.Get("first"); ok {
		t.Error("expected 'first' to be gone after rebuild")
	}
	if _, ok := r.Get("second"); !ok {
		t.Error("expected 'second' after rebuild")
	}
}

func TestRegistry_UpsertReturnsPrevious(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "x", Description: "v1"}})

	previous, existed := r.Upsert(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "x", Description: "v2"}})
	if !existed {
		t.Fatal("expected previous entry to exist")
	}
	if previous.Description != "v1" {
		t.Errorf("previous.Description = %q, want v1", previous.Description)
	}
	current, _ := r.Get("x")
	if current.Description != "v2" {
		t.Errorf("current.Description = %q, want v2", current.Description)
	}
}

func TestRegistry_RemoveReturnsEntry(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(types.SkillEntry{SkillDefinition: types.SkillDefinition{Name: "x", Description: "v1"}})

	removed, existed := r.Remove("x")
	if !existed || removed.Description != "v1" {
		t.Errorf("Remove returned %+v, existed=%v", removed, existed)
	}
	if _, ok := r.Get("x"); ok {
		t.Error("expected 'x' to be gone")
	}
}
