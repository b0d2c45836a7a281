package types

// SkillFormat identifies the on-disk format a skill was parsed from.
type SkillFormat int

const (
	SkillFormatSkillMd SkillFormat = iota
	SkillFormatLegacy
)

func (f SkillFormat) String() string {
	if f == SkillFormatLegacy {
		return "legacy"
	}
	return "skill-md"
}

// SkillDefinition describes a reusable skill that can be invoked by the LLM.
type SkillDefinition struct {
	Name                   string                 `json:"name" yaml:"name"`
	Description            string                 `json:"description" yaml:"description"`
	Version                string                 `json:"version,omitempty" yaml:"version,omitempty"`
	Variables              []string               `json:"variables,omitempty" yaml:"variables,omitempty"`
	AllowedTools           []string               `json:"allowed-tools,omitempty" yaml:"allowed-tools"`
	WhenToUse              string                 `json:"when_to_use,omitempty" yaml:"when_to_use"`
	ArgumentHint           string                 `json:"argument-hint,omitempty" yaml:"argument-hint"`
	Arguments              []string               `json:"arguments,omitempty" yaml:"arguments"`
	Context                string                 `json:"context,omitempty" yaml:"context"` // "inline" (default) or "fork"
	UserInvocable          bool                   `json:"user_invocable,omitempty" yaml:"user-invocable,omitempty"`
	DisableModelInvocation bool                   `json:"disable_model_invocation,omitempty" yaml:"disable-model-invocation,omitempty"`
	Metadata               map[string]interface{} `json:"metadata,omitempty" yaml:"-"`
	Format                 SkillFormat            `json:"-" yaml:"-"`
	Body                   string                 `json:"body,omitempty" yaml:"-"` // markdown body after frontmatter
}

// SkillSource identifies where a skill definition was loaded from.
type SkillSource int

const (
	SkillSourceEmbedded SkillSource = iota
	SkillSourcePlugin
	SkillSourceUser
	SkillSourceProject
)

// String returns a human-readable name for the skill source.
func (s SkillSource) String() string {
	switch s {
	case SkillSourceEmbedded:
		return "embedded"
	case SkillSourcePlugin:
		return "plugin"
	case SkillSourceUser:
		return "user"
	case SkillSourceProject:
		return "project"
	default:
		return "unknown"
	}
}

// SkillEntry wraps a SkillDefinition with loader metadata.
type SkillEntry struct {
	SkillDefinition
	Source   SkillSource
	Priority int
	FilePath string
}
