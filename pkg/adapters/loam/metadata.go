package loam

// PromptMetadata represents the frontmatter of a flow prompt document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type PromptMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`

	// Assistant holds an optional system prompt prepended to every node of
	// the flow (agent identity, tone, guardrails).
	Assistant string `json:"assistant" mapstructure:"assistant"`

	// Language is a hint for prompt extraction (e.g. "en", "hi").
	Language string `json:"language" mapstructure:"language"`

	Tags []string `json:"tags" mapstructure:"tags"`
}
