package memory

import (
	"sort"

	"github.com/convoflow/convoflow/pkg/domain"
)

// Source implements ports.PromptSource using an in-memory map.
type Source struct {
	prompts map[string]string
}

// NewSource creates a new in-memory prompt source from raw prompt texts.
func NewSource(prompts map[string]string) *Source {
	data := make(map[string]string, len(prompts))
	for k, v := range prompts {
		data[k] = v
	}
	return &Source{prompts: data}
}

// GetPrompt retrieves a prompt by ID.
func (s *Source) GetPrompt(id string) (string, error) {
	content, ok := s.prompts[id]
	if !ok {
		return "", domain.ErrPromptNotFound
	}
	return content, nil
}

// ListPrompts returns all available prompt IDs.
func (s *Source) ListPrompts() ([]string, error) {
	keys := make([]string, 0, len(s.prompts))
	for k := range s.prompts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
