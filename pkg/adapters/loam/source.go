package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"

	"github.com/convoflow/convoflow/pkg/domain"
)

// Source adapts the Loam library to the convoflow PromptSource interface.
// Flow prompts live as markdown documents with frontmatter metadata; the
// document body is the raw prompt text handed to the parser.
type Source struct {
	Repo *loam.TypedRepository[PromptMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[PromptMetadata]) *Source {
	return &Source{
		Repo: repo,
	}
}

// GetPrompt retrieves a prompt's body from the Loam repository.
// Loam resolves "sales" to sales.md transparently.
func (s *Source) GetPrompt(id string) (string, error) {
	ctx := context.Background()

	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrPromptNotFound, id)
	}
	return doc.Content, nil
}

// GetMetadata retrieves a prompt's frontmatter without its body.
func (s *Source) GetMetadata(id string) (PromptMetadata, error) {
	ctx := context.Background()

	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return PromptMetadata{}, fmt.Errorf("%w: %s", domain.ErrPromptNotFound, id)
	}
	return doc.Data, nil
}

// ListPrompts lists all prompts in the repository, with extensions stripped.
// IDs must be unique after normalization; a collision is an error rather
// than a silent shadowing.
func (s *Source) ListPrompts() ([]string, error) {
	ctx := context.Background()
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		// Use the ID from metadata if available, otherwise filename ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable. It collapses Loam change events into a
// bare reparse signal.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := s.Repo.Watch(ctx, "**/*.{md,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce bursts: a pending signal already implies reparse.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
