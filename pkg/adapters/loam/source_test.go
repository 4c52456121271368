package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/internal/testutils"
	"github.com/convoflow/convoflow/pkg/domain"
)

func TestSource_GetPrompt(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)
	ctx := context.Background()

	doc := core.Document{
		ID: "sales.md",
		Content: `---
id: sales
name: Sales Flow
language: en
---
[Greeting]
Hello! This is Priya from Meena Naturals.`,
	}
	require.NoError(t, repo.Save(ctx, doc))

	typedRepo := loam.NewTypedRepository[PromptMetadata](repo)
	source := New(typedRepo)

	content, err := source.GetPrompt("sales")
	require.NoError(t, err)
	assert.Contains(t, content, "[Greeting]")
	assert.NotContains(t, content, "name: Sales Flow", "frontmatter must be stripped from the body")

	meta, err := source.GetMetadata("sales")
	require.NoError(t, err)
	assert.Equal(t, "Sales Flow", meta.Name)
	assert.Equal(t, "en", meta.Language)
}

func TestSource_GetPrompt_NotFound(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)
	source := New(loam.NewTypedRepository[PromptMetadata](repo))

	_, err := source.GetPrompt("missing")
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestSource_ListPrompts_NormalizesIDs(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	files := map[string]string{
		"sales.md": `---
id: sales.md
---
Sales`,
		"implicit.md": `---
name: Implicit
---
ID is implied from filename`,
	}

	for filename, content := range files {
		err := os.WriteFile(filepath.Join(tmpDir, filename), []byte(content), 0644)
		require.NoError(t, err)
	}

	source := New(loam.NewTypedRepository[PromptMetadata](repo))

	ids, err := source.ListPrompts()
	require.NoError(t, err)

	assert.Contains(t, ids, "sales", "sales.md should become sales")
	assert.Contains(t, ids, "implicit", "implicit.md should become implicit")
	assert.Len(t, ids, 2)
}

func TestSource_ListPrompts_DetectsCollisions(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	files := map[string]string{
		"flow.md": `---
id: flow
---
One`,
		"nested.md": `---
id: flow
---
Two`,
	}

	for filename, content := range files {
		err := os.WriteFile(filepath.Join(tmpDir, filename), []byte(content), 0644)
		require.NoError(t, err)
	}

	source := New(loam.NewTypedRepository[PromptMetadata](repo))

	_, err := source.ListPrompts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision")
}
