// Package cli implements the shared plumbing of the convoflow commands:
// flow construction from files or prompt libraries, session persistence,
// signal handling and the interactive/watch run loops.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Path      string // Prompt file or Loam repository directory
	PromptID  string // Prompt to load when Path is a repository
	Headless  bool
	Watch     bool
	Debug     bool
	SessionID string
	Fresh     bool
	RedisURL  string
	ToolsPath string
	Assistant string // Assistant prompt prepended to node instructions
}

// Execute handles the run command logic, dispatching to session or watch mode.
func Execute(opts RunOptions) error {
	// Smart default for tools: if not explicitly set, check next to the prompt.
	if opts.ToolsPath == "tools.yaml" {
		candidate := filepath.Join(promptDir(opts.Path), "tools.yaml")
		if _, err := os.Stat(candidate); err == nil {
			opts.ToolsPath = candidate
		}
	}

	if opts.Watch {
		if opts.Headless {
			return fmt.Errorf("--watch and --headless cannot be used together")
		}
		return RunWatch(opts)
	}

	return RunSession(opts)
}

func promptDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}
