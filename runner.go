package convoflow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
)

// Runner drives a flow interactively using provided IO, prompting for each
// node's required fields and advancing until the flow is exhausted or ended.
// This allows for easy testing and integration with different frontends
// (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer is a function that transforms node content before
// outputting it. This allows for TUI rendering (markdown to ANSI) without
// coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a new Runner. Input and Output must be set before Run
// (use os.Stdin / os.Stdout).
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes the flow loop until the conversation ends.
func (r *Runner) Run(ctx context.Context, f *Flow, state *domain.ConversationState) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	node, err := f.currentNode(state)
	if err != nil {
		return err
	}

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- convoflow (Runner) ---")
	}

	for {
		if err := r.display(node); err != nil {
			return err
		}

		fn := node.Primary()
		if fn == nil {
			return nil
		}

		args, quit, err := r.collectArgs(lineReader, fn)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}

		_, next, err := f.Call(ctx, state, fn.Name, args)
		if err != nil {
			return err
		}
		if state.Ended {
			if !r.Headless {
				fmt.Fprintln(r.Output, "--- conversation ended ---")
			}
			return nil
		}
		if next != nil {
			if next.ID == node.ID {
				fmt.Fprintln(r.Output, "(missing required information, asking again)")
			}
			node = next
		}
	}
}

func (f *Flow) currentNode(state *domain.ConversationState) (*domain.Node, error) {
	if state.CurrentSectionID != "" {
		return f.Node(state.CurrentSectionID)
	}
	return f.EntryNode()
}

func (r *Runner) display(node *domain.Node) error {
	content := node.Task
	if content == "" {
		content = node.Instructions
	}

	if r.Renderer != nil {
		rendered, err := r.Renderer(content)
		if err == nil {
			content = rendered
		}
	}

	fmt.Fprintf(r.Output, "\n[%s] %s\n", node.SectionType, node.ID)
	fmt.Fprintln(r.Output, content)
	return nil
}

// collectArgs prompts for each declared field of the function. Entering
// "/quit" aborts the run.
func (r *Runner) collectArgs(reader *bufio.Reader, fn *domain.FunctionSchema) (map[string]any, bool, error) {
	args := make(map[string]any)

	fields := fn.Required
	if len(fields) == 0 {
		fields = []string{"response"}
	}

	for _, field := range fields {
		fmt.Fprintf(r.Output, "%s> ", field)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, true, nil
			}
			return nil, false, err
		}
		line = strings.TrimSpace(line)
		if line == "/quit" {
			return nil, true, nil
		}
		args[field] = line
	}

	return args, false, nil
}
