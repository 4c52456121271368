package cli

import (
	"context"
	"fmt"
	"os"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/internal/presentation/tui"
	"github.com/convoflow/convoflow/pkg/domain"
)

// RunSession executes a single interactive conversation.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	if !opts.Headless {
		tui.PrintBanner()
	}

	flow, err := createFlow(opts, logger)
	if err != nil {
		return fmt.Errorf("error initializing flow: %w", err)
	}

	manager, err := setupPersistence(opts, logger)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	state, err := hydrateState(sigCtx, flow, opts, manager)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}

	runner := convoflow.NewRunner()
	runner.Input = NewInterruptibleReader(os.Stdin, sigCtx.Done())
	runner.Output = os.Stdout
	runner.Headless = opts.Headless
	if !opts.Headless {
		runner.Renderer = tui.NewRenderer()
	}

	runErr := runner.Run(sigCtx, flow, state)

	if opts.SessionID != "" {
		// Persist whatever progress was made, even on interrupt.
		if saveErr := manager.Save(context.Background(), opts.SessionID, state); saveErr != nil {
			logger.Warn("Failed to persist session", "session_id", opts.SessionID, "err", saveErr)
		}
	}

	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	logCompletion(state.CurrentSectionID, runErr, opts.Headless, sigCtx.Signal())
	return handleExecutionError(runErr)
}

// hydrateState loads or initializes the conversation state. Anonymous runs
// (no session ID) always start fresh and are never persisted.
func hydrateState(ctx context.Context, flow *convoflow.Flow, opts RunOptions, manager sessionManager) (*domain.ConversationState, error) {
	entry, err := flow.EntryNode()
	if err != nil {
		return nil, err
	}

	if opts.SessionID == "" {
		state := domain.NewConversationState()
		state.CurrentSectionID = entry.ID
		state.ConversationPath = append(state.ConversationPath, entry.ID)
		return state, nil
	}

	if opts.Fresh {
		if err := manager.Delete(ctx, opts.SessionID); err != nil && err != domain.ErrSessionNotFound {
			return nil, err
		}
	}

	state, err := manager.LoadOrStart(ctx, opts.SessionID, entry.ID)
	if err != nil {
		return nil, err
	}

	// Reload guardrail: the prompt may have changed since the session was
	// saved, leaving the state on a section that no longer exists.
	if state.CurrentSectionID != "" {
		if _, nodeErr := flow.Node(state.CurrentSectionID); nodeErr != nil {
			printSystemMessage("Section '%s' no longer exists, restarting at '%s'.", state.CurrentSectionID, entry.ID)
			state.CurrentSectionID = entry.ID
			state.ConversationPath = append(state.ConversationPath, entry.ID)
		}
	}

	return state, nil
}

// sessionManager is the slice of session.Manager the CLI needs; it keeps
// hydrateState testable with a fake.
type sessionManager interface {
	LoadOrStart(ctx context.Context, sessionID string, entrySection string) (*domain.ConversationState, error)
	Delete(ctx context.Context, sessionID string) error
}
