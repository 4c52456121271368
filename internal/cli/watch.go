package cli

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/loam"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/internal/presentation/tui"
	loamAdapter "github.com/convoflow/convoflow/pkg/adapters/loam"
	"github.com/convoflow/convoflow/pkg/session"
)

// RunWatch executes the flow in development mode, rebuilding it whenever the
// prompt library changes. Sessions persist across reloads so a conversation
// keeps its place while the prompt is being edited.
func RunWatch(opts RunOptions) error {
	logger := createLogger(opts.Debug)
	tui.PrintBanner()

	// Default session for watch mode to enable stateful hot reload. Scoped
	// by path hash to prevent collisions between projects.
	if opts.SessionID == "" {
		hash := md5.Sum([]byte(opts.Path))
		opts.SessionID = fmt.Sprintf("watch-%x", hash[:4])
	}

	logger.Info("Starting Watcher", "path", opts.Path, "session_id", opts.SessionID)
	printSystemMessage("Watcher at '%s' session.", opts.SessionID)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	// One manager for the whole watch run, so in-memory sessions survive
	// rebuilds.
	manager, err := setupPersistence(opts, logger)
	if err != nil {
		return err
	}

	for {
		again, err := runWatchIteration(sigCtx, opts, manager)
		if err != nil {
			logger.Error("Watch iteration failed", "err", err)
			select {
			case <-sigCtx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
		}
		if !again {
			return nil
		}
		// First iteration may have reset the session; later ones must not.
		opts.Fresh = false
		logger.Info("Watcher restarting")
	}
}

// runWatchIteration runs one build-watch-run cycle. It returns true when the
// loop should rebuild and go again.
func runWatchIteration(parentCtx *SignalContext, opts RunOptions, manager *session.Manager) (bool, error) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	logger := createLogger(opts.Debug)

	watchCh, err := watchPrompts(ctx, opts.Path)
	if err != nil {
		return false, err
	}

	flow, err := createFlow(opts, logger)
	if err != nil {
		// Broken prompt: hold until the next change instead of exiting, so
		// the author can fix it without restarting the watcher.
		printSystemMessage("Flow build failed: %v", err)
		select {
		case <-parentCtx.Done():
			return false, nil
		case _, ok := <-watchCh:
			return ok, nil
		}
	}

	state, err := hydrateState(ctx, flow, opts, manager)
	if err != nil {
		return false, err
	}

	reloadCh := make(chan struct{}, 1)
	go func() {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-watchCh:
			if ok {
				fmt.Printf("\n")
				printSystemMessage("Change detected, reloading...")
				// Small delay so the file system settles before re-reading.
				time.Sleep(100 * time.Millisecond)
				reloadCh <- struct{}{}
				cancel()
			}
		}
	}()

	runner := convoflow.NewRunner()
	runner.Input = NewInterruptibleReader(os.Stdin, ctx.Done())
	runner.Output = os.Stdout
	runner.Renderer = tui.NewRenderer()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runner.Run(ctx, flow, state)
	}()

	persist := func() {
		if saveErr := manager.Save(context.Background(), opts.SessionID, state); saveErr != nil {
			logger.Warn("Failed to persist session", "session_id", opts.SessionID, "err", saveErr)
		}
	}

	select {
	case <-parentCtx.Done():
		cancel()
		<-doneCh
		persist()
		logCompletion(state.CurrentSectionID, context.Canceled, false, parentCtx.Signal())
		logger.Info("Stopping watcher (signal received)", "signal", parentCtx.Signal())
		return false, nil
	case <-reloadCh:
		cancel()
		<-doneCh
		persist()
		return true, nil
	case runErr := <-doneCh:
		persist()
		if runErr != nil && !isInterrupted(runErr) {
			logger.Error("Runtime error", "err", runErr)
		}
		logCompletion(state.CurrentSectionID, runErr, false, nil)
		printSystemMessage("Waiting for changes...")
		select {
		case <-parentCtx.Done():
			return false, nil
		case _, ok := <-watchCh:
			return ok, nil
		}
	}
}

// watchPrompts opens a change feed on the prompt library. A single prompt
// file is watched through its parent directory.
func watchPrompts(ctx context.Context, path string) (<-chan struct{}, error) {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	repo, err := loam.Init(absDir, loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to watch prompt library: %w", err)
	}

	source := loamAdapter.New(loam.NewTypedRepository[loamAdapter.PromptMetadata](repo))
	return source.Watch(ctx)
}
