package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/convoflow/convoflow/internal/logging"
	"github.com/convoflow/convoflow/pkg/adapters/memory"
	redisAdapter "github.com/convoflow/convoflow/pkg/adapters/redis"
	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/session"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows
// retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout flow UI).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

// SetupSessions exposes session storage setup to the command layer.
func SetupSessions(opts RunOptions, logger *slog.Logger) (*session.Manager, error) {
	return setupPersistence(opts, logger)
}

// setupPersistence initializes the state store and session manager. With a
// Redis URL the store and lock are distributed; otherwise sessions live in
// process memory for the duration of the run.
func setupPersistence(opts RunOptions, logger *slog.Logger) (*session.Manager, error) {
	if opts.RedisURL != "" {
		store := redisAdapter.New(opts.RedisURL)
		locker := redisAdapter.NewLocker(store.Client(), "convoflow:")
		return session.NewManager(store,
			session.WithLocker(locker),
			session.WithLogger(logger),
		), nil
	}
	return session.NewManager(memory.NewStore(), session.WithLogger(logger)), nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlowParsed: func(ctx context.Context, e *domain.FlowEvent) {
			logger.Debug("Flow Parsed", "sections", e.SectionCount, "steps", e.StepCount)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "node_id", e.NodeID, "type", e.SectionType)
		},
		OnHandlerCalled: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Handler Called", "node_id", e.NodeID, "function", e.Function)
		},
		OnReprompt: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Reprompt", "node_id", e.NodeID)
		},
		OnObjection: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Objection Raised", "node_id", e.NodeID)
		},
	}
}

// InterruptibleReader wraps an io.Reader (like os.Stdin) and checks for a
// cancellation signal before and after each blocking read.
type InterruptibleReader struct {
	base   io.Reader
	cancel <-chan struct{}
}

func NewInterruptibleReader(base io.Reader, cancel <-chan struct{}) *InterruptibleReader {
	return &InterruptibleReader{
		base:   base,
		cancel: cancel,
	}
}

func (r *InterruptibleReader) Read(p []byte) (n int, err error) {
	select {
	case <-r.cancel:
		return 0, errors.New("interrupted")
	default:
	}

	n, err = r.base.Read(p)

	select {
	case <-r.cancel:
		return 0, errors.New("interrupted")
	default:
	}
	return n, err
}

func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) ||
		err.Error() == "interrupted" ||
		(errors.Unwrap(err) != nil && isInterrupted(errors.Unwrap(err)))
}

func handleExecutionError(err error) error {
	if err == nil {
		return nil
	}
	if isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}

func logCompletion(sectionID string, err error, quiet bool, sig os.Signal) {
	if quiet {
		return
	}
	if err == nil {
		printSystemMessage("Finished at '%s'.", sectionID)
		return
	}
	if isInterrupted(err) {
		if sig == os.Interrupt {
			fmt.Printf("[CTRL+C]\n")
		} else {
			fmt.Printf("\n")
		}
		printSystemMessage("Interrupted at '%s'.", sectionID)
	}
}
