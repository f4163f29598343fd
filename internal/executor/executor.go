package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/infragenius/infragenius/internal/sandbox"
)

// startTimeout bounds the remote call that launches a background process.
// The process itself outlives the call.
const startTimeout = 15 * time.Second

// CommandResult carries everything a remote command produced. A non-zero
// exit code is data, not an error: callers decide what failure means.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Output is the backend-level result of a command, before the executor
// attaches timing.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Backend runs a shell command inside the remote sandbox identified by its
// remote ID. The context carries the command deadline.
type Backend interface {
	Exec(ctx context.Context, remoteID, command string) (Output, error)
}

// Executor runs commands in remote sandboxes, one in-flight command per
// sandbox so concurrent callers never interleave shell state.
type Executor struct {
	backend Backend

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Executor over the given backend.
func New(backend Backend) *Executor {
	return &Executor{
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Run executes command inside sb and blocks until it completes or timeout
// elapses. On timeout the remote process may keep running — the provisioning
// API offers no hard cancellation, so only the wait is abandoned.
func (e *Executor) Run(ctx context.Context, sb *sandbox.Sandbox, command string, timeout time.Duration) (CommandResult, error) {
	lock := e.lockFor(sb.RemoteID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := e.backend.Exec(ctx, sb.RemoteID, command)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return CommandResult{}, &TimeoutError{Command: command, Timeout: timeout}
		}
		// A caller abandoning the wait is not a connectivity fault.
		if errors.Is(err, context.Canceled) {
			return CommandResult{}, err
		}
		return CommandResult{}, &ConnectionError{RemoteID: sb.RemoteID, Err: err}
	}
	return CommandResult{
		ExitCode: out.ExitCode,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		Duration: elapsed,
	}, nil
}

// Start launches command in the background inside sb and returns as soon as
// the launch call completes. It does not wait for the process to exit.
func (e *Executor) Start(ctx context.Context, sb *sandbox.Sandbox, command string) (CommandResult, error) {
	wrapped := shellquote.Join("nohup", "sh", "-c", command) + " >/dev/null 2>&1 &"
	return e.Run(ctx, sb, wrapped, startTimeout)
}

func (e *Executor) lockFor(remoteID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[remoteID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[remoteID] = lock
	}
	return lock
}
