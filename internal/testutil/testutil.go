// Package testutil provides shared helpers for exercising pipelines in
// tests: a race-safe log buffer and instrumented stage stubs.
package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/vk/docgraphgo/internal/ctxlog"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// LogContext returns a context carrying a debug-level text logger that
// writes to w.
func LogContext(w io.Writer) context.Context {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

// CountingWorker wraps a worker function and counts its executions.
type CountingWorker struct {
	mu   sync.Mutex
	runs int
	fn   stage.WorkerFunc
}

// NewCountingWorker wraps fn. A nil fn produces an empty update.
func NewCountingWorker(fn stage.WorkerFunc) *CountingWorker {
	if fn == nil {
		fn = func(ctx context.Context, view state.View) (state.Update, error) {
			return state.Update{}, nil
		}
	}
	return &CountingWorker{fn: fn}
}

// Run implements stage.Worker.
func (w *CountingWorker) Run(ctx context.Context, view state.View) (state.Update, error) {
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
	return w.fn(ctx, view)
}

// Runs returns how many times the worker executed.
func (w *CountingWorker) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// ScriptedCritic returns its verdicts in order; once the script is
// exhausted the last verdict repeats.
type ScriptedCritic struct {
	mu       sync.Mutex
	calls    int
	verdicts []stage.Verdict
}

// NewScriptedCritic builds a critic from a verdict script. At least one
// verdict is required.
func NewScriptedCritic(verdicts ...stage.Verdict) *ScriptedCritic {
	return &ScriptedCritic{verdicts: verdicts}
}

// Evaluate implements stage.Critic.
func (c *ScriptedCritic) Evaluate(ctx context.Context, view state.View) (stage.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.calls
	if idx >= len(c.verdicts) {
		idx = len(c.verdicts) - 1
	}
	c.calls++
	return c.verdicts[idx], nil
}

// Calls returns how many times the critic was evaluated.
func (c *ScriptedCritic) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
