package fulfill

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultWorkers is the default size of the engine's worker pool. One
// worker per seller session is typical; the pure stages parallelize freely
// and the store serializes per key, so oversizing is harmless.
const DefaultWorkers = 8

// Engine drains the task queue through a worker pool, running each task
// through the Pipeline.
//
// Thread-safety model:
//   - Enqueue*: safe from any goroutine
//   - Run: call once; it spawns the workers and blocks until the context
//     is cancelled or Stop is called
type Engine struct {
	pipeline *Pipeline
	queue    *taskQueue
	workers  int

	// onOutcome, when set, observes every terminal outcome. Used by the
	// CLI for output and by tests for synchronization.
	onOutcome func(Task, Outcome)
}

// EngineOption configures engine parameters.
type EngineOption func(*Engine)

// WithWorkers sets the worker pool size.
//
// Default: 8 (DefaultWorkers)
// Use WithWorkers(1) for strictly ordered processing in tests.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithOutcomeHandler registers a callback invoked with every terminal
// outcome. The callback runs on the worker goroutine and must not block.
func WithOutcomeHandler(fn func(Task, Outcome)) EngineOption {
	return func(e *Engine) {
		e.onOutcome = fn
	}
}

// NewEngine creates an Engine around the given pipeline.
func NewEngine(p *Pipeline, opts ...EngineOption) *Engine {
	e := &Engine{
		pipeline: p,
		queue:    newTaskQueue(),
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enqueue submits a task for processing.
// Thread-safe: may be called from any goroutine.
// Returns false if the engine has been stopped.
//
// A missing TraceToken is filled with a fresh UUIDv7 so every log line for
// the task is correlatable.
func (e *Engine) Enqueue(t Task) bool {
	if t.TraceToken == "" {
		t.TraceToken = uuid.Must(uuid.NewV7()).String()
	}
	return e.queue.Enqueue(t)
}

// QueueLen returns the number of pending tasks.
// Useful for monitoring and testing.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the worker pool and blocks until the context is cancelled or
// Stop is called and the queue drains. Call it from exactly one goroutine.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("fulfillment engine starting", "workers", e.workers)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			e.workerLoop(ctx, worker)
		}(i)
	}
	wg.Wait()

	if ctx.Err() != nil {
		slog.Info("fulfillment engine stopping: context cancelled")
		e.queue.Close()
		return ctx.Err()
	}
	slog.Info("fulfillment engine stopping: queue closed")
	return nil
}

// Stop gracefully shuts down the engine. Workers finish their in-flight
// task, drain the queue, and exit.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) workerLoop(ctx context.Context, worker int) {
	for {
		task, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, task)
			continue
		}

		if e.queue.Closed() && e.queue.Len() == 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-e.queue.Wait():
			// Signal received - loop back to TryDequeue. The signal
			// channel closes when the queue closes, so shutdown also
			// lands here.
		}
	}
}

// process routes a task to the pipeline entry point for its kind and logs
// the terminal outcome. Failures are logged and the worker continues: one
// malformed or unlucky task must not halt processing of others.
func (e *Engine) process(ctx context.Context, t Task) {
	var out Outcome
	switch t.Kind {
	case TaskKindEvent:
		out = e.pipeline.ProcessEvent(ctx, t.Session, t.Raw)
	case TaskKindMessage:
		out = e.pipeline.ProcessChatMessage(ctx, t.Session, t.Text)
	default:
		slog.Error("unknown task kind", "kind", int(t.Kind), "trace", t.TraceToken)
		return
	}

	logger := slog.With(
		"trace", t.TraceToken,
		"chat_id", t.Session.ChatID,
		"item_id", t.Session.ItemID,
	)
	switch out.State {
	case StateFulfilled:
		logger.Info("task fulfilled", "key", out.Key, "rule_id", out.RuleID, "card_id", out.CardID)
	case StateSkipped:
		logger.Debug("task skipped", "reason", out.Reason, "stage", out.Stage)
	case StateFailed:
		logger.Error("task failed", "reason", out.Reason, "key", out.Key)
	}

	if e.onOutcome != nil {
		e.onOutcome(t, out)
	}
}
