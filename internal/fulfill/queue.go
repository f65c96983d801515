package fulfill

import (
	"sync"

	"github.com/selltide/autoship/internal/event"
)

// TaskKind distinguishes the two fulfillment entry points.
type TaskKind int

const (
	// TaskKindEvent is a raw platform event (card updates, order pushes).
	TaskKindEvent TaskKind = iota + 1
	// TaskKindMessage is a buyer chat message.
	TaskKindMessage
)

// Task wraps one unit of inbound work for the engine queue.
type Task struct {
	Kind    TaskKind
	Session Session

	// Raw is the decoded event tree (TaskKindEvent).
	Raw event.Value

	// Text is the chat message body (TaskKindMessage).
	Text string

	// TraceToken correlates all log lines for this task.
	TraceToken string
}

// taskQueue is a thread-safe FIFO queue for fulfillment tasks.
//
// The queue is unbounded: dozens of chat sessions feed it concurrently and
// a burst of redelivered platform events must never block the transport.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the worker loops (prevents goroutine hangs on context cancellation).
type taskQueue struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
	signal chan struct{} // Signals task availability (buffered, size 1)
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]Task, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a task to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, t)

	// Non-blocking signal - buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Task{}, false) if the queue is empty.
func (q *taskQueue) TryDequeue() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return Task{}, false
	}

	t := q.tasks[0]

	// Nil out the slot so the Task's event tree is collectable before the
	// underlying array gets reallocated.
	q.tasks[0] = Task{}

	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}

	// The buffered signal coalesces a burst of enqueues into one wakeup.
	// Re-arm it while a backlog remains so that wakeup cascades across the
	// idle workers instead of leaving one worker to drain serially. Not
	// after Close: the channel is closed then and wakes everyone anyway.
	if !q.closed && len(q.tasks) > 0 {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}

	return t, true
}

// Wait returns a channel that signals when tasks may be available.
// Use with select for context-aware waiting.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Closed reports whether Close has been called.
func (q *taskQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more tasks will be enqueued.
// Wakes all blocked waiters by closing the signal channel.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
