package fulfill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()

	for _, text := range []string{"first", "second", "third"} {
		require.True(t, q.Enqueue(Task{Kind: TaskKindMessage, Text: text}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"first", "second", "third"} {
		task, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, task.Text)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestTaskQueue_EnqueueAfterCloseFails(t *testing.T) {
	q := newTaskQueue()
	require.True(t, q.Enqueue(Task{Kind: TaskKindMessage, Text: "before"}))

	q.Close()
	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(Task{Kind: TaskKindMessage, Text: "after"}))

	// Already-queued work stays drainable after close.
	task, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "before", task.Text)
}

func TestTaskQueue_CloseIsIdempotent(t *testing.T) {
	q := newTaskQueue()
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestTaskQueue_WaitSignalsOnEnqueue(t *testing.T) {
	q := newTaskQueue()

	q.Enqueue(Task{Kind: TaskKindMessage, Text: "wake"})

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending wakeup signal after Enqueue")
	}
}

func TestTaskQueue_DequeueRearmsSignalWhileBacklogRemains(t *testing.T) {
	q := newTaskQueue()
	require.True(t, q.Enqueue(Task{Kind: TaskKindMessage, Text: "a"}))
	require.True(t, q.Enqueue(Task{Kind: TaskKindMessage, Text: "b"}))

	// The burst coalesced into a single buffered signal; consume it as the
	// first woken worker would.
	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending wakeup signal after the burst")
	}

	// Dequeuing with a task still pending must re-arm the signal so the
	// next idle worker wakes too.
	_, ok := q.TryDequeue()
	require.True(t, ok)
	select {
	case <-q.Wait():
	default:
		t.Fatal("expected the signal to be re-armed while tasks remain")
	}

	// Draining the last task leaves the signal unarmed.
	_, ok = q.TryDequeue()
	require.True(t, ok)
	select {
	case <-q.Wait():
		t.Fatal("unexpected wakeup signal on an empty queue")
	default:
	}
}

func TestTaskQueue_WaitUnblocksOnClose(t *testing.T) {
	q := newTaskQueue()
	q.Close()

	// The signal channel is closed, so waiting never blocks.
	select {
	case <-q.Wait():
	default:
		t.Fatal("expected Wait to be ready after Close")
	}
}
