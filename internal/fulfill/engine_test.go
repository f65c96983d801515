package fulfill

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selltide/autoship/internal/catalog"
	"github.com/selltide/autoship/internal/testutil"
)

// outcomeCollector gathers engine outcomes across worker goroutines.
type outcomeCollector struct {
	mu       sync.Mutex
	outcomes []Outcome
	tasks    []Task
}

func (c *outcomeCollector) collect(t Task, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, t)
	c.outcomes = append(c.outcomes, o)
}

func (c *outcomeCollector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outcomes)
}

func TestEngine_DrainsQueueAndStops(t *testing.T) {
	p, st, _ := newTestPipeline(t)

	cardID := testutil.SeedCard(t, st, catalog.Card{
		Name: "卡密", Type: catalog.CardTypeData, Enabled: true,
		Content: "C1\nC2\nC3\nC4\nC5\nC6\nC7\nC8\nC9\nC10",
	})
	testutil.SeedRule(t, st, catalog.Rule{
		Keyword: "手机壳", CardID: cardID, DeliveryCount: 1, Enabled: true,
	})

	collector := &outcomeCollector{}
	engine := NewEngine(p, WithWorkers(4), WithOutcomeHandler(collector.collect))

	const tasks = 10
	for i := 0; i < tasks; i++ {
		ok := engine.Enqueue(Task{
			Kind: TaskKindEvent,
			Session: Session{
				ChatID: fmt.Sprintf("c%d", i), ItemID: "i1",
				BuyerChannel: "b1", Text: "手机壳",
			},
			Raw: paidEvent(t, fmt.Sprintf("510000000000000%04d", i)),
		})
		require.True(t, ok)
	}
	engine.Stop()

	done := make(chan error, 1)
	go func() { done <- engine.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not drain the queue")
	}

	assert.Equal(t, tasks, collector.len())
	assert.Equal(t, 0, engine.QueueLen())

	// Ten distinct orders, ten distinct stock lines.
	seen := make(map[string]bool)
	collector.mu.Lock()
	defer collector.mu.Unlock()
	for _, out := range collector.outcomes {
		require.Equal(t, StateFulfilled, out.State)
		assert.False(t, seen[out.Content], "stock line %q delivered twice", out.Content)
		seen[out.Content] = true
	}
}

func TestEngine_EnqueueAfterStopFails(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	engine := NewEngine(p, WithWorkers(1))

	engine.Stop()
	assert.False(t, engine.Enqueue(Task{Kind: TaskKindMessage, Text: "late"}))
}

func TestEngine_FillsTraceToken(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	collector := &outcomeCollector{}
	engine := NewEngine(p, WithWorkers(1), WithOutcomeHandler(collector.collect))

	require.True(t, engine.Enqueue(Task{
		Kind:    TaskKindMessage,
		Session: Session{ChatID: "c1", ItemID: "i1"},
		Text:    "在吗",
	}))
	engine.Stop()
	require.NoError(t, engine.Run(context.Background()))

	collector.mu.Lock()
	defer collector.mu.Unlock()
	require.Len(t, collector.tasks, 1)
	assert.NotEmpty(t, collector.tasks[0].TraceToken)
}

func TestEngine_RunReturnsOnContextCancel(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	engine := NewEngine(p, WithWorkers(2))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not react to cancellation")
	}
}
