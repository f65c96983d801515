// Package harness runs YAML-defined conformance scenarios through the real
// fulfillment pipeline against a scratch database, producing an outcome
// trace for explicit expectations and golden file comparison.
package harness

import (
	"context"
	"fmt"

	"github.com/selltide/autoship/internal/catalog"
	"github.com/selltide/autoship/internal/classify"
	"github.com/selltide/autoship/internal/event"
	"github.com/selltide/autoship/internal/fulfill"
	"github.com/selltide/autoship/internal/store"
)

// TraceEvent records the terminal outcome of one scenario step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Kind    string `json:"kind"` // "event" or "message"
	State   string `json:"state"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason,omitempty"`
	Key     string `json:"key,omitempty"`
	RuleID  int64  `json:"rule_id,omitempty"`
	CardID  int64  `json:"card_id,omitempty"`
	Content string `json:"content,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario against a fresh database at dbPath. Each run
// must get its own path; scenarios assume virgin state and predictable
// row ids.
func Run(scenario *Scenario, dbPath string) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	if err := seed(ctx, st, scenario); err != nil {
		return nil, err
	}

	clf, err := classify.New()
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	pipeline := fulfill.NewPipeline(clf, st, fulfill.NopSender{})

	result := &Result{Pass: true, Trace: make([]TraceEvent, 0, len(scenario.Steps))}
	for i, step := range scenario.Steps {
		out, kind, err := runStep(ctx, pipeline, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.Trace = append(result.Trace, TraceEvent{
			Step:    i + 1,
			Kind:    kind,
			State:   string(out.State),
			Stage:   string(out.Stage),
			Reason:  out.Reason,
			Key:     out.Key,
			RuleID:  out.RuleID,
			CardID:  out.CardID,
			Content: out.Content,
		})
	}

	checkExpectations(scenario, result)
	return result, nil
}

func runStep(ctx context.Context, p *fulfill.Pipeline, step Step) (fulfill.Outcome, string, error) {
	sess := fulfill.Session{
		ChatID:       step.ChatID,
		ItemID:       step.ItemID,
		BuyerChannel: step.BuyerChannel,
		Text:         step.Text,
	}

	if step.Message != "" {
		if sess.Text == "" {
			sess.Text = step.Message
		}
		return p.ProcessChatMessage(ctx, sess, step.Message), "message", nil
	}

	raw, err := event.FromAny(step.Event)
	if err != nil {
		return fulfill.Outcome{}, "", fmt.Errorf("build event: %w", err)
	}
	return p.ProcessEvent(ctx, sess, raw), "event", nil
}

func seed(ctx context.Context, st *store.Store, scenario *Scenario) error {
	cardIDs := make(map[string]int64, len(scenario.Cards))
	for _, def := range scenario.Cards {
		card := catalog.Card{
			Name:         def.Name,
			Type:         catalog.CardType(def.Type),
			Enabled:      true,
			DelaySeconds: def.DelaySeconds,
			Content:      def.Content,
		}
		if def.SpecName != "" {
			card.IsMultiSpec = true
			card.SpecName = def.SpecName
			card.SpecValue = def.SpecValue
		}
		id, err := st.SaveCard(ctx, card)
		if err != nil {
			return fmt.Errorf("seed card %q: %w", def.Name, err)
		}
		cardIDs[def.Name] = id
	}

	for _, def := range scenario.Rules {
		count := def.DeliveryCount
		if count == 0 {
			count = 1
		}
		_, err := st.SaveRule(ctx, catalog.Rule{
			Keyword:       def.Keyword,
			CardID:        cardIDs[def.Card],
			DeliveryCount: count,
			Enabled:       !def.Disabled,
		})
		if err != nil {
			return fmt.Errorf("seed rule %q: %w", def.Keyword, err)
		}
	}

	for _, def := range scenario.Orders {
		err := st.SaveOrder(ctx, catalog.Order{
			OrderID:   def.OrderID,
			ItemID:    def.ItemID,
			BuyerID:   def.BuyerID,
			SpecName:  def.SpecName,
			SpecValue: def.SpecValue,
			Quantity:  def.Quantity,
			Status:    def.Status,
		})
		if err != nil {
			return fmt.Errorf("seed order %q: %w", def.OrderID, err)
		}
	}
	return nil
}

func checkExpectations(scenario *Scenario, result *Result) {
	for i, want := range scenario.Expect {
		got := result.Trace[i]
		if want.State != "" && got.State != want.State {
			result.addError("steps[%d]: state = %q, want %q", i, got.State, want.State)
		}
		if want.Reason != "" && got.Reason != want.Reason {
			result.addError("steps[%d]: reason = %q, want %q", i, got.Reason, want.Reason)
		}
		if want.Key != "" && got.Key != want.Key {
			result.addError("steps[%d]: key = %q, want %q", i, got.Key, want.Key)
		}
		if want.Content != "" && got.Content != want.Content {
			result.addError("steps[%d]: content = %q, want %q", i, got.Content, want.Content)
		}
	}
}
