package fulfill

import (
	"context"
	"errors"
	"log/slog"

	"github.com/selltide/autoship/internal/catalog"
	"github.com/selltide/autoship/internal/classify"
	"github.com/selltide/autoship/internal/event"
	"github.com/selltide/autoship/internal/match"
	"github.com/selltide/autoship/internal/store"
)

// Session carries the chat-session context an inbound event arrived in.
type Session struct {
	// ChatID identifies the buyer/seller conversation.
	ChatID string

	// ItemID identifies the listing the conversation is about.
	ItemID string

	// BuyerChannel is the opaque handle the send collaborator needs to
	// reach the buyer.
	BuyerChannel string

	// Text is the buyer's original message text, falling back to the
	// listing title when the event carries no text. It is what rule
	// keywords are matched against.
	Text string
}

// Pipeline wires classification, order correlation, rule matching, and
// execution into the per-event decision flow.
//
// Classify and Match are pure over their inputs plus a read-only snapshot,
// so Process may be called from any number of goroutines; the executor's
// conditional insert serializes per key inside the store.
type Pipeline struct {
	classifier *classify.Classifier
	store      *store.Store
	executor   *Executor
}

// NewPipeline creates a Pipeline over the given store and sender.
func NewPipeline(c *classify.Classifier, s *store.Store, sender Sender) *Pipeline {
	return &Pipeline{
		classifier: c,
		store:      s,
		executor:   NewExecutor(s, sender),
	}
}

// ProcessEvent handles one raw platform event end to end.
//
// Fulfillment is attempted only when the classifier reports both a payment
// signal and a resolvable order id. A payment-true/no-id verdict is logged
// and skipped, never treated as an error.
func (p *Pipeline) ProcessEvent(ctx context.Context, sess Session, raw event.Value) Outcome {
	verdict := p.classifier.Classify(raw)

	if !verdict.IsPayment {
		return skipped(StageUnclassified, "", ReasonNotPayment)
	}
	if verdict.OrderID == "" {
		slog.Info("payment detected but no order id, skipping",
			"chat_id", sess.ChatID,
			"item_id", sess.ItemID,
		)
		return skipped(StagePaymentDetected, "", ReasonOrderUnresolvable)
	}

	p.recordOrder(ctx, sess, verdict)
	spec := p.orderSpec(ctx, verdict.OrderID)
	return p.matchAndFulfill(ctx, sess, OrderKey(verdict.OrderID), spec)
}

// recordOrder upserts the correlation data this event carries, so later
// lookups (and operators inspecting the orders table) see every order the
// engine acted on. Best effort: the upsert fills only fields that are still
// empty, and a write failure must not block the delivery itself.
func (p *Pipeline) recordOrder(ctx context.Context, sess Session, v classify.Verdict) {
	itemID := v.ItemID
	if itemID == "" {
		itemID = sess.ItemID
	}
	err := p.store.SaveOrder(ctx, catalog.Order{
		OrderID: v.OrderID,
		ItemID:  itemID,
		BuyerID: v.BuyerID,
		Status:  "paid",
	})
	if err != nil {
		slog.Warn("order upsert failed", "order_id", v.OrderID, "error", err)
	}
}

// ProcessChatMessage handles the buyer chat-message trigger path: a
// system-injected chat text like "[我已付款，等待你发货]" also signals a
// completed payment. When the text resolves no order id, the idempotency
// key is the chat/item fallback composite.
func (p *Pipeline) ProcessChatMessage(ctx context.Context, sess Session, text string) Outcome {
	if !p.classifier.IsDeliveryTrigger(text) {
		return skipped(StageUnclassified, "", ReasonNotPayment)
	}

	key := FallbackKey(sess.ChatID, sess.ItemID)
	return p.matchAndFulfill(ctx, sess, key, nil)
}

// matchAndFulfill runs the shared tail of both entry points.
func (p *Pipeline) matchAndFulfill(ctx context.Context, sess Session, key string, spec *catalog.Spec) Outcome {
	snapshot, err := p.snapshot(ctx, sess.Text)
	if err != nil {
		slog.Error("catalog snapshot failed", "key", key, "error", err)
		return failed(StageOrderCorrelated, key, ReasonPersistenceFailure)
	}

	candidates := match.Match(snapshot, sess.Text, spec)
	return p.executor.Fulfill(ctx, key, sess.BuyerChannel, candidates)
}

// orderSpec looks up the correlated order and returns its item spec, or
// nil when the order is unknown or spec-less. An unknown order is not an
// error: matching proceeds against generic cards.
func (p *Pipeline) orderSpec(ctx context.Context, orderID string) *catalog.Spec {
	order, err := p.store.OrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.Warn("order lookup failed, matching without spec",
			"order_id", orderID,
			"error", err,
		)
		return nil
	}

	spec, ok := order.Spec()
	if !ok {
		return nil
	}
	return &spec
}

func (p *Pipeline) snapshot(ctx context.Context, textHint string) ([]match.Entry, error) {
	rows, err := p.store.EnabledRules(ctx, textHint)
	if err != nil {
		return nil, err
	}
	entries := make([]match.Entry, len(rows))
	for i, row := range rows {
		entries[i] = match.Entry{Rule: row.Rule, Card: row.Card}
	}
	return entries, nil
}
