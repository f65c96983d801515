package fulfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/selltide/autoship/internal/catalog"
	"github.com/selltide/autoship/internal/match"
	"github.com/selltide/autoship/internal/store"
)

// Sender is the outbound message-send collaborator.
//
// OnFulfilled triggers the actual send to the buyer; delivery over the
// underlying channel is the collaborator's problem, and its failures are
// surfaced there, not masked here. OnSkippedOrFailed exists for
// logging/observability only - the engine has no retry obligation.
type Sender interface {
	OnFulfilled(buyerChannel, content string, delaySeconds int)
	OnSkippedOrFailed(reason string)
}

// NopSender discards all notifications. Useful for tests and for CLI
// commands that only inspect decisions.
type NopSender struct{}

func (NopSender) OnFulfilled(string, string, int) {}
func (NopSender) OnSkippedOrFailed(string)        {}

// Executor turns a ranked candidate list into a terminal outcome against
// the persistence gateway.
//
// All bookkeeping for one attempt - idempotency claim, stock pop, counter
// increment - commits in a single store transaction. A persistence error
// is retried once; on repeated failure the outcome is Failed with no
// partial state committed.
type Executor struct {
	store  *store.Store
	sender Sender
}

// NewExecutor creates an Executor. A nil sender is replaced with NopSender.
func NewExecutor(s *store.Store, sender Sender) *Executor {
	if sender == nil {
		sender = NopSender{}
	}
	return &Executor{store: s, sender: sender}
}

// Fulfill resolves the best candidate for the given idempotency key.
//
// The ranked list's head is the only candidate attempted: ranking already
// decided the best match, and falling through to a weaker rule on failure
// would deliver the wrong card, not rescue the delivery.
func (x *Executor) Fulfill(ctx context.Context, key, buyerChannel string, candidates []match.Candidate) Outcome {
	if key == "" {
		// Both key derivations produce non-empty keys; an empty key means a
		// caller bypassed them. Fail fast without touching the ledger.
		slog.Error("empty idempotency key")
		x.sender.OnSkippedOrFailed(ReasonInvalidKey)
		return failed(StageOrderCorrelated, key, ReasonInvalidKey)
	}
	if len(candidates) == 0 {
		slog.Info("no rule matched", "key", key)
		x.sender.OnSkippedOrFailed(ReasonNoRuleMatch)
		return skipped(StageOrderCorrelated, key, ReasonNoRuleMatch)
	}

	best := candidates[0]
	content, inserted, err := x.commitWithRetry(ctx, key, best.Rule, best.Card)
	switch {
	case errors.Is(err, store.ErrOutOfStock):
		// Ledger stays unmarked: restock then redeliver still works.
		slog.Warn("stock exhausted",
			"key", key,
			"rule_id", best.Rule.ID,
			"card_id", best.Card.ID,
		)
		x.sender.OnSkippedOrFailed(ReasonOutOfStock)
		out := failed(StageRuleMatched, key, ReasonOutOfStock)
		out.RuleID, out.CardID = best.Rule.ID, best.Card.ID
		return out

	case err != nil:
		slog.Error("fulfillment commit failed",
			"key", key,
			"rule_id", best.Rule.ID,
			"error", err,
		)
		x.sender.OnSkippedOrFailed(ReasonPersistenceFailure)
		out := failed(StageRuleMatched, key, ReasonPersistenceFailure)
		out.RuleID, out.CardID = best.Rule.ID, best.Card.ID
		return out

	case !inserted:
		slog.Debug("already delivered, skipping (idempotent)", "key", key)
		x.sender.OnSkippedOrFailed(ReasonAlreadyDelivered)
		out := skipped(StageRuleMatched, key, ReasonAlreadyDelivered)
		out.RuleID, out.CardID = best.Rule.ID, best.Card.ID
		return out
	}

	slog.Info("fulfilled",
		"key", key,
		"rule_id", best.Rule.ID,
		"card_id", best.Card.ID,
		"card_type", best.Card.Type,
		"delay_seconds", best.Card.DelaySeconds,
	)
	x.handOff(buyerChannel, content, best.Card.DelaySeconds)

	return Outcome{
		State:   StateFulfilled,
		Stage:   StageRuleMatched,
		Key:     key,
		RuleID:  best.Rule.ID,
		CardID:  best.Card.ID,
		Content: content,
	}
}

// commitWithRetry runs the atomic commit, retrying exactly once on a
// persistence error. Out-of-stock is a business result, not a transient
// fault, and is never retried.
func (x *Executor) commitWithRetry(ctx context.Context, key string, rule catalog.Rule, card catalog.Card) (string, bool, error) {
	content, inserted, err := x.store.FulfillAtomic(ctx, key, rule, card)
	if err == nil || errors.Is(err, store.ErrOutOfStock) {
		return content, inserted, err
	}

	slog.Warn("fulfillment commit error, retrying once", "key", key, "error", err)
	content, inserted, err = x.store.FulfillAtomic(ctx, key, rule, card)
	if err != nil && !errors.Is(err, store.ErrOutOfStock) {
		return "", false, fmt.Errorf("fulfill %s after retry: %w", key, err)
	}
	return content, inserted, err
}

// handOff schedules the outbound send. The commit already happened; the
// delay affects the buyer's perceived response time, not bookkeeping. The
// scheduled task holds no locks and is fire-and-forget: it is not required
// to be cancellable.
func (x *Executor) handOff(buyerChannel, content string, delaySeconds int) {
	if delaySeconds <= 0 {
		x.sender.OnFulfilled(buyerChannel, content, 0)
		return
	}
	time.AfterFunc(time.Duration(delaySeconds)*time.Second, func() {
		x.sender.OnFulfilled(buyerChannel, content, delaySeconds)
	})
}
