package fulfill

import "fmt"

// State is a terminal fulfillment state.
type State string

const (
	// StateFulfilled means content was resolved and committed exactly once.
	StateFulfilled State = "fulfilled"

	// StateSkipped means no delivery action was warranted: the event was
	// not a payment, the id was unresolvable, no rule matched, or the key
	// was already delivered. Skips are normal operation, never errors.
	StateSkipped State = "skipped"

	// StateFailed means delivery was warranted but could not be committed.
	// No partial state is left behind; callers decide whether the upstream
	// transport should redeliver.
	StateFailed State = "failed"
)

// Stage marks how far an event progressed before reaching a terminal
// state. Used for logging and diagnostics only.
type Stage string

const (
	StageUnclassified    Stage = "unclassified"
	StagePaymentDetected Stage = "payment-detected"
	StageOrderCorrelated Stage = "order-correlated"
	StageRuleMatched     Stage = "rule-matched"
)

// Machine-readable outcome reasons.
const (
	ReasonNotPayment         = "not-payment"
	ReasonOrderUnresolvable  = "order-id-unresolvable"
	ReasonNoRuleMatch        = "no-rule-match"
	ReasonAlreadyDelivered   = "already-delivered"
	ReasonOutOfStock         = "out-of-stock"
	ReasonPersistenceFailure = "persistence-unavailable"
	ReasonInvalidKey         = "invalid-key"
)

// Outcome is the transient result of one fulfillment attempt. It is
// returned to the caller and logged, never persisted.
type Outcome struct {
	State   State  `json:"state"`
	Reason  string `json:"reason,omitempty"`
	Stage   Stage  `json:"stage"`
	Key     string `json:"key,omitempty"`
	RuleID  int64  `json:"rule_id,omitempty"`
	CardID  int64  `json:"card_id,omitempty"`
	Content string `json:"content,omitempty"`
}

// Fulfilled reports whether the outcome is terminal-success.
func (o Outcome) Fulfilled() bool { return o.State == StateFulfilled }

func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.State)
	}
	return fmt.Sprintf("%s(%s)", o.State, o.Reason)
}

func skipped(stage Stage, key, reason string) Outcome {
	return Outcome{State: StateSkipped, Reason: reason, Stage: stage, Key: key}
}

func failed(stage Stage, key, reason string) Outcome {
	return Outcome{State: StateFailed, Reason: reason, Stage: stage, Key: key}
}
