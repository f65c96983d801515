package classify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/selltide/autoship/internal/event"
)

// Verdict is the classifier's output for one event.
//
// OrderID is empty when no id could be resolved. A payment-true verdict
// with an empty OrderID is valid: the caller logs it and skips, it is not
// an error.
type Verdict struct {
	IsPayment bool   `json:"is_payment"`
	OrderID   string `json:"order_id,omitempty"`

	// ItemID and BuyerID are best-effort correlation fields pulled from the
	// chat deep link reminder events carry
	// (fleamarket://message_chat?itemId=...&peerUserId=...). Either may be
	// empty; the caller falls back to its own session context.
	ItemID  string `json:"item_id,omitempty"`
	BuyerID string `json:"buyer_id,omitempty"`
}

// The card button payload lives at this nested path in chat-card events.
// The node is a JSON string that must be parsed separately.
var buttonPayloadPath = []string{"1", "6", "3", "5"}

// Order-id patterns inside the parsed button payload.
var (
	buttonOrderIDRe = regexp.MustCompile(`orderId=(\d+)`)
	mainOrderIDRe   = regexp.MustCompile(`order_detail\?id=(\d+)`)
)

// Flattened-event fallback patterns, in priority order. Each requires at
// least 10 digits so short numeric fields (timestamps, counters) cannot be
// mistaken for order ids. First match wins; conflicting matches across
// patterns are not reconciled.
var fallbackOrderIDRes = []*regexp.Regexp{
	regexp.MustCompile(`orderId[=:](\d{10,})`),
	regexp.MustCompile(`order_detail\?id=(\d{10,})`),
	regexp.MustCompile(`"id"\s*:\s*"?(\d{10,})"?`),
	regexp.MustCompile(`bizOrderId[=:](\d{10,})`),
}

// Correlation fields in the message_chat deep link.
var (
	itemIDRe  = regexp.MustCompile(`itemId=(\d+)`)
	buyerIDRe = regexp.MustCompile(`peerUserId=(\d+)`)
)

// Classifier produces payment verdicts for raw inbound events.
// It is stateless after construction and safe for concurrent use.
type Classifier struct {
	positive []string
	trigger  []string
}

// New creates a Classifier with the default phrase lists, verifying the
// positive/negative disjointness invariant.
func New() (*Classifier, error) {
	return NewWithPhrases(defaultPositivePhrases, defaultNegativePhrases, defaultTriggerPhrases)
}

// NewWithPhrases creates a Classifier with explicit phrase lists.
// Returns an error if any positive phrase is a substring of a negative
// phrase (see CheckPhraseDisjointness).
func NewWithPhrases(positive, negative, trigger []string) (*Classifier, error) {
	if err := CheckPhraseDisjointness(positive, negative); err != nil {
		return nil, fmt.Errorf("phrase lists: %w", err)
	}

	c := &Classifier{
		positive: make([]string, len(positive)),
		trigger:  make([]string, len(trigger)),
	}
	copy(c.positive, positive)
	copy(c.trigger, trigger)
	return c, nil
}

// Classify inspects one raw event and returns its payment verdict.
// Never fails: the worst case for malformed input is a negative verdict.
func (c *Classifier) Classify(ev event.Value) Verdict {
	if ev == nil {
		return Verdict{}
	}

	flat := event.Flatten(ev)

	v := Verdict{
		IsPayment: c.containsPositivePhrase(flat),
		OrderID:   extractOrderID(ev, flat),
		ItemID:    firstSubmatch(itemIDRe, flat),
		BuyerID:   firstSubmatch(buyerIDRe, flat),
	}

	if v.IsPayment && v.OrderID == "" {
		slog.Debug("payment detected but order id unresolvable", "event_size", len(flat))
	}
	return v
}

// IsDeliveryTrigger reports whether a buyer chat message contains one of
// the literal payment-completed trigger phrases. This is the chat-message
// entry point; card events go through Classify.
func (c *Classifier) IsDeliveryTrigger(text string) bool {
	for _, phrase := range c.trigger {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func (c *Classifier) containsPositivePhrase(flat string) bool {
	for _, phrase := range c.positive {
		if strings.Contains(flat, phrase) {
			return true
		}
	}
	return false
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// extractOrderID resolves the order id, structured extraction first, then
// the flattened regex fallback.
func extractOrderID(ev event.Value, flat string) string {
	if id := extractFromButtonPayload(ev); id != "" {
		return id
	}
	for _, re := range fallbackOrderIDRes {
		if m := re.FindStringSubmatch(flat); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractFromButtonPayload parses the serialized card button payload at the
// known nested path and pulls the order id out of its target URLs.
func extractFromButtonPayload(ev event.Value) string {
	raw := event.StringAt(ev, buttonPayloadPath...)
	if raw == "" {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// The node exists but isn't the payload we know; fall through to
		// the flattened scan.
		return ""
	}
	card, err := event.FromAny(payload)
	if err != nil {
		return ""
	}

	// Button target URL: ...?orderId=<digits>
	buttonURL := event.StringAt(card, "dxCard", "item", "main", "exContent", "button", "targetUrl")
	if m := buttonOrderIDRe.FindStringSubmatch(buttonURL); m != nil {
		return m[1]
	}

	// Main target URL: ...order_detail?id=<digits>
	mainURL := event.StringAt(card, "dxCard", "item", "main", "targetUrl")
	if m := mainOrderIDRe.FindStringSubmatch(mainURL); m != nil {
		return m[1]
	}

	return ""
}
