package classify

import (
	"fmt"
	"strings"
)

// Positive payment phrases. Presence of any of these in the flattened
// event marks it as a payment signal.
//
// INVARIANT: no positive phrase may be a substring of any negative phrase.
// A violation would make an "awaiting payment" or "refund" event look paid.
// CheckPhraseDisjointness enforces this at classifier construction instead
// of trusting the lists.
var defaultPositivePhrases = []string{
	"我已付款",               // buyer: "I have paid"
	"已付款，待发货",            // "paid, awaiting shipment"
	"等待你发货",              // "waiting for you to ship"
	"TRADE_PAID_DONE_SELLER", // internal trade-state tag
}

// Negative phrases that must never be classified as payment signals.
// Used only by the disjointness check; detection itself is positive-only.
var defaultNegativePhrases = []string{
	"待付款",     // "awaiting payment"
	"我发起了退款申请", // "I requested a refund"
	"交易关闭",     // "trade closed"
	"等待卖家发货",   // buyer-side "waiting for seller to ship"
}

// Trigger phrases for the buyer chat-message path. These are the literal
// system-injected chat texts that accompany a completed payment.
var defaultTriggerPhrases = []string{
	"[我已付款，等待你发货]",
	"[已付款，待发货]",
	"我已付款，等待你发货",
	"[记得及时发货]",
}

// CheckPhraseDisjointness verifies that no positive phrase is a substring
// of any negative phrase. Both lists must also be free of empty strings,
// which would match everything.
func CheckPhraseDisjointness(positive, negative []string) error {
	for _, p := range positive {
		if p == "" {
			return fmt.Errorf("positive phrase list contains an empty string")
		}
		for _, n := range negative {
			if n == "" {
				return fmt.Errorf("negative phrase list contains an empty string")
			}
			if strings.Contains(n, p) {
				return fmt.Errorf("positive phrase %q is a substring of negative phrase %q", p, n)
			}
		}
	}
	return nil
}
