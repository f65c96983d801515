package fulfill

import "fmt"

// OrderKey builds the idempotency key for an event whose order id was
// resolved. The order id alone is the key: the platform may redeliver the
// same event through different shapes, and all of them must collapse onto
// one ledger row.
func OrderKey(orderID string) string {
	return orderID
}

// FallbackKey builds the idempotency key for the chat-message trigger path
// where no order id is resolvable: a composite of the chat/session id and
// the item id. Distinct purchases in the same chat for different items get
// distinct keys; redeliveries of the same trigger collapse.
func FallbackKey(chatID, itemID string) string {
	return fmt.Sprintf("chat:%s|item:%s", chatID, itemID)
}
