// Package classify turns one raw inbound platform event into a payment
// verdict: whether the event signals a completed payment, and which order
// id it correlates to.
//
// Events have no stable schema, so classification is layered, each layer
// short-circuiting on success:
//
//  1. Structured extraction - the known nested path that carries the
//     serialized "card button" payload is parsed as JSON and searched for
//     an order URL.
//  2. Flattened regex fallback - the whole event is rendered to one string
//     and scanned with a fixed priority list of order-id patterns.
//  3. Payment-phrase detection - independent of order-id resolution, the
//     flattened event is tested against a fixed positive phrase set.
//
// Classification never fails: malformed input degrades to a negative
// verdict so one broken event cannot halt processing of others.
package classify
