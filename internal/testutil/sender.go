package testutil

import "sync"

// Delivery records one OnFulfilled call.
type Delivery struct {
	BuyerChannel string
	Content      string
	DelaySeconds int
}

// RecordingSender captures executor notifications for assertions.
// Safe for concurrent use.
type RecordingSender struct {
	mu         sync.Mutex
	deliveries []Delivery
	reasons    []string
}

func (s *RecordingSender) OnFulfilled(buyerChannel, content string, delaySeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, Delivery{
		BuyerChannel: buyerChannel,
		Content:      content,
		DelaySeconds: delaySeconds,
	})
}

func (s *RecordingSender) OnSkippedOrFailed(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
}

// Deliveries returns a copy of the recorded deliveries.
func (s *RecordingSender) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

// Reasons returns a copy of the recorded skip/failure reasons.
func (s *RecordingSender) Reasons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.reasons))
	copy(out, s.reasons)
	return out
}
