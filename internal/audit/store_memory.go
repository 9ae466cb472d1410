package audit

import (
	"context"
	"sync"

	id "roadbook/pkg/domain"
)

// InMemoryStore keeps events in memory, indexed by payment plus an
// append-ordered log for ListRecent. Batch-level events carry no payment
// id and only appear in the log.
type InMemoryStore struct {
	mu        sync.RWMutex
	byPayment map[id.PaymentID][]Event
	log       []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byPayment: make(map[id.PaymentID][]Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPayment = make(map[id.PaymentID][]Event)
	s.log = nil
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !event.PaymentID.IsNil() {
		s.byPayment[event.PaymentID] = append(s.byPayment[event.PaymentID], event)
	}
	s.log = append(s.log, event)
	return nil
}

func (s *InMemoryStore) ListByPayment(_ context.Context, paymentID id.PaymentID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.byPayment[paymentID]...), nil
}

// ListRecent returns the last limit events in append order.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.log) - limit
	if start < 0 {
		start = 0
	}
	return append([]Event{}, s.log[start:]...), nil
}
