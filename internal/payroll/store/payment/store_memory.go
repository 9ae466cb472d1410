// Package payment persists payroll payments: an in-memory store for
// tests and development, and a postgres store for deployments. Both
// enforce reference uniqueness and the per-diem (payee, tour, day)
// natural key, and both honor the Execute validate-then-mutate contract
// under their respective locks.
package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roadbook/internal/payroll/models"
	id "roadbook/pkg/domain"
	"roadbook/pkg/platform/sentinel"
)

// perDiemKey is the natural key that makes per-diem generation idempotent.
type perDiemKey struct {
	payeeID id.PersonID
	tourID  id.TourID
	date    time.Time
}

func newPerDiemKey(payeeID id.PersonID, tourID id.TourID, date time.Time) perDiemKey {
	return perDiemKey{payeeID: payeeID, tourID: tourID, date: models.CivilDate(date)}
}

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested payment does not exist
// - Return ErrConflict when a reference (or id) is already taken
// - Return ErrDuplicate when a per-diem natural key is already taken
// - Return nil for successful operations

// InMemoryPaymentStore stores payments in memory for tests/dev.
type InMemoryPaymentStore struct {
	mu          sync.RWMutex
	byID        map[id.PaymentID]*models.Payment
	byReference map[string]id.PaymentID
	perDiems    map[perDiemKey]id.PaymentID
}

// NewInMemoryStore constructs an empty in-memory payment store.
func NewInMemoryStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		byID:        make(map[id.PaymentID]*models.Payment),
		byReference: make(map[string]id.PaymentID),
		perDiems:    make(map[perDiemKey]id.PaymentID),
	}
}

func (s *InMemoryPaymentStore) Create(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[payment.ID]; exists {
		return fmt.Errorf("payment %s already exists: %w", payment.ID, sentinel.ErrConflict)
	}
	if _, exists := s.byReference[payment.Reference]; exists {
		return fmt.Errorf("payment reference %s already taken: %w", payment.Reference, sentinel.ErrConflict)
	}

	var key perDiemKey
	keyed := payment.Kind == models.KindPerDiem && payment.PerDiemDate != nil
	if keyed {
		key = newPerDiemKey(payment.PayeeID, payment.TourID, *payment.PerDiemDate)
		if _, exists := s.perDiems[key]; exists {
			return fmt.Errorf("per diem already recorded: %w", sentinel.ErrDuplicate)
		}
	}

	s.byID[payment.ID] = payment.Clone()
	s.byReference[payment.Reference] = payment.ID
	if keyed {
		s.perDiems[key] = payment.ID
	}
	return nil
}

func (s *InMemoryPaymentStore) FindByID(_ context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payment, ok := s.byID[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
	}
	return payment.Clone(), nil
}

func (s *InMemoryPaymentStore) FindByReference(_ context.Context, reference string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paymentID, ok := s.byReference[reference]
	if !ok {
		return nil, fmt.Errorf("payment reference %s not found: %w", reference, sentinel.ErrNotFound)
	}
	return s.byID[paymentID].Clone(), nil
}

func (s *InMemoryPaymentStore) HasPerDiem(_ context.Context, payeeID id.PersonID, tourID id.TourID, date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.perDiems[newPerDiemKey(payeeID, tourID, date)]
	return ok, nil
}

// Execute runs validate then mutate on the stored payment while holding
// the store lock, so no other writer can slip between check and change.
// A failed validation returns the current record alongside the error so
// callers can see the state that blocked them.
func (s *InMemoryPaymentStore) Execute(_ context.Context, paymentID id.PaymentID, validate func(*models.Payment) error, mutate func(*models.Payment)) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.byID[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
	}
	if err := validate(payment); err != nil {
		return payment.Clone(), err
	}
	mutate(payment)
	return payment.Clone(), nil
}
