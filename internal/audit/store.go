package audit

import (
	"context"

	id "roadbook/pkg/domain"
)

// Store persists audit events. Implementations must be safe for
// concurrent use; the engine's batch paths emit from multiple goroutines.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByPayment(ctx context.Context, paymentID id.PaymentID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
