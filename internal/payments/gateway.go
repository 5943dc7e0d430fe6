// Package payments defines the narrow contract the booking service needs
// from a payment provider. Providers implement checkout-session creation;
// payment confirmation flows back through the API as a confirm call with the
// provider's reference.
package payments

import (
	"context"

	"github.com/google/uuid"
)

type SessionRequest struct {
	AppointmentID uuid.UUID
	Amount        float64
	Currency      string
	Description   string
}

type Session struct {
	ID  string
	URL string
}

type Gateway interface {
	// CreateSession opens a payment session for the given amount. Callers
	// bound the wait with the context; a timeout is a transient failure and
	// leaves the appointment unpaid.
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}
