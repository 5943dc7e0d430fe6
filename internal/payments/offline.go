package payments

import (
	"context"
	"fmt"
)

// offlineGateway issues session handles without calling any provider. It
// backs dev environments and tests; a hosted provider is a drop-in behind
// the same interface.
type offlineGateway struct {
	baseURL string
}

func NewOfflineGateway(baseURL string) Gateway {
	return &offlineGateway{baseURL: baseURL}
}

func (g *offlineGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid session amount %.2f", req.Amount)
	}

	id := "sess_" + req.AppointmentID.String()
	return &Session{
		ID:  id,
		URL: fmt.Sprintf("%s/checkout/%s", g.baseURL, id),
	}, nil
}
