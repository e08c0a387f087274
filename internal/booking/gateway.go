package booking

import (
	"context"

	"github.com/google/uuid"
)

// ChargeRequest is the input to the external payment gateway.  Ref is the
// caller-supplied payment reference used for idempotency; when empty the
// gateway assigns one.
type ChargeRequest struct {
	ReservationID uint64
	AmountCents   uint32
	Method        string
	Ref           string
}

// ChargeResult is the opaque gateway outcome: whether the charge settled
// and the reference id to correlate retries and webhooks with.
type ChargeResult struct {
	Ref       string
	Completed bool
}

// Gateway is the payment boundary.  The core only needs the boolean-ish
// outcome and a reference id; everything else about the gateway is out of
// scope.  Charge is called outside the per-screening critical section and
// may block on network I/O.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// StaticGateway is a Gateway that always answers the same way.  It backs
// local development and tests; production deployments plug in a real
// gateway client.
type StaticGateway struct {
	Decline bool
}

// Charge completes (or declines) immediately, minting a reference when the
// request carries none.
func (g StaticGateway) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	ref := req.Ref
	if ref == "" {
		ref = uuid.NewString()
	}
	return ChargeResult{Ref: ref, Completed: !g.Decline}, nil
}
