package ports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Verdict is the gateway's answer for one gateway order.
type Verdict string

const (
	VerdictPaid    Verdict = "paid"
	VerdictFailed  Verdict = "failed"
	VerdictUnknown Verdict = "unknown"
)

// Session is the opaque handle returned by the remote gateway; the customer
// completes payment against it.
type Session struct {
	ID          string `json:"id"`
	PaymentLink string `json:"payment_link,omitempty"`
}

// CreateSessionInput carries what the gateway needs to open a payment session.
type CreateSessionInput struct {
	GatewayOrderID string
	Amount         decimal.Decimal
	Currency       string
	CustomerID     string
	CustomerEmail  string
	CustomerPhone  string
	ReturnURL      string
	NotifyURL      string
}

// PaymentGateway wraps the remote payment service. Both calls are idempotent
// from the caller's side: repeating them must not create duplicate remote
// charges. PollStatus never hangs; a transport failure or malformed response
// degrades to VerdictFailed so the state machine can always advance.
type PaymentGateway interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (Session, error)
	PollStatus(ctx context.Context, gatewayOrderID string) (Verdict, error)
}

// GatewayError marks a failure talking to the remote gateway. The whole
// checkout is safe to retry after one.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
