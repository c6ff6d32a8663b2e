package settlement

import (
	"context"
	"fmt"

	"freshfold/internal/pkg/errs"

	"github.com/google/uuid"
)

//go:generate mockgen -source=gateway.go -destination=../../../tests/mock/settlement/mock_gateway.go -package=settlementmock

var (
	// ErrGatewayUnavailable covers timeouts, 5xx and rate limits. The same
	// idempotency key is safe to replay.
	ErrGatewayUnavailable = errs.Class("payment processor unavailable", errs.ErrTransient)
	// ErrPaymentDeclined is a definitive refusal. Retrying needs a new attempt epoch.
	ErrPaymentDeclined = errs.New("payment declined")
	// ErrAuthorizationExpired means the hold can no longer be captured.
	ErrAuthorizationExpired = errs.New("authorization expired")
)

// DeclineError carries the processor's decline code.
type DeclineError struct {
	Code    string
	Message string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined: %s (%s)", e.Message, e.Code)
}

func (e *DeclineError) Is(target error) bool {
	return target == ErrPaymentDeclined
}

type ResultStatus string

const (
	ResultSucceeded      ResultStatus = "succeeded"
	ResultRequiresAction ResultStatus = "requires_action"
)

// Request is the processor call for one payment attempt.
type Request struct {
	IdempotencyKey  string
	OrderID         uuid.UUID
	Amount          int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	// ProviderRef is the authorization being captured or voided, or the payment being refunded.
	ProviderRef string
	Reason      string
}

type Result struct {
	Status       ResultStatus
	ProviderRef  string
	ChargeID     string
	ReceiptURL   string
	ClientSecret string
	// Amount actually authorized, captured or refunded.
	Amount int64
}

// Gateway is the processor port. Every call carries the attempt's idempotency key.
type Gateway interface {
	Name() string
	Authorize(ctx context.Context, req Request) (Result, error)
	Capture(ctx context.Context, req Request) (Result, error)
	Charge(ctx context.Context, req Request) (Result, error)
	Refund(ctx context.Context, req Request) (Result, error)
	Void(ctx context.Context, req Request) (Result, error)
	// Confirm reads the outcome of a payment after customer authentication.
	Confirm(ctx context.Context, req Request) (Result, error)
}
