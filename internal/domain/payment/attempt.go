package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidKind   = errors.New("invalid payment operation kind")
	ErrInvalidAmount = errors.New("payment amount must be positive")
	ErrNotSuspended  = errors.New("payment attempt is not waiting for customer action")
)

// Kind is the processor operation an attempt performs.
type Kind string

const (
	KindAuthorize Kind = "authorize"
	KindCapture   Kind = "capture"
	KindCharge    Kind = "charge"
	KindRefund    Kind = "refund"
	KindVoid      Kind = "void"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindAuthorize, KindCapture, KindCharge, KindRefund, KindVoid:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusInFlight       Status = "in_flight"
	StatusRequiresAction Status = "requires_action"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusScheduled      Status = "scheduled"
)

// Open attempts keep their epoch, so a retry reuses the same idempotency key.
func (s Status) Open() bool {
	switch s {
	case StatusInFlight, StatusRequiresAction, StatusScheduled:
		return true
	default:
		return false
	}
}

// Attempt is one idempotent processor operation for an order.
type Attempt struct {
	ID              string
	OrderID         uuid.UUID
	Kind            Kind
	Epoch           int32
	IdempotencyKey  string
	Amount          int64
	Status          Status
	ProviderRef     string
	ContinuationRef *string
	ClientSecret    string
	FailureCode     string
	FailureMessage  string
	ReleasedAmount  int64
	Tries           int32
	NextAttemptAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IdempotencyKey is <order_id>:<operation_kind>:<attempt_epoch>.
func IdempotencyKey(orderID uuid.UUID, kind Kind, epoch int32) string {
	return fmt.Sprintf("%s:%s:%d", orderID, kind, epoch)
}

// NextEpoch reuses the epoch of an attempt whose outcome is still open and
// starts a new one once the previous attempt reached a definitive outcome.
func NextEpoch(latest *Attempt) (epoch int32, reuse bool) {
	if latest == nil {
		return 1, false
	}
	if latest.Status.Open() {
		return latest.Epoch, true
	}
	return latest.Epoch + 1, false
}

func NewAttempt(orderID uuid.UUID, kind Kind, epoch int32, amount int64, now time.Time) (*Attempt, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if amount < 0 || (amount == 0 && kind != KindVoid) {
		return nil, ErrInvalidAmount
	}
	return &Attempt{
		ID:             ulid.Make().String(),
		OrderID:        orderID,
		Kind:           kind,
		Epoch:          epoch,
		IdempotencyKey: IdempotencyKey(orderID, kind, epoch),
		Amount:         amount,
		Status:         StatusInFlight,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (a *Attempt) Begin(now time.Time) {
	a.Status = StatusInFlight
	a.Tries++
	a.NextAttemptAt = nil
	a.UpdatedAt = now
}

func (a *Attempt) Succeed(providerRef string, now time.Time) {
	a.Status = StatusSucceeded
	if providerRef != "" {
		a.ProviderRef = providerRef
	}
	a.ContinuationRef = nil
	a.ClientSecret = ""
	a.FailureCode = ""
	a.FailureMessage = ""
	a.NextAttemptAt = nil
	a.UpdatedAt = now
}

func (a *Attempt) Fail(code, message string, now time.Time) {
	a.Status = StatusFailed
	a.FailureCode = code
	a.FailureMessage = message
	a.ContinuationRef = nil
	a.NextAttemptAt = nil
	a.UpdatedAt = now
}

// Schedule parks the attempt for the retry worker. The epoch and key stay the same.
func (a *Attempt) Schedule(at time.Time, reason string, now time.Time) {
	a.Status = StatusScheduled
	a.FailureMessage = reason
	a.NextAttemptAt = &at
	a.UpdatedAt = now
}

// Suspend records a step-up authentication point and returns its continuation reference.
func (a *Attempt) Suspend(providerRef, clientSecret string, now time.Time) string {
	ref := ulid.Make().String()
	a.Status = StatusRequiresAction
	a.ProviderRef = providerRef
	a.ClientSecret = clientSecret
	a.ContinuationRef = &ref
	a.UpdatedAt = now
	return ref
}

func (a *Attempt) Resumable(orderID uuid.UUID) error {
	if a.OrderID != orderID || a.Status != StatusRequiresAction {
		return ErrNotSuspended
	}
	return nil
}

// Backoff returns base * 2^(n-1) capped at max for the n-th retry.
func Backoff(n int32, base, max time.Duration) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := int32(1); i < n; i++ {
		d = b.NextBackOff()
	}
	return min(d, max)
}
