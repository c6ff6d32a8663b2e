package converter

import (
	"freshfold/internal/domain/payment"
	"freshfold/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const AttemptColumns = `id, order_id, kind, epoch, idempotency_key, amount, status, provider_ref,
	continuation_ref, client_secret, failure_code, failure_message, released_amount, tries,
	next_attempt_at, created_at, updated_at`

type AttemptRow struct {
	ID              string
	OrderID         uuid.UUID
	Kind            string
	Epoch           int32
	IdempotencyKey  string
	Amount          int64
	Status          string
	ProviderRef     string
	ContinuationRef pgtype.Text
	ClientSecret    string
	FailureCode     string
	FailureMessage  string
	ReleasedAmount  int64
	Tries           int32
	NextAttemptAt   pgtype.Timestamptz
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

func (r *AttemptRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.OrderID, &r.Kind, &r.Epoch, &r.IdempotencyKey, &r.Amount, &r.Status, &r.ProviderRef,
		&r.ContinuationRef, &r.ClientSecret, &r.FailureCode, &r.FailureMessage, &r.ReleasedAmount, &r.Tries,
		&r.NextAttemptAt, &r.CreatedAt, &r.UpdatedAt,
	}
}

func AttemptToDomain(r AttemptRow) *payment.Attempt {
	return &payment.Attempt{
		ID:              r.ID,
		OrderID:         r.OrderID,
		Kind:            payment.Kind(r.Kind),
		Epoch:           r.Epoch,
		IdempotencyKey:  r.IdempotencyKey,
		Amount:          r.Amount,
		Status:          payment.Status(r.Status),
		ProviderRef:     r.ProviderRef,
		ContinuationRef: pgconv.StringPtrFromPgtype(r.ContinuationRef),
		ClientSecret:    r.ClientSecret,
		FailureCode:     r.FailureCode,
		FailureMessage:  r.FailureMessage,
		ReleasedAmount:  r.ReleasedAmount,
		Tries:           r.Tries,
		NextAttemptAt:   pgconv.TimePtrFromPgtype(r.NextAttemptAt),
		CreatedAt:       r.CreatedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

// AttemptArgs returns the positional arguments in AttemptColumns order.
func AttemptArgs(a *payment.Attempt) []any {
	return []any{
		a.ID, a.OrderID, string(a.Kind), a.Epoch, a.IdempotencyKey, a.Amount, string(a.Status), a.ProviderRef,
		pgconv.StringPtrToPgtype(a.ContinuationRef), a.ClientSecret, a.FailureCode, a.FailureMessage,
		a.ReleasedAmount, a.Tries, pgconv.TimePtrToPgtype(a.NextAttemptAt),
		pgconv.TimeToPgtype(a.CreatedAt), pgconv.TimeToPgtype(a.UpdatedAt),
	}
}
