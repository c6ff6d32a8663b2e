package shared

import (
	"context"
	"time"

	"freshfold/internal/domain/user"

	"github.com/google/uuid"
)

const (
	IdempotencyProcessing = "processing"
	IdempotencyCompleted  = "completed"
)

type IdempotencyRecord struct {
	Key           uuid.UUID
	Scope         string
	Endpoint      string
	Status        string
	RequestHash   string
	ResultOrderID *uuid.UUID
	ExpiresAt     time.Time
}

// CounterStore is the externally backed TTL key/value store used for rate limits
// and partner conversation state. Keys expire on their own.
//
//go:generate mockgen -source=types.go -destination=../../../tests/mock/shared/mock_store.go -package=sharedmock
type CounterStore interface {
	// Incr adds one to key and returns the new value. A new key starts its ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// Actor is the authenticated caller of a usecase. Anonymous guests have a nil UserID.
type Actor struct {
	UserID *uuid.UUID
	Role   user.Role
}

func (a Actor) IsStaff() bool {
	return a.UserID != nil && a.Role.AtLeast(user.RoleOperator)
}

// Owns reports whether the actor is the customer an order was booked for.
func (a Actor) Owns(customerUserID *uuid.UUID) bool {
	return a.UserID != nil && customerUserID != nil && *a.UserID == *customerUserID
}
