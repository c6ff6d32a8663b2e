package shared

import (
	"context"
	"time"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/order"
	"freshfold/internal/domain/payment"
	"freshfold/internal/domain/policy"
	"freshfold/internal/domain/subscription"
	"freshfold/internal/domain/user"
	"freshfold/internal/domain/webhook"
	"freshfold/internal/pkg/errs"

	"github.com/google/uuid"
)

// ErrConcurrentModification is returned when a guarded write finds the row changed underneath it.
var ErrConcurrentModification = errs.Class("order was modified concurrently", errs.ErrConflict)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

// Tx exposes repositories bound to one open transaction.
type Tx interface {
	Orders() OrderRepository
	Capacity() CapacityRepository
	Policies() PolicyRepository
	PaymentAttempts() PaymentAttemptRepository
	WebhookEvents() WebhookEventRepository
	Idempotency() IdempotencyRepository
	Notifications() NotificationRepository
	Subscriptions() SubscriptionRepository
	Users() UserRepository
}

type CommandReads interface {
	OrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ActivePolicy(ctx context.Context, serviceType string) (*policy.CancellationPolicy, error)
	AttemptByContinuation(ctx context.Context, ref string) (*payment.Attempt, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, o *order.Order) error
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	// GetForUpdate locks the row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error)
	// Update writes o only when the stored row still has the expected status and
	// the version o was loaded with, then bumps o's version.
	Update(ctx context.Context, o *order.Order, expected order.Status) error
}

type CapacityRepository interface {
	// Reserve fails with KindNotFound when the slot is missing or offered for another service type.
	Reserve(ctx context.Context, partnerID uuid.UUID, serviceType string, window capacity.TimeWindow, units int32) (capacity.ReservationToken, error)
	Release(ctx context.Context, token capacity.ReservationToken) error
	Upsert(ctx context.Context, slot capacity.Slot) error
	Get(ctx context.Context, partnerID uuid.UUID, window capacity.TimeWindow) (capacity.Slot, error)
}

type PolicyRepository interface {
	Active(ctx context.Context, serviceType string) (*policy.CancellationPolicy, error)
	ActiveForUpdate(ctx context.Context, serviceType string) (*policy.CancellationPolicy, error)
	GetVersion(ctx context.Context, id uuid.UUID, version int32) (*policy.CancellationPolicy, error)
	Insert(ctx context.Context, p *policy.CancellationPolicy) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type PaymentAttemptRepository interface {
	// Latest returns nil without error when the order has no attempt of that kind.
	Latest(ctx context.Context, orderID uuid.UUID, kind payment.Kind) (*payment.Attempt, error)
	Insert(ctx context.Context, a *payment.Attempt) error
	Update(ctx context.Context, a *payment.Attempt) error
	FindByContinuation(ctx context.Context, ref string) (*payment.Attempt, error)
	// ClaimDue locks scheduled attempts whose retry time has passed, skipping rows other workers hold.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*payment.Attempt, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*payment.Attempt, error)
}

type WebhookEventRepository interface {
	// Claim inserts the event as pending. It reports false when the event id was
	// already processed successfully or another delivery is still working on it.
	Claim(ctx context.Context, e *webhook.Event, staleAfter time.Duration) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, status webhook.Status, errMsg string, latencyMs int64, at time.Time) error
}

type IdempotencyRepository interface {
	// TryInsert reports false when a record for (key, scope) already exists.
	TryInsert(ctx context.Context, rec IdempotencyRecord) (bool, error)
	Get(ctx context.Context, key uuid.UUID, scope string) (*IdempotencyRecord, error)
	Complete(ctx context.Context, key uuid.UUID, scope string, responseHash string, resultOrderID uuid.UUID) error
	ReclaimExpired(ctx context.Context, rec IdempotencyRecord, now time.Time) (bool, error)
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}

type SubscriptionRepository interface {
	// Upsert ignores events older than the last one applied and reports whether it wrote.
	Upsert(ctx context.Context, s subscription.Subscription) (bool, error)
}

type UserRepository interface {
	UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
	Create(ctx context.Context, u *user.User) error
}
