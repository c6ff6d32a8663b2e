package repository

import (
	"context"
	"log/slog"

	"freshfold/internal/domain/subscription"
	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"
)

// Rows only move forward in event time; a late delivery of an older event is a no-op.
const upsertSubscriptionSQL = `INSERT INTO subscriptions
	(subscription_id, provider, customer_id, user_id, status, plan_id, current_period_end, canceled_at, last_event_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (subscription_id) DO UPDATE SET
	customer_id = EXCLUDED.customer_id,
	user_id = COALESCE(EXCLUDED.user_id, subscriptions.user_id),
	status = EXCLUDED.status,
	plan_id = EXCLUDED.plan_id,
	current_period_end = EXCLUDED.current_period_end,
	canceled_at = COALESCE(EXCLUDED.canceled_at, subscriptions.canceled_at),
	last_event_at = EXCLUDED.last_event_at,
	updated_at = now()
WHERE subscriptions.last_event_at < EXCLUDED.last_event_at`

type SubscriptionRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewSubscriptionRepository(dbtx db.DBTX, logger *slog.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{db: dbtx, logger: logger}
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, s subscription.Subscription) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, upsertSubscriptionSQL,
		s.ID, s.Provider, s.CustomerID, pgconv.UUIDPtrToPgtype(s.UserID), s.Status, s.PlanID,
		pgconv.TimePtrToPgtype(s.CurrentPeriodEnd), pgconv.TimePtrToPgtype(s.CanceledAt), s.LastEventAt,
	)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to upsert subscription", err)
	}
	return tag.RowsAffected() == 1, nil
}
