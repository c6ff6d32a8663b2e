package queries

import (
	"context"

	"freshfold/internal/domain/webhook"
)

//go:generate mockgen -source=webhook.go -destination=../../../tests/mock/queries/mock_webhook.go -package=queriesmock
type WebhookEventQueries interface {
	// List feeds manual reconciliation. An empty status defaults to failure.
	List(ctx context.Context, status string, limit int) ([]*WebhookEventView, error)
}

type WebhookEventReadStore interface {
	ListByStatus(ctx context.Context, status string, limit int) ([]*WebhookEventView, error)
}

type webhookEventQueriesImpl struct {
	store WebhookEventReadStore
}

func NewWebhookEventQueries(store WebhookEventReadStore) WebhookEventQueries {
	return &webhookEventQueriesImpl{store: store}
}

func (q *webhookEventQueriesImpl) List(ctx context.Context, status string, limit int) ([]*WebhookEventView, error) {
	if status == "" {
		status = webhook.StatusFailure.String()
	}
	if !webhook.Status(status).IsValid() {
		return nil, ErrInvalidStatusArg
	}
	return q.store.ListByStatus(ctx, status, ValidateLimit(limit))
}
