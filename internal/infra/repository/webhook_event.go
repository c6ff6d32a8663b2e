package repository

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/domain/webhook"
	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"
)

// A failed row, or a pending row whose worker died, may be claimed again.
// Every other conflict returns no row and the delivery is a duplicate.
const claimEventSQL = `INSERT INTO webhook_events (event_id, source, event_type, status, payload, received_at, attempts)
VALUES ($1, $2, $3, 'pending', $4, $5, 1)
ON CONFLICT (event_id) DO UPDATE
SET status = 'pending', attempts = webhook_events.attempts + 1, error = '', received_at = EXCLUDED.received_at
WHERE webhook_events.status = 'failure'
   OR (webhook_events.status = 'pending' AND webhook_events.received_at < $6)
RETURNING attempts`

type WebhookEventRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewWebhookEventRepository(dbtx db.DBTX, logger *slog.Logger) *WebhookEventRepository {
	return &WebhookEventRepository{db: dbtx, logger: logger}
}

func (r *WebhookEventRepository) Claim(ctx context.Context, e *webhook.Event, staleAfter time.Duration) (bool, error) {
	payload := e.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var attempts int32
	err := r.db.QueryRow(ctx, claimEventSQL,
		e.ID, string(e.Source), e.Type, payload, e.ReceivedAt, e.ReceivedAt.Add(-staleAfter),
	).Scan(&attempts)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return false, nil
		}
		return false, infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to claim webhook event", err)
	}
	e.Status = webhook.StatusPending
	e.Attempts = attempts
	return true, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, eventID string, status webhook.Status, errMsg string, latencyMs int64, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE webhook_events SET status = $2, error = $3, latency_ms = $4, processed_at = $5 WHERE event_id = $1`,
		eventID, status.String(), errMsg, latencyMs, at,
	)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to mark webhook event", err)
	}
	return nil
}
