package readstore

import (
	"context"
	"log/slog"

	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"
	"freshfold/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgtype"
)

type WebhookEventReadStore struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewWebhookEventReadStore(dbtx db.DBTX, logger *slog.Logger) *WebhookEventReadStore {
	return &WebhookEventReadStore{db: dbtx, logger: logger}
}

func (r *WebhookEventReadStore) ListByStatus(ctx context.Context, status string, limit int) ([]*queries.WebhookEventView, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, source, event_type, status, error, attempts, latency_ms, received_at, processed_at
		FROM webhook_events WHERE status = $1
		ORDER BY received_at DESC LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to list webhook events", err)
	}
	defer rows.Close()

	var out []*queries.WebhookEventView
	for rows.Next() {
		var (
			v         queries.WebhookEventView
			latency   pgtype.Int8
			processed pgtype.Timestamptz
		)
		if err := rows.Scan(&v.EventID, &v.Source, &v.EventType, &v.Status, &v.Error, &v.Attempts, &latency, &v.ReceivedAt, &processed); err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan webhook event", err)
		}
		if latency.Valid {
			v.LatencyMs = &latency.Int64
		}
		v.ProcessedAt = pgconv.TimePtrFromPgtype(processed)
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to iterate webhook events", err)
	}
	return out, nil
}
