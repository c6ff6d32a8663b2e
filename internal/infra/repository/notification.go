package repository

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"
)

type NotificationRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewNotificationRepository(dbtx db.DBTX, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{db: dbtx, logger: logger}
}

func (r *NotificationRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notification_jobs (kind, topic, payload, status, run_at) VALUES ($1, $2, $3, 'queued', $4)`,
		kind, topic, payload, pgconv.TimeToPgtype(runAt),
	)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to create notification job", err)
	}
	return nil
}
