package readstore

import (
	"context"
	"log/slog"

	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"
	"freshfold/internal/usecase/queries"
)

type PolicyReadStore struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewPolicyReadStore(dbtx db.DBTX, logger *slog.Logger) *PolicyReadStore {
	return &PolicyReadStore{db: dbtx, logger: logger}
}

func (r *PolicyReadStore) FindActive(ctx context.Context, serviceType string) (*queries.PolicyView, error) {
	var v queries.PolicyView
	err := r.db.QueryRow(ctx,
		`SELECT id, service_type, version, notice_hours, fee_percent, active, created_at
		FROM cancellation_policies WHERE service_type = $1 AND active`, serviceType,
	).Scan(&v.ID, &v.ServiceType, &v.Version, &v.NoticeHours, &v.FeePercent, &v.Active, &v.CreatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "no active cancellation policy", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to find active cancellation policy", err)
	}
	return &v, nil
}
