package repository

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/domain/policy"
	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const policyColumns = `id, service_type, version, notice_hours, fee_percent, active, created_by, created_at`

type PolicyRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewPolicyRepository(dbtx db.DBTX, logger *slog.Logger) *PolicyRepository {
	return &PolicyRepository{db: dbtx, logger: logger}
}

func (r *PolicyRepository) Active(ctx context.Context, serviceType string) (*policy.CancellationPolicy, error) {
	return r.one(ctx, `SELECT `+policyColumns+` FROM cancellation_policies WHERE service_type = $1 AND active`, serviceType)
}

// ActiveForUpdate serializes concurrent publishers of the same service type.
func (r *PolicyRepository) ActiveForUpdate(ctx context.Context, serviceType string) (*policy.CancellationPolicy, error) {
	return r.one(ctx, `SELECT `+policyColumns+` FROM cancellation_policies WHERE service_type = $1 AND active FOR UPDATE`, serviceType)
}

func (r *PolicyRepository) GetVersion(ctx context.Context, id uuid.UUID, version int32) (*policy.CancellationPolicy, error) {
	return r.one(ctx, `SELECT `+policyColumns+` FROM cancellation_policies WHERE id = $1 AND version = $2`, id, version)
}

func (r *PolicyRepository) Insert(ctx context.Context, p *policy.CancellationPolicy) error {
	terms := p.Terms()
	_, err := r.db.Exec(ctx,
		`INSERT INTO cancellation_policies (`+policyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID(), p.ServiceType(), p.Version(), terms.NoticeHours, terms.FeePercent, p.Active(),
		pgconv.UUIDPtrToPgtype(p.CreatedBy()), p.CreatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to insert cancellation policy", err)
	}
	return nil
}

// Deactivate is the only update a published policy row ever receives.
func (r *PolicyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE cancellation_policies SET active = false WHERE id = $1 AND active`, id)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to deactivate cancellation policy", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindConflict, "policy was already superseded", nil)
	}
	return nil
}

func (r *PolicyRepository) one(ctx context.Context, query string, args ...any) (*policy.CancellationPolicy, error) {
	var (
		id          uuid.UUID
		serviceType string
		version     int32
		terms       policy.Terms
		active      bool
		createdBy   pgtype.UUID
		createdAt   time.Time
	)
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&id, &serviceType, &version, &terms.NoticeHours, &terms.FeePercent, &active, &createdBy, &createdAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "cancellation policy not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to load cancellation policy", err)
	}
	return policy.Reconstruct(id, serviceType, version, terms, active, pgconv.UUIDPtrFromPgtype(createdBy), createdAt), nil
}
