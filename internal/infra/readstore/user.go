package readstore

import (
	"context"
	"log/slog"

	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"
	"freshfold/internal/usecase/queries"

	"github.com/google/uuid"
)

type UserReadStore struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewUserReadStore(dbtx db.DBTX, logger *slog.Logger) *UserReadStore {
	return &UserReadStore{db: dbtx, logger: logger}
}

func (r *UserReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.AuthorizedUserView, error) {
	var v queries.AuthorizedUserView
	err := r.db.QueryRow(ctx, `SELECT id, email, role, is_active FROM users WHERE id = $1`, id).
		Scan(&v.ID, &v.Email, &v.Role, &v.IsActive)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "user not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to find user by ID", err)
	}
	return &v, nil
}

// FindByEmail returns the password hash alongside the view for credential checks.
// Only active accounts are unique by email, so an active row wins over older ones.
func (r *UserReadStore) FindByEmail(ctx context.Context, email string) (*queries.AuthorizedUserView, string, error) {
	var (
		v    queries.AuthorizedUserView
		hash string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, email, role, is_active, password_hash FROM users
		WHERE email = $1 ORDER BY is_active DESC, created_at DESC LIMIT 1`, email,
	).Scan(&v.ID, &v.Email, &v.Role, &v.IsActive, &hash)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, "", infra.WrapRepoErr(r.logger, infra.KindNotFound, "user not found", err)
		}
		return nil, "", infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to find user by email", err)
	}
	return &v, hash, nil
}
