package repository

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/domain/user"
	"freshfold/internal/infra"
	"freshfold/internal/infra/db"

	"github.com/google/uuid"
)

type UserRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewUserRepository(dbtx db.DBTX, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: dbtx, logger: logger}
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to update user last login", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID(), u.Email().Value(), u.PasswordHash(), u.Role().String(), u.IsActive(), u.CreatedAt(), u.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to create user", err)
	}
	return nil
}
