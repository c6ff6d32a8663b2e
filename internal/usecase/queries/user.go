package queries

import (
	"context"

	"freshfold/internal/infra"
	"freshfold/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errs.Class("user not found", errs.ErrNotFound)
	ErrUserInactive = errs.Class("user inactive", errs.ErrForbidden)
)

//go:generate mockgen -source=user.go -destination=../../../tests/mock/queries/mock_user.go -package=queriesmock
type UserQueries interface {
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*AuthorizedUserView, error)
}

type UserReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*AuthorizedUserView, error)
	FindByEmail(ctx context.Context, email string) (*AuthorizedUserView, string, error)
}

type userQueriesImpl struct {
	readStore UserReadStore
}

func NewUserQueries(readStore UserReadStore) UserQueries {
	return &userQueriesImpl{
		readStore: readStore,
	}
}

func (q *userQueriesImpl) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*AuthorizedUserView, error) {
	user, err := q.readStore.FindByID(ctx, userID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return user, nil
}
