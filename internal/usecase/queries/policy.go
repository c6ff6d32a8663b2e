package queries

import (
	"context"

	"freshfold/internal/domain/order"
	"freshfold/internal/infra"
	"freshfold/internal/pkg/errs"
)

var (
	ErrNoActivePolicy      = errs.Class("no active cancellation policy", errs.ErrNotFound)
	ErrInvalidServiceQuery = errs.Class("invalid service_type", errs.ErrValidation)
)

//go:generate mockgen -source=policy.go -destination=../../../tests/mock/queries/mock_policy.go -package=queriesmock
type PolicyQueries interface {
	Active(ctx context.Context, serviceType string) (*PolicyView, error)
}

type PolicyReadStore interface {
	FindActive(ctx context.Context, serviceType string) (*PolicyView, error)
}

type policyQueriesImpl struct {
	store PolicyReadStore
}

func NewPolicyQueries(store PolicyReadStore) PolicyQueries {
	return &policyQueriesImpl{store: store}
}

func (q *policyQueriesImpl) Active(ctx context.Context, serviceType string) (*PolicyView, error) {
	if _, err := order.NewServiceType(serviceType); err != nil {
		return nil, ErrInvalidServiceQuery
	}
	view, err := q.store.FindActive(ctx, serviceType)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrNoActivePolicy
		}
		return nil, err
	}
	return view, nil
}
