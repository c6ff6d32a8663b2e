package queries

import (
	"context"
	"time"

	"freshfold/internal/infra"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound    = errs.Class("order not found", errs.ErrNotFound)
	ErrOrderListDenied  = errs.Class("sign in to list orders", errs.ErrForbidden)
	ErrInvalidCursor    = errs.Class("invalid cursor", errs.ErrValidation)
	ErrInvalidStatusArg = errs.Class("invalid status filter", errs.ErrValidation)
)

type OrderListFilter struct {
	Status string
	After  *Cursor
	Limit  int
}

type OrderListParams struct {
	CustomerUserID *uuid.UUID
	Status         string
	AfterCreatedAt *time.Time
	AfterID        *uuid.UUID
	Limit          int
}

//go:generate mockgen -source=order.go -destination=../../../tests/mock/queries/mock_order.go -package=queriesmock
type OrderQueries interface {
	GetByID(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OrderView, error)
	// GetByIDSystem skips access checks. Used for idempotent replays and internal reads.
	GetByIDSystem(ctx context.Context, id uuid.UUID) (*OrderView, error)
	List(ctx context.Context, actor shared.Actor, filter OrderListFilter) ([]*OrderView, *Cursor, error)
}

type OrderReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	List(ctx context.Context, params OrderListParams) ([]*OrderView, error)
}

type orderQueriesImpl struct {
	store OrderReadStore
}

func NewOrderQueries(store OrderReadStore) OrderQueries {
	return &orderQueriesImpl{store: store}
}

// Guest orders are readable by whoever holds the order id; customer orders only
// by their owner and staff. A denied read looks exactly like a missing order.
func (q *orderQueriesImpl) GetByID(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OrderView, error) {
	view, err := q.GetByIDSystem(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.CustomerUserID != nil && !actor.IsStaff() && !actor.Owns(view.CustomerUserID) {
		return nil, ErrOrderNotFound
	}
	return view, nil
}

func (q *orderQueriesImpl) GetByIDSystem(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return view, nil
}

func (q *orderQueriesImpl) List(ctx context.Context, actor shared.Actor, filter OrderListFilter) ([]*OrderView, *Cursor, error) {
	if actor.UserID == nil {
		return nil, nil, ErrOrderListDenied
	}
	limit := ValidateLimit(filter.Limit)
	params := OrderListParams{Status: filter.Status, Limit: limit + 1}
	if !actor.IsStaff() {
		params.CustomerUserID = actor.UserID
	}
	if filter.After != nil && filter.After.After != "" {
		at, id, err := DecodeAfterCursor(filter.After.After)
		if err != nil {
			return nil, nil, errs.Mark(err, ErrInvalidCursor)
		}
		params.AfterCreatedAt = &at
		params.AfterID = &id
	}

	views, err := q.store.List(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	if len(views) <= limit {
		return views, nil, nil
	}
	views = views[:limit]
	last := views[len(views)-1]
	return views, &Cursor{After: EncodeAfterCursor(last.CreatedAt, last.ID)}, nil
}
