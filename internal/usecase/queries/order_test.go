//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"freshfold/internal/domain/user"
	"freshfold/internal/infra"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/queries"
	"freshfold/internal/usecase/shared"
	"freshfold/tests/common/builder"
	queriesmock "freshfold/tests/mock/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type OrderQueriesTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *queriesmock.MockOrderReadStore
	queries queries.OrderQueries
}

func (s *OrderQueriesTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = queriesmock.NewMockOrderReadStore(s.ctrl)
	s.queries = queries.NewOrderQueries(s.store)
}

func TestOrderQueriesSuite(t *testing.T) {
	suite.Run(t, new(OrderQueriesTestSuite))
}

func actor(role user.Role) shared.Actor {
	id := uuid.New()
	return shared.Actor{UserID: &id, Role: role}
}

func (s *OrderQueriesTestSuite) TestGetByID() {
	owner := actor(user.RoleCustomer)
	customerOrder := &queries.OrderView{ID: uuid.New(), CustomerUserID: owner.UserID}
	guestOrder := &queries.OrderView{ID: uuid.New()}

	testCases := []struct {
		name    string
		view    *queries.OrderView
		actor   shared.Actor
		wantErr error
	}{
		{name: "owner reads own order", view: customerOrder, actor: owner},
		{name: "operator reads any order", view: customerOrder, actor: actor(user.RoleOperator)},
		{name: "other customer gets not found", view: customerOrder, actor: actor(user.RoleCustomer), wantErr: queries.ErrOrderNotFound},
		{name: "anonymous gets not found for customer order", view: customerOrder, actor: shared.Actor{}, wantErr: queries.ErrOrderNotFound},
		{name: "anyone with the id reads a guest order", view: guestOrder, actor: shared.Actor{}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.store.EXPECT().FindByID(gomock.Any(), tc.view.ID).Return(tc.view, nil)

			got, err := s.queries.GetByID(s.T().Context(), tc.actor, tc.view.ID)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				s.Nil(got)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.view.ID, got.ID)
		})
	}

	s.Run("store not found maps to order not found", func() {
		id := uuid.New()
		s.store.EXPECT().FindByID(gomock.Any(), id).Return(nil, infra.NewRepoErr(infra.KindNotFound, "order not found"))

		_, err := s.queries.GetByIDSystem(s.T().Context(), id)
		s.ErrorIs(err, queries.ErrOrderNotFound)
		s.True(errs.IsNotFound(err))
	})
}

func (s *OrderQueriesTestSuite) TestList() {
	s.Run("anonymous callers cannot list", func() {
		_, _, err := s.queries.List(s.T().Context(), shared.Actor{}, queries.OrderListFilter{})
		s.ErrorIs(err, queries.ErrOrderListDenied)
	})

	s.Run("customers only see their own orders", func() {
		customer := actor(user.RoleCustomer)
		s.store.EXPECT().List(gomock.Any(), queries.OrderListParams{CustomerUserID: customer.UserID, Limit: 21}).
			Return([]*queries.OrderView{}, nil)

		views, next, err := s.queries.List(s.T().Context(), customer, queries.OrderListFilter{})
		s.Require().NoError(err)
		s.Empty(views)
		s.Nil(next)
	})

	s.Run("an extra row yields a cursor that round-trips", func() {
		base := builder.BaseTime
		views := make([]*queries.OrderView, 3)
		for i := range views {
			views[i] = &queries.OrderView{ID: uuid.New(), CreatedAt: base.Add(-time.Duration(i) * time.Minute)}
		}
		s.store.EXPECT().List(gomock.Any(), gomock.Any()).Return(views, nil)

		got, next, err := s.queries.List(s.T().Context(), actor(user.RoleOperator), queries.OrderListFilter{Limit: 2})
		s.Require().NoError(err)
		s.Len(got, 2)
		s.Require().NotNil(next)

		at, id, err := queries.DecodeAfterCursor(next.After)
		s.Require().NoError(err)
		s.Equal(views[1].ID, id)
		s.True(views[1].CreatedAt.Equal(at))

		s.store.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p queries.OrderListParams) ([]*queries.OrderView, error) {
				s.Nil(p.CustomerUserID)
				s.Require().NotNil(p.AfterID)
				s.Equal(views[1].ID, *p.AfterID)
				return views[2:], nil
			})
		rest, more, err := s.queries.List(s.T().Context(), actor(user.RoleAdmin),
			queries.OrderListFilter{Limit: 2, After: next})
		s.Require().NoError(err)
		s.Len(rest, 1)
		s.Nil(more)
	})

	s.Run("malformed cursor is a validation error", func() {
		_, _, err := s.queries.List(s.T().Context(), actor(user.RoleOperator),
			queries.OrderListFilter{After: &queries.Cursor{After: "not-base64!"}})
		s.ErrorIs(err, queries.ErrInvalidCursor)
		s.True(errs.IsValidation(err))
	})
}
