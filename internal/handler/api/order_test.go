//go:build unit

package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/pricing"
	"freshfold/internal/domain/user"
	"freshfold/internal/handler/api"
	reqdto "freshfold/internal/handler/dto/request"
	resdto "freshfold/internal/handler/dto/response"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/queries"
	"freshfold/internal/usecase/settlement"
	"freshfold/internal/usecase/shared"
	"freshfold/tests/common/builder"
	"freshfold/tests/common/httptest"
	"freshfold/tests/common/testutil"
	commandsmock "freshfold/tests/mock/commands"
	queriesmock "freshfold/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type OrderHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockOrderCommands
	mockQueries  *queriesmock.MockOrderQueries
	mockQuotes   *queriesmock.MockQuoteQueries
	operatorID   uuid.UUID
}

func (s *OrderHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockOrderCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockOrderQueries(s.mockCtrl)
	s.mockQuotes = queriesmock.NewMockQuoteQueries(s.mockCtrl)
	s.operatorID = uuid.New()
	h := api.NewOrderHandler(s.mockCommands, s.mockQueries, s.mockQuotes)

	// a bearer token stands in for an authenticated operator
	s.router.Use(func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			c.Set("user_id", s.operatorID)
			c.Set("user_role", user.RoleOperator)
		}
		c.Next()
	})
	s.router.POST("/orders", h.Create)
	s.router.POST("/quotes", h.Quote)
	s.router.GET("/orders", h.List)
	s.router.GET("/orders/:id", h.Get)
	s.router.POST("/orders/:id/cancel", h.Cancel)
	s.router.POST("/admin/orders/:id/status", h.Advance)
}

func (s *OrderHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestOrderHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}

func (s *OrderHandlerTestSuite) bookingBody() map[string]any {
	b := builder.NewOrderBuilder()
	req := reqdto.CreateOrderRequest{
		ServiceType: b.ServiceType.String(),
		PartnerID:   b.PartnerID,
		SlotStart:   b.SlotStart,
		SlotEnd:     b.SlotEnd,
		Address: reqdto.AddressRequest{
			Line1:      b.Line1,
			City:       b.City,
			PostalCode: b.PostalCode,
		},
		Guest:         &reqdto.GuestContactRequest{Name: b.GuestName, Phone: b.GuestPhone},
		ServiceParams: b.Params,
	}
	return testutil.DtoMap(s.T(), req)
}

func createResult(replayed bool) *commands.CreateOrderResult {
	p, _ := order.NewPricing(3500, 306, 500, 4306)
	return &commands.CreateOrderResult{
		OrderID:    uuid.New(),
		Status:     order.StatusPending,
		Pricing:    p,
		IsReplayed: replayed,
	}
}

func (s *OrderHandlerTestSuite) TestCreate() {
	url := "/orders"
	key := uuid.New()
	headers := func() map[string]string {
		return map[string]string{"Idempotency-Key": key.String(), "Content-Type": "application/json"}
	}
	post := func(body map[string]any) []byte {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		return raw
	}

	s.Run("success: 201 Created for a new booking", func() {
		s.mockCommands.EXPECT().Create(gomock.Any(), shared.Actor{}, gomock.Any(), key).
			Return(createResult(false), nil).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, post(s.bookingBody()), headers())

		var res resdto.CreateOrderResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &res)
		s.Equal("pending", res.Status)
		s.Equal(int64(4306), res.Pricing.Total)
		s.Empty(rec.Header().Get("Idempotent-Replayed"))
	})

	s.Run("success: 200 OK with replay header for a replay", func() {
		s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), key).
			Return(createResult(true), nil).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, post(s.bookingBody()), headers())

		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
		s.Equal("true", rec.Header().Get("Idempotent-Replayed"))
	})

	s.Run("success: a declined hold keeps the booking", func() {
		result := createResult(false)
		result.PaymentErr = errs.Mark(errs.New("card declined"), settlement.ErrPaymentDeclined)
		s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), key).
			Return(result, nil).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, post(s.bookingBody()), headers())

		var res resdto.CreateOrderResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &res)
		s.Require().NotNil(res.PaymentAction)
		s.Equal("payment_declined", res.PaymentAction.Error)
	})

	s.Run("error: 400 when the idempotency key is missing", func() {
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, post(s.bookingBody()),
			map[string]string{"Content-Type": "application/json"})
		httptest.AssertErrorCode(s.T(), rec, http.StatusBadRequest, "idempotency_key_required")
	})

	s.Run("error: 400 when the idempotency key is not a UUID", func() {
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, post(s.bookingBody()),
			map[string]string{"Idempotency-Key": "not-a-uuid", "Content-Type": "application/json"})
		httptest.AssertErrorCode(s.T(), rec, http.StatusBadRequest, "validation_failed")
	})

	s.Run("error: 400 Bad Request on validation errors", func() {
		testCases := []struct {
			name   string
			mutate func(m map[string]any)
		}{
			{name: "missing service_type", mutate: testutil.Field("service_type", nil)},
			{name: "unknown service_type", mutate: testutil.Field("service_type", "gardening")},
			{name: "missing partner_id", mutate: testutil.Field("partner_id", nil)},
			{name: "missing slot_start", mutate: testutil.Field("slot_start", nil)},
			{name: "missing address", mutate: testutil.Field("address", nil)},
		}
		for _, tc := range testCases {
			s.Run(tc.name, func() {
				body := s.bookingBody()
				tc.mutate(body)
				rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, post(body), headers())
				httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid request format")
			})
		}
	})

	s.Run("error: maps usecase errors to proper statuses", func() {
		testCases := []struct {
			name           string
			err            error
			expectedStatus int
			expectedCode   string
			expectedReason string
		}{
			{name: "slot full", err: commands.ErrSlotUnavailable, expectedStatus: http.StatusConflict, expectedCode: "slot_unavailable"},
			{name: "key reused with another body", err: errs.ErrIdempotencyMismatch, expectedStatus: http.StatusConflict, expectedCode: "idempotency_key_mismatch"},
			{name: "key still in flight", err: errs.ErrIdempotencyInProgress, expectedStatus: http.StatusConflict, expectedCode: "idempotency_in_progress"},
			{
				name:           "guest without phone",
				err:            errs.Mark(order.ErrMissingGuestPhone, commands.ErrMissingContact),
				expectedStatus: http.StatusBadRequest,
				expectedCode:   "missing_contact",
				expectedReason: "missing_phone",
			},
			{name: "database down", err: errs.Mark(errs.New("dial tcp"), errs.ErrTransient), expectedStatus: http.StatusServiceUnavailable, expectedCode: "temporarily_unavailable"},
		}
		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), key).
					Return(nil, tc.err).Times(1)

				rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, post(s.bookingBody()), headers())
				detail := httptest.AssertErrorCode(s.T(), rec, tc.expectedStatus, tc.expectedCode)
				if tc.expectedReason != "" {
					s.Equal(tc.expectedReason, detail["reason"])
				}
			})
		}
	})
}

func (s *OrderHandlerTestSuite) TestQuote() {
	s.Run("success: returns the itemized quote", func() {
		params := json.RawMessage(`{"weight_lbs":20}`)
		s.mockQuotes.EXPECT().Preview("laundry", gomock.Any()).
			Return(pricing.Quote{
				LineItems: []pricing.LineItem{{Code: "wash_fold", Quantity: 20, UnitCents: 175, AmountCents: 3500}},
				Subtotal:  3500, Tax: 306, DeliveryFee: 500, Total: 4306,
			}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/quotes",
			reqdto.QuoteRequest{ServiceType: "laundry", ServiceParams: params}, "")

		var res resdto.QuoteResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &res)
		s.Equal(int64(4306), res.Total)
		s.Len(res.LineItems, 1)
	})

	s.Run("error: 400 on invalid params", func() {
		s.mockQuotes.EXPECT().Preview("cleaning", gomock.Any()).
			Return(pricing.Quote{}, queries.ErrInvalidServiceParams).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/quotes",
			reqdto.QuoteRequest{ServiceType: "cleaning", ServiceParams: json.RawMessage(`{"bedrooms":-1}`)}, "")
		httptest.AssertErrorCode(s.T(), rec, http.StatusBadRequest, "invalid_service_params")
	})
}

func (s *OrderHandlerTestSuite) TestGet() {
	id := uuid.New()

	s.Run("success: returns the order", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), shared.Actor{}, id).
			Return(&queries.OrderView{ID: id, Status: "pending", Total: 4306}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/orders/"+id.String(), nil, "")

		var res map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &res)
		s.Equal(id.String(), res["id"])
		s.Equal("pending", res["status"])
	})

	s.Run("error: 400 on a malformed id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/orders/123", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid order ID format")
	})

	s.Run("error: 404 when hidden or missing", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), gomock.Any(), id).
			Return(nil, queries.ErrOrderNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/orders/"+id.String(), nil, "")
		httptest.AssertErrorCode(s.T(), rec, http.StatusNotFound, "order_not_found")
	})
}

func (s *OrderHandlerTestSuite) TestList() {
	s.Run("success: passes filter and returns the next cursor", func() {
		s.mockQueries.EXPECT().List(gomock.Any(), gomock.Any(), queries.OrderListFilter{
			Status: "pending",
			Limit:  10,
			After:  &queries.Cursor{After: "abc"},
		}).Return([]*queries.OrderView{{ID: uuid.New()}}, &queries.Cursor{After: "next"}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/orders?status=pending&limit=10&cursor=abc", nil, "token")

		var res resdto.OrderListResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &res)
		s.Len(res.Orders, 1)
		s.Equal("next", res.NextCursor)
	})

	s.Run("error: 400 when limit is out of range", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/orders?limit=500", nil, "token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid query parameters")
	})
}

func (s *OrderHandlerTestSuite) TestCancel() {
	o := builder.NewOrderBuilder().MustBuildAt(order.StatusCanceled)

	s.Run("success: returns the canceled order", func() {
		s.mockCommands.EXPECT().Cancel(gomock.Any(), gomock.Any(), o.ID(), "changed plans").
			Return(o, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/orders/"+o.ID().String()+"/cancel",
			reqdto.CancelOrderRequest{Reason: "changed plans"}, "")

		var res resdto.OrderStatusResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &res)
		s.Equal("canceled", res.Status)
	})

	s.Run("error: 400 when the reason is missing", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/orders/"+o.ID().String()+"/cancel",
			map[string]any{}, "")
		httptest.AssertErrorCode(s.T(), rec, http.StatusBadRequest, "reason_required")
	})
}

func (s *OrderHandlerTestSuite) TestAdvance() {
	o := builder.NewOrderBuilder().MustBuildAt(order.StatusPendingPickup)
	url := "/admin/orders/" + o.ID().String() + "/status"

	s.Run("success: passes the operator as actor", func() {
		operator := shared.Actor{UserID: &s.operatorID, Role: user.RoleOperator}
		s.mockCommands.EXPECT().Advance(gomock.Any(), operator, o.ID(), "pending_pickup").
			Return(o, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url,
			reqdto.AdvanceStatusRequest{Status: "pending_pickup"}, "token")

		var res resdto.OrderStatusResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &res)
		s.Equal("pending_pickup", res.Status)
		s.True(o.Slot().Window.Start().Equal(res.SlotStart))
	})

	s.Run("error: 409 transition_denied carries from and to", func() {
		denied := &order.TransitionError{From: order.StatusPending, To: order.StatusDelivered, Reason: order.ReasonInvalidTransition}
		s.mockCommands.EXPECT().Advance(gomock.Any(), gomock.Any(), o.ID(), "delivered").
			Return(nil, denied).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url,
			reqdto.AdvanceStatusRequest{Status: "delivered"}, "token")

		detail := httptest.AssertErrorCode(s.T(), rec, http.StatusConflict, "transition_denied")
		s.Equal("pending", detail["from"])
		s.Equal("delivered", detail["to"])
		s.Equal("invalid_transition", detail["reason"])
	})
}
