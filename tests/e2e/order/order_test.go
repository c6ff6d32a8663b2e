//go:build e2e

package order_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"freshfold/internal/domain/user"
	"freshfold/internal/handler/dto/request"
	"freshfold/internal/handler/dto/response"
	"freshfold/tests/common/authtest"
	"freshfold/tests/common/dbtest"
	"freshfold/tests/common/fakegateway"
	"freshfold/tests/common/httptest"
	"freshfold/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	stripewebhook "github.com/stripe/stripe-go/v78/webhook"
)

const ordersURL = "/api/orders"

type orderSuite struct {
	e2e.SharedSuite

	partnerID uuid.UUID
	slotStart time.Time
	slotEnd   time.Time
}

func TestOrderSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(orderSuite))
}

func (s *orderSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()

	s.partnerID = uuid.New()
	s.slotStart = time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	s.slotEnd = s.slotStart.Add(2 * time.Hour)
	dbtest.CreateTestSlot(s.T(), s.DB, s.partnerID, s.slotStart, s.slotEnd, "laundry", 2)

	dbtest.CreateTestUser(s.T(), s.DB, "customer@example.com", string(user.RoleCustomer))
	dbtest.CreateTestUser(s.T(), s.DB, "operator@example.com", string(user.RoleOperator))
}

func (s *orderSuite) bookingRequest(mutate func(*request.CreateOrderRequest)) request.CreateOrderRequest {
	req := request.CreateOrderRequest{
		ServiceType: "laundry",
		PartnerID:   s.partnerID,
		SlotStart:   s.slotStart,
		SlotEnd:     s.slotEnd,
		Address: request.AddressRequest{
			Line1:      "100 Market St",
			City:       "San Francisco",
			PostalCode: "94105",
		},
		Guest: &request.GuestContactRequest{
			Name:  "Jamie Guest",
			Email: "jamie@example.com",
			Phone: "+14155550123",
		},
		ServiceParams: json.RawMessage(`{"weight_lbs":20}`),
	}
	if mutate != nil {
		mutate(&req)
	}
	return req
}

func (s *orderSuite) book(req request.CreateOrderRequest, key, token string) *response.CreateOrderResponse {
	t := s.T()

	headers := map[string]string{"Idempotency-Key": key}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, ordersURL, body, headers)
	var res response.CreateOrderResponse
	httptest.AssertSuccessResponse(t, w, http.StatusCreated, &res)
	return &res
}

func (s *orderSuite) advance(orderID uuid.UUID, status, token string) {
	t := s.T()

	w := httptest.PerformRequest(t, s.Router, http.MethodPost,
		fmt.Sprintf("/api/admin/orders/%s/status", orderID),
		request.AdvanceStatusRequest{Status: status}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (s *orderSuite) TestBooking() {
	s.Run("ゲストの予約で枠が確保される", func() {
		t := s.T()

		res := s.book(s.bookingRequest(nil), uuid.NewString(), "")
		require.Equal(t, "pending", res.Status)
		require.Equal(t, int64(4306), res.Pricing.Total)
		require.Equal(t, int32(1), dbtest.SlotReservedUnits(t, s.DB, s.partnerID, s.slotStart, s.slotEnd))
	})

	s.Run("同じキーの再送は同じ結果を返す", func() {
		t := s.T()

		key := uuid.NewString()
		first := s.book(s.bookingRequest(nil), key, "")

		body, err := json.Marshal(s.bookingRequest(nil))
		require.NoError(t, err)
		w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, ordersURL, body,
			map[string]string{"Idempotency-Key": key})

		var replay response.CreateOrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &replay)
		httptest.AssertHeaders(t, w, map[string]string{"Idempotent-Replayed": "true"})
		require.Equal(t, first.ID, replay.ID)
		require.Equal(t, int32(1), dbtest.SlotReservedUnits(t, s.DB, s.partnerID, s.slotStart, s.slotEnd))
	})

	s.Run("同じキーで内容が異なると拒否される", func() {
		t := s.T()

		key := uuid.NewString()
		s.book(s.bookingRequest(nil), key, "")

		body, err := json.Marshal(s.bookingRequest(func(r *request.CreateOrderRequest) {
			r.ServiceParams = json.RawMessage(`{"weight_lbs":30}`)
		}))
		require.NoError(t, err)
		w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, ordersURL, body,
			map[string]string{"Idempotency-Key": key})
		httptest.AssertErrorCode(t, w, http.StatusConflict, "idempotency_key_mismatch")
	})

	s.Run("満席の枠は予約できない", func() {
		t := s.T()

		s.book(s.bookingRequest(nil), uuid.NewString(), "")
		s.book(s.bookingRequest(nil), uuid.NewString(), "")

		body, err := json.Marshal(s.bookingRequest(nil))
		require.NoError(t, err)
		w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, ordersURL, body,
			map[string]string{"Idempotency-Key": uuid.NewString()})
		httptest.AssertErrorCode(t, w, http.StatusConflict, "slot_unavailable")
		require.Equal(t, int32(2), dbtest.SlotReservedUnits(t, s.DB, s.partnerID, s.slotStart, s.slotEnd))
	})

	s.Run("Idempotency-Keyなしは拒否される", func() {
		t := s.T()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, s.bookingRequest(nil), "")
		httptest.AssertErrorCode(t, w, http.StatusBadRequest, "idempotency_key_required")
	})

	s.Run("ゲストは連絡先が必要", func() {
		t := s.T()

		body, err := json.Marshal(s.bookingRequest(func(r *request.CreateOrderRequest) {
			r.Guest = &request.GuestContactRequest{Name: "Jamie"}
		}))
		require.NoError(t, err)
		w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, ordersURL, body,
			map[string]string{"Idempotency-Key": uuid.NewString()})
		detail := httptest.AssertErrorCode(t, w, http.StatusBadRequest, "missing_contact")
		require.Equal(t, "missing_phone", detail["reason"])
	})
}

func (s *orderSuite) TestConcurrentBooking() {
	s.Run("同時予約でも定員を超えない", func() {
		t := s.T()

		const clients = 8
		body, err := json.Marshal(s.bookingRequest(nil))
		require.NoError(t, err)

		codes := make(chan int, clients)
		var wg sync.WaitGroup
		for range clients {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, ordersURL, body,
					map[string]string{"Idempotency-Key": uuid.NewString()})
				codes <- w.Code
			}()
		}
		wg.Wait()
		close(codes)

		created := 0
		for code := range codes {
			switch code {
			case http.StatusCreated:
				created++
			default:
				require.Equal(t, http.StatusConflict, code)
			}
		}
		require.Equal(t, 2, created)
		require.Equal(t, int32(2), dbtest.SlotReservedUnits(t, s.DB, s.partnerID, s.slotStart, s.slotEnd))
	})
}

func (s *orderSuite) TestCancel() {
	s.Run("キャンセルで枠が解放される", func() {
		t := s.T()

		token := authtest.LoginUser(t, s.Router, "customer@example.com", "password123")
		res := s.book(s.bookingRequest(func(r *request.CreateOrderRequest) { r.Guest = nil }), uuid.NewString(), token)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf("%s/%s/cancel", ordersURL, res.ID),
			request.CancelOrderRequest{Reason: "plans changed"}, token)
		var canceled response.OrderStatusResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &canceled)
		require.Equal(t, "canceled", canceled.Status)
		require.Equal(t, int32(0), dbtest.SlotReservedUnits(t, s.DB, s.partnerID, s.slotStart, s.slotEnd))
	})

	s.Run("他の顧客の注文は見つからない", func() {
		t := s.T()

		res := s.book(s.bookingRequest(nil), uuid.NewString(), "")
		token := authtest.LoginUser(t, s.Router, "customer@example.com", "password123")

		w := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf("%s/%s/cancel", ordersURL, res.ID),
			request.CancelOrderRequest{Reason: "not mine"}, token)
		httptest.AssertErrorCode(t, w, http.StatusNotFound, "order_not_found")
	})
}

func (s *orderSuite) TestLaundryLifecycle() {
	s.Run("支払い待ちで自動決済され返金できる", func() {
		t := s.T()

		res := s.book(s.bookingRequest(func(r *request.CreateOrderRequest) {
			r.PaymentMethodID = "pm_card_visa"
			r.CustomerID = "cus_1"
		}), uuid.NewString(), "")
		operator := authtest.LoginUser(t, s.Router, "operator@example.com", "password123")

		s.advance(res.ID, "pending_pickup", operator)
		s.advance(res.ID, "at_facility", operator)
		s.advance(res.ID, "awaiting_payment", operator)

		charges := 0
		for _, c := range s.Gateway.CallsOf("charge") {
			if c.Request.OrderID == res.ID {
				charges++
			}
		}
		require.Equal(t, 1, charges)
		require.Equal(t, "paid_processing", dbtest.OrderStatus(t, s.DB, res.ID))

		w := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf("/api/admin/orders/%s/refund", res.ID),
			request.RefundRequest{Amount: res.Pricing.Total, Reason: "damaged item"}, operator)
		var refund response.PaymentActionResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &refund)
		require.Equal(t, "succeeded", refund.Status)
		require.Equal(t, "refunded", dbtest.OrderStatus(t, s.DB, res.ID))
	})

	s.Run("段階を飛ばす遷移は拒否される", func() {
		t := s.T()

		res := s.book(s.bookingRequest(nil), uuid.NewString(), "")
		operator := authtest.LoginUser(t, s.Router, "operator@example.com", "password123")

		w := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf("/api/admin/orders/%s/status", res.ID),
			request.AdvanceStatusRequest{Status: "in_progress"}, operator)
		detail := httptest.AssertErrorCode(t, w, http.StatusConflict, "transition_denied")
		require.Equal(t, "pending", detail["from"])
	})

	s.Run("カードが拒否されると次の請求が予約される", func() {
		t := s.T()

		res := s.book(s.bookingRequest(func(r *request.CreateOrderRequest) {
			r.PaymentMethodID = fakegateway.DeclinedMethod
			r.CustomerID = "cus_1"
		}), uuid.NewString(), "")
		operator := authtest.LoginUser(t, s.Router, "operator@example.com", "password123")

		s.advance(res.ID, "pending_pickup", operator)
		s.advance(res.ID, "at_facility", operator)
		s.advance(res.ID, "awaiting_payment", operator)

		require.Equal(t, "awaiting_payment", dbtest.OrderStatus(t, s.DB, res.ID))

		var scheduled int
		err := s.DB.QueryRow(t.Context(),
			"SELECT count(*) FROM payment_attempts WHERE order_id = $1 AND kind = 'charge' AND status = 'scheduled' AND epoch = 2",
			res.ID).Scan(&scheduled)
		require.NoError(t, err)
		require.Equal(t, 1, scheduled)

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf("%s/%s", ordersURL, res.ID), nil, operator)
		var view response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &view)
		require.False(t, view.ManualPaymentRequired)
	})
}

func (s *orderSuite) TestPaymentWebhook() {
	s.Run("決済完了イベントで入金が記録され再送は重複扱い", func() {
		t := s.T()

		res := s.book(s.bookingRequest(nil), uuid.NewString(), "")
		operator := authtest.LoginUser(t, s.Router, "operator@example.com", "password123")
		s.advance(res.ID, "pending_pickup", operator)
		s.advance(res.ID, "at_facility", operator)
		s.advance(res.ID, "awaiting_payment", operator)

		payload := fmt.Sprintf(`{"id":"evt_e2e_1","object":"event","type":"payment_intent.succeeded","created":%d,
			"data":{"object":{"id":"pi_e2e","object":"payment_intent","amount_received":%d,
			"latest_charge":"ch_e2e","metadata":{"order_id":"%s"}}}}`, time.Now().Unix(), res.Pricing.Total, res.ID)

		send := func() response.WebhookAckResponse {
			signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
				Payload:   []byte(payload),
				Secret:    s.Config.Webhook.StripeSecret,
				Timestamp: time.Now(),
			})
			w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, "/webhooks/payments", []byte(payload),
				map[string]string{"Stripe-Signature": signed.Header})
			var ack response.WebhookAckResponse
			httptest.AssertSuccessResponse(t, w, http.StatusOK, &ack)
			return ack
		}

		first := send()
		require.Equal(t, "success", first.Outcome)
		require.Equal(t, "paid_processing", dbtest.OrderStatus(t, s.DB, res.ID))

		second := send()
		require.Equal(t, "duplicate", second.Outcome)
	})

	s.Run("署名が不正なら401", func() {
		t := s.T()

		w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, "/webhooks/payments",
			[]byte(`{"id":"evt_x","type":"payment_intent.succeeded"}`),
			map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"})
		httptest.AssertErrorCode(t, w, http.StatusUnauthorized, "invalid_signature")
	})
}
