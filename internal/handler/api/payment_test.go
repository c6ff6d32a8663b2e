//go:build unit

package api_test

import (
	"net/http"
	"testing"
	"time"

	"freshfold/internal/domain/payment"
	"freshfold/internal/handler/api"
	reqdto "freshfold/internal/handler/dto/request"
	resdto "freshfold/internal/handler/dto/response"
	"freshfold/internal/pkg/patch"
	"freshfold/internal/usecase/settlement"
	"freshfold/tests/common/builder"
	"freshfold/tests/common/httptest"
	commandsmock "freshfold/tests/mock/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PaymentHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockOrderCommands
	orderID      uuid.UUID
}

func (s *PaymentHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockOrderCommands(s.mockCtrl)
	s.orderID = uuid.New()
	h := api.NewPaymentHandler(s.mockCommands)

	s.router.POST("/orders/:id/pay", h.Pay)
	s.router.POST("/orders/:id/payments/confirm", h.Confirm)
	s.router.POST("/admin/orders/:id/capture", h.Capture)
	s.router.POST("/admin/orders/:id/refund", h.Refund)
}

func (s *PaymentHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestPaymentHandlerSuite(t *testing.T) {
	suite.Run(t, new(PaymentHandlerTestSuite))
}

func (s *PaymentHandlerTestSuite) url(suffix string) string {
	if suffix == "capture" || suffix == "refund" {
		return "/admin/orders/" + s.orderID.String() + "/" + suffix
	}
	return "/orders/" + s.orderID.String() + "/" + suffix
}

func (s *PaymentHandlerTestSuite) TestPay() {
	s.Run("success: returns the charge outcome", func() {
		s.mockCommands.EXPECT().Pay(gomock.Any(), gomock.Any(), s.orderID).
			Return(&settlement.Outcome{
				AttemptID: "att_1",
				Kind:      payment.KindCharge,
				Status:    payment.StatusSucceeded,
				Amount:    4306,
			}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, s.url("pay"), nil, "")

		var res resdto.PaymentActionResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &res)
		s.Equal("charge", res.Kind)
		s.Equal("succeeded", res.Status)
		s.Equal(int64(4306), res.Amount)
	})

	s.Run("success: a scheduled retry reports the next attempt", func() {
		next := builder.BaseTime.Add(time.Hour)
		s.mockCommands.EXPECT().Pay(gomock.Any(), gomock.Any(), s.orderID).
			Return(&settlement.Outcome{Kind: payment.KindCharge, Status: payment.StatusScheduled, NextAttemptAt: &next}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, s.url("pay"), nil, "")

		var res resdto.PaymentActionResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &res)
		s.Equal("scheduled", res.Status)
		s.Require().NotNil(res.NextAttemptAt)
		s.True(next.Equal(*res.NextAttemptAt))
	})

	s.Run("error: 402 with the decline code", func() {
		s.mockCommands.EXPECT().Pay(gomock.Any(), gomock.Any(), s.orderID).
			Return(nil, &settlement.DeclineError{Code: "insufficient_funds", Message: "declined"}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, s.url("pay"), nil, "")
		detail := httptest.AssertErrorCode(s.T(), rec, http.StatusPaymentRequired, "payment_declined")
		s.Equal("insufficient_funds", detail["decline_code"])
	})

	s.Run("error: 409 when already paid", func() {
		s.mockCommands.EXPECT().Pay(gomock.Any(), gomock.Any(), s.orderID).
			Return(nil, settlement.ErrAlreadyPaid).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, s.url("pay"), nil, "")
		httptest.AssertErrorCode(s.T(), rec, http.StatusConflict, "already_paid")
	})
}

func (s *PaymentHandlerTestSuite) TestConfirm() {
	s.Run("success: resumes with the continuation ref", func() {
		s.mockCommands.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), s.orderID, "pi_123").
			Return(&settlement.Outcome{Kind: payment.KindAuthorize, Status: payment.StatusSucceeded}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, s.url("payments/confirm"),
			reqdto.ConfirmPaymentRequest{ContinuationRef: "pi_123"}, "")
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})
}

func (s *PaymentHandlerTestSuite) TestCapture() {
	s.Run("success: empty body captures the full hold", func() {
		s.mockCommands.EXPECT().Capture(gomock.Any(), gomock.Any(), s.orderID, (*int64)(nil)).
			Return(&settlement.Outcome{Kind: payment.KindCapture, Status: payment.StatusSucceeded, Amount: 15000}, nil).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, s.url("capture"), nil, nil)
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("success: partial capture reports the released remainder", func() {
		amount := patch.Ptr(int64(12000))
		s.mockCommands.EXPECT().Capture(gomock.Any(), gomock.Any(), s.orderID, amount).
			Return(&settlement.Outcome{Kind: payment.KindCapture, Status: payment.StatusSucceeded, Amount: 12000, ReleasedAmount: 3000}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, s.url("capture"),
			reqdto.CaptureRequest{Amount: amount}, "")

		var res resdto.PaymentActionResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &res)
		s.Equal(int64(3000), res.ReleasedAmount)
	})

	s.Run("error: 409 when the hold expired", func() {
		s.mockCommands.EXPECT().Capture(gomock.Any(), gomock.Any(), s.orderID, gomock.Any()).
			Return(nil, settlement.ErrReauthorizationRequired).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, s.url("capture"), nil, nil)
		httptest.AssertErrorCode(s.T(), rec, http.StatusConflict, "reauthorization_required")
	})
}

func (s *PaymentHandlerTestSuite) TestRefund() {
	s.Run("success: refunds the requested amount", func() {
		req := reqdto.RefundRequest{Amount: 1000, Reason: "stain not removed"}
		s.mockCommands.EXPECT().Refund(gomock.Any(), gomock.Any(), s.orderID, req).
			Return(&settlement.Outcome{Kind: payment.KindRefund, Status: payment.StatusSucceeded, Amount: 1000}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, s.url("refund"), req, "")
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("error: 400 without amount or reason", func() {
		for _, body := range []map[string]any{{"reason": "x"}, {"amount": 100}, {"amount": 0, "reason": "x"}} {
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, s.url("refund"), body, "")
			httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid request format")
		}
	})
}
