//go:build unit

package httperr_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"freshfold/internal/domain/order"
	"freshfold/internal/handler/httperr"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/settlement"
	helper "freshfold/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func abort(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	httperr.Abort(c, err)
	return w
}

func TestAbort(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "wrapped sentinel keeps its code", err: errs.Wrap(commands.ErrSlotUnavailable, "reserve"), wantStatus: http.StatusConflict, wantCode: "slot_unavailable"},
		{name: "class fallback for validation", err: errs.Mark(errors.New("bad"), errs.ErrValidation), wantStatus: http.StatusBadRequest, wantCode: "validation_failed"},
		{name: "class fallback for not found", err: errs.Mark(errors.New("gone"), errs.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "transient becomes 503", err: settlement.ErrGatewayUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: "temporarily_unavailable"},
		{name: "decline is 402", err: &settlement.DeclineError{Code: "card_declined"}, wantStatus: http.StatusPaymentRequired, wantCode: "payment_declined"},
		{name: "unknown error is 500", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			helper.AssertErrorCode(t, abort(tc.err), tc.wantStatus, tc.wantCode)
		})
	}
}

func TestAbortDetails(t *testing.T) {
	t.Run("transition denial carries reason and states", func(t *testing.T) {
		err := errs.Wrap(&order.TransitionError{
			From:   order.StatusAwaitingPayment,
			To:     order.StatusInProgress,
			Reason: order.ReasonMissingPaymentEvidence,
		}, "advance")

		detail := helper.AssertErrorCode(t, abort(err), http.StatusConflict, "transition_denied")
		assert.Equal(t, "missing_payment_evidence", detail["reason"])
		assert.Equal(t, "awaiting_payment", detail["from"])
		assert.Equal(t, "in_progress", detail["to"])
	})

	t.Run("contact errors name the missing piece", func(t *testing.T) {
		err := errs.Mark(order.ErrInvalidEmail, commands.ErrMissingContact)

		detail := helper.AssertErrorCode(t, abort(err), http.StatusBadRequest, "missing_contact")
		assert.Equal(t, "invalid_email", detail["reason"])
	})
}
