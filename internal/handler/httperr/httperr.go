package httperr

import (
	"log/slog"
	"net/http"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/webhook"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/queries"
	"freshfold/internal/usecase/settlement"
	"freshfold/internal/usecase/shared"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	abort(c, status, err, "", msg, detail)
}

func abort(c *gin.Context, status int, err error, code, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Code = code
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

type mapping struct {
	target error
	status int
	code   string
	msg    string
}

// checked in order; the first match wins
var known = []mapping{
	{webhook.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature", "Invalid signature"},
	{commands.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"},
	{commands.ErrTokenValidation, http.StatusUnauthorized, "invalid_token", "Invalid or expired token"},
	{commands.ErrAccountInactive, http.StatusForbidden, "account_inactive", "Account is inactive"},
	{queries.ErrUserInactive, http.StatusForbidden, "account_inactive", "Account is inactive"},
	{queries.ErrUserNotFound, http.StatusNotFound, "user_not_found", "User not found"},
	{commands.ErrOrderNotFound, http.StatusNotFound, "order_not_found", "Order not found"},
	{queries.ErrOrderNotFound, http.StatusNotFound, "order_not_found", "Order not found"},
	{settlement.ErrOrderNotFound, http.StatusNotFound, "order_not_found", "Order not found"},

	{errs.ErrIdempotencyKeyRequired, http.StatusBadRequest, "idempotency_key_required", "Idempotency-Key header is required"},
	{errs.ErrIdempotencyInProgress, http.StatusConflict, "idempotency_in_progress", "Request is currently being processed"},
	{errs.ErrIdempotencyMismatch, http.StatusConflict, "idempotency_key_mismatch", "Idempotency-Key was used with a different request"},

	{commands.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable", "Slot is no longer available"},
	{commands.ErrInvalidAddress, http.StatusBadRequest, "invalid_address", "Invalid address"},
	{commands.ErrInvalidServiceParams, http.StatusBadRequest, "invalid_service_params", "Invalid service params"},
	{queries.ErrInvalidServiceParams, http.StatusBadRequest, "invalid_service_params", "Invalid service params"},
	{commands.ErrInvalidSlot, http.StatusBadRequest, "invalid_slot", "Invalid slot"},
	{commands.ErrCancelReasonRequired, http.StatusBadRequest, "reason_required", "Cancellation reason is required"},
	{commands.ErrNotReschedulable, http.StatusConflict, "not_reschedulable", "Order can no longer be rescheduled"},
	{commands.ErrCapacityBelowBooked, http.StatusConflict, "capacity_below_booked", "Max units cannot drop below reserved units"},
	{shared.ErrConcurrentModification, http.StatusConflict, "concurrent_modification", "Order was modified concurrently, retry"},

	{settlement.ErrReauthorizationRequired, http.StatusConflict, "reauthorization_required", "Authorization expired, re-authorization required"},
	{settlement.ErrNoPaymentMethod, http.StatusBadRequest, "payment_method_required", "No payment method on file"},
	{settlement.ErrAlreadyPaid, http.StatusConflict, "already_paid", "Order is already paid"},
	{settlement.ErrSettlementInProgress, http.StatusConflict, "settlement_in_progress", "Another payment operation is still open"},
}

var classes = []mapping{
	{errs.ErrValidation, http.StatusBadRequest, "validation_failed", "Invalid request"},
	{errs.ErrNotFound, http.StatusNotFound, "not_found", "Not found"},
	{errs.ErrForbidden, http.StatusForbidden, "forbidden", "Insufficient permissions"},
	{errs.ErrConflict, http.StatusConflict, "conflict", "Conflict"},
	{errs.ErrTransient, http.StatusServiceUnavailable, "temporarily_unavailable", "Try again later"},
}

var contactDetails = []struct {
	target error
	code   string
}{
	{order.ErrMissingGuestPhone, "missing_phone"},
	{order.ErrMissingGuestName, "missing_name"},
	{order.ErrAmbiguousContact, "ambiguous_contact"},
	{order.ErrInvalidPhone, "invalid_phone"},
	{order.ErrInvalidEmail, "invalid_email"},
	{order.ErrMissingContact, "missing_contact"},
}

// Abort maps a usecase error onto the response taxonomy.
func Abort(c *gin.Context, err error) {
	var te *order.TransitionError
	if errs.As(err, &te) {
		abort(c, http.StatusConflict, err, "transition_denied", "Transition denied",
			gin.H{"reason": string(te.Reason), "from": te.From.String(), "to": te.To.String()})
		return
	}

	// a decline is never a transient failure
	if errs.Is(err, settlement.ErrPaymentDeclined) {
		detail := gin.H{}
		var de *settlement.DeclineError
		if errs.As(err, &de) {
			detail["decline_code"] = de.Code
		}
		abort(c, http.StatusPaymentRequired, err, "payment_declined", "Payment declined", detail)
		return
	}

	if errs.Is(err, commands.ErrMissingContact) {
		reason := "missing_contact"
		for _, d := range contactDetails {
			if errs.Is(err, d.target) {
				reason = d.code
				break
			}
		}
		abort(c, http.StatusBadRequest, err, "missing_contact", "Contact details are missing or invalid", gin.H{"reason": reason})
		return
	}

	for _, m := range known {
		if errs.Is(err, m.target) {
			abort(c, m.status, err, m.code, m.msg, nil)
			return
		}
	}
	for _, m := range classes {
		if errs.Is(err, m.target) {
			abort(c, m.status, err, m.code, m.msg, nil)
			return
		}
	}

	slog.ErrorContext(c.Request.Context(), "unhandled error",
		slog.String("path", c.FullPath()),
		slog.String("error", err.Error()),
		slog.Any("stack", errs.ExtractStackLines(err, 8)))
	abort(c, http.StatusInternalServerError, err, "internal_error", "Internal server error", nil)
}
