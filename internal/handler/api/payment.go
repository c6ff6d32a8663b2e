package api

import (
	"net/http"

	reqdto "freshfold/internal/handler/dto/request"
	resdto "freshfold/internal/handler/dto/response"
	"freshfold/internal/handler/httperr"
	"freshfold/internal/handler/middleware"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/settlement"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	commands commands.OrderCommands
}

func NewPaymentHandler(orderCommands commands.OrderCommands) *PaymentHandler {
	return &PaymentHandler{commands: orderCommands}
}

// @Summary Pay now
// @Description Run the deferred charge of an order awaiting payment
// @Tags payments
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.PaymentActionResponse
// @Failure 402 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /orders/{id}/pay [post]
func (h *PaymentHandler) Pay(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	out, err := h.commands.Pay(c.Request.Context(), middleware.Actor(c), id)
	respondOutcome(c, out, err)
}

// @Summary Authorize or re-authorize
// @Description Place a hold for the order total with the given payment method
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body reqdto.AuthorizePaymentRequest true "Payment method"
// @Success 200 {object} resdto.PaymentActionResponse
// @Failure 402 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /orders/{id}/authorize [post]
func (h *PaymentHandler) Authorize(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req reqdto.AuthorizePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	out, err := h.commands.Authorize(c.Request.Context(), middleware.Actor(c), id, req)
	respondOutcome(c, out, err)
}

// @Summary Confirm customer authentication
// @Description Resume a payment suspended for 3-D Secure
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body reqdto.ConfirmPaymentRequest true "Continuation reference"
// @Success 200 {object} resdto.PaymentActionResponse
// @Failure 402 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /orders/{id}/payments/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req reqdto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	out, err := h.commands.ConfirmPayment(c.Request.Context(), middleware.Actor(c), id, req.ContinuationRef)
	respondOutcome(c, out, err)
}

// @Summary Capture a hold
// @Description Capture the authorized amount, or a smaller amount when given
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body reqdto.CaptureRequest false "Amount in cents"
// @Success 200 {object} resdto.PaymentActionResponse
// @Failure 403 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /admin/orders/{id}/capture [post]
func (h *PaymentHandler) Capture(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req reqdto.CaptureRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
			return
		}
	}
	out, err := h.commands.Capture(c.Request.Context(), middleware.Actor(c), id, req.Amount)
	respondOutcome(c, out, err)
}

// @Summary Refund
// @Description Refund part or all of the paid amount
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body reqdto.RefundRequest true "Refund"
// @Success 200 {object} resdto.PaymentActionResponse
// @Failure 402 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /admin/orders/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req reqdto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	out, err := h.commands.Refund(c.Request.Context(), middleware.Actor(c), id, req)
	respondOutcome(c, out, err)
}

func respondOutcome(c *gin.Context, out *settlement.Outcome, err error) {
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	res, err := resdto.FromOutcome(out)
	respond(c, http.StatusOK, res, err)
}

// respond writes body, or the error when building it failed.
func respond[T any](c *gin.Context, status int, body T, err error) {
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(status, body)
}
