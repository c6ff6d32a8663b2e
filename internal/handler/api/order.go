package api

import (
	"errors"
	"net/http"

	reqdto "freshfold/internal/handler/dto/request"
	resdto "freshfold/internal/handler/dto/response"
	"freshfold/internal/handler/httperr"
	"freshfold/internal/handler/middleware"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

var (
	errInvalidOrderID        = errors.New("invalid order id")
	errInvalidIdempotencyKey = errors.New("invalid idempotency key format")
)

type OrderHandler struct {
	commands commands.OrderCommands
	queries  queries.OrderQueries
	quotes   queries.QuoteQueries
}

func NewOrderHandler(orderCommands commands.OrderCommands, orderQueries queries.OrderQueries, quoteQueries queries.QuoteQueries) *OrderHandler {
	return &OrderHandler{
		commands: orderCommands,
		queries:  orderQueries,
		quotes:   quoteQueries,
	}
}

// @Summary Book an order
// @Description Reserve capacity, price and persist an order. Guests provide a contact; signed-in customers are linked by their token.
// @Tags orders
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key (UUID)"
// @Param request body reqdto.CreateOrderRequest true "Booking request"
// @Success 201 {object} resdto.CreateOrderResponse
// @Success 200 {object} resdto.CreateOrderResponse "Replayed result"
// @Failure 400 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 429 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	key, err := idempotencyKey(c)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	var req reqdto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.commands.Create(c.Request.Context(), middleware.Actor(c), req, key)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
		c.Header(replayedHeader, "true")
	}
	res, err := resdto.FromCreateOrderResult(result)
	respond(c, status, res, err)
}

// @Summary Quote preview
// @Description Itemized price for the given service params. No side effects.
// @Tags orders
// @Accept json
// @Produce json
// @Param request body reqdto.QuoteRequest true "Quote request"
// @Success 200 {object} resdto.QuoteResponse
// @Failure 400 {object} httperr.Response
// @Router /quotes [post]
func (h *OrderHandler) Quote(c *gin.Context) {
	var req reqdto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	quote, err := h.quotes.Preview(req.ServiceType, req.ServiceParams)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	res, err := resdto.FromQuote(quote)
	respond(c, http.StatusOK, res, err)
}

// @Summary Get order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	view, err := h.queries.GetByID(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	res, err := resdto.FromOrderView(view)
	respond(c, http.StatusOK, res, err)
}

// @Summary List orders
// @Description Staff see every order, customers only their own. Keyset pagination by creation time.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param cursor query string false "Cursor from the previous page"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} resdto.OrderListResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var q reqdto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query parameters", nil)
		return
	}

	filter := queries.OrderListFilter{Status: q.Status, Limit: q.Limit}
	if q.Cursor != "" {
		filter.After = &queries.Cursor{After: q.Cursor}
	}
	views, next, err := h.queries.List(c.Request.Context(), middleware.Actor(c), filter)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	res, err := resdto.FromOrderViews(views, next)
	respond(c, http.StatusOK, res, err)
}

// @Summary Cancel order
// @Description Cancel before service starts. A fee from the frozen policy applies inside the notice window.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body reqdto.CancelOrderRequest true "Cancellation"
// @Success 200 {object} resdto.OrderStatusResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req reqdto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, errs.Mark(err, commands.ErrCancelReasonRequired))
		return
	}

	o, err := h.commands.Cancel(c.Request.Context(), middleware.Actor(c), id, req.Reason)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrder(o))
}

// @Summary Reschedule order
// @Description Move the order to another slot. The old reservation is released only once the new one is held.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body reqdto.RescheduleRequest true "New slot"
// @Success 200 {object} resdto.OrderStatusResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /orders/{id}/reschedule [post]
func (h *OrderHandler) Reschedule(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req reqdto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	o, err := h.commands.Reschedule(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrder(o))
}

// @Summary Set delivery slot
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body reqdto.DeliverySlotRequest true "Delivery window"
// @Success 200 {object} resdto.OrderStatusResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /orders/{id}/delivery-slot [put]
func (h *OrderHandler) SetDeliverySlot(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req reqdto.DeliverySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	o, err := h.commands.SetDeliverySlot(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrder(o))
}

// @Summary Advance order status
// @Description Operator status change. Cancel and refund have their own operations.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body reqdto.AdvanceStatusRequest true "Target status"
// @Success 200 {object} resdto.OrderStatusResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /admin/orders/{id}/status [post]
func (h *OrderHandler) Advance(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req reqdto.AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	o, err := h.commands.Advance(c.Request.Context(), middleware.Actor(c), id, req.Status)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrder(o))
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, errInvalidOrderID, "Invalid order ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}

func idempotencyKey(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader(idempotencyKeyHeader)
	if raw == "" {
		return uuid.Nil, errs.ErrIdempotencyKeyRequired
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.Mark(errInvalidIdempotencyKey, errs.ErrValidation)
	}
	return key, nil
}
