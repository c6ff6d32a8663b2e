package api

import (
	"net/http"

	reqdto "freshfold/internal/handler/dto/request"
	resdto "freshfold/internal/handler/dto/response"
	"freshfold/internal/handler/httperr"
	"freshfold/internal/handler/middleware"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler serves slot availability and cancellation policies, and their admin writes.
type CatalogHandler struct {
	admin    commands.AdminCommands
	slots    queries.SlotQueries
	policies queries.PolicyQueries
	events   queries.WebhookEventQueries
}

func NewCatalogHandler(
	adminCommands commands.AdminCommands,
	slotQueries queries.SlotQueries,
	policyQueries queries.PolicyQueries,
	eventQueries queries.WebhookEventQueries,
) *CatalogHandler {
	return &CatalogHandler{
		admin:    adminCommands,
		slots:    slotQueries,
		policies: policyQueries,
		events:   eventQueries,
	}
}

// @Summary Slot availability
// @Description Slots starting on the given day that still have capacity
// @Tags slots
// @Produce json
// @Param partner_id query string false "Partner ID"
// @Param service_type query string true "laundry or cleaning"
// @Param date query string true "YYYY-MM-DD in the service area's time zone"
// @Success 200 {array} resdto.SlotResponse
// @Failure 400 {object} httperr.Response
// @Router /slots [get]
func (h *CatalogHandler) ListSlots(c *gin.Context) {
	var q reqdto.ListSlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query parameters", nil)
		return
	}

	filter := queries.SlotFilter{ServiceType: q.ServiceType, Day: q.Date}
	if q.PartnerID != "" {
		id := uuid.MustParse(q.PartnerID)
		filter.PartnerID = &id
	}
	views, err := h.slots.ListAvailable(c.Request.Context(), filter)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	res, err := resdto.FromSlotViews(views)
	respond(c, http.StatusOK, res, err)
}

// @Summary Upsert slot capacity
// @Description Create a slot or change its max units. Max units never drop below reserved units.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.UpsertSlotRequest true "Slot"
// @Success 200 {object} resdto.SlotResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /admin/slots [put]
func (h *CatalogHandler) UpsertSlot(c *gin.Context) {
	var req reqdto.UpsertSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	slot, err := h.admin.UpsertSlot(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromSlot(slot))
}

// @Summary Active cancellation policy
// @Tags policies
// @Produce json
// @Param service_type query string true "laundry or cleaning"
// @Success 200 {object} resdto.PolicyResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /policies/active [get]
func (h *CatalogHandler) ActivePolicy(c *gin.Context) {
	var q reqdto.PolicyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query parameters", nil)
		return
	}

	view, err := h.policies.Active(c.Request.Context(), q.ServiceType)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	res, err := resdto.FromPolicyView(view)
	respond(c, http.StatusOK, res, err)
}

// @Summary Publish cancellation policy
// @Description Publish a new version. Existing orders keep the version they were booked with.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.PublishPolicyRequest true "Policy terms"
// @Success 201 {object} resdto.PolicyResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /admin/policies [post]
func (h *CatalogHandler) PublishPolicy(c *gin.Context) {
	var req reqdto.PublishPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	p, err := h.admin.PublishPolicy(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromPolicy(p))
}

// @Summary Webhook events for reconciliation
// @Description Defaults to failed events
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, success or failure"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {array} resdto.WebhookEventResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /admin/webhook-events [get]
func (h *CatalogHandler) ListWebhookEvents(c *gin.Context) {
	var q reqdto.WebhookEventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query parameters", nil)
		return
	}

	views, err := h.events.List(c.Request.Context(), q.Status, q.Limit)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	res, err := resdto.FromWebhookEventViews(views)
	respond(c, http.StatusOK, res, err)
}
