package api

import (
	"errors"
	"io"
	"net/http"

	"freshfold/internal/domain/webhook"
	resdto "freshfold/internal/handler/dto/response"
	"freshfold/internal/handler/httperr"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

var errPayloadTooLarge = errors.New("webhook payload too large")

type WebhookHandler struct {
	commands       commands.WebhookCommands
	paymentsSource webhook.Source
	maxBytes       int64
}

// NewWebhookHandler routes payment deliveries to the configured processor's decoder.
func NewWebhookHandler(webhookCommands commands.WebhookCommands, paymentsSource webhook.Source, maxBytes int64) *WebhookHandler {
	if maxBytes <= 0 {
		maxBytes = 256 << 10
	}
	return &WebhookHandler{
		commands:       webhookCommands,
		paymentsSource: paymentsSource,
		maxBytes:       maxBytes,
	}
}

// @Summary Payment processor webhook
// @Description Signed payment events. Verified deliveries are acknowledged with 200 even when processing is deferred.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string false "Stripe signature"
// @Success 200 {object} resdto.WebhookAckResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /webhooks/payments [post]
func (h *WebhookHandler) Payments(c *gin.Context) {
	h.ingest(c, h.paymentsSource)
}

// @Summary Partner SMS webhook
// @Description Signed partner messages (pickup, quote, delivered, status updates)
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Signature header string true "HMAC-SHA256 of timestamp.body"
// @Param X-Signature-Timestamp header string true "Unix seconds"
// @Success 200 {object} resdto.WebhookAckResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /webhooks/partners [post]
func (h *WebhookHandler) Partners(c *gin.Context) {
	h.ingest(c, webhook.SourcePartner)
}

func (h *WebhookHandler) ingest(c *gin.Context, source webhook.Source) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes))
	if err != nil {
		httperr.AbortWithError(c, http.StatusRequestEntityTooLarge, errs.Mark(err, errPayloadTooLarge), "Payload too large", nil)
		return
	}

	result, err := h.commands.Ingest(c.Request.Context(), source, payload, c.Request.Header)
	if err != nil {
		// acknowledged so the sender stops redelivering events we never handle
		if errs.Is(err, webhook.ErrUnsupportedEvent) {
			c.JSON(http.StatusOK, resdto.WebhookAckResponse{Received: true, Outcome: "ignored"})
			return
		}
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.WebhookAckResponse{
		Received: true,
		EventID:  result.EventID,
		Outcome:  string(result.Outcome),
	})
}
