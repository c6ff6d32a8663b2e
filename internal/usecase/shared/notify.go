package shared

import (
	"context"
	"encoding/json"
	"time"

	"freshfold/internal/pkg/errs"

	"github.com/google/uuid"
)

// Notification kinds enqueued for the delivery service.
const (
	NotifyOrderCreated            = "order_created"
	NotifyOrderCanceled           = "order_canceled"
	NotifyPaymentSucceeded        = "payment_succeeded"
	NotifyManualPaymentRequired   = "manual_payment_required"
	NotifyReauthorizationRequired = "reauthorization_required"
	NotifyStatusChanged           = "order_status_changed"
)

const orderTopic = "orders"

// EnqueueOrderNotification writes a notification job inside the caller's transaction.
func EnqueueOrderNotification(ctx context.Context, tx Tx, kind string, orderID uuid.UUID, fields map[string]any, now time.Time) error {
	body := map[string]any{"order_id": orderID.String()}
	for k, v := range fields {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(err, "failed to encode notification payload")
	}
	if err := tx.Notifications().CreateJob(ctx, kind, orderTopic, payload, now); err != nil {
		return errs.Wrap(err, "failed to enqueue notification")
	}
	return nil
}
