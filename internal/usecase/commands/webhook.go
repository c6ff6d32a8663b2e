package commands

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/pricing"
	"freshfold/internal/domain/webhook"
	"freshfold/internal/infra"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/settlement"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrUnknownWebhookSource = errs.Class("unknown webhook source", errs.ErrNotFound)
	ErrWebhookRejected      = errs.Class("webhook payload rejected", errs.ErrValidation)
	ErrWebhookUnavailable   = errs.Class("webhook could not be verified, try again later", errs.ErrTransient)
	ErrNotLaundryOrder      = errs.Class("quotes only apply to laundry orders", errs.ErrValidation)
)

const partnerConversationPrefix = "partner:conv:"

//go:generate mockgen -source=webhook.go -destination=../../../tests/mock/commands/mock_webhook.go -package=commandsmock

// EventDecoder verifies and decodes the deliveries of one sender.
type EventDecoder interface {
	Source() webhook.Source
	Decode(ctx context.Context, payload []byte, header http.Header) (webhook.Notification, error)
}

type WebhookCommands interface {
	// Ingest returns an error only when the delivery was not verified or could
	// not be decoded. Once verified, processing failures are reported in the
	// result and recorded on the event for reconciliation.
	Ingest(ctx context.Context, source webhook.Source, payload []byte, header http.Header) (webhook.Result, error)
}

type WebhookOptions struct {
	// StaleAfter lets a new delivery reclaim an event left pending by a crashed worker.
	StaleAfter     time.Duration
	PartnerConvTTL time.Duration
}

type webhookCommandsImpl struct {
	uow      shared.UnitOfWork
	saga     settlement.Saga
	engine   *pricing.Engine
	store    shared.CounterStore
	decoders map[webhook.Source]EventDecoder
	opts     WebhookOptions
	clock    clock.Clock
	logger   *slog.Logger
}

func NewWebhookCommands(
	uow shared.UnitOfWork,
	saga settlement.Saga,
	engine *pricing.Engine,
	store shared.CounterStore,
	decoders []EventDecoder,
	opts WebhookOptions,
	clock clock.Clock,
	logger *slog.Logger,
) WebhookCommands {
	bySource := make(map[webhook.Source]EventDecoder, len(decoders))
	for _, d := range decoders {
		bySource[d.Source()] = d
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 2 * time.Minute
	}
	if opts.PartnerConvTTL <= 0 {
		opts.PartnerConvTTL = 30 * time.Minute
	}
	return &webhookCommandsImpl{
		uow:      uow,
		saga:     saga,
		engine:   engine,
		store:    store,
		decoders: bySource,
		opts:     opts,
		clock:    clock,
		logger:   logger,
	}
}

func (c *webhookCommandsImpl) Ingest(ctx context.Context, source webhook.Source, payload []byte, header http.Header) (webhook.Result, error) {
	start := c.clock.Now()
	dec, ok := c.decoders[source]
	if !ok {
		return webhook.Result{}, errs.Wrapf(ErrUnknownWebhookSource, "source %q", source)
	}

	n, err := dec.Decode(ctx, payload, header)
	if err != nil {
		return webhook.Result{}, c.classifyDecodeErr(ctx, source, err)
	}
	meta := n.EventMeta()
	log := c.logger.With(
		slog.String("event_id", meta.EventID),
		slog.String("event_type", meta.EventType),
		slog.String("source", string(source)))

	event := &webhook.Event{
		ID:         meta.EventID,
		Source:     source,
		Type:       meta.EventType,
		ReceivedAt: start,
		Status:     webhook.StatusPending,
		Payload:    payload,
	}
	var claimed bool
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		claimed, err = tx.WebhookEvents().Claim(ctx, event, c.opts.StaleAfter)
		return err
	})
	if err != nil {
		return webhook.Result{}, errs.Mark(errs.Wrap(err, "failed to claim webhook event"), ErrWebhookUnavailable)
	}
	if !claimed {
		log.InfoContext(ctx, "Duplicate webhook delivery ignored")
		return webhook.Result{EventID: meta.EventID, Outcome: webhook.OutcomeDuplicate}, nil
	}

	partnerOrder, err := c.partnerOrderID(ctx, n)
	if err != nil {
		return c.fail(ctx, log, event, start, err), nil
	}

	var followUp *uuid.UUID
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		followUp = nil
		id, err := c.apply(ctx, tx, n, partnerOrder)
		if err != nil {
			return err
		}
		followUp = id
		now := c.clock.Now()
		return tx.WebhookEvents().MarkProcessed(ctx, event.ID, webhook.StatusSuccess, "", latencyMs(start, now), now)
	})
	if err != nil {
		return c.fail(ctx, log, event, start, err), nil
	}

	if msg, ok := n.(webhook.PartnerMessage); ok && partnerOrder != nil {
		c.rememberConversation(ctx, msg.From, *partnerOrder)
	}
	if followUp != nil {
		c.settle(ctx, *followUp)
	}

	log.InfoContext(ctx, "Webhook processed", slog.Int64("latency_ms", latencyMs(start, c.clock.Now())))
	return webhook.Result{EventID: meta.EventID, Outcome: webhook.OutcomeSuccess}, nil
}

func (c *webhookCommandsImpl) classifyDecodeErr(ctx context.Context, source webhook.Source, err error) error {
	switch {
	case errs.Is(err, webhook.ErrInvalidSignature):
		c.logger.WarnContext(ctx, "Webhook signature rejected",
			slog.String("source", string(source)),
			slog.String("error", err.Error()))
		return err
	case errs.Is(err, webhook.ErrMalformedPayload), errs.Is(err, webhook.ErrUnsupportedEvent):
		c.logger.InfoContext(ctx, "Webhook payload rejected",
			slog.String("source", string(source)),
			slog.String("error", err.Error()))
		return errs.Mark(err, ErrWebhookRejected)
	default:
		c.logger.ErrorContext(ctx, "Webhook decoding failed",
			slog.String("source", string(source)),
			slog.String("error", err.Error()))
		return errs.Mark(err, ErrWebhookUnavailable)
	}
}

// fail records the processing error on the event so the sender's retry or an
// operator can pick it up.
func (c *webhookCommandsImpl) fail(ctx context.Context, log *slog.Logger, event *webhook.Event, start time.Time, cause error) webhook.Result {
	log.ErrorContext(ctx, "Webhook processing failed",
		slog.String("error", cause.Error()),
		slog.Any("stack", errs.ExtractStackLines(cause, 5)))

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := c.clock.Now()
		return tx.WebhookEvents().MarkProcessed(ctx, event.ID, webhook.StatusFailure, cause.Error(), latencyMs(start, now), now)
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to record webhook failure", slog.String("error", err.Error()))
	}
	return webhook.Result{EventID: event.ID, Outcome: webhook.OutcomeDeferredFailure, Err: cause}
}

// apply returns the order whose settlement should be attempted after commit.
func (c *webhookCommandsImpl) apply(ctx context.Context, tx shared.Tx, n webhook.Notification, partnerOrder *uuid.UUID) (*uuid.UUID, error) {
	switch v := n.(type) {
	case webhook.PartnerMessage:
		if partnerOrder == nil {
			c.logger.WarnContext(ctx, "Partner message without order reference",
				slog.String("event_id", v.EventID),
				slog.String("intent", string(v.Intent.Kind)))
			return nil, nil
		}
		return c.applyPartner(ctx, tx, v, *partnerOrder)
	case webhook.PaymentAuthorized:
		if err := c.saga.ApplyNotification(ctx, tx, n); err != nil {
			return nil, err
		}
		// A hold that lands after the facility quote is captured right away.
		return &v.OrderID, nil
	default:
		return nil, c.saga.ApplyNotification(ctx, tx, n)
	}
}

func (c *webhookCommandsImpl) partnerOrderID(ctx context.Context, n webhook.Notification) (*uuid.UUID, error) {
	msg, ok := n.(webhook.PartnerMessage)
	if !ok {
		return nil, nil
	}
	if msg.Intent.OrderID != nil {
		return msg.Intent.OrderID, nil
	}
	value, found, err := c.store.Get(ctx, partnerConversationPrefix+msg.From)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read partner conversation")
	}
	if !found {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		c.logger.WarnContext(ctx, "Discarding corrupt partner conversation", slog.String("from", msg.From))
		return nil, nil
	}
	return &id, nil
}

func (c *webhookCommandsImpl) rememberConversation(ctx context.Context, from string, orderID uuid.UUID) {
	if from == "" {
		return
	}
	if err := c.store.Put(ctx, partnerConversationPrefix+from, orderID.String(), c.opts.PartnerConvTTL); err != nil {
		c.logger.WarnContext(ctx, "Failed to store partner conversation",
			slog.String("order_id", orderID.String()),
			slog.String("error", err.Error()))
	}
}

func (c *webhookCommandsImpl) applyPartner(ctx context.Context, tx shared.Tx, msg webhook.PartnerMessage, orderID uuid.UUID) (*uuid.UUID, error) {
	o, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			c.logger.WarnContext(ctx, "Partner message references unknown order",
				slog.String("event_id", msg.EventID),
				slog.String("order_id", orderID.String()))
			return nil, nil
		}
		return nil, errs.Wrap(err, "failed to load order")
	}

	now := c.clock.Now()
	from := o.Status()
	repriced := false

	switch msg.Intent.Kind {
	case webhook.IntentPickupConfirmed:
		err = advanceAlong(o, pickupPath(o.ServiceType()), now)
	case webhook.IntentDelivered:
		err = advanceAlong(o, deliveredPath(o.ServiceType()), now)
	case webhook.IntentStatusUpdate:
		err = c.applyStatusUpdate(o, msg.Intent.Status, now)
	case webhook.IntentQuoteSubmitted:
		err = c.applyQuote(o, msg.Intent, now)
		repriced = err == nil
	default:
		err = errs.Mark(errs.Newf("partner intent %q", msg.Intent.Kind), webhook.ErrUnsupportedEvent)
	}
	if err != nil {
		return nil, err
	}
	if o.Status() == from && !repriced {
		return nil, nil
	}

	if err := tx.Orders().Update(ctx, o, from); err != nil {
		return nil, err
	}
	if o.Status() != from {
		if err := shared.EnqueueOrderNotification(ctx, tx, shared.NotifyStatusChanged, o.ID(), map[string]any{
			"from": from.String(),
			"to":   o.Status().String(),
		}, now); err != nil {
			return nil, err
		}
	}
	c.logger.InfoContext(ctx, "Partner update applied",
		slog.String("event_id", msg.EventID),
		slog.String("order_id", o.ID().String()),
		slog.String("intent", string(msg.Intent.Kind)),
		slog.String("status", o.Status().String()))

	id := o.ID()
	return &id, nil
}

func (c *webhookCommandsImpl) applyStatusUpdate(o *order.Order, raw string, now time.Time) error {
	to, err := order.NewStatus(raw)
	if err != nil {
		return errs.Mark(err, ErrInvalidStatus)
	}
	if to == order.StatusCanceled || to == order.StatusRefunded {
		return ErrDedicatedEndpoint
	}
	if o.Status() == to {
		return nil
	}
	if err := o.Transition(to, now); err != nil {
		return mapOrderErr(err)
	}
	return nil
}

// applyQuote reprices a LAUNDRY order with the weight measured at the facility
// and releases it for payment.
func (c *webhookCommandsImpl) applyQuote(o *order.Order, intent webhook.PartnerIntent, now time.Time) error {
	if o.ServiceType() != order.ServiceLaundry {
		return ErrNotLaundryOrder
	}
	quote, err := c.engine.Quote(pricing.Params{
		ServiceType: order.ServiceLaundry.String(),
		Laundry: &pricing.LaundryParams{
			WeightLbs:     intent.WeightLbs,
			DryCleanItems: intent.DryCleanItems,
		},
	})
	if err != nil {
		return classifyInput(err)
	}
	prices, err := order.NewPricing(quote.Subtotal, quote.Tax, quote.DeliveryFee, quote.Total)
	if err != nil {
		return errs.Mark(err, errs.ErrFatal)
	}
	if err := o.ApplyFinalAmount(prices, now); err != nil {
		return mapOrderErr(err)
	}
	if o.Status() == order.StatusAtFacility {
		if err := o.Transition(order.StatusAwaitingPayment, now); err != nil {
			return mapOrderErr(err)
		}
	}
	return nil
}

func (c *webhookCommandsImpl) settle(ctx context.Context, orderID uuid.UUID) {
	o, err := c.uow.CommandReads().OrderByID(ctx, orderID)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to reload order for settlement",
			slog.String("order_id", orderID.String()),
			slog.String("error", err.Error()))
		return
	}
	triggerPayment(ctx, c.saga, c.logger, o)
}

func pickupPath(st order.ServiceType) []order.Status {
	if st == order.ServiceLaundry {
		return []order.Status{order.StatusPendingPickup, order.StatusAtFacility}
	}
	return []order.Status{order.StatusPendingPickup, order.StatusInProgress}
}

func deliveredPath(st order.ServiceType) []order.Status {
	if st == order.ServiceLaundry {
		return []order.Status{order.StatusOutForDelivery, order.StatusDelivered}
	}
	return []order.Status{order.StatusCompleted}
}

// lifecycle orders the statuses of each service type. Alternatives share a rank.
var lifecycle = map[order.ServiceType][][]order.Status{
	order.ServiceLaundry: {
		{order.StatusPending},
		{order.StatusPendingPickup},
		{order.StatusAtFacility},
		{order.StatusAwaitingPayment},
		{order.StatusPaidProcessing},
		{order.StatusInProgress},
		{order.StatusOutForDelivery},
		{order.StatusDelivered},
	},
	order.ServiceCleaning: {
		{order.StatusPending},
		{order.StatusAwaitingPayment, order.StatusAuthorized},
		{order.StatusPaidProcessing},
		{order.StatusPendingPickup},
		{order.StatusInProgress},
		{order.StatusCompleted},
	},
}

func rank(st order.ServiceType, s order.Status) int {
	for i, group := range lifecycle[st] {
		if slices.Contains(group, s) {
			return i
		}
	}
	return -1
}

// advanceAlong walks the order through the steps of path it has not reached
// yet, so a repeated message is a no-op. Canceled and refunded orders fail.
func advanceAlong(o *order.Order, path []order.Status, now time.Time) error {
	for _, step := range path {
		current := rank(o.ServiceType(), o.Status())
		if current >= 0 && current >= rank(o.ServiceType(), step) {
			continue
		}
		if err := o.Transition(step, now); err != nil {
			return mapOrderErr(err)
		}
	}
	return nil
}

func latencyMs(start, end time.Time) int64 {
	return end.Sub(start).Milliseconds()
}
