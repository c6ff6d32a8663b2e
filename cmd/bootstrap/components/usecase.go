package components

import (
	"log/slog"
	"time"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/pricing"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/config"
	"freshfold/internal/usecase"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/queries"
	"freshfold/internal/usecase/settlement"
	"freshfold/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	NewPricingEngine,
	NewServiceLocation,
	NewSaga,
	NewPaymentModes,
	NewWebhookOptions,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewAuthCommands,
		commands.NewOrderCommands,
		commands.NewWebhookCommands,
		commands.NewAdminCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewUserQueries,
		queries.NewOrderQueries,
		queries.NewQuoteQueries,
		queries.NewSlotQueries,
		queries.NewPolicyQueries,
		queries.NewWebhookEventQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)

func NewPricingEngine(cfg config.Config) *pricing.Engine {
	p := cfg.Pricing
	return pricing.NewEngine(pricing.RateCard{
		LaundryPerPoundCents:   p.LaundryPerPoundCents,
		LaundryMinimumCents:    p.LaundryMinimumCents,
		DryCleanPerItemCents:   p.DryCleanPerItemCents,
		CleaningBaseCents:      p.CleaningBaseCents,
		CleaningPerBedroom:     p.CleaningPerBedroom,
		CleaningPerBathroom:    p.CleaningPerBathroom,
		CleaningDeepMultiplier: p.CleaningDeepMultiplier,
		DeliveryFeeCents:       p.DeliveryFeeCents,
		TaxRateBps:             p.TaxRateBps,
	})
}

// NewServiceLocation resolves SERVICE_TIMEZONE, the zone slot dates are read in.
func NewServiceLocation(cfg config.Config) (*time.Location, error) {
	return time.LoadLocation(cfg.Server.TimeZone)
}

func NewSaga(uow shared.UnitOfWork, gateway settlement.Gateway, clk clock.Clock, cfg config.Config, logger *slog.Logger) settlement.Saga {
	p := cfg.Payments
	return settlement.NewSaga(uow, gateway, clk, settlement.Config{
		Currency:          p.Currency,
		Timeout:           p.Timeout,
		MaxChargeAttempts: p.MaxChargeAttempts,
		RetryBaseDelay:    p.RetryBaseDelay,
		RetryMaxDelay:     p.RetryMaxDelay,
		InlineRetries:     p.InlineRetries,
		BatchSize:         cfg.Worker.BatchSize,
	}, logger)
}

func NewPaymentModes(cfg config.Config) commands.PaymentModes {
	return commands.PaymentModes{
		Laundry:  order.PaymentMode(cfg.Payments.LaundryMode),
		Cleaning: order.PaymentMode(cfg.Payments.CleaningMode),
	}
}

func NewWebhookOptions(cfg config.Config) commands.WebhookOptions {
	return commands.WebhookOptions{
		StaleAfter:     cfg.Webhook.StaleAfter,
		PartnerConvTTL: cfg.Webhook.PartnerConvTTL,
	}
}
