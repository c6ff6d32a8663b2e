package components

import (
	"log/slog"

	"freshfold/internal/domain/webhook"
	"freshfold/internal/handler"
	"freshfold/internal/handler/api"
	"freshfold/internal/handler/middleware"
	"freshfold/internal/pkg/config"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/shared"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAuthHandler,
		api.NewOrderHandler,
		api.NewPaymentHandler,
		api.NewCatalogHandler,
		NewWebhookHandler,
		middleware.NewAuthMiddleware,
		NewRateLimiter,
	),
	fx.Invoke(handler.NewRouter),
)

func NewWebhookHandler(cmds commands.WebhookCommands, source webhook.Source, cfg config.Config) *api.WebhookHandler {
	return api.NewWebhookHandler(cmds, source, cfg.Webhook.MaxPayloadBytes)
}

func NewRateLimiter(store shared.CounterStore, cfg config.Config, logger *slog.Logger) *middleware.RateLimiter {
	return middleware.NewRateLimiter(store, cfg.RateLimit.Window, cfg.RateLimit.Enabled, logger)
}
