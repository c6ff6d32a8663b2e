package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"freshfold/internal/domain/user"
	"freshfold/internal/handler/api"
	"freshfold/internal/handler/middleware"
	"freshfold/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type RouterParams struct {
	fx.In

	Engine         *gin.Engine
	Config         config.Config
	Logger         *slog.Logger
	AuthHandler    *api.AuthHandler
	OrderHandler   *api.OrderHandler
	PaymentHandler *api.PaymentHandler
	WebhookHandler *api.WebhookHandler
	CatalogHandler *api.CatalogHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

func NewRouter(p RouterParams) {
	setupMiddleware(p.Engine, p.Config, p.Logger)
	setupRoutes(p)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(logger, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(p RouterParams) {
	engine := p.Engine
	auth := p.AuthMiddleware
	limits := p.Config.RateLimit

	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	webhooks := engine.Group("/webhooks")
	webhooks.Use(p.RateLimiter.Limit("webhooks", limits.WebhookLimit))
	addRoutes(webhooks, []route{
		{Method: http.MethodPost, Path: "/payments", Handler: p.WebhookHandler.Payments},
		{Method: http.MethodPost, Path: "/partners", Handler: p.WebhookHandler.Partners},
	})

	apiGroup := engine.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			addRoutes(authGroup, []route{
				{Method: http.MethodPost, Path: "/login", Handler: p.AuthHandler.Login},
				{Method: http.MethodPost, Path: "/refresh", Handler: p.AuthHandler.Refresh},
				{Method: http.MethodPost, Path: "/logout", Handler: p.AuthHandler.Logout},
			})

			authRequired := authGroup.Group("")
			authRequired.Use(auth.RequireAuth())
			addRoutes(authRequired, []route{
				{Method: http.MethodGet, Path: "/me", Handler: p.AuthHandler.Me},
			})
		}

		addRoutes(apiGroup, []route{
			{Method: http.MethodPost, Path: "/quotes", Handler: p.OrderHandler.Quote},
			{Method: http.MethodGet, Path: "/slots", Handler: p.CatalogHandler.ListSlots},
			{Method: http.MethodGet, Path: "/policies/active", Handler: p.CatalogHandler.ActivePolicy},
		})

		// guests book and manage their orders without an account
		orders := apiGroup.Group("/orders")
		orders.Use(auth.OptionalAuth())
		{
			addRoutes(orders, []route{
				{Method: http.MethodPost, Path: "", Handler: p.OrderHandler.Create,
					Mw: []gin.HandlerFunc{p.RateLimiter.Limit("booking", limits.BookingLimit)}},
				{Method: http.MethodGet, Path: "", Handler: p.OrderHandler.List,
					Mw: []gin.HandlerFunc{auth.RequireAuth()}},
				{Method: http.MethodGet, Path: "/:id", Handler: p.OrderHandler.Get},
				{Method: http.MethodPost, Path: "/:id/cancel", Handler: p.OrderHandler.Cancel},
				{Method: http.MethodPost, Path: "/:id/reschedule", Handler: p.OrderHandler.Reschedule},
				{Method: http.MethodPut, Path: "/:id/delivery-slot", Handler: p.OrderHandler.SetDeliverySlot},
				{Method: http.MethodPost, Path: "/:id/pay", Handler: p.PaymentHandler.Pay},
				{Method: http.MethodPost, Path: "/:id/authorize", Handler: p.PaymentHandler.Authorize},
				{Method: http.MethodPost, Path: "/:id/payments/confirm", Handler: p.PaymentHandler.Confirm},
			})
		}

		admin := apiGroup.Group("/admin")
		admin.Use(auth.RequireAuth(), auth.RequireRoleAtLeast(user.RoleOperator))
		{
			addRoutes(admin, []route{
				{Method: http.MethodPost, Path: "/orders/:id/status", Handler: p.OrderHandler.Advance},
				{Method: http.MethodPost, Path: "/orders/:id/capture", Handler: p.PaymentHandler.Capture},
				{Method: http.MethodPost, Path: "/orders/:id/refund", Handler: p.PaymentHandler.Refund},
				{Method: http.MethodGet, Path: "/webhook-events", Handler: p.CatalogHandler.ListWebhookEvents},
				{Method: http.MethodPut, Path: "/slots", Handler: p.CatalogHandler.UpsertSlot,
					Mw: []gin.HandlerFunc{auth.RequireRoleAtLeast(user.RoleAdmin)}},
				{Method: http.MethodPost, Path: "/policies", Handler: p.CatalogHandler.PublishPolicy,
					Mw: []gin.HandlerFunc{auth.RequireRoleAtLeast(user.RoleAdmin)}},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
