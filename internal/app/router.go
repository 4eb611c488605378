package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/storefront-backend/internal/http"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = cfg.OtelServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		CatalogHandler:  handlers.Catalog,
		CartHandler:     handlers.Cart,
		CheckoutHandler: handlers.Checkout,
	})
}
