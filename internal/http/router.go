package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/storefront-backend/internal/http/handlers"
	httpMW "github.com/yungbote/storefront-backend/internal/http/middleware"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	CatalogHandler  *httpH.CatalogHandler
	CartHandler     *httpH.CartHandler
	CheckoutHandler *httpH.CheckoutHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	protected := r.Group("/api")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Catalog
		if cfg.CatalogHandler != nil {
			protected.GET("/catalog/items", cfg.CatalogHandler.ListItems)
			protected.GET("/catalog/items/:id", cfg.CatalogHandler.GetItem)
		}

		// Cart
		if cfg.CartHandler != nil {
			protected.GET("/cart", cfg.CartHandler.GetCart)
			protected.DELETE("/cart", cfg.CartHandler.ClearCart)
			protected.POST("/cart/items", cfg.CartHandler.AddItem)
			protected.DELETE("/cart/items", cfg.CartHandler.RemoveMatching)
			protected.PUT("/cart/items/:lineItemId", cfg.CartHandler.UpdateItem)
			protected.DELETE("/cart/items/:lineItemId", cfg.CartHandler.RemoveItem)
			protected.GET("/cart/items/:lineItemId/display", cfg.CartHandler.DisplayItem)
		}

		// Checkout
		if cfg.CheckoutHandler != nil {
			protected.POST("/checkout", cfg.CheckoutHandler.StartSession)
			protected.GET("/checkout/:id", cfg.CheckoutHandler.GetSession)
			protected.DELETE("/checkout/:id", cfg.CheckoutHandler.AbandonSession)
			protected.POST("/checkout/:id/submit", cfg.CheckoutHandler.Submit)
			protected.POST("/checkout/:id/back", cfg.CheckoutHandler.Back)
			protected.POST("/checkout/:id/payment", cfg.CheckoutHandler.PaymentResult)
			protected.POST("/checkout/:id/dev-skip", cfg.CheckoutHandler.DevSkip)
		}
	}

	return r
}
