package app

import (
	httpH "github.com/yungbote/storefront-backend/internal/http/handlers"
	httpMW "github.com/yungbote/storefront-backend/internal/http/middleware"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Catalog  *httpH.CatalogHandler
	Cart     *httpH.CartHandler
	Checkout *httpH.CheckoutHandler
}

func wireMiddleware(log *logger.Logger, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, clients.Identity)}
}

func wireHandlers(log *logger.Logger, serviceset Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Catalog:  httpH.NewCatalogHandler(log, serviceset.Catalog),
		Cart:     httpH.NewCartHandler(log, serviceset.Carts, metrics),
		Checkout: httpH.NewCheckoutHandler(log, serviceset.Carts, serviceset.Checkout, serviceset.Sessions, metrics),
	}
}
