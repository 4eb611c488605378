package app

import (
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/services"
)

type Services struct {
	Catalog  services.CatalogService
	Orders   services.OrderService
	Carts    *services.CartRegistry
	Checkout *services.Checkout
	Sessions *services.SessionStore
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")
	defaults := services.RequestDefaults{
		Retries:    cfg.TransportRetries,
		RetryDelay: cfg.RetryDelay(),
	}
	catalog := services.NewCatalogService(log, clients.Transport, clients.Identity, defaults)
	orders := services.NewOrderService(log, clients.Transport, clients.Identity, defaults)
	carts := services.NewCartRegistry(log, reposet.Cart, catalog)
	carts.SetIdleTTL(cfg.CartCacheIdle)
	return Services{
		Catalog: catalog,
		Orders:  orders,
		Carts:   carts,
		Checkout: services.NewCheckout(log, orders, services.CheckoutOptions{
			Currency:      cfg.PaymentCurrency,
			AllowDevSkip:  cfg.AllowDevSkip(),
			RecordTimeout: cfg.RecordTimeout(),
		}),
		Sessions: services.NewSessionStore(cfg.SessionTTL),
	}
}
