package app

import (
	"fmt"
	"time"

	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/identity"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/transport"
)

type Clients struct {
	Transport *transport.Client
	Identity  *identity.JWTProvider
}

func wireClients(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")
	var observe func(method, endpoint string, status int, dur time.Duration)
	if metrics != nil {
		observe = metrics.ObserveRemote
	}
	tr, err := transport.New(log, transport.Options{
		BaseURL:   cfg.APIBaseURL,
		UIDHeader: cfg.UIDHeader,
		Timeout:   cfg.Timeout(),
		Observe:   observe,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init transport: %w", err)
	}
	idp, err := identity.NewJWTProvider(cfg.JWTSecretKey, cfg.JWTIssuer, cfg.ServiceTokenTTL)
	if err != nil {
		return Clients{}, fmt.Errorf("init identity: %w", err)
	}
	return Clients{Transport: tr, Identity: idp}, nil
}
