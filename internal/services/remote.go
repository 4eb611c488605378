package services

import (
	"context"
	"time"

	"github.com/yungbote/storefront-backend/internal/platform/identity"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/transport"
)

// Transport is the request layer every remote call goes through.
type Transport interface {
	Fetch(ctx context.Context, d transport.Descriptor) (any, error)
}

type RequestDefaults struct {
	Retries    int
	RetryDelay time.Duration
}

// remote stamps descriptors with the caller's identity and retry defaults.
type remote struct {
	tr       Transport
	identity identity.Provider
	log      *logger.Logger
	defaults RequestDefaults
}

func (r remote) descriptor(ctx context.Context, method, endpoint string, payload any, validate func(any) bool) transport.Descriptor {
	d := transport.Descriptor{
		Endpoint:   endpoint,
		Method:     method,
		Payload:    payload,
		Retries:    r.defaults.Retries,
		RetryDelay: r.defaults.RetryDelay,
		Validate:   validate,
	}
	if u, ok := identity.UserFromContext(ctx); ok {
		d.UID = u.ID
	}
	d.AuthToken = identity.CurrentToken(ctx, r.identity, r.log)
	return d
}

func (r remote) fetch(ctx context.Context, method, endpoint string, payload any, validate func(any) bool) (any, error) {
	return r.tr.Fetch(ctx, r.descriptor(ctx, method, endpoint, payload, validate))
}

func hasString(key string) func(any) bool {
	return func(p any) bool {
		m, ok := p.(map[string]any)
		if !ok {
			return false
		}
		s, ok := m[key].(string)
		return ok && s != ""
	}
}
