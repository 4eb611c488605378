package identity

import (
	"context"
	"strings"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type User struct {
	ID string
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	if ctx == nil {
		return User{}, false
	}
	u, ok := ctx.Value(ctxKey{}).(User)
	if !ok || strings.TrimSpace(u.ID) == "" {
		return User{}, false
	}
	return u, true
}

// Provider is the identity collaborator: it knows the signed-in user and can
// hand out a bearer token for them.
type Provider interface {
	CurrentUser(ctx context.Context) (User, bool)
	Token(ctx context.Context, u User, forceRefresh bool) (string, error)
}

// CurrentToken returns a freshly refreshed token for the current user, or ""
// when there is no user or the refresh fails. It never returns an error.
func CurrentToken(ctx context.Context, p Provider, log *logger.Logger) string {
	if p == nil {
		return ""
	}
	u, ok := p.CurrentUser(ctx)
	if !ok {
		return ""
	}
	tok, err := p.Token(ctx, u, true)
	if err != nil {
		if log != nil {
			log.Warn("auth token refresh failed", "user_id", u.ID, "error", err)
		}
		return ""
	}
	return tok
}
