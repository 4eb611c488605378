// Package bus fans cart-change notifications out to every storefront
// instance so cached carts can be reloaded from the shared store.
package bus

import (
	"context"
	"sync"
	"time"
)

// CartChanged says the stored cart of OwnerID was rewritten by the instance
// named Origin.
type CartChanged struct {
	OwnerID string    `json:"owner_id"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

type Bus interface {
	Publish(ctx context.Context, msg CartChanged) error
	StartForwarder(ctx context.Context, onMsg func(m CartChanged)) error
	Close() error
}

// localBus delivers in-process only. It backs single-instance deployments
// whose cart store is not shared.
type localBus struct {
	mu   sync.RWMutex
	subs []func(CartChanged)
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(_ context.Context, msg CartChanged) error {
	b.mu.RLock()
	subs := append([]func(CartChanged){}, b.subs...)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m CartChanged)) error {
	if onMsg == nil {
		return errCallbackRequired
	}
	b.mu.Lock()
	b.subs = append(b.subs, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
	return nil
}
