package services

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/storefront-backend/internal/platform/transport"
	"github.com/yungbote/storefront-backend/internal/types"
)

type fakeTransport struct {
	mu    sync.Mutex
	calls []transport.Descriptor
	reply func(d transport.Descriptor) (any, error)
}

func (f *fakeTransport) Fetch(_ context.Context, d transport.Descriptor) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, d)
	f.mu.Unlock()
	if f.reply == nil {
		return nil, nil
	}
	out, err := f.reply(d)
	if err == nil && d.Validate != nil && !d.Validate(out) {
		return nil, transport.ErrValidationFailed
	}
	return out, err
}

type fakeOrders struct {
	mu sync.Mutex

	orderErr  error
	intentErr error
	recordErr error

	calls       []string
	lastOrder   types.OrderRequest
	lastIntent  types.PaymentIntentRequest
	recordCalls int
}

func (f *fakeOrders) CreateOrder(_ context.Context, req types.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "order")
	f.lastOrder = req
	if f.orderErr != nil {
		return "", f.orderErr
	}
	return "order-1", nil
}

func (f *fakeOrders) CreatePaymentIntent(_ context.Context, req types.PaymentIntentRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "intent")
	f.lastIntent = req
	if f.intentErr != nil {
		return "", f.intentErr
	}
	return "pi_secret_1", nil
}

func (f *fakeOrders) RecordPayment(context.Context, types.PaymentOutcome, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "record")
	f.recordCalls++
	return f.recordErr
}

type countingStore struct {
	mu     sync.Mutex
	items  map[string][]types.LineItem
	writes int
	err    error
}

func newCountingStore() *countingStore {
	return &countingStore{items: map[string][]types.LineItem{}}
}

func (s *countingStore) ReadCart(_ context.Context, owner string) ([]types.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.LineItem{}, s.items[owner]...), nil
}

func (s *countingStore) WriteCart(_ context.Context, owner string, items []types.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes++
	s.items[owner] = append([]types.LineItem{}, items...)
	return nil
}

type clearCountingCart struct {
	*Cart
	clears int
}

func (c *clearCountingCart) Clear(ctx context.Context) error {
	c.clears++
	return c.Cart.Clear(ctx)
}

type fakeCatalog struct {
	items map[string]types.CatalogItem
	err   error
}

func (f *fakeCatalog) LookupItem(_ context.Context, id string) (types.CatalogItem, bool, error) {
	if f.err != nil {
		return types.CatalogItem{}, false, f.err
	}
	it, ok := f.items[id]
	return it, ok, nil
}

var errBoom = errors.New("boom")
