package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/storefront-backend/internal/platform/identity"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/transport"
	"github.com/yungbote/storefront-backend/internal/types"
)

// Catalog is the read-only view of the storefront catalog the cart consults
// for display metadata.
type Catalog interface {
	LookupItem(ctx context.Context, id string) (types.CatalogItem, bool, error)
}

type CatalogService interface {
	Catalog
	ListItems(ctx context.Context) ([]types.CatalogItem, error)
	GetItem(ctx context.Context, id string) (types.CatalogItem, error)
}

type catalogService struct {
	remote

	load singleflight.Group

	mu     sync.RWMutex
	loaded bool
	items  map[string]types.CatalogItem
}

func NewCatalogService(log *logger.Logger, tr Transport, idp identity.Provider, defaults RequestDefaults) CatalogService {
	serviceLog := log.With("service", "CatalogService")
	return &catalogService{
		remote: remote{tr: tr, identity: idp, log: serviceLog, defaults: defaults},
		items:  map[string]types.CatalogItem{},
	}
}

func (s *catalogService) ListItems(ctx context.Context) ([]types.CatalogItem, error) {
	payload, err := s.fetch(ctx, "get", "/catalog/items", nil, nil)
	if err != nil {
		return nil, err
	}
	// The list may arrive bare or under an "items" or "data" key. Unwrap only
	// lifts "data" when it holds an object, so a list stays wrapped here.
	if m, ok := payload.(map[string]any); ok {
		for _, key := range []string{"items", "data"} {
			if inner, ok := m[key].([]any); ok {
				payload = inner
				break
			}
		}
	}
	items, err := transport.Decode[[]types.CatalogItem](payload)
	if err != nil {
		return nil, fmt.Errorf("decode catalog items: %w", err)
	}

	s.mu.Lock()
	s.items = make(map[string]types.CatalogItem, len(items))
	for _, it := range items {
		s.items[it.ID] = it
	}
	s.loaded = true
	s.mu.Unlock()
	return items, nil
}

func (s *catalogService) GetItem(ctx context.Context, id string) (types.CatalogItem, error) {
	payload, err := s.fetch(ctx, "get", "/catalog/items/"+url.PathEscape(id), nil, hasString("id"))
	if err != nil {
		return types.CatalogItem{}, err
	}
	item, err := transport.Decode[types.CatalogItem](payload)
	if err != nil {
		return types.CatalogItem{}, fmt.Errorf("decode catalog item: %w", err)
	}
	s.mu.Lock()
	s.items[item.ID] = item
	s.mu.Unlock()
	return item, nil
}

// LookupItem answers from the cached catalog, loading it on first use.
// Concurrent first lookups share one catalog request.
func (s *catalogService) LookupItem(ctx context.Context, id string) (types.CatalogItem, bool, error) {
	s.mu.RLock()
	loaded := s.loaded
	item, ok := s.items[id]
	s.mu.RUnlock()
	if ok {
		return item, true, nil
	}
	if loaded {
		return types.CatalogItem{}, false, nil
	}
	if _, err, _ := s.load.Do("catalog", func() (any, error) {
		s.mu.RLock()
		done := s.loaded
		s.mu.RUnlock()
		if done {
			return nil, nil
		}
		return s.ListItems(ctx)
	}); err != nil {
		return types.CatalogItem{}, false, err
	}
	s.mu.RLock()
	item, ok = s.items[id]
	s.mu.RUnlock()
	return item, ok, nil
}
