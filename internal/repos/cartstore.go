package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/pricing"
	"github.com/yungbote/storefront-backend/internal/types"
)

// CartStore is the durable key-value port behind the cart model. A missing
// cart reads as empty.
type CartStore interface {
	ReadCart(ctx context.Context, ownerID string) ([]types.LineItem, error)
	WriteCart(ctx context.Context, ownerID string, items []types.LineItem) error
}

func cloneItems(items []types.LineItem) []types.LineItem {
	out := make([]types.LineItem, len(items))
	for i, li := range items {
		out[i] = li.Clone()
	}
	return out
}

// ---------------- memory ----------------

type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string][]types.LineItem
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: map[string][]types.LineItem{}}
}

func (s *MemoryCartStore) ReadCart(_ context.Context, ownerID string) ([]types.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.carts[ownerID]), nil
}

func (s *MemoryCartStore) WriteCart(_ context.Context, ownerID string, items []types.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[ownerID] = cloneItems(items)
	return nil
}

// ---------------- gorm ----------------

type gormCartStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGormCartStore(db *gorm.DB, baseLog *logger.Logger) CartStore {
	return &gormCartStore{db: db, log: baseLog.With("repo", "CartStore", "backend", "gorm")}
}

func (s *gormCartStore) ReadCart(ctx context.Context, ownerID string) ([]types.LineItem, error) {
	var snap types.CartSnapshot
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Take(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []types.LineItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeItems(snap.Items)
}

func (s *gormCartStore) WriteCart(ctx context.Context, ownerID string, items []types.LineItem) error {
	raw, err := encodeItems(items)
	if err != nil {
		return err
	}
	snap := &types.CartSnapshot{
		OwnerID: ownerID,
		Items:   datatypes.JSON(raw),
		Total:   pricing.CartTotal(items),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "total", "updated_at"}),
		}).
		Create(snap).Error
}

// ---------------- redis ----------------

type redisCartStore struct {
	rdb    *goredis.Client
	log    *logger.Logger
	prefix string
	ttl    time.Duration
}

// NewRedisCartStore stores each cart as a JSON string under <prefix><owner>.
// A zero ttl keeps carts forever.
func NewRedisCartStore(rdb *goredis.Client, baseLog *logger.Logger, prefix string, ttl time.Duration) CartStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "cart:"
	}
	return &redisCartStore{
		rdb:    rdb,
		log:    baseLog.With("repo", "CartStore", "backend", "redis"),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *redisCartStore) ReadCart(ctx context.Context, ownerID string) ([]types.LineItem, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+ownerID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return []types.LineItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeItems(raw)
}

func (s *redisCartStore) WriteCart(ctx context.Context, ownerID string, items []types.LineItem) error {
	raw, err := encodeItems(items)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+ownerID, raw, s.ttl).Err()
}

func encodeItems(items []types.LineItem) ([]byte, error) {
	if items == nil {
		items = []types.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return raw, nil
}

func decodeItems(raw []byte) ([]types.LineItem, error) {
	items := []types.LineItem{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}
