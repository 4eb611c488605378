package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/realtime/bus"
	"github.com/yungbote/storefront-backend/internal/repos"
	"github.com/yungbote/storefront-backend/internal/types"
)

type Repos struct {
	Cart repos.CartStore

	db  *gorm.DB
	rdb *goredis.Client
}

func wireRepos(ctx context.Context, log *logger.Logger, cfg Config) (Repos, error) {
	log.Info("Wiring repos...", "cart_store", cfg.CartStore)
	switch cfg.CartStore {
	case CartStoreSQLite:
		db, err := openGorm(log, sqlite.Open(cfg.SQLitePath))
		if err != nil {
			return Repos{}, err
		}
		return Repos{Cart: repos.NewGormCartStore(db, log), db: db}, nil
	case CartStorePostgres:
		db, err := openGorm(log, postgres.Open(cfg.PostgresDSN))
		if err != nil {
			return Repos{}, err
		}
		return Repos{Cart: repos.NewGormCartStore(db, log), db: db}, nil
	case CartStoreRedis:
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return Repos{}, fmt.Errorf("redis ping: %w", err)
		}
		return Repos{Cart: repos.NewRedisCartStore(rdb, log, cfg.RedisPrefix, cfg.CartTTL()), rdb: rdb}, nil
	default:
		return Repos{Cart: repos.NewMemoryCartStore()}, nil
	}
}

// wireCartBus shares cart changes over redis when cfg asks for it, reusing the
// cart store's client or opening one on REDIS_ADDR. An unreachable redis is a
// startup error. Otherwise carts get an in-process bus.
func wireCartBus(ctx context.Context, log *logger.Logger, cfg Config, reposet *Repos) (bus.Bus, error) {
	if !cfg.RedisCartBus() {
		log.Info("Wiring cart bus...", "backend", "local")
		return bus.NewLocalBus(), nil
	}
	log.Info("Wiring cart bus...", "backend", "redis", "channel", cfg.RedisChannel)
	if reposet.rdb == nil {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping for cart bus: %w", err)
		}
		reposet.rdb = rdb
	}
	return bus.NewRedisBus(log, reposet.rdb, cfg.RedisChannel)
}

func openGorm(log *logger.Logger, dialector gorm.Dialector) (*gorm.DB, error) {
	log.Info("Connecting to database...", "dialect", dialector.Name())
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("connect %s: %w", dialector.Name(), err)
	}
	if err := db.AutoMigrate(&types.CartSnapshot{}); err != nil {
		log.Error("Auto migration failed for cart tables", "error", err)
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, nil
}

func (r Repos) Close() {
	if r.rdb != nil {
		_ = r.rdb.Close()
	}
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
