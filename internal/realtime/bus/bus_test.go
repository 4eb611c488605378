package bus

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

func TestLocalBusDeliversToEverySubscriber(t *testing.T) {
	b := NewLocalBus()
	var got []string
	for i := 0; i < 2; i++ {
		if err := b.StartForwarder(context.Background(), func(m CartChanged) { got = append(got, m.OwnerID) }); err != nil {
			t.Fatalf("StartForwarder: %v", err)
		}
	}
	if err := b.Publish(context.Background(), CartChanged{OwnerID: "u1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 2 || got[0] != "u1" {
		t.Fatalf("deliveries: want=[u1 u1] got=%v", got)
	}
	if err := b.StartForwarder(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	defer rdb.Close()

	b, err := NewRedisBus(logger.Nop(), rdb, "cart-events-test")
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan CartChanged, 1)
	if err := b.StartForwarder(ctx, func(m CartChanged) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(ctx, CartChanged{OwnerID: "u1", Origin: "a"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.OwnerID != "u1" || m.Origin != "a" {
			t.Fatalf("message: got=%+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for cart event")
	}
}
