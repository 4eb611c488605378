package observability

import (
	"context"
	"testing"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,bad, =x,team=core")
	if len(got) != 2 {
		t.Fatalf("len: want=2 got=%d (%v)", len(got), got)
	}
	if got["api-key"] != "abc" || got["team"] != "core" {
		t.Fatalf("headers: got=%v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty input should give nil")
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 3: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{})
	if shutdown == nil {
		t.Fatalf("shutdown should never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
