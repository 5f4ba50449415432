package system

import (
	"testing"
	"time"
)

func TestNowIsUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	now := clk.Now()

	if now.Location() != time.UTC {
		t.Fatalf("expected UTC time, got %s", now.Location())
	}
	if time.Since(now) > time.Minute {
		t.Fatalf("clock is stale: %s", now)
	}
}
