// internal/app/system/timeouts/timeouts_test.go
package timeouts

import (
	"testing"
	"time"
)

func TestConfigureFromEnv(t *testing.T) {
	t.Setenv("TIMEOUT_LONG", "45s")
	t.Setenv("TIMEOUT_BATCH", "nonsense")
	t.Setenv("TIMEOUT_SHORT", "-1s")

	if got := ConfigureFromEnv(); got != 1 {
		t.Fatalf("ConfigureFromEnv = %d, want 1", got)
	}
	if Long() != 45*time.Second {
		t.Fatalf("Long = %v, want 45s", Long())
	}
	// Bad values keep the defaults.
	if Batch() != DefaultBatch {
		t.Fatalf("Batch = %v, want default", Batch())
	}
	if Short() != DefaultShort {
		t.Fatalf("Short = %v, want default", Short())
	}

	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		tiers["LONG"] = DefaultLong
	})
}
