// Package timeouts holds the per-tier deadlines handlers and workers put
// on their context.WithTimeout calls.
//
// Tier guide for this codebase:
//   - Ping: the health endpoint's connectivity check
//   - Short: single-document reads (load a group, the caller's notifications)
//   - Medium: list queries (group search, audit-log pages, member lists)
//   - Long: broker mutations, which write several collections in one
//     transaction, and each outbox drain or token sweep pass
//   - Batch: CSV member imports and merges, whose member sets can be large
package timeouts

import (
	"os"
	"sync"
	"time"
)

// Defaults per tier, overridable via TIMEOUT_<TIER> environment variables.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

var (
	mu    sync.RWMutex
	tiers = map[string]time.Duration{
		"PING":   DefaultPing,
		"SHORT":  DefaultShort,
		"MEDIUM": DefaultMedium,
		"LONG":   DefaultLong,
		"BATCH":  DefaultBatch,
	}
)

func get(tier string) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return tiers[tier]
}

func Ping() time.Duration   { return get("PING") }
func Short() time.Duration  { return get("SHORT") }
func Medium() time.Duration { return get("MEDIUM") }
func Long() time.Duration   { return get("LONG") }
func Batch() time.Duration  { return get("BATCH") }

// ConfigureFromEnv applies TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// TIMEOUT_LONG and TIMEOUT_BATCH (time.ParseDuration syntax, e.g. "45s").
// Unset, unparsable, or non-positive values keep the default. Called once
// at startup; returns how many tiers were overridden.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0
	for tier := range tiers {
		v := os.Getenv("TIMEOUT_" + tier)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			tiers[tier] = d
			configured++
		}
	}
	return configured
}
