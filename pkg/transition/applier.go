package transition

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/platforge/platforge/pkg/platform"
)

// Configuration is the subset of a build configuration this engine rewrites:
// the platform fragment plus opaque fragments that are copied through
// unchanged. Configurations are immutable; Apply returns a new one.
type Configuration struct {
	// TargetPlatform is the platform this configuration builds for.
	TargetPlatform platform.Label `json:"target_platform"`

	// IsExec marks configurations produced by an exec transition.
	IsExec bool `json:"is_exec,omitempty"`

	// Fragments are the remaining configuration fragments, keyed by fragment
	// name. The transition copies them verbatim.
	Fragments map[string]string `json:"fragments,omitempty"`

	fingerprint string
}

// NewConfiguration builds a configuration and computes its identity
// fingerprint.
func NewConfiguration(targetPlatform platform.Label, isExec bool, fragments map[string]string) *Configuration {
	copied := make(map[string]string, len(fragments))
	for k, v := range fragments {
		copied[k] = v
	}
	c := &Configuration{
		TargetPlatform: targetPlatform,
		IsExec:         isExec,
		Fragments:      copied,
	}
	c.fingerprint = c.computeFingerprint()
	return c
}

// Fingerprint returns the configuration's content identity. Two
// configurations with equal fingerprints are interchangeable.
func (c *Configuration) Fingerprint() string { return c.fingerprint }

func (c *Configuration) computeFingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "platform=%s\nexec=%t\n", c.TargetPlatform, c.IsExec)
	keys := make([]string, 0, len(c.Fragments))
	for k := range c.Fragments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, c.Fragments[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Applier applies exec transitions with memoization. Safe for concurrent use;
// distinct (configuration, platform) keys never contend beyond the cache map.
type Applier struct {
	mu   sync.RWMutex
	memo map[memoKey]*Configuration

	hits   atomic.Uint64
	misses atomic.Uint64
}

type memoKey struct {
	fingerprint string
	platform    platform.Label
}

// NewApplier returns an applier with an empty memo cache.
func NewApplier() *Applier {
	return &Applier{memo: make(map[memoKey]*Configuration)}
}

// Apply rewrites cfg's platform fragment to the resolved execution platform,
// copying every other fragment unchanged. Applying to a configuration already
// pinned to that platform returns cfg itself.
func (a *Applier) Apply(cfg *Configuration, resolvedPlatform platform.Label) *Configuration {
	if cfg.TargetPlatform == resolvedPlatform && cfg.IsExec {
		return cfg
	}

	key := memoKey{fingerprint: cfg.Fingerprint(), platform: resolvedPlatform}

	a.mu.RLock()
	cached, ok := a.memo[key]
	a.mu.RUnlock()
	if ok {
		a.hits.Add(1)
		return cached
	}

	child := NewConfiguration(resolvedPlatform, true, cfg.Fragments)

	a.mu.Lock()
	if existing, ok := a.memo[key]; ok {
		a.mu.Unlock()
		a.hits.Add(1)
		return existing
	}
	a.memo[key] = child
	a.mu.Unlock()

	a.misses.Add(1)
	return child
}

// Stats returns cache hit and miss counts since construction.
func (a *Applier) Stats() (hits, misses uint64) {
	return a.hits.Load(), a.misses.Load()
}

// Size returns the number of memoized configurations.
func (a *Applier) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.memo)
}
