package organizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timvw/tmux-organize/internal/model"
)

// NameCache caches proposed names keyed by a fingerprint of the stable
// capture parts (commands, paths, titles). When a target still runs the
// same processes in the same places, the cached name is reused, saving a
// summarizer call.
//
// Entries have a TTL. After expiry, the target is re-named even if the
// fingerprint is identical, so long-lived windows pick up better names
// as models and prompts improve.
//
// One JSON file per target under the cache dir. Naming jobs run as
// separate short-lived processes, so the cache has to live on disk.
// Supersession guarantees a single live job per target, which makes the
// per-target file single-writer.
type NameCache struct {
	dir string
	ttl time.Duration
}

type cacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Name        string    `json:"name"`
	CachedAt    time.Time `json:"cached_at"`
}

// NewNameCache creates a cache rooted at dir with the given TTL.
// A TTL of 0 disables caching.
func NewNameCache(dir string, ttl time.Duration) *NameCache {
	return &NameCache{dir: dir, ttl: ttl}
}

// Enabled reports whether lookups can ever hit.
func (c *NameCache) Enabled() bool {
	return c != nil && c.ttl > 0 && c.dir != ""
}

// Lookup returns the cached name for the target when the fingerprint
// still matches and the entry is fresh.
func (c *NameCache) Lookup(t model.Target, fingerprint string) (string, bool) {
	if !c.Enabled() || fingerprint == "" {
		return "", false
	}

	data, err := os.ReadFile(c.path(t))
	if err != nil {
		return "", false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry reads as a miss and gets overwritten on Store.
		return "", false
	}

	if entry.Fingerprint != fingerprint || entry.Name == "" {
		return "", false
	}
	if time.Since(entry.CachedAt) > c.ttl {
		return "", false
	}
	return entry.Name, true
}

// Store saves a name for the target's fingerprint, replacing whatever
// was cached for the target before. Failures are ignored; the cache is
// an optimization, not a store of record.
func (c *NameCache) Store(t model.Target, fingerprint, name string) {
	if !c.Enabled() || fingerprint == "" || name == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	data, err := json.Marshal(cacheEntry{
		Fingerprint: fingerprint,
		Name:        name,
		CachedAt:    time.Now(),
	})
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path(t), data, 0o644)
}

// path maps a target key to its cache file ("window/@5" -> "window-@5.json").
func (c *NameCache) path(t model.Target) string {
	return filepath.Join(c.dir, strings.ReplaceAll(t.Key(), "/", "-")+".json")
}
