// Package reputationcache remembers external reputation verdicts for a bounded trust window.
// Clients are identified by a keyed hash, so raw identifiers never reach the persisted store.
package reputationcache

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"riskgate/tokencrypto"
)

// DefaultWindow is how long a recorded verdict is trusted.
const DefaultWindow = 7 * 24 * time.Hour

const shardCount = 64

// legacyScanBudget bounds the time one lookup spends comparing salted entries.
const legacyScanBudget = 250 * time.Millisecond

var timeNow = time.Now

// Verdict is the outcome of a cache lookup.
type Verdict int

const (
	// Unknown means there is no trusted entry and the client must be verified.
	Unknown Verdict = iota

	// Clean means the client was verified as not being a spammer.
	Clean

	// Spammer means the client was verified as a spammer.
	Spammer
)

func (v Verdict) String() string {
	switch v {
	case Clean:
		return "clean"
	case Spammer:
		return "spammer"
	default:
		return "unknown"
	}
}

// Entry is one persisted verdict. Time is in unix seconds.
type Entry struct {
	Spammer bool  `json:"spammer"`
	Time    int64 `json:"time"`
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// Cache is safe for concurrent use. Lookups take shard read locks only; updates are serialized.
type Cache struct {
	logger  zerolog.Logger
	hasher  *tokencrypto.KeyedHasher
	window  time.Duration
	backend Backend
	shards  [shardCount]*shard

	// Entries keyed by a salted hash from older cache files. They can only be found by scanning.
	legacyMu sync.RWMutex
	legacy   map[string]Entry

	writeMutex sync.Mutex
}

// NewCache loads the persisted entries from backend.
func NewCache(logger zerolog.Logger, backend Backend, hasher *tokencrypto.KeyedHasher, window time.Duration) (c *Cache, err error) {
	if window <= 0 {
		window = DefaultWindow
	}

	c = &Cache{
		logger:  logger,
		hasher:  hasher,
		window:  window,
		backend: backend,
		legacy:  make(map[string]Entry),
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]Entry)}
	}

	entries, err := backend.loadAll()
	if err != nil {
		c = nil
		return
	}

	now := timeNow()
	var stale []string
	for key, e := range entries {
		if isLegacyKey(key) {
			if c.expired(e, now) {
				stale = append(stale, key)
				continue
			}
			c.legacy[key] = e
			continue
		}
		c.shardFor(key).entries[key] = e
	}

	if len(stale) > 0 {
		logger.Info().Int("staleLegacyEntries", len(stale)).Msg("Dropping expired salted reputation cache entries")
		if err := backend.remove(stale, c.snapshot); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove expired salted reputation cache entries")
		}
	}
	if len(c.legacy) > 0 {
		logger.Info().Int("legacyEntries", len(c.legacy)).Msg("Reputation cache contains salted entries, they will be migrated on first hit")
	}
	return
}

// Lookup returns the trusted verdict for clientID, or Unknown if there is none or it is older than the window.
func (c *Cache) Lookup(clientID string, now time.Time) Verdict {
	key := c.hasher.Sum(clientID)

	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		e, ok = c.migrateLegacy(clientID, key, now)
		if !ok {
			return Unknown
		}
	}

	if c.expired(e, now) {
		return Unknown
	}
	if e.Spammer {
		return Spammer
	}
	return Clean
}

// Record stores a fresh verdict for clientID, replacing any previous one, and persists it.
func (c *Cache) Record(clientID string, spammer bool, now time.Time) error {
	key := c.hasher.Sum(clientID)
	e := Entry{Spammer: spammer, Time: now.Unix()}

	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()

	return c.backend.put(key, e, "", c.snapshot)
}

// Len returns the number of entries held, including legacy ones.
func (c *Cache) Len() (n int) {
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	c.legacyMu.RLock()
	n += len(c.legacy)
	c.legacyMu.RUnlock()
	return
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.close()
}

func (c *Cache) expired(e Entry, now time.Time) bool {
	return now.Sub(time.Unix(e.Time, 0)) > c.window
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[xxh3.HashString(key)%shardCount]
}

// migrateLegacy scans the unexpired salted entries for clientID and moves a match to its keyed form.
// The scan gives up after legacyScanBudget and the client is then verified again.
func (c *Cache) migrateLegacy(clientID string, key string, now time.Time) (e Entry, ok bool) {
	c.legacyMu.RLock()
	if len(c.legacy) == 0 {
		c.legacyMu.RUnlock()
		return
	}
	var legacyKey string
	start := time.Now()
	for k, v := range c.legacy {
		if c.expired(v, now) {
			continue
		}
		if time.Since(start) > legacyScanBudget {
			c.logger.Debug().Int("legacyEntries", len(c.legacy)).Msg("Salted reputation cache scan ran out of time")
			break
		}
		match, err := tokencrypto.CompareHash(clientID, k, nil)
		if err != nil {
			continue
		}
		if match {
			legacyKey, e, ok = k, v, true
			break
		}
	}
	c.legacyMu.RUnlock()

	if !ok {
		return
	}

	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	c.legacyMu.Lock()
	delete(c.legacy, legacyKey)
	c.legacyMu.Unlock()

	s := c.shardFor(key)
	s.mu.Lock()
	current, exists := s.entries[key]
	if !exists {
		s.entries[key] = e
	}
	s.mu.Unlock()

	// A verdict recorded meanwhile is newer than the salted one.
	if exists {
		e = current
		err := c.backend.remove([]string{legacyKey}, c.snapshot)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to remove migrated reputation cache entry")
		}
		return
	}
	if err := c.backend.put(key, e, legacyKey, c.snapshot); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist migrated reputation cache entry")
	}
	return
}

// snapshot copies every entry. Callers hold writeMutex.
func (c *Cache) snapshot() map[string]Entry {
	all := make(map[string]Entry, c.Len())
	for _, s := range c.shards {
		s.mu.RLock()
		for k, v := range s.entries {
			all[k] = v
		}
		s.mu.RUnlock()
	}
	c.legacyMu.RLock()
	for k, v := range c.legacy {
		all[k] = v
	}
	c.legacyMu.RUnlock()
	return all
}

func isLegacyKey(key string) bool {
	return strings.Contains(key, tokencrypto.HashSeparator)
}
