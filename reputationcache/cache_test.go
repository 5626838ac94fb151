package reputationcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/testutils"
	"riskgate/tokencrypto"
)

type mockPersister struct {
	mu         sync.Mutex
	initial    map[string]Entry
	loadErr    error
	putCalled  int
	lastKey    string
	lastEntry  Entry
	lastRemove string
	lastAll    map[string]Entry

	removeCalled int
	removed      []string
}

func (m *mockPersister) loadAll() (map[string]Entry, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	entries := make(map[string]Entry, len(m.initial))
	for k, v := range m.initial {
		entries[k] = v
	}
	return entries, nil
}

func (m *mockPersister) put(key string, e Entry, removeKey string, all func() map[string]Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalled++
	m.lastKey = key
	m.lastEntry = e
	m.lastRemove = removeKey
	m.lastAll = all()
	return nil
}

func (m *mockPersister) remove(keys []string, all func() map[string]Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalled++
	m.removed = append(m.removed, keys...)
	m.lastAll = all()
	return nil
}

func (m *mockPersister) close() error {
	return nil
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T, p Backend) *Cache {
	timeNow = func() time.Time { return testNow }
	t.Cleanup(func() { timeNow = time.Now })

	c, err := NewCache(testutils.NewTestLogger(t), p, tokencrypto.NewKeyedHasher([]byte("test secret")), 0)
	require.Nil(t, err)
	return c
}

func TestLookupUnknownWhenEmpty(t *testing.T) {
	c := newTestCache(t, &mockPersister{})

	assert.Equal(t, Unknown, c.Lookup("203.0.113.7", testNow))
}

func TestRecordThenLookup(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	p := &mockPersister{}
	c := newTestCache(t, p)

	// Act
	err1 := c.Record("203.0.113.7", true, testNow)
	err2 := c.Record("203.0.113.8", false, testNow)

	// Assert
	assert.Nil(err1)
	assert.Nil(err2)
	assert.Equal(Spammer, c.Lookup("203.0.113.7", testNow))
	assert.Equal(Clean, c.Lookup("203.0.113.8", testNow))
	assert.Equal(Unknown, c.Lookup("203.0.113.9", testNow))
	assert.Equal(2, p.putCalled)
	assert.Len(p.lastAll, 2)
}

func TestRecordDoesNotStorePlainIdentifier(t *testing.T) {
	assert := assert.New(t)

	p := &mockPersister{}
	c := newTestCache(t, p)

	c.Record("203.0.113.7", true, testNow)

	assert.NotContains(p.lastKey, "203.0.113.7")
	for k := range p.lastAll {
		assert.NotContains(k, "203.0.113")
	}
}

func TestRecordReplacesPriorEntry(t *testing.T) {
	assert := assert.New(t)

	c := newTestCache(t, &mockPersister{})
	c.Record("203.0.113.7", true, testNow.Add(-time.Hour))

	c.Record("203.0.113.7", false, testNow)

	assert.Equal(Clean, c.Lookup("203.0.113.7", testNow))
	assert.Equal(1, c.Len())
}

func TestLookupStaleness(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	c := newTestCache(t, &mockPersister{})
	c.Record("old", true, testNow.Add(-8*24*time.Hour))
	c.Record("fresh", true, testNow.Add(-time.Hour))

	// Act & Assert
	assert.Equal(Unknown, c.Lookup("old", testNow))
	assert.Equal(Spammer, c.Lookup("fresh", testNow))
}

func TestLegacyEntryMigratedOnFirstHit(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	legacyKey, err := tokencrypto.Hash("203.0.113.7", nil, 0)
	require.Nil(t, err)
	p := &mockPersister{initial: map[string]Entry{legacyKey: {Spammer: true, Time: testNow.Add(-time.Hour).Unix()}}}
	c := newTestCache(t, p)

	// Act
	first := c.Lookup("203.0.113.7", testNow)
	second := c.Lookup("203.0.113.7", testNow)

	// Assert
	assert.Equal(Spammer, first)
	assert.Equal(Spammer, second)
	assert.Equal(1, p.putCalled)
	assert.Equal(legacyKey, p.lastRemove)
	assert.NotContains(p.lastAll, legacyKey)
	assert.Len(p.lastAll, 1)
}

func TestLegacyEntryOtherClientNotMatched(t *testing.T) {
	assert := assert.New(t)

	legacyKey, _ := tokencrypto.Hash("203.0.113.7", nil, 0)
	p := &mockPersister{initial: map[string]Entry{legacyKey: {Spammer: true, Time: testNow.Unix()}}}
	c := newTestCache(t, p)

	assert.Equal(Unknown, c.Lookup("203.0.113.8", testNow))
	assert.Equal(0, p.putCalled)
}

func TestExpiredLegacyEntriesDroppedAtLoad(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	freshKey, err := tokencrypto.Hash("203.0.113.7", nil, 0)
	require.Nil(t, err)
	initial := map[string]Entry{freshKey: {Spammer: true, Time: testNow.Add(-time.Hour).Unix()}}
	for i := 0; i < 500; i++ {
		initial[fmt.Sprintf("salt%d%shash%d", i, tokencrypto.HashSeparator, i)] = Entry{Time: testNow.Add(-30 * 24 * time.Hour).Unix()}
	}
	p := &mockPersister{initial: initial}

	// Act
	c := newTestCache(t, p)
	other := c.Lookup("198.51.100.1", testNow)
	known := c.Lookup("203.0.113.7", testNow)

	// Assert
	assert.Equal(1, p.removeCalled)
	assert.Len(p.removed, 500)
	assert.NotContains(p.removed, freshKey)
	assert.Equal(Unknown, other)
	assert.Equal(Spammer, known)
	assert.Equal(1, c.Len())
}

func TestLegacyEntryExpiredSinceLoadNotCompared(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	legacyKey, err := tokencrypto.Hash("203.0.113.7", nil, 0)
	require.Nil(t, err)
	p := &mockPersister{initial: map[string]Entry{legacyKey: {Spammer: true, Time: testNow.Add(-time.Hour).Unix()}}}
	c := newTestCache(t, p)

	// Act
	verdict := c.Lookup("203.0.113.7", testNow.Add(DefaultWindow))

	// Assert
	assert.Equal(Unknown, verdict)
	assert.Equal(0, p.putCalled)
	assert.Equal(1, c.Len())
}

func TestLegacyMigrationKeepsNewerVerdict(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	legacyKey, err := tokencrypto.Hash("203.0.113.7", nil, 0)
	require.Nil(t, err)
	p := &mockPersister{initial: map[string]Entry{legacyKey: {Spammer: true, Time: testNow.Add(-time.Hour).Unix()}}}
	c := newTestCache(t, p)
	key := c.hasher.Sum("203.0.113.7")
	newer := Entry{Spammer: false, Time: testNow.Unix()}
	// Recorded by another request after this one missed the shard.
	c.shardFor(key).entries[key] = newer

	// Act
	e, ok := c.migrateLegacy("203.0.113.7", key, testNow)

	// Assert
	assert.True(ok)
	assert.Equal(newer, e)
	assert.Equal(0, p.putCalled)
	assert.Equal(1, p.removeCalled)
	assert.Equal([]string{legacyKey}, p.removed)
	assert.Equal(newer, p.lastAll[key])
	assert.NotContains(p.lastAll, legacyKey)
	assert.Equal(Clean, c.Lookup("203.0.113.7", testNow))
}

func TestNewCacheLoadError(t *testing.T) {
	assert := assert.New(t)

	c, err := NewCache(testutils.NewTestLogger(t), &mockPersister{loadErr: errors.New("boom")}, tokencrypto.NewKeyedHasher([]byte("s")), 0)

	assert.Nil(c)
	assert.Error(err)
}

func TestConcurrentRecordsAreNotLost(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	p := &mockPersister{}
	c := newTestCache(t, p)
	var wg sync.WaitGroup

	// Act
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Record(fmt.Sprintf("198.51.100.%d", i), i%2 == 0, testNow)
			c.Lookup(fmt.Sprintf("198.51.100.%d", i), testNow)
		}(i)
	}
	wg.Wait()

	// Assert
	assert.Equal(50, c.Len())
	assert.Equal(50, p.putCalled)
	assert.Len(p.lastAll, 50)
}

func TestJSONFileBackend(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	path := filepath.Join(t.TempDir(), DefaultFileName)
	c := newTestCache(t, NewJSONFile(path))

	// Act
	require.Nil(t, c.Record("203.0.113.7", true, testNow))
	reopened := newTestCache(t, NewJSONFile(path))

	// Assert
	assert.Equal(Spammer, reopened.Lookup("203.0.113.7", testNow))
	data, err := os.ReadFile(path)
	assert.Nil(err)
	assert.Contains(string(data), `"spammer":true`)
	assert.Contains(string(data), fmt.Sprintf(`"time":%d`, testNow.Unix()))
}

func TestJSONFileBackendCorrupt(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), DefaultFileName)
	os.WriteFile(path, []byte("{nope"), 0644)

	_, err := NewCache(testutils.NewTestLogger(t), NewJSONFile(path), tokencrypto.NewKeyedHasher([]byte("s")), 0)

	assert.Error(err)
}

func TestJSONFileBackendReadsLegacyFile(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	legacyKey, _ := tokencrypto.Hash("2001:db8::1", nil, 0)
	path := filepath.Join(t.TempDir(), DefaultFileName)
	content := fmt.Sprintf(`{%q: {"spammer": false, "time": %d}}`, legacyKey, testNow.Add(-time.Hour).Unix())
	require.Nil(t, os.WriteFile(path, []byte(content), 0644))
	c := newTestCache(t, NewJSONFile(path))

	// Act
	verdict := c.Lookup("2001:db8::1", testNow)

	// Assert
	assert.Equal(Clean, verdict)
	data, _ := os.ReadFile(path)
	assert.NotContains(string(data), legacyKey)
}

func TestBoltBackend(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	path := filepath.Join(t.TempDir(), "cache.db")
	b, err := NewBolt(path, time.Second)
	require.Nil(t, err)
	c := newTestCache(t, b)

	// Act
	require.Nil(t, c.Record("203.0.113.7", true, testNow))
	require.Nil(t, c.Record("203.0.113.8", false, testNow))
	require.Nil(t, c.Close())

	b2, err := NewBolt(path, time.Second)
	require.Nil(t, err)
	reopened := newTestCache(t, b2)
	defer reopened.Close()

	// Assert
	assert.Equal(Spammer, reopened.Lookup("203.0.113.7", testNow))
	assert.Equal(Clean, reopened.Lookup("203.0.113.8", testNow))
	assert.Equal(2, reopened.Len())
}

func TestBoltBackendRemovesExpiredLegacyEntries(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	path := filepath.Join(t.TempDir(), "cache.db")
	b, err := NewBolt(path, time.Second)
	require.Nil(t, err)
	staleKey := "c2FsdA==" + tokencrypto.HashSeparator + "00ff"
	stale := Entry{Spammer: true, Time: testNow.Add(-30 * 24 * time.Hour).Unix()}
	require.Nil(t, b.put(staleKey, stale, "", nil))

	// Act
	c := newTestCache(t, b)
	require.Nil(t, c.Close())
	b2, err := NewBolt(path, time.Second)
	require.Nil(t, err)
	defer b2.close()
	entries, err := b2.loadAll()

	// Assert
	assert.Nil(err)
	assert.Empty(entries)
}

func TestVerdictString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("unknown", Unknown.String())
	assert.Equal("clean", Clean.String())
	assert.Equal("spammer", Spammer.String())
}
