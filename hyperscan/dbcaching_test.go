package hyperscan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	hs "github.com/flier/gohs/hyperscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/testutils"
)

func TestDbCacheLoadSave(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	p := hs.NewPattern("googlebot", hs.Caseless|hs.SingleMatch)
	p.Id = 100
	patterns := []*hs.Pattern{p}
	db, err := hs.NewBlockDatabase(patterns...)
	require.Nil(t, err)
	defer db.Close()
	fs := newMockCacheFilesystem()
	cache := NewDbCache(testutils.NewTestLogger(t), fs)

	// Act
	cacheID := cache.cacheID(patterns)
	cache.saveToCache(cacheID, db)
	db2 := cache.loadFromCache(cacheID)

	// Assert
	require.NotNil(t, db2)
	defer db2.Close()
	assert.Equal(1, fs.writeFileCalled)
	assert.Contains(fs.files, "/mycachedir/"+cacheID)

	scratch, err := hs.NewScratch(db2)
	require.Nil(t, err)
	defer scratch.Free()

	found := false
	handler := func(id uint, from, to uint64, flags uint, context interface{}) error {
		if id == 100 {
			found = true
		}
		return nil
	}
	err = db2.Scan([]byte("Mozilla/5.0 (compatible; GoogleBot/2.1)"), scratch, handler, nil)
	assert.Nil(err)
	assert.True(found)
}

func TestDbCacheIDDependsOnPatterns(t *testing.T) {
	assert := assert.New(t)

	cache := NewDbCache(testutils.NewTestLogger(t), newMockCacheFilesystem())
	a := hs.NewPattern("bingbot", hs.Caseless)
	b := hs.NewPattern("yandex", hs.Caseless)

	assert.Equal(cache.cacheID([]*hs.Pattern{a}), cache.cacheID([]*hs.Pattern{a}))
	assert.NotEqual(cache.cacheID([]*hs.Pattern{a}), cache.cacheID([]*hs.Pattern{b}))
	assert.Len(cache.cacheID([]*hs.Pattern{a}), 64)
}

func TestDbCacheMissReturnsNil(t *testing.T) {
	cache := NewDbCache(testutils.NewTestLogger(t), newMockCacheFilesystem())

	assert.Nil(t, cache.loadFromCache("unknown"))
}

func TestDbCacheCorruptEntryReturnsNil(t *testing.T) {
	fs := newMockCacheFilesystem()
	fs.files["/mycachedir/bad"] = []byte("not a database")
	cache := NewDbCache(testutils.NewTestLogger(t), fs)

	assert.Nil(t, cache.loadFromCache("bad"))
}

func TestDbCacheUnusableDirSkipsWrite(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	db, err := hs.NewBlockDatabase(hs.NewPattern("spider", 0))
	require.Nil(t, err)
	defer db.Close()
	fs := newMockCacheFilesystem()
	fs.mkdirErr = errors.New("read-only file system")
	cache := NewDbCache(testutils.NewTestLogger(t), fs)

	// Act
	cache.saveToCache("id", db)

	// Assert
	assert.Equal(1, fs.mkdirCalled)
	assert.Equal(0, fs.writeFileCalled)
}

func TestCacheFileSystemImpl(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	dir := filepath.Join(t.TempDir(), "hyperscancache")
	fs := NewCacheFileSystem(dir)

	// Act
	require.Nil(t, fs.mkdirAll(fs.cacheDir()))
	err := fs.writeFileAtomic(filepath.Join(dir, "x"), []byte("db"))
	data, readErr := fs.readFile(filepath.Join(dir, "x"))

	// Assert
	assert.Nil(err)
	assert.Nil(readErr)
	assert.Equal("db", string(data))
	entries, _ := os.ReadDir(dir)
	assert.Len(entries, 1)
}

type mockCacheFilesystem struct {
	files           map[string][]byte
	mkdirErr        error
	mkdirCalled     int
	writeFileCalled int
}

func newMockCacheFilesystem() *mockCacheFilesystem {
	return &mockCacheFilesystem{files: make(map[string][]byte)}
}

func (c *mockCacheFilesystem) readFile(filename string) ([]byte, error) {
	bb, ok := c.files[filename]
	if !ok {
		return nil, os.ErrNotExist
	}
	return bb, nil
}

func (c *mockCacheFilesystem) writeFileAtomic(filename string, data []byte) error {
	c.writeFileCalled++
	c.files[filename] = data
	return nil
}

func (c *mockCacheFilesystem) mkdirAll(dir string) error {
	c.mkdirCalled++
	return c.mkdirErr
}

func (c *mockCacheFilesystem) cacheDir() string { return "/mycachedir" }
