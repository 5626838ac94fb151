package hyperscan

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strconv"

	hs "github.com/flier/gohs/hyperscan"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"
)

// DbCache keeps compiled Hyperscan databases on disk so a restart does not recompile them.
type DbCache interface {
	cacheID(patterns []*hs.Pattern) string
	loadFromCache(cacheID string) hs.BlockDatabase
	saveToCache(cacheID string, db hs.BlockDatabase)
}

type dbCacheImpl struct {
	logger zerolog.Logger
	fs     CacheFilesystem
}

// NewDbCache creates a DbCache using the given file system interface.
func NewDbCache(logger zerolog.Logger, fs CacheFilesystem) DbCache {
	return &dbCacheImpl{logger: logger, fs: fs}
}

// cacheID covers the library version too, as serialized databases are not portable across versions.
func (c *dbCacheImpl) cacheID(patterns []*hs.Pattern) string {
	hash := blake3.New()
	io.WriteString(hash, hs.Version())
	for _, p := range patterns {
		io.WriteString(hash, strconv.Itoa(p.Id))
		io.WriteString(hash, p.String())
		io.WriteString(hash, strconv.Itoa(int(p.Flags)))
	}

	return hex.EncodeToString(hash.Sum(nil))
}

func (c *dbCacheImpl) loadFromCache(cacheID string) hs.BlockDatabase {
	bb, err := c.fs.readFile(filepath.Join(c.fs.cacheDir(), cacheID))
	if err != nil || len(bb) == 0 {
		return nil
	}

	db, err := hs.UnmarshalBlockDatabase(bb)
	if err != nil {
		c.logger.Warn().Err(err).Str("cacheID", cacheID).Msg("Ignoring unreadable cached Hyperscan database")
		return nil
	}

	c.logger.Debug().Str("cacheID", cacheID).Msg("Loaded Hyperscan database from cache")
	return db
}

func (c *dbCacheImpl) saveToCache(cacheID string, db hs.BlockDatabase) {
	dir := c.fs.cacheDir()
	if err := c.fs.mkdirAll(dir); err != nil {
		c.logger.Warn().Err(err).Str("dir", dir).Msg("Hyperscan database cache directory is not usable")
		return
	}

	bb, err := db.Marshal()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to serialize Hyperscan database")
		return
	}

	if err = c.fs.writeFileAtomic(filepath.Join(dir, cacheID), bb); err != nil {
		c.logger.Warn().Err(err).Str("cacheID", cacheID).Msg("Failed to cache Hyperscan database")
	}
}

// CacheFilesystem is an interface with the functionality the cache needs to persist to a filesystem.
type CacheFilesystem interface {
	readFile(filename string) ([]byte, error)

	// writeFileAtomic never leaves a partially written file under filename.
	writeFileAtomic(filename string, data []byte) error
	mkdirAll(dir string) error
	cacheDir() string
}

type cacheFilesystemImpl struct {
	dir string
}

// NewCacheFileSystem creates a CacheFilesystem that keeps databases in dir on the real file system.
func NewCacheFileSystem(dir string) CacheFilesystem {
	return &cacheFilesystemImpl{dir: dir}
}

func (c *cacheFilesystemImpl) readFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

func (c *cacheFilesystemImpl) writeFileAtomic(filename string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err = f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), filename)
}

func (c *cacheFilesystemImpl) mkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (c *cacheFilesystemImpl) cacheDir() string {
	return c.dir
}
