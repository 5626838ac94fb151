package reputationcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultFileName is the name of the JSON cache file inside the data directory.
const DefaultFileName = "stopforumspamcache.json"

var bucketName = []byte("stopforumspam")

// Backend persists cache entries. JSONFile and Bolt implement it.
type Backend interface {
	loadAll() (map[string]Entry, error)

	// put persists e under key and drops removeKey if it is not empty. all returns the full content
	// for backends that rewrite everything.
	put(key string, e Entry, removeKey string, all func() map[string]Entry) error

	// remove drops keys. all is the content left after the removal.
	remove(keys []string, all func() map[string]Entry) error
	close() error
}

// JSONFile keeps the whole cache in one JSON object keyed by client hash.
type JSONFile struct {
	path string
}

// NewJSONFile creates a backend writing to path. The file is created on the first update.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (f *JSONFile) loadAll() (entries map[string]Entry, err error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		entries, err = make(map[string]Entry), nil
		return
	}
	if err != nil {
		return
	}

	entries = make(map[string]Entry)
	if err = json.Unmarshal(data, &entries); err != nil {
		err = fmt.Errorf("reputation cache file %v is corrupt: %w", f.path, err)
	}
	return
}

func (f *JSONFile) put(key string, e Entry, removeKey string, all func() map[string]Entry) error {
	return f.write(all())
}

func (f *JSONFile) remove(keys []string, all func() map[string]Entry) error {
	return f.write(all())
}

func (f *JSONFile) write(entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *JSONFile) close() error {
	return nil
}

// Bolt stores one record per client in a bolt database.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens or creates the database at path. timeout bounds waiting for the file lock.
func NewBolt(path string, timeout time.Duration) (b *Bolt, err error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return
	}

	b = &Bolt{db: db}
	return
}

func (b *Bolt) loadAll() (entries map[string]Entry, err error) {
	entries = make(map[string]Entry)
	err = b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("reputation cache record %q is corrupt: %w", k, err)
			}
			entries[string(k)] = e
			return nil
		})
	})
	return
}

func (b *Bolt) put(key string, e Entry, removeKey string, all func() map[string]Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if removeKey != "" {
			if err := bucket.Delete([]byte(removeKey)); err != nil {
				return err
			}
		}
		return bucket.Put([]byte(key), data)
	})
}

func (b *Bolt) remove(keys []string, all func() map[string]Entry) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for _, k := range keys {
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Bolt) close() error {
	return b.db.Close()
}
