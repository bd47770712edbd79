// Package cache persists computed image embeddings between builds, so a
// rebuild over a mostly unchanged directory skips model inference for
// files whose bytes did not change.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

var bucketEmbeddings = []byte("embeddings")

// Key identifies one cached embedding. It fingerprints the file identity
// (path, size, mtime) and the model that produced the vector, so a changed
// file or a switched model can never resurface a stale vector.
type Key struct {
	Path      string
	Size      int64
	ModTime   time.Time
	Model     string
	Dimension int
}

func (k Key) fingerprint() []byte {
	h := sha256.New()
	h.Write([]byte(k.Path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(k.Size, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(k.ModTime.UnixNano(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(k.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(k.Dimension)))
	return h.Sum(nil)
}

// Cache is a bbolt-backed embedding cache. Safe for concurrent use.
type Cache struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get returns the cached vector for the key. Any read problem, including a
// stored vector of unexpected size, is reported as a miss; the caller then
// recomputes and overwrites the entry.
func (c *Cache) Get(k Key) ([]float32, bool) {
	var vec []float32
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get(k.fingerprint())
		if data == nil {
			return nil
		}
		if len(data) != k.Dimension*4 {
			return nil
		}
		vec = make([]float32, k.Dimension)
		for i := range vec {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return nil
	})
	if err != nil || vec == nil {
		return nil, false
	}
	return vec, true
}

// Put stores a vector under the key.
func (c *Cache) Put(k Key, vec []float32) error {
	if len(vec) != k.Dimension {
		return fmt.Errorf("cache: vector has %d components, key says %d", len(vec), k.Dimension)
	}

	data := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put(k.fingerprint(), data)
	})
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
