package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidewave/coda/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names, one per store namespace
var (
	bucketAlbums        = []byte(domain.StoreAlbums)
	bucketFavorites     = []byte(domain.StoreFavorites)
	bucketUserPlaylists = []byte(domain.StoreUserPlaylists)
)

func bucketFor(kind domain.StoreKind) []byte {
	switch kind {
	case domain.StoreAlbums:
		return bucketAlbums
	case domain.StoreFavorites:
		return bucketFavorites
	case domain.StoreUserPlaylists:
		return bucketUserPlaylists
	}
	return nil
}

// MetaStore implements domain.Store using BoltDB.
//
// BoltDB serializes writers globally, which satisfies the requirement
// that concurrent fetch-pool workers never corrupt the file. Reads may
// run concurrently. If the backing file cannot be opened the store runs
// memory-only: cold-start behavior, never fatal.
type MetaStore struct {
	db     *bolt.DB
	logger *slog.Logger
	mu     sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// Open opens or creates the metadata store under dir. An empty dir
// selects memory-only mode (no persistence).
func Open(dir string, logger *slog.Logger) (*MetaStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		return &MetaStore{cache: make(map[string][]byte), logger: logger}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "metacache.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		// Unreadable store file: behave like an empty store instead of
		// failing the whole session.
		logger.Warn("metadata store unreadable, running memory-only", "path", dbPath, "error", err)
		return &MetaStore{cache: make(map[string][]byte), logger: logger}, nil
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAlbums, bucketFavorites, bucketUserPlaylists} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare store buckets: %w", err)
	}

	return &MetaStore{db: db, cache: make(map[string][]byte), logger: logger}, nil
}

func (s *MetaStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *MetaStore) get(bucket []byte, key string) ([]byte, bool) {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return data, true
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false
	}

	// Read from BoltDB
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return nil, false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return data, true
}

func (s *MetaStore) set(bucket []byte, key string, data []byte) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *MetaStore) del(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// === domain.Store ===

func (s *MetaStore) Fetch(kind domain.StoreKind, id string) ([]byte, bool) {
	bucket := bucketFor(kind)
	if bucket == nil {
		return nil, false
	}
	return s.get(bucket, id)
}

func (s *MetaStore) Insert(kind domain.StoreKind, id string, payload []byte, overwrite bool) error {
	bucket := bucketFor(kind)
	if bucket == nil {
		return fmt.Errorf("unknown store kind %q", kind)
	}
	if !overwrite {
		if _, exists := s.get(bucket, id); exists {
			return nil
		}
	}
	return s.set(bucket, id, payload)
}

func (s *MetaStore) InsertCollection(kind domain.StoreKind, id, title string, ids []string, overwrite bool) error {
	bucket := bucketFor(kind)
	if bucket == nil {
		return fmt.Errorf("unknown store kind %q", kind)
	}
	if !overwrite {
		if _, exists := s.get(bucket, id); exists {
			return nil
		}
	}
	col := domain.Collection{ID: id, Title: title}
	if ids != nil {
		col.Items = ids
		col.HasItems = true
	}
	data, err := json.Marshal(col)
	if err != nil {
		return err
	}
	return s.set(bucket, id, data)
}

func (s *MetaStore) FetchCollection(kind domain.StoreKind, id string) (domain.Collection, bool) {
	data, ok := s.Fetch(kind, id)
	if !ok {
		return domain.Collection{}, false
	}
	var col domain.Collection
	if err := json.Unmarshal(data, &col); err != nil {
		s.logger.Warn("discarding unreadable collection entry", "kind", string(kind), "id", id, "error", err)
		return domain.Collection{}, false
	}
	return col, true
}

func (s *MetaStore) Delete(kind domain.StoreKind, id string) {
	bucket := bucketFor(kind)
	if bucket == nil {
		return
	}
	s.del(bucket, id)
}

func (s *MetaStore) DeleteAll(kind domain.StoreKind) {
	bucket := bucketFor(kind)
	if bucket == nil {
		return
	}

	s.mu.Lock()
	prefix := string(bucket) + ":"
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *MetaStore) FetchAllIDs(kind domain.StoreKind) []string {
	bucket := bucketFor(kind)
	if bucket == nil {
		return nil
	}

	ids := make([]string, 0)
	seen := make(map[string]bool)

	if s.db != nil {
		s.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucket)
			if b == nil {
				return nil
			}
			return b.ForEach(func(k, _ []byte) error {
				id := string(k)
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
				return nil
			})
		})
	}

	// Entries that exist only in memory (memory-only mode)
	s.mu.RLock()
	prefix := string(bucket) + ":"
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			id := strings.TrimPrefix(k, prefix)
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	s.mu.RUnlock()

	return ids
}

func (s *MetaStore) FetchAllCollections(kind domain.StoreKind) []domain.Collection {
	cols := make([]domain.Collection, 0)
	for _, id := range s.FetchAllIDs(kind) {
		if col, ok := s.FetchCollection(kind, id); ok {
			cols = append(cols, col)
		}
	}
	return cols
}
