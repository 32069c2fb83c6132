package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/proofsheet/tablo/internal/domain"
)

// Bucket names
var (
	bucketFlags     = []byte("flags")
	bucketSnapshots = []byte("snapshots")
)

var allBuckets = [][]byte{bucketFlags, bucketSnapshots}

// UIStore persists client-side UI state with BoltDB: the per-project
// "step info shown" flags and the last server-confirmed snapshot per
// gallery. It implements domain.StepInfoStore and domain.SnapshotCache.
type UIStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewUIStore opens the store under baseDir, one database per server.
// An empty baseDir gives a memory-only store.
func NewUIStore(baseDir, serverURL string) (*UIStore, error) {
	if baseDir == "" {
		return &UIStore{cache: make(map[string][]byte)}, nil
	}

	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "tablo.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &UIStore{db: db, cache: make(map[string][]byte)}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *UIStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *UIStore) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

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
		return false
	}

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *UIStore) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// deletePrefix removes every key in bucket starting with prefix and
// reports how many were removed.
func (s *UIStore) deletePrefix(bucket []byte, prefix string) (int, error) {
	removed := 0
	s.mu.Lock()
	cachePrefix := string(bucket) + ":" + prefix
	for k := range s.cache {
		if strings.HasPrefix(k, cachePrefix) {
			delete(s.cache, k)
			removed++
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return removed, nil
	}

	removed = 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		var keys [][]byte
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	return removed, err
}

// === Step info flags (key: tablo:{projectId}:ui:step_info_shown:{step}) ===

func stepInfoPrefix(projectID int) string {
	return fmt.Sprintf("tablo:%d:ui:step_info_shown:", projectID)
}

// IsStepInfoShown reports whether the step's info dialog was shown for the project
func (s *UIStore) IsStepInfoShown(projectID int, step domain.Step) bool {
	var shown bool
	return s.get(bucketFlags, stepInfoPrefix(projectID)+string(step), &shown) && shown
}

// SetStepInfoShown records that the step's info dialog was shown
func (s *UIStore) SetStepInfoShown(projectID int, step domain.Step) error {
	return s.set(bucketFlags, stepInfoPrefix(projectID)+string(step), true)
}

// ResetStepInfo forgets the shown flags of one project, or of every
// project when projectID is 0.
func (s *UIStore) ResetStepInfo(projectID int) (int, error) {
	prefix := "tablo:"
	if projectID != 0 {
		prefix = stepInfoPrefix(projectID)
	}
	return s.deletePrefix(bucketFlags, prefix)
}

// === Snapshots (key: gallery:{galleryId}) ===

func snapshotKey(galleryID int) string {
	return fmt.Sprintf("gallery:%d", galleryID)
}

// GetSnapshot returns the last confirmed snapshot of the gallery
func (s *UIStore) GetSnapshot(galleryID int) (*domain.StepData, bool) {
	var data domain.StepData
	if !s.get(bucketSnapshots, snapshotKey(galleryID), &data) {
		return nil, false
	}
	return &data, true
}

// SaveSnapshot stores a server-confirmed snapshot of the gallery
func (s *UIStore) SaveSnapshot(galleryID int, data *domain.StepData) error {
	if data == nil {
		return nil
	}
	return s.set(bucketSnapshots, snapshotKey(galleryID), data)
}

// InvalidateSnapshots drops every cached snapshot
func (s *UIStore) InvalidateSnapshots() error {
	_, err := s.deletePrefix(bucketSnapshots, "gallery:")
	return err
}

var (
	_ domain.StepInfoStore = (*UIStore)(nil)
	_ domain.SnapshotCache = (*UIStore)(nil)
)
