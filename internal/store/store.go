package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mmcdole/reel/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketItems    = []byte("items")
	bucketChildren = []byte("children") // {parentID}/{childID} -> kind
	bucketServers  = []byte("servers")  // {serverID}/{kind}/{itemID} -> nil
	bucketSources  = []byte("sources")  // {itemID}/{seq} -> Source
	bucketSegments = []byte("segments") // {itemID} -> []Segment
	bucketUserData = []byte("userdata") // {userID}/{itemID} -> UserData

	allBuckets = [][]byte{bucketItems, bucketChildren, bucketServers, bucketSources, bucketSegments, bucketUserData}
)

const defaultHotCacheSize = 2048

var _ domain.Store = (*Store)(nil)

// Store implements domain.Store using BoltDB.
// bbolt runs one writer at a time, so mutations of the same (item, user)
// row are serialized while read transactions proceed concurrently.
type Store struct {
	db *bolt.DB

	// Hot-path reads, promoted on access and written through on update.
	// Writers hold mu across commit and cache update; cache misses hold it
	// shared across the read and the fill, so the cache never lags a commit.
	mu    sync.RWMutex
	cache *lru.Cache[string, []byte]
}

// Open opens (or creates) the cache database for a server under baseCacheDir
func Open(baseCacheDir, serverURL string) (*Store, error) {
	if baseCacheDir == "" {
		return nil, errors.New("cache directory is required")
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return OpenFile(filepath.Join(dir, "reel.db"))
}

// OpenFile opens the cache database at an explicit path
func OpenFile(dbPath string) (*Store, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	// Create buckets
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

	cache, err := lru.New[string, []byte](defaultHotCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: cache}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *Store) Close() error {
	return s.db.Close()
}

// === Generic helpers ===

func cacheKey(bucket []byte, key string) string {
	return string(bucket) + ":" + key
}

func (s *Store) get(bucket []byte, key string, dest interface{}) (bool, error) {
	ck := cacheKey(bucket, key)

	if data, ok := s.cache.Get(ck); ok {
		return true, json.Unmarshal(data, dest)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return false, err
	}

	s.cache.Add(ck, data)
	return true, json.Unmarshal(data, dest)
}

func (s *Store) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
	if err != nil {
		return err
	}

	s.cache.Add(cacheKey(bucket, key), data)
	return nil
}

// scan decodes every value under prefix into a fresh T
func scan[T any](db *bolt.DB, bucket []byte, prefix string) ([]T, error) {
	var out []T
	err := db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var t T
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("failed to decode %s/%s: %w", bucket, k, err)
			}
			out = append(out, t)
		}
		return nil
	})
	return out, err
}

// keys returns every key under prefix with the prefix stripped
func (s *Store) keys(bucket []byte, prefix string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			out = append(out, string(k[len(p):]))
		}
		return nil
	})
	return out, err
}

// === Items ===

func (s *Store) GetItem(itemID uuid.UUID) (domain.Item, bool, error) {
	var item domain.Item
	ok, err := s.get(bucketItems, itemID.String(), &item)
	return item, ok, err
}

// SaveItem inserts or replaces an item row and its parent/server index entries
func (s *Store) SaveItem(item domain.Item) error {
	if item.ID == uuid.Nil {
		return errors.New("item id is required")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketItems).Put([]byte(item.ID.String()), data); err != nil {
			return err
		}
		if parent := item.ContainerID(); parent != uuid.Nil {
			key := parent.String() + "/" + item.ID.String()
			if err := tx.Bucket(bucketChildren).Put([]byte(key), []byte(item.Kind.String())); err != nil {
				return err
			}
		}
		if item.ServerID != "" {
			key := fmt.Sprintf("%s/%s/%s", item.ServerID, item.Kind, item.ID)
			if err := tx.Bucket(bucketServers).Put([]byte(key), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Add(cacheKey(bucketItems, item.ID.String()), data)
	return nil
}

func (s *Store) UpdateItem(item domain.Item) (bool, error) {
	_, ok, err := s.GetItem(item.ID)
	if err != nil || !ok {
		return false, err
	}
	return true, s.SaveItem(item)
}

// DeleteItem removes an item row together with its sources, segments and index entries
func (s *Store) DeleteItem(itemID uuid.UUID) error {
	item, ok, err := s.GetItem(itemID)
	if err != nil || !ok {
		return err
	}

	id := itemID.String()
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketItems).Delete([]byte(id)); err != nil {
			return err
		}
		if parent := item.ContainerID(); parent != uuid.Nil {
			if err := tx.Bucket(bucketChildren).Delete([]byte(parent.String() + "/" + id)); err != nil {
				return err
			}
		}
		if item.ServerID != "" {
			key := fmt.Sprintf("%s/%s/%s", item.ServerID, item.Kind, id)
			if err := tx.Bucket(bucketServers).Delete([]byte(key)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketSegments).Delete([]byte(id)); err != nil {
			return err
		}
		return deletePrefix(tx.Bucket(bucketSources), id+"/")
	})

	s.cache.Remove(cacheKey(bucketItems, id))
	s.cache.Remove(cacheKey(bucketSegments, id))
	return err
}

// deletePrefix collects keys first; deleting under a live cursor skips entries
func deletePrefix(b *bolt.Bucket, prefix string) error {
	var keys [][]byte
	c := b.Cursor()
	p := []byte(prefix)
	for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// GetChildren returns the cached children of parentID of the given kind.
// Seasons sort by season number, episodes by (season, episode), others by name.
func (s *Store) GetChildren(parentID uuid.UUID, kind domain.ItemKind) ([]domain.Item, error) {
	ids, err := s.keys(bucketChildren, parentID.String()+"/")
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		item, ok, err := s.GetItem(id)
		if err != nil {
			return nil, err
		}
		if ok && item.Kind == kind {
			items = append(items, item)
		}
	}

	sortItems(items)
	return items, nil
}

// ListByServer returns the cached items of a kind that belong to serverID
func (s *Store) ListByServer(serverID string, kind domain.ItemKind) ([]domain.Item, error) {
	ids, err := s.keys(bucketServers, fmt.Sprintf("%s/%s/", serverID, kind))
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		item, ok, err := s.GetItem(id)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}

	sortItems(items)
	return items, nil
}

func sortItems(items []domain.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.Episode != nil && b.Episode != nil:
			if a.Episode.ParentIndexNumber != b.Episode.ParentIndexNumber {
				return a.Episode.ParentIndexNumber < b.Episode.ParentIndexNumber
			}
			return a.Episode.IndexNumber < b.Episode.IndexNumber
		case a.Season != nil && b.Season != nil:
			return a.Season.IndexNumber < b.Season.IndexNumber
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	})
}

// === Sources (key: {itemID}/{seq}) ===

// GetSources returns the locally stored sources of an item in insertion order
func (s *Store) GetSources(itemID uuid.UUID) ([]domain.Source, error) {
	return scan[domain.Source](s.db, bucketSources, itemID.String()+"/")
}

// SaveSource appends a local source row. Saving an existing source ID
// replaces that row in place and keeps its position.
func (s *Store) SaveSource(src domain.Source) error {
	if src.ItemID == uuid.Nil || src.ID == "" {
		return errors.New("source requires item id and source id")
	}
	src.Origin = domain.SourceLocal
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		key, _, err := findSource(b, src.ItemID, src.ID)
		if err != nil {
			return err
		}
		if key == nil {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			key = []byte(fmt.Sprintf("%s/%020d", src.ItemID, seq))
		}
		return b.Put(key, data)
	})
}

// MarkSourceDownloaded records that a local source's file is complete at path
func (s *Store) MarkSourceDownloaded(itemID uuid.UUID, sourceID, path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		key, src, err := findSource(b, itemID, sourceID)
		if err != nil {
			return err
		}
		if key == nil {
			return fmt.Errorf("source %s of item %s: %w", sourceID, itemID, domain.ErrItemNotFound)
		}
		src.Path = path
		src.Downloaded = true
		data, err := json.Marshal(src)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// findSource returns the key and row of sourceID under itemID, or a nil key
func findSource(b *bolt.Bucket, itemID uuid.UUID, sourceID string) ([]byte, domain.Source, error) {
	c := b.Cursor()
	p := []byte(itemID.String() + "/")
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		var src domain.Source
		if err := json.Unmarshal(v, &src); err != nil {
			return nil, domain.Source{}, err
		}
		if src.ID == sourceID {
			return append([]byte(nil), k...), src, nil
		}
	}
	return nil, domain.Source{}, nil
}

// === Segments (key: {itemID}) ===

func (s *Store) GetSegments(itemID uuid.UUID) ([]domain.Segment, error) {
	var segments []domain.Segment
	_, err := s.get(bucketSegments, itemID.String(), &segments)
	return segments, err
}

func (s *Store) SaveSegments(itemID uuid.UUID, segments []domain.Segment) error {
	return s.set(bucketSegments, itemID.String(), segments)
}

// === User data (key: {userID}/{itemID}) ===

func userDataKey(userID, itemID uuid.UUID) string {
	return userID.String() + "/" + itemID.String()
}

func (s *Store) GetUserData(userID, itemID uuid.UUID) (domain.UserData, bool, error) {
	var ud domain.UserData
	ok, err := s.get(bucketUserData, userDataKey(userID, itemID), &ud)
	return ud, ok, err
}

func (s *Store) MutateUserData(userID, itemID uuid.UUID, fn func(*domain.UserData)) (domain.UserData, error) {
	key := userDataKey(userID, itemID)
	var (
		ud   domain.UserData
		data []byte
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUserData)
		if v := b.Get([]byte(key)); v != nil {
			if err := json.Unmarshal(v, &ud); err != nil {
				return err
			}
		}
		fn(&ud)
		ud.Revision++

		var err error
		data, err = json.Marshal(ud)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return domain.UserData{}, err
	}

	s.cache.Add(cacheKey(bucketUserData, key), data)
	return ud, nil
}

func (s *Store) ListToBeSynced(userID uuid.UUID) ([]domain.PendingUserData, error) {
	var pending []domain.PendingUserData
	prefix := []byte(userID.String() + "/")

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketUserData).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var ud domain.UserData
			if err := json.Unmarshal(v, &ud); err != nil {
				return err
			}
			if !ud.ToBeSynced {
				continue
			}
			itemID, err := uuid.Parse(string(k[len(prefix):]))
			if err != nil {
				continue
			}
			pending = append(pending, domain.PendingUserData{UserID: userID, ItemID: itemID, UserData: ud})
		}
		return nil
	})
	return pending, err
}

func (s *Store) ClearToBeSynced(userID, itemID uuid.UUID, revision uint64) (bool, error) {
	key := userDataKey(userID, itemID)
	cleared := false
	var data []byte

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUserData)
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		var ud domain.UserData
		if err := json.Unmarshal(v, &ud); err != nil {
			return err
		}
		if ud.Revision != revision {
			return nil
		}
		ud.ToBeSynced = false
		var err error
		if data, err = json.Marshal(ud); err != nil {
			return err
		}
		cleared = true
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return false, err
	}

	if cleared {
		s.cache.Add(cacheKey(bucketUserData, key), data)
	}
	return cleared, nil
}
