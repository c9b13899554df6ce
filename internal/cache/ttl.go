package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// TTLStore is an LRU cache with per-entry TTL, size-based eviction, and a
// namespace index so prefix invalidation never scans the whole store.
//
// Keys follow the "kind:user:scope:period[:extra]" convention; the namespace
// of a key is everything up to the optional extra segment. The index maps
// each namespace to its member keys, so RemoveByPrefix walks namespaces
// (bounded by derivation kinds x users x scopes) instead of entries.
type TTLStore struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
	index   map[string]map[string]struct{} // namespace -> keys
}

type storeItem struct {
	key       string
	namespace string
	value     any
	expiresAt time.Time
}

// NewTTLStore creates a store bounded to maxSize entries.
func NewTTLStore(maxSize int) *TTLStore {
	return &TTLStore{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		index:   make(map[string]map[string]struct{}),
	}
}

// Get retrieves a value from the cache
func (s *TTLStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.items[key]
	if !exists {
		return nil, false
	}

	item := elem.Value.(*storeItem)

	// Check if expired
	if time.Now().After(item.expiresAt) {
		s.removeElement(elem)
		return nil, false
	}

	// Move to front (most recently used)
	s.lru.MoveToFront(elem)
	return item.value, true
}

// Set stores a value in the cache with its own TTL
func (s *TTLStore) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &storeItem{
		key:       key,
		namespace: Namespace(key),
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	if elem, exists := s.items[key]; exists {
		elem.Value = item
		s.lru.MoveToFront(elem)
		return
	}

	elem := s.lru.PushFront(item)
	s.items[key] = elem
	s.indexAdd(item.namespace, key)

	// Evict if over capacity
	if s.lru.Len() > s.maxSize {
		oldest := s.lru.Back()
		if oldest != nil {
			s.removeElement(oldest)
		}
	}
}

// Remove deletes a single key
func (s *TTLStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.items[key]; exists {
		s.removeElement(elem)
	}
}

// RemoveByPrefix deletes every key whose namespace starts with prefix and
// returns the number of removed entries. Clearing an already-clear prefix is
// a harmless no-op, which keeps invalidation fan-out idempotent.
func (s *TTLStore) RemoveByPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for ns, keys := range s.index {
		if !strings.HasPrefix(ns, prefix) {
			continue
		}
		for key := range keys {
			if elem, exists := s.items[key]; exists {
				s.removeElement(elem)
				removed++
			}
		}
	}
	return removed
}

// CleanExpired removes all expired entries and returns count of removed items
func (s *TTLStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element

	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*storeItem)
		if now.After(item.expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}

	for _, elem := range toRemove {
		s.removeElement(elem)
	}

	return len(toRemove)
}

// Size returns the current number of items in the cache
func (s *TTLStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *TTLStore) removeElement(elem *list.Element) {
	item := elem.Value.(*storeItem)
	delete(s.items, item.key)
	s.lru.Remove(elem)
	s.indexDrop(item.namespace, item.key)
}

func (s *TTLStore) indexAdd(ns, key string) {
	keys, ok := s.index[ns]
	if !ok {
		keys = make(map[string]struct{})
		s.index[ns] = keys
	}
	keys[key] = struct{}{}
}

func (s *TTLStore) indexDrop(ns, key string) {
	if keys, ok := s.index[ns]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.index, ns)
		}
	}
}

// Namespace returns the first four colon-separated segments of a key, the
// granularity invalidation targets. Keys with fewer segments are their own
// namespace.
func Namespace(key string) string {
	rest := key
	for i := 0; i < 4; i++ {
		j := strings.IndexByte(rest, ':')
		if j < 0 {
			return key
		}
		rest = rest[j+1:]
	}
	return key[:len(key)-len(rest)-1]
}
