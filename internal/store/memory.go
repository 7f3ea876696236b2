package store

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"secretdrop/internal/infra/metrics"
)

type item struct {
	id        string
	payload   []byte
	createdAt time.Time
	size      int64
}

// MemoryStore implements Store using a map + list for FIFO eviction.
// A single mutex guards the map, the list, and the counters; every
// operation holds it only for an O(1) lookup/insert/delete, so the
// check-and-remove in Take is atomic with respect to concurrent callers.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string]*list.Element
	order *list.List // Front is oldest, Back is newest

	maxMemory int64
	maxSecret int64         // per-secret cap, 0 means only maxMemory applies
	ttl       time.Duration // 0 means secrets never expire
	curMemory int64
	genID     func() string

	createdCount   int64
	retrievedCount int64
	expiredCount   int64
	evictedCount   int64
}

// NewMemoryStore creates an in-memory vault. maxMemory caps total payload
// bytes, maxSecret caps a single payload, ttl bounds how long an
// unretrieved secret lives (0 disables expiry). The TTL sweep is driven
// by Sweep, which the caller runs in its own goroutine.
func NewMemoryStore(maxMemory, maxSecret int64, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		data:      make(map[string]*list.Element),
		order:     list.New(),
		maxMemory: maxMemory,
		maxSecret: maxSecret,
		ttl:       ttl,
		genID:     uuid.NewString,
	}
}

// Put stores the payload under a new UUIDv4 id. If memory is full, it
// evicts the oldest secrets until the payload fits.
func (s *MemoryStore) Put(_ context.Context, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}
	size := int64(len(payload))
	if size > s.maxMemory || (s.maxSecret > 0 && size > s.maxSecret) {
		return "", ErrTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Evict oldest (Front of list) until there is space.
	for s.curMemory+size > s.maxMemory {
		elem := s.order.Front()
		if elem == nil {
			break
		}
		s.removeElement(elem)
		s.evictedCount++
		metrics.SecretsEvicted.Inc()
	}

	// A collision would orphan the existing list element, so draw again.
	id := s.genID()
	for {
		if _, exists := s.data[id]; !exists {
			break
		}
		id = s.genID()
	}
	elem := s.order.PushBack(item{
		id:        id,
		payload:   payload,
		createdAt: time.Now(),
		size:      size,
	})
	s.data[id] = elem
	s.curMemory += size
	s.createdCount++
	metrics.SecretsCreated.Inc()
	metrics.VaultMemoryBytes.Set(float64(s.curMemory))

	return id, nil
}

// Take retrieves the payload and deletes it in the same critical section.
// Expired entries the sweep has not reached yet are removed lazily here
// and reported as not found.
func (s *MemoryStore) Take(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}

	it := elem.Value.(item)
	if s.expired(it, time.Now()) {
		s.removeElement(elem)
		s.expiredCount++
		metrics.SecretsExpired.Inc()
		metrics.VaultMemoryBytes.Set(float64(s.curMemory))
		return nil, ErrNotFound
	}

	s.removeElement(elem)
	s.retrievedCount++
	metrics.SecretsRetrieved.Inc()
	metrics.VaultMemoryBytes.Set(float64(s.curMemory))

	return it.payload, nil
}

// Stats returns current memory usage and lifetime counters.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		MemoryUsed:  s.curMemory,
		MemoryLimit: s.maxMemory,
		Created:     s.createdCount,
		Retrieved:   s.retrievedCount,
		Expired:     s.expiredCount,
		Evicted:     s.evictedCount,
	}
}

// Sweep prunes expired secrets every interval until ctx is cancelled.
// It returns immediately when the store has no TTL.
func (s *MemoryStore) Sweep(ctx context.Context, interval time.Duration) error {
	if s.ttl <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.prune(time.Now())
		}
	}
}

// prune removes entries older than the TTL as of now. The list is
// insertion-ordered, so it stops at the first unexpired entry.
func (s *MemoryStore) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		elem := s.order.Front()
		if elem == nil {
			break
		}
		if !s.expired(elem.Value.(item), now) {
			break
		}
		s.removeElement(elem)
		s.expiredCount++
		metrics.SecretsExpired.Inc()
	}
	metrics.VaultMemoryBytes.Set(float64(s.curMemory))
}

func (s *MemoryStore) expired(it item, now time.Time) bool {
	return s.ttl > 0 && now.Sub(it.createdAt) > s.ttl
}

// removeElement removes an element from the map and list and updates
// memory accounting. Must be called with the lock held.
func (s *MemoryStore) removeElement(elem *list.Element) {
	it := elem.Value.(item)
	s.order.Remove(elem)
	delete(s.data, it.id)
	s.curMemory -= it.size
}
