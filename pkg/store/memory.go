package store

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-process Storage backed by a map. It is intended for
// tests and single-shot runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	updatedAt time.Time
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStorage) Get(_ context.Context, p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[p]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

func (s *MemoryStorage) Set(_ context.Context, p string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	s.mu.Lock()
	s.entries[p] = memoryEntry{data: stored, updatedAt: time.Now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Find(ctx context.Context, pattern string) (<-chan Metadata, error) {
	s.mu.RLock()
	matches := make([]Metadata, 0)
	for p, entry := range s.entries {
		ok, err := path.Match(pattern, p)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if ok {
			matches = append(matches, Metadata{
				Path:      p,
				Size:      int64(len(entry.data)),
				UpdatedAt: entry.updatedAt,
			})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Path < matches[j].Path
	})

	out := make(chan Metadata)
	go func() {
		defer close(out)
		for _, m := range matches {
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *MemoryStorage) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}
