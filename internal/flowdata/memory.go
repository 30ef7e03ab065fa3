package flowdata

import (
	"fmt"
	"strings"
	"sync"
)

// MemorySource is an in-memory Source backed by a fixed sample collection.
type MemorySource struct {
	channels []Channel
	samples  Collection
}

// NewMemorySource creates a Source over the given channels and samples.
func NewMemorySource(channels []Channel, samples Collection) *MemorySource {
	return &MemorySource{channels: channels, samples: samples}
}

// Samples implements Source.
func (s *MemorySource) Samples() Collection { return s.samples }

// Channels implements Source.
func (s *MemorySource) Channels() []Channel { return s.channels }

// ResolveChannels implements Source. A dimension matches first on channel
// name, then on marker, case-insensitively as a fallback.
func (s *MemorySource) ResolveChannels(dims []string) ([]string, error) {
	out := make([]string, 0, len(dims))
	for _, dim := range dims {
		name, ok := s.resolve(dim)
		if !ok {
			return nil, fmt.Errorf("cannot resolve dimension %q to a channel or marker", dim)
		}
		out = append(out, name)
	}
	return out, nil
}

func (s *MemorySource) resolve(dim string) (string, bool) {
	for _, c := range s.channels {
		if c.Name == dim || c.Marker == dim {
			return c.Name, true
		}
	}
	for _, c := range s.channels {
		if strings.EqualFold(c.Name, dim) || strings.EqualFold(c.Marker, dim) {
			return c.Name, true
		}
	}
	return "", false
}

// MemoryStore is a concurrency-safe in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]Result
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]Result)}
}

func storeKey(parent, alias string) string {
	return parent + "/" + alias
}

// Exists implements Store.
func (s *MemoryStore) Exists(parent, alias string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.results[storeKey(parent, alias)]
	return ok
}

// Put implements Store.
func (s *MemoryStore) Put(parent, alias string, res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[storeKey(parent, alias)] = res
}

// Get implements Store.
func (s *MemoryStore) Get(parent, alias string) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[storeKey(parent, alias)]
	return res, ok
}
