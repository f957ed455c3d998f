// Package artifacts persists stage outputs and hands back stable locators
package artifacts

import (
	"context"
	"fmt"
	"sync"
)

// Store keeps artifact bytes under a key
type Store interface {
	// Put writes data under key and returns its stable locator
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// URL returns the locator of key without touching storage
	URL(key string) string

	Delete(ctx context.Context, key string) error
}

// Object is an artifact held by MemoryStore
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps artifacts in process memory. Used for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

// NewMemoryStore creates an empty store whose locators start with baseURL
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "/storage"
	}
	return &MemoryStore{baseURL: baseURL, objects: make(map[string]Object)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty artifact key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return s.URL(key), nil
}

func (s *MemoryStore) URL(key string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns a stored artifact
func (s *MemoryStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}
