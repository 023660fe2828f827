// Package objectstore abstracts the S3-compatible store holding uploaded
// asset bytes. The relational store keeps only metadata; handlers write the
// decoded payload here and persist the resulting public URL.
package objectstore

import (
	"context"
	"sync"
)

// ObjectRef identifies a stored object and its public retrieval URL.
type ObjectRef struct {
	Key string
	URL string
}

// Storage is the contract for object persistence. Upload must be durable
// before it returns; there is no compensating delete if a later metadata
// insert fails, so orphaned objects are possible and accepted.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (ObjectRef, error)
	Delete(ctx context.Context, key string) error
}

// StoredObject captures an object recorded by the in-memory store.
type StoredObject struct {
	Key         string
	ContentType string
	Body        []byte
}

// MemoryStorage keeps objects in process memory for development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]StoredObject
}

// NewMemoryStorage constructs an empty in-memory object store. Public URLs
// are formed by joining baseURL and the object key.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://objects"
	}
	return &MemoryStorage{baseURL: baseURL, objects: make(map[string]StoredObject)}
}

// Upload records the object bytes under the provided key.
func (s *MemoryStorage) Upload(_ context.Context, key, contentType string, body []byte) (ObjectRef, error) {
	stored := StoredObject{Key: key, ContentType: contentType, Body: append([]byte(nil), body...)}
	s.mu.Lock()
	s.objects[key] = stored
	s.mu.Unlock()
	return ObjectRef{Key: key, URL: s.baseURL + "/" + key}, nil
}

// Delete removes the object under the provided key.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Get returns the stored object for assertions in tests.
func (s *MemoryStorage) Get(key string) (StoredObject, bool) {
	s.mu.RLock()
	object, ok := s.objects[key]
	s.mu.RUnlock()
	return object, ok
}

// Len reports how many objects the store holds.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
