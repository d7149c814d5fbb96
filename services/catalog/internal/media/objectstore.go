// Package media resolves presigned URLs for catalog assets held in object
// storage.
package media

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ObjectStore is the storage capability the resolver needs.
type ObjectStore interface {
	// Presign returns a time-limited GET URL for the first object whose key
	// starts with prefix. found is false when no such object exists.
	Presign(ctx context.Context, prefix string) (url string, found bool, err error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// MemoryObjectStore is an in-process ObjectStore. URLs are deterministic:
// BaseURL + key.
type MemoryObjectStore struct {
	BaseURL string

	mu       sync.Mutex
	objects  map[string][]byte
	failures map[string]error
	calls    map[string]int
	hook     func(prefix string)
}

func NewMemoryObjectStore(baseURL string, keys ...string) *MemoryObjectStore {
	s := &MemoryObjectStore{
		BaseURL:  baseURL,
		objects:  make(map[string][]byte),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, k := range keys {
		s.objects[k] = nil
	}
	return s
}

// FailPrefix makes every Presign for prefix return err.
func (s *MemoryObjectStore) FailPrefix(prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = err
}

// OnPresign installs a hook run before each lookup, outside the lock.
func (s *MemoryObjectStore) OnPresign(fn func(prefix string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Calls reports how many times prefix was looked up.
func (s *MemoryObjectStore) Calls(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[prefix]
}

func (s *MemoryObjectStore) Presign(ctx context.Context, prefix string) (string, bool, error) {
	s.mu.Lock()
	s.calls[prefix]++
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(prefix)
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failures[prefix]; ok {
		return "", false, err
	}
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false, nil
	}
	sort.Strings(keys)
	return s.BaseURL + keys[0], true, nil
}

func (s *MemoryObjectStore) Put(ctx context.Context, key string, body []byte, _ string) error {
	if key == "" {
		return fmt.Errorf("put: empty key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), body...)
	return nil
}
