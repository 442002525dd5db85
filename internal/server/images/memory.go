package images

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
)

const memoryURLPrefix = "memory://images/"

// MemoryStore keeps images in process memory. It backs the ephemeral store
// and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	fail    error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// FailWith makes every subsequent Put fail with err wrapped as
// ErrorBackendUnavailable. nil restores normal behavior.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *MemoryStore) Put(ctx context.Context, prefix string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorBackendUnavailable, m.fail)
	}

	key := NewStorageKey(prefix, time.Now())
	m.objects[key] = append([]byte(nil), data...)
	return memoryURLPrefix + key, nil
}

// Get returns the bytes stored under url.
func (m *MemoryStore) Get(url string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[strings.TrimPrefix(url, memoryURLPrefix)]
	return b, ok
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
