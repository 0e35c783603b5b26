// Package storage contains the in-memory object store used for development
// and tests. Production deployments serve objects from S3 (see s3storage).
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dharsanguruparan/VaultGate/internal/model"
)

var (
	// ErrNotFound is exported so callers elsewhere can compare errors using
	// errors.Is.
	ErrNotFound = errors.New("object not found")
)

// MemoryStore keeps objects in a map guarded by an RWMutex: reads happen on
// every granted request, writes only when seeding.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
	}
}

// Put inserts or replaces an object. An empty contentType is sniffed from the
// data.
func (m *MemoryStore) Put(key string, data []byte, contentType string) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		modTime:     time.Now().UTC(),
	}
}

// Open returns the object with a reader over its bytes.
func (m *MemoryStore) Open(_ context.Context, key string) (*model.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &model.Object{
		Key:         key,
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
		ModTime:     obj.modTime,
		Body:        nopCloser{bytes.NewReader(obj.data)},
	}, nil
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }
