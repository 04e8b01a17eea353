package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/neuroscan-api/internal/domain"
)

// Objects is an in-memory stand-in for the S3 upload bucket.
type Objects struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewObjects() *Objects {
	return &Objects{blobs: make(map[string][]byte)}
}

func (s *Objects) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = b
	return "mem://" + key, nil
}

func (s *Objects) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *Objects) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
