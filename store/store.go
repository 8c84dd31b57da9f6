// Package store writes transcoded artifacts to a Lode store (local
// directory or S3).
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// Writer persists a finished artifact under a key.
type Writer interface {
	// Put writes data at name, replacing any previous artifact there.
	Put(ctx context.Context, name string, data []byte) error
}

// LodeWriter is a Writer over a lode.StoreFactory. The store is created
// lazily on first use and reused.
type LodeWriter struct {
	factory lode.StoreFactory
	prefix  string
	backend string

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

var _ Writer = (*LodeWriter)(nil)

// NewLodeWriter creates a writer whose keys are placed under prefix.
// backend is a label for logs and metrics ("fs", "s3", "memory").
func NewLodeWriter(factory lode.StoreFactory, prefix, backend string) *LodeWriter {
	return &LodeWriter{
		factory: factory,
		prefix:  strings.Trim(prefix, "/"),
		backend: backend,
	}
}

// NewFSWriter creates a writer rooted at a local directory.
func NewFSWriter(root string) *LodeWriter {
	return NewLodeWriter(lode.NewFSFactory(root), "", "fs")
}

// NewMemoryWriter creates an in-memory writer, for tests and dry runs.
func NewMemoryWriter() *LodeWriter {
	return NewLodeWriter(lode.NewMemoryFactory(), "", "memory")
}

// Backend returns the backend label.
func (w *LodeWriter) Backend() string { return w.backend }

// Key returns the store path an artifact name maps to.
func (w *LodeWriter) Key(name string) string {
	if w.prefix == "" {
		return name
	}
	return path.Join(w.prefix, name)
}

func (w *LodeWriter) getOrCreateStore() (lode.Store, error) {
	w.storeOnce.Do(func() {
		w.store, w.storeErr = w.factory()
	})
	return w.store, w.storeErr
}

// Put implements Writer. Lode paths are write-once, so an existing
// artifact is deleted first.
func (w *LodeWriter) Put(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	store, err := w.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, w.backend)
	}

	key := w.Key(name)
	exists, err := store.Exists(ctx, key)
	if err != nil {
		return WrapReadError(err, key)
	}
	if exists {
		if err := store.Delete(ctx, key); err != nil {
			return WrapWriteError(err, key)
		}
	}
	if err := store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, key)
	}
	return nil
}

// Get reads back the artifact stored at name.
func (w *LodeWriter) Get(ctx context.Context, name string) ([]byte, error) {
	store, err := w.getOrCreateStore()
	if err != nil {
		return nil, WrapInitError(err, w.backend)
	}
	key := w.Key(name)
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, WrapReadError(err, key)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, WrapReadError(err, key)
	}
	return data, nil
}

func validateName(name string) error {
	if name == "" {
		return errors.New("artifact name must not be empty")
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "..") || strings.Contains(name, "\\") {
		return fmt.Errorf("artifact name %q must be a relative path without '..'", name)
	}
	return nil
}
