// Package reader loads written artifacts for the read-only CLI commands.
package reader

import (
	"context"
	"fmt"
	"os"

	"github.com/pithecene-io/reel/emit"
)

// Source fetches raw artifact bytes by name.
type Source interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// FileSource reads artifacts from the local filesystem. Names are paths.
type FileSource struct{}

// Read implements Source.
func (FileSource) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact not found: %s", name)
		}
		return nil, fmt.Errorf("cannot read artifact %q: %w", name, err)
	}
	return data, nil
}

// Getter is the read side of an artifact store (store.LodeWriter).
type Getter interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// StoreSource reads artifacts back from a storage backend. Names are the
// relative keys given to the writer.
type StoreSource struct {
	Store Getter
}

// Read implements Source.
func (s StoreSource) Read(ctx context.Context, name string) ([]byte, error) {
	return s.Store.Get(ctx, name)
}

// Artifact is a decoded artifact with its provenance.
type Artifact struct {
	Name     string
	Format   emit.Format
	Size     int
	Document *emit.Document
}

// Load reads and decodes one artifact.
func Load(ctx context.Context, src Source, name string) (*Artifact, error) {
	data, err := src.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	doc, format, err := emit.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Artifact{Name: name, Format: format, Size: len(data), Document: doc}, nil
}
