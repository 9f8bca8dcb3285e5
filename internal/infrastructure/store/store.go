// Package store implements the Component Store (C3): resolving a
// component's source URI to a locally cached binary and producing the
// validation stamp the Lifecycle Manager uses to detect out-of-band
// changes.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
	"github.com/wasmtool-dev/wasmtool/internal/application/ports"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
)

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fetcher resolves one URI scheme to raw component bytes.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Scheme() string
}

// Store is the content-addressed component cache: one
// `<component_id>.wasm` file per component under dir, fed by a
// Fetcher per URI scheme.
type Store struct {
	dir      string
	fetchers map[string]Fetcher
}

// New builds a Store rooted at dir, dispatching by URI scheme to the
// given fetchers.
func New(dir string, fetchers ...Fetcher) *Store {
	byScheme := make(map[string]Fetcher, len(fetchers))
	for _, f := range fetchers {
		byScheme[f.Scheme()] = f
	}
	return &Store{dir: dir, fetchers: byScheme}
}

func (s *Store) path(componentID string) string {
	return filepath.Join(s.dir, componentID+".wasm")
}

// Fetch resolves sourceURI by scheme, writes the result to the cache
// file for its derived component_id, and returns the cached bytes and
// a fresh validation stamp.
func (s *Store) Fetch(ctx context.Context, sourceURI string) (ports.FetchedComponent, error) {
	scheme, _, ok := strings.Cut(sourceURI, "://")
	if !ok {
		return ports.FetchedComponent{}, apperrors.Newf(apperrors.KindUnsupportedURI, "malformed source uri %q", sourceURI)
	}
	fetcher, ok := s.fetchers[scheme]
	if !ok {
		return ports.FetchedComponent{}, apperrors.Newf(apperrors.KindUnsupportedURI, "unsupported scheme %q", scheme)
	}

	data, err := fetcher.Fetch(ctx, sourceURI)
	if err != nil {
		return ports.FetchedComponent{}, apperrors.Wrap(apperrors.KindFetchFailed, fmt.Sprintf("fetching %q", sourceURI), err)
	}

	componentID := component.DeriveComponentID(sourceURI)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return ports.FetchedComponent{}, apperrors.Wrap(apperrors.KindCacheIOFailed, "creating cache directory", err)
	}
	localPath := s.path(componentID)
	if err := writeAtomic(localPath, data, 0o644); err != nil {
		return ports.FetchedComponent{}, apperrors.Wrap(apperrors.KindCacheIOFailed, "writing cached component", err)
	}

	stamp, ok := s.Stat(componentID)
	if !ok {
		return ports.FetchedComponent{}, apperrors.New(apperrors.KindCacheIOFailed, "stat of just-written cache file failed")
	}
	stamp.ContentHash = contentHash(data)

	return ports.FetchedComponent{
		ComponentID: componentID,
		LocalPath:   localPath,
		Bytes:       data,
		Stamp:       stamp,
	}, nil
}

// Stat returns the current on-disk validation stamp for an
// already-cached component, without invoking any fetcher. ContentHash
// is left empty: computing it requires reading the whole file, which
// Stat's callers (out-of-band change detection against size/mtime)
// don't need to pay for on every check.
func (s *Store) Stat(componentID string) (component.ValidationStamp, bool) {
	info, err := os.Stat(s.path(componentID))
	if err != nil {
		return component.ValidationStamp{}, false
	}
	return component.ValidationStamp{Size: info.Size(), ModTime: info.ModTime()}, true
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".component-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
