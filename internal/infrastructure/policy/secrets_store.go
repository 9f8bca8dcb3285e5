package policy

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
)

// SecretsStore is the per-component `key -> value` secret mapping,
// persisted one owner-readable file per component under dir. Grounded
// on the teacher's file-backed secret resolution, simplified to the
// single mapping spec.md §3 describes (no multi-source Local/Env/Files
// chain — that distinction is a reglet-specific config surface absent
// from this system's Secrets store definition).
type SecretsStore struct {
	dir string
	mu  sync.RWMutex
}

// NewSecretsStore creates a SecretsStore rooted at dir.
func NewSecretsStore(dir string) *SecretsStore {
	return &SecretsStore{dir: dir}
}

func (s *SecretsStore) path(componentID string) string {
	return filepath.Join(s.dir, componentID+".secrets.yaml")
}

// Get resolves a single secret value for componentID, reading the
// file fresh each call so a rewrite is visible to the next invocation
// without requiring a restart, while never affecting an in-flight
// invocation that already materialized its capability context.
func (s *SecretsStore) Get(componentID, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.readAll(componentID)
	if err != nil {
		return "", false
	}
	v, ok := all[key]
	return v, ok
}

// Set stores a secret value, persisted atomically with owner-only
// permissions.
func (s *SecretsStore) Set(componentID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll(componentID)
	if err != nil {
		all = map[string]string{}
	}
	all[key] = value

	data, err := yaml.Marshal(all)
	if err != nil {
		return apperrors.Wrap(apperrors.KindCacheIOFailed, "marshaling secrets", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return apperrors.Wrap(apperrors.KindCacheIOFailed, "creating secrets directory", err)
	}
	return atomicWrite(s.path(componentID), data, 0o600)
}

func (s *SecretsStore) readAll(componentID string) (map[string]string, error) {
	data, err := os.ReadFile(s.path(componentID))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindCacheIOFailed, "reading secrets file", err)
	}
	var all map[string]string
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, apperrors.Wrap(apperrors.KindCacheIOFailed, "parsing secrets file", err)
	}
	if all == nil {
		all = map[string]string{}
	}
	return all, nil
}
