// Package policy provides file-backed persistence for capability
// policy documents and per-component secrets, adapted from the
// teacher's YAML capability file store into spec-mandated atomic
// writes.
package policy

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
)

// FileStore persists one `<component_id>.policy.yaml` file per
// component under dir, matching spec.md §6's persisted-state layout.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(componentID string) string {
	return filepath.Join(s.dir, componentID+".policy.yaml")
}

// Exists reports whether the policy file exists; its absence means
// "no permissions granted".
func (s *FileStore) Exists(componentID string) bool {
	_, err := os.Stat(s.path(componentID))
	return err == nil
}

// yamlDoc mirrors the wire policy file format (spec.md §6): unknown
// top-level keys are rejected by strict decoding, and each
// `permissions` sub-key may be omitted.
type yamlDoc struct {
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
	Permissions struct {
		Storage *struct {
			Allow []yamlStorageRule `yaml:"allow"`
		} `yaml:"storage,omitempty"`
		Network *struct {
			Allow []yamlNetworkRule `yaml:"allow"`
		} `yaml:"network,omitempty"`
		Environment *struct {
			Allow []yamlEnvRule `yaml:"allow"`
		} `yaml:"environment,omitempty"`
	} `yaml:"permissions"`
}

type yamlStorageRule struct {
	URI    string   `yaml:"uri"`
	Access []string `yaml:"access"`
}

type yamlNetworkRule struct {
	Host string `yaml:"host"`
}

type yamlEnvRule struct {
	Key string `yaml:"key"`
}

// Load reads and parses a component's policy file. If the file does
// not exist, it returns a fresh empty document (no error): absence
// means no permissions granted, not a parse failure.
func (s *FileStore) Load(componentID string) (*capabilities.PolicyDocument, error) {
	data, err := os.ReadFile(s.path(componentID))
	if os.IsNotExist(err) {
		return capabilities.New(), nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPolicyParseFailed, "reading policy file", err)
	}

	var doc yamlDoc
	dec := yaml.NewDecoder(bytes.NewReader(data), yaml.Strict())
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.Wrap(apperrors.KindPolicyParseFailed, "parsing policy YAML", err)
	}

	out := &capabilities.PolicyDocument{Version: doc.Version, Description: doc.Description}
	if doc.Permissions.Storage != nil {
		for _, r := range doc.Permissions.Storage.Allow {
			access := make([]capabilities.AccessMode, len(r.Access))
			for i, a := range r.Access {
				access[i] = capabilities.AccessMode(a)
			}
			out.Storage = append(out.Storage, capabilities.StorageRule{URI: r.URI, Access: access})
		}
	}
	if doc.Permissions.Network != nil {
		for _, r := range doc.Permissions.Network.Allow {
			out.Network = append(out.Network, capabilities.NetworkRule{Host: r.Host})
		}
	}
	if doc.Permissions.Environment != nil {
		for _, r := range doc.Permissions.Environment.Allow {
			out.Environment = append(out.Environment, capabilities.EnvironmentRule{Key: r.Key})
		}
	}
	return out, nil
}

// Save persists doc atomically: serialize to a temp file in the same
// directory, fsync, rename over the prior file. A failure at any step
// leaves the prior file untouched, satisfying spec.md §4.2's
// "failure to persist rolls back the in-memory change" by never
// partially writing the on-disk copy.
func (s *FileStore) Save(componentID string, doc *capabilities.PolicyDocument) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindPolicyPersistFailed, "creating policy directory", err)
	}

	var out yamlDoc
	out.Version = doc.Version
	out.Description = doc.Description
	if len(doc.Storage) > 0 {
		out.Permissions.Storage = &struct {
			Allow []yamlStorageRule `yaml:"allow"`
		}{}
		for _, r := range doc.Storage {
			access := make([]string, len(r.Access))
			for i, a := range r.Access {
				access[i] = string(a)
			}
			out.Permissions.Storage.Allow = append(out.Permissions.Storage.Allow, yamlStorageRule{URI: r.URI, Access: access})
		}
	}
	if len(doc.Network) > 0 {
		out.Permissions.Network = &struct {
			Allow []yamlNetworkRule `yaml:"allow"`
		}{}
		for _, r := range doc.Network {
			out.Permissions.Network.Allow = append(out.Permissions.Network.Allow, yamlNetworkRule{Host: r.Host})
		}
	}
	if len(doc.Environment) > 0 {
		out.Permissions.Environment = &struct {
			Allow []yamlEnvRule `yaml:"allow"`
		}{}
		for _, r := range doc.Environment {
			out.Permissions.Environment.Allow = append(out.Permissions.Environment.Allow, yamlEnvRule{Key: r.Key})
		}
	}

	data, err := yaml.MarshalWithOptions(out, yaml.IndentSequence(true))
	if err != nil {
		return apperrors.Wrap(apperrors.KindPolicyPersistFailed, "marshaling policy YAML", err)
	}

	return atomicWrite(s.path(componentID), data, 0o644)
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".policy-*.tmp")
	if err != nil {
		return apperrors.Wrap(apperrors.KindPolicyPersistFailed, "creating temp file", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return apperrors.Wrap(apperrors.KindPolicyPersistFailed, "writing temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperrors.Wrap(apperrors.KindPolicyPersistFailed, "fsync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(apperrors.KindPolicyPersistFailed, "closing temp file", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return apperrors.Wrap(apperrors.KindPolicyPersistFailed, "chmod temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return apperrors.Wrap(apperrors.KindPolicyPersistFailed, "renaming into place", err)
	}
	return nil
}
