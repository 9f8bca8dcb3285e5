// Package capabilities implements the per-component capability policy
// document: the three allow-lists (storage, network, environment), the
// wildcard match rules that govern them, and the grant/revoke/reset
// algebra that mutates them.
package capabilities

// AccessMode is one of the two storage access rights a rule may grant.
type AccessMode string

const (
	AccessRead  AccessMode = "read"
	AccessWrite AccessMode = "write"
)

// StorageRule allow-lists a `fs://` URI, optionally recursive (a
// trailing `/**` on the path), for the given access modes.
type StorageRule struct {
	URI    string       `yaml:"uri"`
	Access []AccessMode `yaml:"access"`
}

// HasAccess reports whether mode is present in the rule's access set.
func (r StorageRule) HasAccess(mode AccessMode) bool {
	for _, m := range r.Access {
		if m == mode {
			return true
		}
	}
	return false
}

// NetworkRule allow-lists a bare or single-label-wildcard host.
type NetworkRule struct {
	Host string `yaml:"host"`
}

// EnvironmentRule allow-lists a single environment variable name.
type EnvironmentRule struct {
	Key string `yaml:"key"`
}

// PolicyDocument is the versioned, per-component capability policy:
// three independent allow-lists. Any access check not matched by at
// least one rule is denied.
type PolicyDocument struct {
	Version     string
	Description string
	Storage     []StorageRule
	Network     []NetworkRule
	Environment []EnvironmentRule
}

// New returns an empty policy document at the current version.
func New() *PolicyDocument {
	return &PolicyDocument{Version: "1.0"}
}

// Clone returns a deep copy so callers can hold a read snapshot while
// another goroutine mutates the live document (copy-on-write reads).
func (p *PolicyDocument) Clone() *PolicyDocument {
	clone := &PolicyDocument{
		Version:     p.Version,
		Description: p.Description,
		Storage:     append([]StorageRule(nil), p.Storage...),
		Network:     append([]NetworkRule(nil), p.Network...),
		Environment: append([]EnvironmentRule(nil), p.Environment...),
	}
	for i, s := range clone.Storage {
		clone.Storage[i].Access = append([]AccessMode(nil), s.Access...)
	}
	return clone
}
