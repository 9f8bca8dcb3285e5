// Package services implements the application use cases that sit
// between the transport-facing command dispatcher and the domain and
// infrastructure adapters: the Lifecycle Manager's load/unload/list
// orchestration, the policy grant/revoke/reset algebra's persistence
// wrapper, and the invocation engine's stateless/stateful dispatch.
package services

import (
	"sync"

	"github.com/wasmtool-dev/wasmtool/internal/application/ports"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
)

// PolicyService orchestrates C2 for the Lifecycle Manager: every
// mutation on a given component serializes on that component's own
// mutex while reads never block behind it, per spec.md §5 ("each
// component has a policy mutex; grant/revoke/reset on the same
// component serialize; reads are lock-free snapshots").
type PolicyService struct {
	store ports.PolicyStore

	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

// NewPolicyService builds a PolicyService backed by store.
func NewPolicyService(store ports.PolicyStore) *PolicyService {
	return &PolicyService{store: store, mutexes: map[string]*sync.Mutex{}}
}

func (s *PolicyService) lockFor(componentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mutexes[componentID]
	if !ok {
		m = &sync.Mutex{}
		s.mutexes[componentID] = m
	}
	return m
}

// Get returns a snapshot of the component's policy document. Load
// itself always returns a fresh value read off disk (or an empty
// document when no policy file exists), so no additional cloning is
// required to keep this a lock-free read.
func (s *PolicyService) Get(componentID string) (*capabilities.PolicyDocument, error) {
	return s.store.Load(componentID)
}

// mutate applies fn to a freshly loaded document and persists it.
// Because the loaded document is a local value never shared with a
// concurrent reader, a failed Save leaves nothing to roll back: the
// on-disk file, which is the source of truth, is untouched.
func (s *PolicyService) mutate(componentID string, fn func(*capabilities.PolicyDocument)) (*capabilities.PolicyDocument, error) {
	lock := s.lockFor(componentID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.store.Load(componentID)
	if err != nil {
		return nil, err
	}
	fn(doc)
	if err := s.store.Save(componentID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GrantStorage adds or merges a storage allow-list rule.
func (s *PolicyService) GrantStorage(componentID, uri string, access []capabilities.AccessMode) (*capabilities.PolicyDocument, error) {
	return s.mutate(componentID, func(d *capabilities.PolicyDocument) { d.GrantStorage(uri, access) })
}

// GrantNetwork adds a network allow-list rule.
func (s *PolicyService) GrantNetwork(componentID, host string) (*capabilities.PolicyDocument, error) {
	return s.mutate(componentID, func(d *capabilities.PolicyDocument) { d.GrantNetwork(host) })
}

// GrantEnvironment adds an environment allow-list rule.
func (s *PolicyService) GrantEnvironment(componentID, key string) (*capabilities.PolicyDocument, error) {
	return s.mutate(componentID, func(d *capabilities.PolicyDocument) { d.GrantEnvironment(key) })
}

// RevokeStorage removes the storage rule with exactly this URI.
func (s *PolicyService) RevokeStorage(componentID, uri string) (*capabilities.PolicyDocument, error) {
	return s.mutate(componentID, func(d *capabilities.PolicyDocument) { d.RevokeStorage(uri) })
}

// RevokeNetwork removes the network rule with exactly this host.
func (s *PolicyService) RevokeNetwork(componentID, host string) (*capabilities.PolicyDocument, error) {
	return s.mutate(componentID, func(d *capabilities.PolicyDocument) { d.RevokeNetwork(host) })
}

// RevokeEnvironment removes the environment rule with exactly this
// key.
func (s *PolicyService) RevokeEnvironment(componentID, key string) (*capabilities.PolicyDocument, error) {
	return s.mutate(componentID, func(d *capabilities.PolicyDocument) { d.RevokeEnvironment(key) })
}

// Reset empties all three allow-lists. A component that has never had
// a policy file written has nothing to reset: Exists lets this return
// a fresh empty document without materializing a file on disk for a
// component that was never granted anything.
func (s *PolicyService) Reset(componentID string) (*capabilities.PolicyDocument, error) {
	lock := s.lockFor(componentID)
	lock.Lock()
	defer lock.Unlock()

	if !s.store.Exists(componentID) {
		return capabilities.New(), nil
	}

	doc, err := s.store.Load(componentID)
	if err != nil {
		return nil, err
	}
	doc.Reset()
	if err := s.store.Save(componentID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// secretsLookup adapts a SecretsStore, bound to one component, to the
// capabilities.SecretsLookup shape Materialize expects.
func secretsLookup(store ports.SecretsStore, componentID string) capabilities.SecretsLookup {
	return func(key string) (string, bool) { return store.Get(componentID, key) }
}

// envLookupFromEnviron adapts a frozen `KEY=VALUE` slice, taken once at
// process startup, to the capabilities.EnvLookup shape. Freezing the
// snapshot at construction (rather than calling os.LookupEnv live) is
// what makes capability materialization a pure function of an instant
// per spec.md §3's invariant, immune to a mutation of the process
// environment mid-run.
func envLookupFromEnviron(environ []string) capabilities.EnvLookup {
	pairs := make(map[string]string, len(environ))
	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				pairs[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return func(key string) (string, bool) {
		v, ok := pairs[key]
		return v, ok
	}
}
