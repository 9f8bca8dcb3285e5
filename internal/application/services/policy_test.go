package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
)

// fakePolicyStore is an in-memory ports.PolicyStore: Load always
// returns a fresh clone so a caller's in-place mutation of a returned
// document can never leak into the store's own copy.
type fakePolicyStore struct {
	mu   sync.Mutex
	docs map[string]*capabilities.PolicyDocument
}

func newFakePolicyStore() *fakePolicyStore {
	return &fakePolicyStore{docs: map[string]*capabilities.PolicyDocument{}}
}

func (s *fakePolicyStore) Load(componentID string) (*capabilities.PolicyDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[componentID]; ok {
		return doc.Clone(), nil
	}
	return capabilities.New(), nil
}

func (s *fakePolicyStore) Save(componentID string, doc *capabilities.PolicyDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[componentID] = doc.Clone()
	return nil
}

func (s *fakePolicyStore) Exists(componentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[componentID]
	return ok
}

func TestPolicyService_GrantPersists(t *testing.T) {
	svc := NewPolicyService(newFakePolicyStore())

	doc, err := svc.GrantNetwork("comp-a", "api.example.com")
	require.NoError(t, err)
	require.True(t, doc.AllowsNetwork("api.example.com"))

	reloaded, err := svc.Get("comp-a")
	require.NoError(t, err)
	require.True(t, reloaded.AllowsNetwork("api.example.com"))
}

func TestPolicyService_RevokeThenGetReflectsRemoval(t *testing.T) {
	svc := NewPolicyService(newFakePolicyStore())

	_, err := svc.GrantStorage("comp-a", "fs:///data", []capabilities.AccessMode{capabilities.AccessRead})
	require.NoError(t, err)

	_, err = svc.RevokeStorage("comp-a", "fs:///data")
	require.NoError(t, err)

	doc, err := svc.Get("comp-a")
	require.NoError(t, err)
	require.False(t, doc.AllowsStorage("fs:///data", capabilities.AccessRead))
}

func TestPolicyService_ResetEmptiesAllThreeLists(t *testing.T) {
	svc := NewPolicyService(newFakePolicyStore())

	_, err := svc.GrantNetwork("comp-a", "api.example.com")
	require.NoError(t, err)
	_, err = svc.GrantEnvironment("comp-a", "API_KEY")
	require.NoError(t, err)

	doc, err := svc.Reset("comp-a")
	require.NoError(t, err)
	require.True(t, doc.IsEmpty())
}

func TestPolicyService_ResetOnComponentWithNoPolicyFileDoesNotCreateOne(t *testing.T) {
	store := newFakePolicyStore()
	svc := NewPolicyService(store)

	doc, err := svc.Reset("comp-never-granted")
	require.NoError(t, err)
	require.True(t, doc.IsEmpty())
	require.False(t, store.Exists("comp-never-granted"))
}

func TestPolicyService_DistinctComponentsAreIndependent(t *testing.T) {
	svc := NewPolicyService(newFakePolicyStore())

	_, err := svc.GrantNetwork("comp-a", "api.example.com")
	require.NoError(t, err)

	docB, err := svc.Get("comp-b")
	require.NoError(t, err)
	require.False(t, docB.AllowsNetwork("api.example.com"))
}

// TestPolicyService_MutationsOnSameComponentSerialize exercises the
// per-component mutex: many concurrent grants of distinct hosts must
// all survive, which only holds if mutate's load-modify-save cycle
// never interleaves with another mutate call on the same component_id.
func TestPolicyService_MutationsOnSameComponentSerialize(t *testing.T) {
	svc := NewPolicyService(newFakePolicyStore())

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := svc.GrantNetwork("comp-a", fmt.Sprintf("host%d.example.com", i))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doc, err := svc.Get("comp-a")
	require.NoError(t, err)
	require.Len(t, doc.Network, n)
}

func TestEnvLookupFromEnviron_ParsesKeyValuePairs(t *testing.T) {
	lookup := envLookupFromEnviron([]string{"FOO=bar", "EMPTY=", "MALFORMED"})

	v, ok := lookup("FOO")
	require.True(t, ok)
	require.Equal(t, "bar", v)

	v, ok = lookup("EMPTY")
	require.True(t, ok)
	require.Equal(t, "", v)

	_, ok = lookup("MALFORMED")
	require.False(t, ok)

	_, ok = lookup("MISSING")
	require.False(t, ok)
}
