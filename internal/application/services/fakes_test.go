package services

import (
	"context"
	"sync"
	"sync/atomic"

	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
	"github.com/wasmtool-dev/wasmtool/internal/application/ports"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
	"github.com/wasmtool-dev/wasmtool/internal/domain/typebridge"
)

// fakeComponentStore serves one fixed export surface for every source
// URI whose derived component_id is present in exports; Fetch fails
// otherwise. stamps lets a test simulate an out-of-band on-disk change
// by bumping a component's stamp after it has already been loaded:
// Fetch always returns the current stamp, so a subsequent Load call
// picks up the change and Stat reports it as drift against whatever
// stamp is already recorded in the registry.
type fakeComponentStore struct {
	exports map[string][]component.ExportedFunction // component_id -> exports

	mu     sync.Mutex
	stamps map[string]component.ValidationStamp
}

func (s *fakeComponentStore) Fetch(_ context.Context, sourceURI string) (ports.FetchedComponent, error) {
	id := component.DeriveComponentID(sourceURI)
	if _, ok := s.exports[id]; !ok {
		return ports.FetchedComponent{}, apperrors.Newf(apperrors.KindComponentNotFound, "no fixture for %q", id)
	}
	s.mu.Lock()
	stamp := s.stamps[id]
	s.mu.Unlock()
	return ports.FetchedComponent{ComponentID: id, LocalPath: "/cache/" + id, Bytes: []byte("wasm-bytes"), Stamp: stamp}, nil
}

func (s *fakeComponentStore) Stat(componentID string) (component.ValidationStamp, bool) {
	if _, ok := s.exports[componentID]; !ok {
		return component.ValidationStamp{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stamps[componentID], true
}

// touch bumps componentID's on-disk stamp, simulating an out-of-band
// change to the cached file.
func (s *fakeComponentStore) touch(componentID string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stamps == nil {
		s.stamps = map[string]component.ValidationStamp{}
	}
	s.stamps[componentID] = component.ValidationStamp{Size: size}
}

// fakeRuntime compiles into a fakeCompiled that reports the exports
// configured on the fakeComponentStore sharing the same exports map.
type fakeRuntime struct {
	store *fakeComponentStore

	mu        sync.Mutex
	compiled  map[string]*fakeCompiled
	closeErrs map[string]error
}

func newFakeRuntime(store *fakeComponentStore) *fakeRuntime {
	return &fakeRuntime{store: store, compiled: map[string]*fakeCompiled{}}
}

func (r *fakeRuntime) Compile(_ context.Context, componentID string, _ []byte) (ports.CompiledComponent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &fakeCompiled{componentID: componentID, exports: r.store.exports[componentID]}
	r.compiled[componentID] = c
	return c, nil
}

func (r *fakeRuntime) Close(context.Context) error { return nil }

// fakeCompiled counts invocations and new-instance calls, and can be
// told to trap on the next call.
type fakeCompiled struct {
	componentID string
	exports     []component.ExportedFunction

	invokeCount    atomic.Int64
	instanceCount  atomic.Int64
	closed         atomic.Bool
	trapNextInvoke atomic.Bool
}

func (c *fakeCompiled) Exports(context.Context) ([]component.ExportedFunction, error) {
	return c.exports, nil
}

func (c *fakeCompiled) Invoke(_ context.Context, _ ports.InstanceHandle, _ component.FunctionIdentifier, _ []*typebridge.Value, sig typebridge.Signature, _ capabilities.Context) ([]*typebridge.Value, error) {
	c.invokeCount.Add(1)
	if c.trapNextInvoke.Swap(false) {
		return nil, apperrors.New(apperrors.KindExecutionTrapped, "simulated trap")
	}
	return typebridge.ZeroResults(sig.Results), nil
}

func (c *fakeCompiled) NewInstance(context.Context, capabilities.Context) (ports.InstanceHandle, error) {
	c.instanceCount.Add(1)
	return &fakeInstance{}, nil
}

func (c *fakeCompiled) Close(context.Context) error {
	c.closed.Store(true)
	return nil
}

type fakeInstance struct {
	closed atomic.Bool
}

func (i *fakeInstance) Close(context.Context) error {
	i.closed.Store(true)
	return nil
}

// fakeSecretsStore never has a secret, so Materialize falls through to
// the env lookup for every test unless a case configures otherwise.
type fakeSecretsStore struct {
	values map[string]string // "componentID:key" -> value
}

func (s *fakeSecretsStore) Get(componentID, key string) (string, bool) {
	v, ok := s.values[componentID+":"+key]
	return v, ok
}

func echoExports() []component.ExportedFunction {
	return []component.ExportedFunction{
		{
			Identifier: component.FunctionIdentifier{FunctionName: "ping", FunctionKind: component.FreeFunction},
			Signature:  typebridge.Signature{Params: nil, Results: []*typebridge.Type{typebridge.String()}},
		},
	}
}
