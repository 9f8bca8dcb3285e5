// Package ports declares the interfaces the application services
// depend on, implemented by the infrastructure adapters. This mirrors
// the teacher's hexagonal ports package: narrow, use-case-shaped
// interfaces rather than a single god interface per adapter.
package ports

import (
	"context"

	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
	"github.com/wasmtool-dev/wasmtool/internal/domain/typebridge"
)

// FetchedComponent is the result of resolving a source URI to local
// content.
type FetchedComponent struct {
	ComponentID string
	LocalPath   string
	Bytes       []byte
	Stamp       component.ValidationStamp
}

// ComponentStore resolves a source URI to local binary bytes and
// maintains the content-addressed cache (C3).
type ComponentStore interface {
	// Fetch resolves sourceURI, caching the result, and returns the
	// fetched bytes and validation stamp.
	Fetch(ctx context.Context, sourceURI string) (FetchedComponent, error)
	// Stat returns the current validation stamp for an already-cached
	// component without refetching, used to detect out-of-band changes.
	Stat(componentID string) (component.ValidationStamp, bool)
}

// PolicyStore persists and loads per-component policy documents as
// the sibling YAML file that is the source of truth across process
// restarts.
type PolicyStore interface {
	Load(componentID string) (*capabilities.PolicyDocument, error)
	Save(componentID string, doc *capabilities.PolicyDocument) error
	// Exists reports whether a policy file is present on disk; absence
	// of the file means "no permissions granted".
	Exists(componentID string) bool
}

// SecretsStore resolves per-component secret values, consulted before
// the process environment during capability materialization.
type SecretsStore interface {
	Get(componentID, key string) (value string, ok bool)
}

// CompiledComponent is a compiled, introspectable WASM component
// handle.
type CompiledComponent interface {
	// Exports returns the introspected export surface.
	Exports(ctx context.Context) ([]component.ExportedFunction, error)
	// Invoke calls one exported function with already-decoded and
	// bounds-checked arguments under the given capability context,
	// returning decoded typed results validated against sig.Results.
	// store is nil for a stateless call (a fresh instance is used and
	// discarded); for a stateful call the same store handle is reused
	// across invocations of the same component.
	Invoke(ctx context.Context, store InstanceHandle, fn component.FunctionIdentifier, args []*typebridge.Value, sig typebridge.Signature, capCtx capabilities.Context) ([]*typebridge.Value, error)
	// NewInstance creates a long-lived instance handle for stateful
	// components.
	NewInstance(ctx context.Context, capCtx capabilities.Context) (InstanceHandle, error)
	Close(ctx context.Context) error
}

// InstanceHandle identifies a live, possibly long-lived, runtime
// instance. It holds only a back-reference (no ownership) so the
// component record and the runtime store never form an ownership
// cycle.
type InstanceHandle interface {
	Close(ctx context.Context) error
}

// Runtime compiles component binaries and produces CompiledComponent
// handles (C5 execution substrate). Capability enforcement is applied
// per instance at invocation time (see CompiledComponent.Invoke and
// NewInstance), not at compile time, since the same compiled module is
// reused across policy changes.
type Runtime interface {
	Compile(ctx context.Context, componentID string, wasmBytes []byte) (CompiledComponent, error)
	Close(ctx context.Context) error
}
