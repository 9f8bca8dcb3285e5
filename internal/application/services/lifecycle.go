package services

import (
	"context"
	"sync"

	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
	"github.com/wasmtool-dev/wasmtool/internal/application/ports"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
	"github.com/wasmtool-dev/wasmtool/internal/domain/typebridge"
	"golang.org/x/sync/singleflight"
)

// CatalogEntry is one row of the static, config-driven registry
// search() surfaces (spec.md §4.4: "not a live registry query; purely
// informational").
type CatalogEntry struct {
	Name        string
	Description string
	SourceURI   string
}

// LoadResult is what a successful load/reload returns to the caller.
type LoadResult struct {
	ComponentID string
	ToolsLoaded []string
}

// componentEntry is the Lifecycle Manager's private bookkeeping for
// one loaded component: the domain record plus the infrastructure
// handles the record itself does not carry, and the per-component
// invocation mutex a stateful component serializes on.
type componentEntry struct {
	record   *component.Record
	compiled ports.CompiledComponent

	invokeMu sync.Mutex
	instance ports.InstanceHandle // nil until first stateful call, or after a poisoned instance is dropped
}

// LifecycleManager is the C4 orchestrator: the only component that
// touches the Component Store, the Policy Engine, the Type Bridge (via
// the compiled component's introspection), and the Invocation Engine.
// It owns the component registry and the tool-name table behind a
// single readers-writer lock, per spec.md §5.
type LifecycleManager struct {
	store    ports.ComponentStore
	runtime  ports.Runtime
	policies *PolicyService
	secrets  ports.SecretsStore
	engine   *invocationEngine
	catalog  []CatalogEntry

	mu        sync.RWMutex
	registry  map[string]*componentEntry
	toolIndex map[string]string // tool_name -> component_id

	loadGroup singleflight.Group
}

// NewLifecycleManager builds a LifecycleManager. environ is the frozen
// process-environment snapshot consulted, second, during capability
// materialization (after the secrets store); catalog seeds search().
func NewLifecycleManager(store ports.ComponentStore, runtime ports.Runtime, policies *PolicyService, secrets ports.SecretsStore, environ []string, catalog []CatalogEntry) *LifecycleManager {
	return &LifecycleManager{
		store:     store,
		runtime:   runtime,
		policies:  policies,
		secrets:   secrets,
		engine:    &invocationEngine{policies: policies, secrets: secrets, env: envLookupFromEnviron(environ)},
		catalog:   catalog,
		registry:  map[string]*componentEntry{},
		toolIndex: map[string]string{},
	}
}

// Load resolves sourceURI, introspects the component, generates tool
// schemas, and installs the record atomically. Concurrent loads that
// derive the same component_id are collapsed onto a single in-flight
// attempt: the others observe its result rather than duplicating the
// fetch and compile.
func (lm *LifecycleManager) Load(ctx context.Context, sourceURI string, toolFilter []string, mode component.Mode) (LoadResult, error) {
	if mode == "" {
		mode = component.Stateless
	}
	componentID := component.DeriveComponentID(sourceURI)

	v, err, _ := lm.loadGroup.Do(componentID, func() (any, error) {
		return lm.doLoad(ctx, sourceURI, toolFilter, mode)
	})
	if err != nil {
		return LoadResult{}, err
	}
	return v.(LoadResult), nil
}

func (lm *LifecycleManager) doLoad(ctx context.Context, sourceURI string, toolFilter []string, mode component.Mode) (LoadResult, error) {
	fetched, err := lm.store.Fetch(ctx, sourceURI)
	if err != nil {
		return LoadResult{}, err
	}

	compiled, err := lm.runtime.Compile(ctx, fetched.ComponentID, fetched.Bytes)
	if err != nil {
		return LoadResult{}, err
	}

	exports, err := compiled.Exports(ctx)
	if err != nil {
		_ = compiled.Close(ctx)
		return LoadResult{}, err
	}

	tools, err := buildToolDescriptors(fetched.ComponentID, exports, toolFilter)
	if err != nil {
		_ = compiled.Close(ctx)
		return LoadResult{}, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, t := range tools {
		if owner, ok := lm.toolIndex[t.ToolName]; ok && owner != fetched.ComponentID {
			_ = compiled.Close(ctx)
			return LoadResult{}, apperrors.Newf(apperrors.KindToolNameCollision, "tool %q already registered by component %q", t.ToolName, owner)
		}
	}

	previous, reload := lm.registry[fetched.ComponentID]
	if reload {
		for name := range previous.record.ToolNames {
			delete(lm.toolIndex, name)
		}
		if previous.instance != nil {
			_ = previous.instance.Close(ctx)
		}
		_ = previous.compiled.Close(ctx)
	}

	record := &component.Record{
		ComponentID: fetched.ComponentID,
		SourceURI:   sourceURI,
		LocalPath:   fetched.LocalPath,
		Stamp:       fetched.Stamp,
		Mode:        mode,
		ToolFilter:  toolFilter,
		Exports:     exports,
		Tools:       tools,
	}
	record.ToolNames = record.ToolNameSet()

	lm.registry[fetched.ComponentID] = &componentEntry{record: record, compiled: compiled}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		lm.toolIndex[t.ToolName] = fetched.ComponentID
		names = append(names, t.ToolName)
	}

	return LoadResult{ComponentID: fetched.ComponentID, ToolsLoaded: names}, nil
}

// buildToolDescriptors normalizes each export's tool name, applies an
// optional allow-list filter, and generates its JSON Schema pair.
func buildToolDescriptors(componentID string, exports []component.ExportedFunction, toolFilter []string) ([]component.ToolDescriptor, error) {
	var allow map[string]struct{}
	if len(toolFilter) > 0 {
		allow = make(map[string]struct{}, len(toolFilter))
		for _, name := range toolFilter {
			allow[name] = struct{}{}
		}
	}

	tools := make([]component.ToolDescriptor, 0, len(exports))
	for _, ex := range exports {
		name := typebridge.ToolName(ex.Identifier.InterfaceName, ex.Identifier.FunctionName)
		if allow != nil {
			if _, ok := allow[name]; !ok {
				continue
			}
		}
		if !component.ValidToolName(name) {
			return nil, apperrors.Newf(apperrors.KindInvalidToolName, "normalized tool name %q is invalid", name)
		}
		tools = append(tools, component.ToolDescriptor{
			ToolName:     name,
			ComponentID:  componentID,
			Function:     ex.Identifier,
			InputSchema:  typebridge.ParamsSchema(ex.Signature.Params),
			OutputSchema: typebridge.ResultSchema(ex.Signature.Results),
		})
	}
	return tools, nil
}

// Unload removes a component's record and unregisters its tools,
// leaving the policy file on disk untouched.
func (lm *LifecycleManager) Unload(ctx context.Context, componentID string) error {
	lm.mu.Lock()
	entry, ok := lm.registry[componentID]
	if !ok {
		lm.mu.Unlock()
		return apperrors.Newf(apperrors.KindComponentNotFound, "component %q not loaded", componentID)
	}
	for name := range entry.record.ToolNames {
		delete(lm.toolIndex, name)
	}
	delete(lm.registry, componentID)
	lm.mu.Unlock()

	if entry.instance != nil {
		_ = entry.instance.Close(ctx)
	}
	return entry.compiled.Close(ctx)
}

// List returns a snapshot of every loaded component's record.
func (lm *LifecycleManager) List() []component.Record {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	out := make([]component.Record, 0, len(lm.registry))
	for _, entry := range lm.registry {
		out = append(out, *entry.record)
	}
	return out
}

// Search returns the static, config-driven component catalog.
func (lm *LifecycleManager) Search() []CatalogEntry {
	return lm.catalog
}

func (lm *LifecycleManager) requireLoaded(componentID string) error {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	if _, ok := lm.registry[componentID]; !ok {
		return apperrors.Newf(apperrors.KindComponentNotFound, "component %q not loaded", componentID)
	}
	return nil
}

// GetPolicy delegates to the Policy Engine after confirming the
// component is loaded.
func (lm *LifecycleManager) GetPolicy(componentID string) (*capabilities.PolicyDocument, error) {
	if err := lm.requireLoaded(componentID); err != nil {
		return nil, err
	}
	return lm.policies.Get(componentID)
}

// GrantStorage delegates to the Policy Engine.
func (lm *LifecycleManager) GrantStorage(componentID, uri string, access []capabilities.AccessMode) (*capabilities.PolicyDocument, error) {
	if err := lm.requireLoaded(componentID); err != nil {
		return nil, err
	}
	return lm.policies.GrantStorage(componentID, uri, access)
}

// GrantNetwork delegates to the Policy Engine.
func (lm *LifecycleManager) GrantNetwork(componentID, host string) (*capabilities.PolicyDocument, error) {
	if err := lm.requireLoaded(componentID); err != nil {
		return nil, err
	}
	return lm.policies.GrantNetwork(componentID, host)
}

// GrantEnvironment delegates to the Policy Engine.
func (lm *LifecycleManager) GrantEnvironment(componentID, key string) (*capabilities.PolicyDocument, error) {
	if err := lm.requireLoaded(componentID); err != nil {
		return nil, err
	}
	return lm.policies.GrantEnvironment(componentID, key)
}

// RevokeStorage delegates to the Policy Engine.
func (lm *LifecycleManager) RevokeStorage(componentID, uri string) (*capabilities.PolicyDocument, error) {
	if err := lm.requireLoaded(componentID); err != nil {
		return nil, err
	}
	return lm.policies.RevokeStorage(componentID, uri)
}

// RevokeNetwork delegates to the Policy Engine.
func (lm *LifecycleManager) RevokeNetwork(componentID, host string) (*capabilities.PolicyDocument, error) {
	if err := lm.requireLoaded(componentID); err != nil {
		return nil, err
	}
	return lm.policies.RevokeNetwork(componentID, host)
}

// RevokeEnvironment delegates to the Policy Engine.
func (lm *LifecycleManager) RevokeEnvironment(componentID, key string) (*capabilities.PolicyDocument, error) {
	if err := lm.requireLoaded(componentID); err != nil {
		return nil, err
	}
	return lm.policies.RevokeEnvironment(componentID, key)
}

// ResetPolicy delegates to the Policy Engine.
func (lm *LifecycleManager) ResetPolicy(componentID string) (*capabilities.PolicyDocument, error) {
	if err := lm.requireLoaded(componentID); err != nil {
		return nil, err
	}
	return lm.policies.Reset(componentID)
}

// reloadIfDrifted compares the on-disk validation stamp against the
// one recorded at load time and transparently reloads the component,
// replaying its original tool filter, when the cached file has
// changed out from under the registry (spec.md §4.3: the validation
// stamp is "used by the Lifecycle Manager to detect out-of-band
// changes and trigger reload"). A Stat miss (file since removed from
// the cache) is not treated as drift; the currently loaded component
// keeps serving until an explicit reload succeeds.
func (lm *LifecycleManager) reloadIfDrifted(ctx context.Context, componentID string) error {
	lm.mu.RLock()
	entry, ok := lm.registry[componentID]
	lm.mu.RUnlock()
	if !ok {
		return nil
	}

	current, ok := lm.store.Stat(componentID)
	if !ok || current.Equal(entry.record.Stamp) {
		return nil
	}

	_, err := lm.Load(ctx, entry.record.SourceURI, entry.record.ToolFilter, entry.record.Mode)
	return err
}

// Invoke resolves tool_name to its component and function under the
// registry's read lock, then hands off to the Invocation Engine
// outside that lock so a slow or stateful call never blocks list,
// load, or another invocation's lookup.
func (lm *LifecycleManager) Invoke(ctx context.Context, toolName string, args map[string]any) (map[string]any, error) {
	lm.mu.RLock()
	componentID, ok := lm.toolIndex[toolName]
	lm.mu.RUnlock()
	if !ok {
		return nil, apperrors.Newf(apperrors.KindToolNotFound, "tool %q not found", toolName)
	}

	if err := lm.reloadIfDrifted(ctx, componentID); err != nil {
		return nil, err
	}

	lm.mu.RLock()
	componentID, ok = lm.toolIndex[toolName]
	if !ok {
		lm.mu.RUnlock()
		return nil, apperrors.Newf(apperrors.KindToolNotFound, "tool %q not found", toolName)
	}
	entry := lm.registry[componentID]
	var tool component.ToolDescriptor
	var found bool
	for _, t := range entry.record.Tools {
		if t.ToolName == toolName {
			tool = t
			found = true
			break
		}
	}
	lm.mu.RUnlock()
	if !found {
		return nil, apperrors.Newf(apperrors.KindToolNotFound, "tool %q not found", toolName)
	}

	sig, ok := findSignature(entry.record.Exports, tool.Function)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindToolNotFound, "tool %q has no matching export", toolName)
	}

	return lm.engine.invoke(ctx, entry, tool.Function, sig, args)
}

func findSignature(exports []component.ExportedFunction, fn component.FunctionIdentifier) (typebridge.Signature, bool) {
	for _, ex := range exports {
		if ex.Identifier == fn {
			return ex.Signature, true
		}
	}
	return typebridge.Signature{}, false
}
