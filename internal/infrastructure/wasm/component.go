// Package wasm implements the C5 execution substrate: a wazero-backed
// Runtime that compiles component binaries with capability-gated host
// functions, and a Component wrapper that introspects and invokes one
// compiled binary's exported functions.
package wasm

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
	"github.com/wasmtool-dev/wasmtool/internal/application/ports"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
	"github.com/wasmtool-dev/wasmtool/internal/domain/typebridge"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/wasm/hostfuncs"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// exportsManifestWire is the JSON a component's "wasmtool_exports"
// function returns: the introspected surface, keyed by the invented
// host/guest ABI rather than the WIT canonical ABI, since no
// Component Model runtime library is available to speak the real one.
type exportsManifestWire struct {
	Functions []exportedFunctionWire `json:"functions"`
}

type exportedFunctionWire struct {
	InterfaceName string                     `json:"interface_name,omitempty"`
	FunctionName  string                      `json:"function_name"`
	FunctionKind  string                      `json:"function_kind"`
	Signature     typebridge.SignatureWire `json:"signature"`
}

// callRequestWire is what the host sends a guest's invocation entry
// point: the raw exported function name (never the normalized tool
// name) and its arguments, encoded by name.
type callRequestWire struct {
	Function string         `json:"function"`
	Args     map[string]any `json:"args"`
}

// callResponseWire is what the guest returns.
type callResponseWire struct {
	Results []any  `json:"results,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Component wraps one compiled component binary. It is safe for
// concurrent use: each stateless invocation gets its own fresh
// instance, and a stateful instance is serialized by its own handle's
// mutex rather than a lock on Component itself.
type Component struct {
	componentID string
	module      wazero.CompiledModule
	runtime     wazero.Runtime

	mu      sync.Mutex
	exports []component.ExportedFunction
}

// newComponent wraps a compiled module. Called only from Runtime.Compile.
func newComponent(componentID string, module wazero.CompiledModule, runtime wazero.Runtime) *Component {
	return &Component{componentID: componentID, module: module, runtime: runtime}
}

// moduleConfig builds the wazero configuration for one instance: the
// capability context's storage grants become FSConfig mounts and its
// resolved environment pairs become injected env vars. Network access
// is not expressible here; it is checked live by the fetch host
// function against the component's current policy.
func (c *Component) moduleConfig(capCtx capabilities.Context) wazero.ModuleConfig {
	fsConfig := wazero.NewFSConfig()
	for _, uri := range capCtx.AllowedPathsRead {
		path := storagePathFromURI(uri)
		if path == "" {
			continue
		}
		fsConfig = fsConfig.WithReadOnlyDirMount(path, path)
	}
	for _, uri := range capCtx.AllowedPathsWrite {
		path := storagePathFromURI(uri)
		if path == "" {
			continue
		}
		fsConfig = fsConfig.WithDirMount(path, path)
	}

	cfg := wazero.NewModuleConfig().
		WithFSConfig(fsConfig).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader).
		WithName("")

	for k, v := range capCtx.EnvPairs {
		cfg = cfg.WithEnv(k, v)
	}
	return cfg
}

// storagePathFromURI strips the fs:// scheme and any recursive-wildcard
// suffix, returning the directory wazero should mount.
func storagePathFromURI(uri string) string {
	const scheme = "fs://"
	if !strings.HasPrefix(uri, scheme) {
		return ""
	}
	path := strings.TrimPrefix(uri, scheme)
	path = strings.TrimSuffix(path, "/**")
	if path == "" {
		return "/"
	}
	return path
}

func (c *Component) createInstance(ctx context.Context, capCtx capabilities.Context) (api.Module, error) {
	ctx = hostfuncs.WithComponentID(ctx, c.componentID)
	instance, err := c.runtime.InstantiateModule(ctx, c.module, c.moduleConfig(capCtx))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindExecutionTrapped, "instantiating component", err)
	}
	if initFn := instance.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			_ = instance.Close(ctx)
			return nil, apperrors.Wrap(apperrors.KindExecutionTrapped, "running _initialize", err)
		}
	}
	return instance, nil
}

// Exports introspects the component's surface by calling its
// "wasmtool_exports" export once and caching the result. A component
// that does not export it is invalid.
func (c *Component) Exports(ctx context.Context) ([]component.ExportedFunction, error) {
	c.mu.Lock()
	if c.exports != nil {
		exports := c.exports
		c.mu.Unlock()
		return exports, nil
	}
	c.mu.Unlock()

	instance, err := c.createInstance(ctx, capabilities.Context{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = instance.Close(ctx) }()

	fn := instance.ExportedFunction("wasmtool_exports")
	if fn == nil {
		return nil, apperrors.New(apperrors.KindInvalidComponent, "component does not export wasmtool_exports")
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIntrospectionFail, "calling wasmtool_exports", err)
	}
	if len(results) == 0 {
		return nil, apperrors.New(apperrors.KindIntrospectionFail, "wasmtool_exports returned no results")
	}

	data, err := readPacked(instance, results[0])
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIntrospectionFail, "reading wasmtool_exports result", err)
	}

	var manifest exportsManifestWire
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, apperrors.Wrap(apperrors.KindIntrospectionFail, "parsing exports manifest", err)
	}

	exports := make([]component.ExportedFunction, 0, len(manifest.Functions))
	for _, fw := range manifest.Functions {
		sig, err := typebridge.SignatureFromWire(fw.Signature)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindIntrospectionFail, fmt.Sprintf("function %q", fw.FunctionName), err)
		}
		exports = append(exports, component.ExportedFunction{
			Identifier: component.FunctionIdentifier{
				InterfaceName: fw.InterfaceName,
				FunctionName:  fw.FunctionName,
				FunctionKind:  component.FunctionKind(fw.FunctionKind),
			},
			Signature: sig,
		})
	}

	c.mu.Lock()
	c.exports = exports
	c.mu.Unlock()
	return exports, nil
}

// instanceHandle is a long-lived instance used for stateful components.
type instanceHandle struct {
	mu       sync.Mutex
	instance api.Module
}

func (h *instanceHandle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.instance.Close(ctx)
}

// NewInstance creates a long-lived instance for a stateful component.
func (c *Component) NewInstance(ctx context.Context, capCtx capabilities.Context) (ports.InstanceHandle, error) {
	instance, err := c.createInstance(ctx, capCtx)
	if err != nil {
		return nil, err
	}
	return &instanceHandle{instance: instance}, nil
}

// Invoke calls one exported function. When store is non-nil, it is a
// stateful call: the same instance is reused and calls against it are
// serialized on the handle's own mutex, matching the spec's
// serialize-per-instance invariant. When store is nil, a fresh
// instance is created, used once, and discarded.
func (c *Component) Invoke(ctx context.Context, store ports.InstanceHandle, fn component.FunctionIdentifier, args []*typebridge.Value, sig typebridge.Signature, capCtx capabilities.Context) ([]*typebridge.Value, error) {
	ctx = hostfuncs.WithComponentID(ctx, c.componentID)

	if store != nil {
		handle, ok := store.(*instanceHandle)
		if !ok {
			return nil, apperrors.New(apperrors.KindExecutionTrapped, "instance handle from a different runtime")
		}
		handle.mu.Lock()
		defer handle.mu.Unlock()
		return c.call(ctx, handle.instance, fn, args, sig)
	}

	instance, err := c.createInstance(ctx, capCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = instance.Close(ctx) }()
	return c.call(ctx, instance, fn, args, sig)
}

func (c *Component) call(ctx context.Context, instance api.Module, fn component.FunctionIdentifier, args []*typebridge.Value, sig typebridge.Signature) ([]*typebridge.Value, error) {
	callFn := instance.ExportedFunction("wasmtool_call")
	if callFn == nil {
		return nil, apperrors.New(apperrors.KindInvalidComponent, "component does not export wasmtool_call")
	}

	ctx, recorder := hostfuncs.WithCallRecorder(ctx)

	req := callRequestWire{Function: fn.FunctionName, Args: map[string]any{}}
	for i, p := range sig.Params {
		if i < len(args) {
			req.Args[p.Name] = typebridge.Encode(args[i])
		}
	}
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodingFailed, "marshaling call request", err)
	}

	reqPtr, err := writeToMemory(ctx, instance, reqData)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindExecutionTrapped, "writing call request", err)
	}
	defer deallocate(ctx, instance, reqPtr, uint32(len(reqData)))

	results, err := callFn.Call(ctx, uint64(reqPtr), uint64(len(reqData)))
	if err != nil {
		if denial := recorder.Err(); denial != nil {
			return nil, denial
		}
		return nil, apperrors.Wrap(apperrors.KindExecutionTrapped, fmt.Sprintf("calling %q", fn.FunctionName), err)
	}
	if len(results) == 0 {
		return nil, apperrors.New(apperrors.KindExecutionTrapped, "wasmtool_call returned no results")
	}

	respData, err := readPacked(instance, results[0])
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindExecutionTrapped, "reading call response", err)
	}

	var resp callResponseWire
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodingFailed, "parsing call response", err)
	}
	if resp.Error != "" {
		if denial := recorder.Err(); denial != nil {
			return nil, denial
		}
		return nil, apperrors.New(apperrors.KindExecutionTrapped, resp.Error)
	}

	values := make([]*typebridge.Value, len(sig.Results))
	for i, t := range sig.Results {
		var raw any
		if i < len(resp.Results) {
			raw = resp.Results[i]
		}
		v, err := typebridge.Decode(raw, t)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindDecodingFailed, fmt.Sprintf("result %d", i), err)
		}
		values[i] = v
	}
	return values, nil
}

// Close releases the compiled module.
func (c *Component) Close(ctx context.Context) error {
	return c.module.Close(ctx)
}

func readPacked(instance api.Module, packed uint64) ([]byte, error) {
	ptr := uint32(packed >> 32) //nolint:gosec // packed format stores 32-bit values
	size := uint32(packed)      //nolint:gosec // packed format stores 32-bit values
	if ptr == 0 || size == 0 {
		return nil, fmt.Errorf("null pointer or zero length")
	}
	data, ok := instance.Memory().Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("reading memory at offset %d", ptr)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

func writeToMemory(ctx context.Context, instance api.Module, data []byte) (uint32, error) {
	allocate := instance.ExportedFunction("allocate")
	if allocate == nil {
		return 0, fmt.Errorf("component does not export allocate")
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 {
		return 0, fmt.Errorf("allocate failed: %w", err)
	}
	ptr := uint32(results[0]) //nolint:gosec // guest pointers are 32-bit
	if !instance.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("writing memory at offset %d", ptr)
	}
	return ptr, nil
}

func deallocate(ctx context.Context, instance api.Module, ptr uint32, size uint32) {
	defer func() { _ = recover() }()
	if fn := instance.ExportedFunction("deallocate"); fn != nil {
		_, _ = fn.Call(ctx, uint64(ptr), uint64(size))
	}
}
