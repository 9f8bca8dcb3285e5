package wasm

import (
	"context"
	"fmt"
	"os"

	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
	"github.com/wasmtool-dev/wasmtool/internal/application/ports"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/wasm/hostfuncs"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// globalCache lets compiled modules skip re-compilation across
// Runtime instances within the same process, mirroring the teacher's
// process-wide compilation cache.
var globalCache = wazero.NewCompilationCache()

// NetworkPolicyLookup resolves the live policy document for a
// component so the fetch host function always checks the current
// grants rather than a snapshot taken at compile time.
type NetworkPolicyLookup func(componentID string) (*capabilities.PolicyDocument, bool)

// Runtime wraps a wazero.Runtime configured with WASI and this
// system's host functions.
type Runtime struct {
	runtime   wazero.Runtime
	frozenEnv []string
}

// Config controls Runtime construction.
type Config struct {
	// MemoryLimitMB bounds each instance's linear memory. 0 selects the
	// default of 256MB; -1 disables the limit.
	MemoryLimitMB int
	// Policies resolves a component's live network policy for the
	// fetch host function.
	Policies NetworkPolicyLookup
}

// NewRuntime builds a Runtime: a wazero runtime with a compilation
// cache, WASI, and the network_fetch/log_message host functions
// registered, gated by cfg.Policies at call time.
func NewRuntime(ctx context.Context, cfg Config) (*Runtime, error) {
	memoryLimitMB := cfg.MemoryLimitMB
	switch {
	case memoryLimitMB == 0:
		memoryLimitMB = 256
	case memoryLimitMB < -1:
		return nil, apperrors.Newf(apperrors.KindInvalidComponent, "invalid memory limit %d (must be >= -1)", memoryLimitMB)
	}

	rtConfig := wazero.NewRuntimeConfig().WithCompilationCache(globalCache)
	if memoryLimitMB > 0 {
		pages := uint32(memoryLimitMB * 16) //nolint:gosec // bounded by config validation above
		rtConfig = rtConfig.WithMemoryLimitPages(pages)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rtConfig)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, apperrors.Wrap(apperrors.KindExecutionTrapped, "instantiating WASI", err)
	}

	allows := func(componentID, host string) bool {
		if cfg.Policies == nil {
			return false
		}
		policy, ok := cfg.Policies(componentID)
		return ok && policy.AllowsNetwork(host)
	}
	if err := hostfuncs.Register(ctx, r, allows); err != nil {
		_ = r.Close(ctx)
		return nil, apperrors.Wrap(apperrors.KindExecutionTrapped, "registering host functions", err)
	}

	return &Runtime{runtime: r, frozenEnv: os.Environ()}, nil
}

// Environ returns the frozen process-environment snapshot taken at
// Runtime construction, so capability materialization never observes
// a mutation to the process environment made after startup.
func (r *Runtime) Environ() []string { return r.frozenEnv }

// Compile compiles wasmBytes and returns a component wrapper bound to
// componentID for host-function attribution. Capability-gated
// filesystem and environment access is applied per instance at
// invocation time, not at compile time, so the compiled handle is
// reused across policy changes.
func (r *Runtime) Compile(ctx context.Context, componentID string, wasmBytes []byte) (ports.CompiledComponent, error) {
	module, err := r.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidComponent, fmt.Sprintf("compiling component %q", componentID), err)
	}
	return newComponent(componentID, module, r.runtime), nil
}

// Close shuts down the runtime and all compiled modules within it.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
