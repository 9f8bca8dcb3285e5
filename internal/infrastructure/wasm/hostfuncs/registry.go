package hostfuncs

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostModuleName is the module name components import their host
// functions from.
const HostModuleName = "wasmtool_host"

// Register builds and instantiates the host module exposing
// network_fetch and log_message to every component instance created
// from runtime. allows resolves live network policy per call.
func Register(ctx context.Context, runtime wazero.Runtime, allows NetworkChecker) error {
	checker := NewCapabilityChecker(allows)

	builder := runtime.NewHostModuleBuilder(HostModuleName)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			Fetch(ctx, mod, stack, checker)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("network_fetch")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			LogMessage(ctx, mod, stack)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export("log_message")

	_, err := builder.Instantiate(ctx)
	return err
}
