package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
	"github.com/wasmtool-dev/wasmtool/internal/application/ports"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
	"github.com/wasmtool-dev/wasmtool/internal/domain/typebridge"
)

// invocationEngine implements C5: building the capability context for
// a call, dispatching stateless vs. stateful execution, and
// structuring the wire result. It is deliberately unexported and owned
// by the Lifecycle Manager rather than exposed as its own public type,
// since spec.md §4.4 names the Lifecycle Manager as "the only
// component touching ... the Invocation Engine".
type invocationEngine struct {
	policies *PolicyService
	secrets  ports.SecretsStore
	env      capabilities.EnvLookup
}

// invoke decodes args against fn's signature, executes it under the
// component's current capability context in the mode declared at
// load time, and returns the result-wrapped JSON object (spec.md
// §4.1's "result wrapping": zero returns -> {}, one -> {result: v},
// many -> {result: {val0: ..., val1: ...}}).
func (e *invocationEngine) invoke(ctx context.Context, entry *componentEntry, fn component.FunctionIdentifier, sig typebridge.Signature, args map[string]any) (map[string]any, error) {
	componentID := entry.record.ComponentID
	traceID := uuid.NewString()
	log := slog.With("trace_id", traceID, "component_id", componentID, "function", fn.FunctionName, "mode", entry.record.Mode)
	log.Debug("invocation started")

	values, err := typebridge.DecodeParams(sig.Params, args)
	if err != nil {
		log.Warn("decoding call arguments failed", "error", err)
		return nil, apperrors.Wrap(apperrors.KindDecodingFailed, "decoding call arguments", err)
	}

	doc, err := e.policies.Get(componentID)
	if err != nil {
		return nil, err
	}
	capCtx := doc.Materialize(secretsLookup(e.secrets, componentID), e.env)

	var results []*typebridge.Value
	switch entry.record.Mode {
	case component.Stateful:
		results, err = e.invokeStateful(ctx, entry, fn, values, sig, capCtx)
	default:
		results, err = entry.compiled.Invoke(ctx, nil, fn, values, sig, capCtx)
	}
	if err != nil {
		log.Warn("invocation failed", "error", err)
		return nil, err
	}

	log.Debug("invocation succeeded")
	return typebridge.EncodeResults(results), nil
}

// invokeStateful serializes on the component's own invocation mutex,
// lazily creating the long-lived instance on first use. A trapped
// instance is poisoned: dropped immediately so the next call
// re-instantiates rather than reusing a store left in an unknown
// state (SPEC_FULL.md §11's stateful-crash-recovery decision).
func (e *invocationEngine) invokeStateful(ctx context.Context, entry *componentEntry, fn component.FunctionIdentifier, values []*typebridge.Value, sig typebridge.Signature, capCtx capabilities.Context) ([]*typebridge.Value, error) {
	entry.invokeMu.Lock()
	defer entry.invokeMu.Unlock()

	if entry.instance == nil {
		instance, err := entry.compiled.NewInstance(ctx, capCtx)
		if err != nil {
			return nil, err
		}
		entry.instance = instance
	}

	results, err := entry.compiled.Invoke(ctx, entry.instance, fn, values, sig, capCtx)
	if err != nil && apperrors.Is(err, apperrors.KindExecutionTrapped) {
		_ = entry.instance.Close(ctx)
		entry.instance = nil
	}
	return results, err
}
