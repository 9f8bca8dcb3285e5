// Package hostfuncs implements the host functions exposed to guest
// components beyond what WASI already covers: outbound network
// access, gated by the live capability policy, and guest-emitted
// structured logging. Filesystem and environment-variable capability
// enforcement happens earlier, via wazero's own FSConfig/env
// injection when a component instance is created (see
// internal/infrastructure/wasm.Component), so there is no separate
// storage or env host function here.
package hostfuncs

import (
	"context"
	"sync"

	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
)

// NetworkChecker resolves whether the calling component's live policy
// allows a given host. It is a function rather than a stored document
// so every call sees the current policy, not a snapshot taken at
// component-load time.
type NetworkChecker func(componentID, host string) bool

// CapabilityChecker gates host functions with a per-call live network
// check, keyed by the component id the call's context carries (see
// WithComponentID).
type CapabilityChecker struct {
	allows NetworkChecker
}

// NewCapabilityChecker builds a checker backed by allows.
func NewCapabilityChecker(allows NetworkChecker) *CapabilityChecker {
	return &CapabilityChecker{allows: allows}
}

// CheckNetwork returns capability_denied unless the component's
// policy allows host.
func (c *CapabilityChecker) CheckNetwork(componentID, host string) error {
	if c.allows(componentID, host) {
		return nil
	}
	return apperrors.Newf(apperrors.KindCapabilityDenied, "network access to %q denied for component %q", host, componentID)
}

type contextKey struct{ name string }

var componentIDKey = &contextKey{name: "component_id"}

// WithComponentID attaches the calling component's id to ctx so host
// functions can identify the caller without threading it through
// every call signature.
func WithComponentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, componentIDKey, id)
}

// ComponentIDFromContext retrieves the id set by WithComponentID.
func ComponentIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(componentIDKey).(string)
	return id, ok
}

// CallRecorder captures the first capability denial a host function
// raises during one guest call. A denial is always stringified into
// the wire response so the guest can see it too, but the guest's own
// error text can't be trusted to preserve the distinction between "the
// host refused" and "the component itself failed" — the recorder lets
// the caller of the guest function recover that distinction after the
// call returns.
type CallRecorder struct {
	mu  sync.Mutex
	err error
}

func (r *CallRecorder) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// Err returns the first denial recorded during the call, or nil if
// none occurred.
func (r *CallRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

var callRecorderKey = &contextKey{name: "call_recorder"}

// WithCallRecorder attaches a fresh CallRecorder to ctx for the
// duration of one guest call.
func WithCallRecorder(ctx context.Context) (context.Context, *CallRecorder) {
	r := &CallRecorder{}
	return context.WithValue(ctx, callRecorderKey, r), r
}

// recordDenial flags err on the call's recorder, if one is attached.
func recordDenial(ctx context.Context, err error) {
	if r, ok := ctx.Value(callRecorderKey).(*CallRecorder); ok {
		r.record(err)
	}
}
