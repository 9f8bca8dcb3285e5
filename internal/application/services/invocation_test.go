package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
)

func statefulExports() []component.ExportedFunction {
	return echoExports()
}

func TestInvocationEngine_StatelessCallUsesNilStorePerInvocation(t *testing.T) {
	lm, runtime := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})
	ctx := context.Background()
	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)

	_, err = lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)
	_, err = lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)

	compiled := runtime.compiled["echo"]
	require.EqualValues(t, 2, compiled.invokeCount.Load())
	require.Zero(t, compiled.instanceCount.Load())
}

func TestInvocationEngine_StatefulCallLazilyCreatesAndReusesInstance(t *testing.T) {
	lm, runtime := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": statefulExports(),
	})
	ctx := context.Background()
	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateful)
	require.NoError(t, err)

	_, err = lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)
	_, err = lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)

	compiled := runtime.compiled["echo"]
	require.EqualValues(t, 1, compiled.instanceCount.Load())
	require.EqualValues(t, 2, compiled.invokeCount.Load())
}

// TestInvocationEngine_TrappedStatefulInstanceIsPoisonedAndRecreated is
// SPEC_FULL.md's stateful crash-recovery decision: a trap closes the
// live instance and the next call transparently recreates it.
func TestInvocationEngine_TrappedStatefulInstanceIsPoisonedAndRecreated(t *testing.T) {
	lm, runtime := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": statefulExports(),
	})
	ctx := context.Background()
	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateful)
	require.NoError(t, err)

	compiled := runtime.compiled["echo"]

	_, err = lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, compiled.instanceCount.Load())

	compiled.trapNextInvoke.Store(true)
	_, err = lm.Invoke(ctx, "ping", nil)
	require.Error(t, err)

	// Next call must recreate the instance rather than reuse the
	// poisoned one.
	_, err = lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, compiled.instanceCount.Load())
}

func TestInvocationEngine_CapabilityContextPrefersSecretOverEnv(t *testing.T) {
	store := &fakeComponentStore{exports: map[string][]component.ExportedFunction{"echo": echoExports()}}
	runtime := newFakeRuntime(store)
	policies := NewPolicyService(newFakePolicyStore())
	secrets := &fakeSecretsStore{values: map[string]string{"echo:API_KEY": "from-secret"}}
	lm := NewLifecycleManager(store, runtime, policies, secrets, []string{"API_KEY=from-env"}, nil)

	ctx := context.Background()
	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)
	_, err = lm.GrantEnvironment("echo", "API_KEY")
	require.NoError(t, err)

	// Materialize is exercised indirectly through Invoke; assert via a
	// direct call to confirm precedence independent of invocation
	// plumbing.
	doc, err := lm.GetPolicy("echo")
	require.NoError(t, err)
	capCtx := doc.Materialize(secretsLookup(secrets, "echo"), envLookupFromEnviron([]string{"API_KEY=from-env"}))
	require.Equal(t, "from-secret", capCtx.EnvPairs["API_KEY"])
}
