package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmtool-dev/wasmtool/internal/application/errors"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
)

func newTestLifecycleManager(t *testing.T, exports map[string][]component.ExportedFunction) (*LifecycleManager, *fakeRuntime) {
	t.Helper()
	store := &fakeComponentStore{exports: exports}
	runtime := newFakeRuntime(store)
	policies := NewPolicyService(newFakePolicyStore())
	secrets := &fakeSecretsStore{values: map[string]string{}}
	lm := NewLifecycleManager(store, runtime, policies, secrets, nil, nil)
	return lm, runtime
}

func TestLifecycleManager_LoadRegistersNormalizedToolNames(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})

	result, err := lm.Load(context.Background(), "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)
	require.Equal(t, "echo", result.ComponentID)
	require.Equal(t, []string{"ping"}, result.ToolsLoaded)
}

func TestLifecycleManager_LoadIsDeterministicAcrossReload(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})
	ctx := context.Background()

	first, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)
	second, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)

	require.Equal(t, first.ComponentID, second.ComponentID)
	require.Equal(t, first.ToolsLoaded, second.ToolsLoaded)
}

func TestLifecycleManager_ToolFilterRestrictsRegistration(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})

	result, err := lm.Load(context.Background(), "file:///opt/components/echo.wasm", []string{"does-not-exist"}, component.Stateless)
	require.NoError(t, err)
	require.Empty(t, result.ToolsLoaded)
}

func TestLifecycleManager_ReloadUnregistersStaleToolNames(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})
	ctx := context.Background()

	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)

	// Reload with a filter that drops the only tool.
	_, err = lm.Load(ctx, "file:///opt/components/echo.wasm", []string{"nonexistent"}, component.Stateless)
	require.NoError(t, err)

	_, err = lm.Invoke(ctx, "ping", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.KindToolNotFound))
}

func TestLifecycleManager_ToolNameCollisionAcrossDistinctComponents(t *testing.T) {
	exports := map[string][]component.ExportedFunction{
		"echo":  echoExports(),
		"echo2": echoExports(),
	}
	lm, _ := newTestLifecycleManager(t, exports)
	ctx := context.Background()

	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)

	_, err = lm.Load(ctx, "file:///opt/components/echo2.wasm", nil, component.Stateless)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.KindToolNameCollision))
}

func TestLifecycleManager_UnloadRemovesToolsAndRecord(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})
	ctx := context.Background()

	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)
	require.NoError(t, lm.Unload(ctx, "echo"))

	require.Empty(t, lm.List())
	_, err = lm.Invoke(ctx, "ping", nil)
	require.Error(t, err)
}

func TestLifecycleManager_UnloadUnknownComponentFails(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, nil)
	err := lm.Unload(context.Background(), "nope")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.KindComponentNotFound))
}

// TestLifecycleManager_ConcurrentLoadOfSameComponentIsCollapsed is the
// per-ID exclusion property: many concurrent Load calls for the same
// source URI must all succeed and leave exactly one compiled component
// registered under that component_id.
func TestLifecycleManager_ConcurrentLoadOfSameComponentIsCollapsed(t *testing.T) {
	lm, runtime := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	runtime.mu.Lock()
	compiledCount := len(runtime.compiled)
	runtime.mu.Unlock()
	require.Equal(t, 1, compiledCount)
}

func TestLifecycleManager_InvokeUnknownToolFails(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, nil)
	_, err := lm.Invoke(context.Background(), "missing", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.KindToolNotFound))
}

func TestLifecycleManager_InvokeStatelessResultWrapping(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})
	ctx := context.Background()
	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)

	result, err := lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)
	_, ok := result["result"]
	require.True(t, ok)
}

func TestLifecycleManager_GetPolicyRequiresLoadedComponent(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, nil)
	_, err := lm.GetPolicy("nope")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.KindComponentNotFound))
}

func TestLifecycleManager_GrantAndGetPolicyRoundTrip(t *testing.T) {
	lm, _ := newTestLifecycleManager(t, map[string][]component.ExportedFunction{
		"echo": echoExports(),
	})
	ctx := context.Background()
	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)

	_, err = lm.GrantNetwork("echo", "api.example.com")
	require.NoError(t, err)

	doc, err := lm.GetPolicy("echo")
	require.NoError(t, err)
	require.True(t, doc.AllowsNetwork("api.example.com"))
}

func TestLifecycleManager_InvokeReloadsWhenOnDiskStampDrifts(t *testing.T) {
	store := &fakeComponentStore{exports: map[string][]component.ExportedFunction{
		"echo": echoExports(),
	}}
	runtime := newFakeRuntime(store)
	policies := NewPolicyService(newFakePolicyStore())
	secrets := &fakeSecretsStore{values: map[string]string{}}
	lm := NewLifecycleManager(store, runtime, policies, secrets, nil, nil)

	ctx := context.Background()
	_, err := lm.Load(ctx, "file:///opt/components/echo.wasm", nil, component.Stateless)
	require.NoError(t, err)

	_, err = lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), runtime.compiled["echo"].invokeCount.Load())

	oldCompiled := runtime.compiled["echo"]
	store.touch("echo", 4096)

	result, err := lm.Invoke(ctx, "ping", nil)
	require.NoError(t, err)
	_, ok := result["result"]
	require.True(t, ok)

	require.True(t, oldCompiled.closed.Load(), "the drifted compiled component should have been closed on reload")
	require.NotSame(t, oldCompiled, runtime.compiled["echo"], "reload should install a new compiled component")

	current, ok := store.Stat("echo")
	require.True(t, ok)
	require.Equal(t, int64(4096), lm.registry["echo"].record.Stamp.Size)
	require.True(t, current.Equal(lm.registry["echo"].record.Stamp), "registry stamp should reflect the reloaded on-disk stamp")
}

func TestLifecycleManager_InvokeSkipsReloadWhenStampUnchanged(t *testing.T) {
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

	require.Len(t, runtime.compiled, 1)
	require.False(t, runtime.compiled["echo"].closed.Load())
}

func TestLifecycleManager_SearchReturnsConfiguredCatalog(t *testing.T) {
	catalog := []CatalogEntry{{Name: "echo", SourceURI: "file:///opt/components/echo.wasm", Description: "echoes input"}}
	store := &fakeComponentStore{}
	runtime := newFakeRuntime(store)
	policies := NewPolicyService(newFakePolicyStore())
	secrets := &fakeSecretsStore{}
	lm := NewLifecycleManager(store, runtime, policies, secrets, nil, catalog)

	require.Equal(t, catalog, lm.Search())
}
