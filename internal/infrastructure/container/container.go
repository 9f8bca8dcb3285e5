// Package container is the composition root: it wires the config,
// build metadata, storage, policy, runtime, and application-service
// adapters into one Container the CLI commands depend on, following
// the teacher's internal/infrastructure/container pattern.
package container

import (
	"context"
	"log/slog"

	"github.com/wasmtool-dev/wasmtool/internal/application/services"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/build"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/config"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/policy"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/store"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/wasm"
	"golang.org/x/sync/errgroup"
)

// catalog seeds search() with the small set of components this
// codebase's own test fixtures and examples ship, matching
// SPEC_FULL.md §11's "search() static registry" resolution: an
// embedded Go slice rather than a live query.
var catalog = []services.CatalogEntry{
	{Name: "echo", Description: "Round-trips its input, useful for wiring smoke tests", SourceURI: "file:///usr/local/share/wasmtool/components/echo.wasm"},
	{Name: "text-transform", Description: "String case and trim utilities", SourceURI: "file:///usr/local/share/wasmtool/components/text-transform.wasm"},
}

// Options configure Container construction.
type Options struct {
	Logger           *slog.Logger
	SystemConfigPath string
}

// Container holds every wired dependency the CLI commands need.
type Container struct {
	cfg       *config.Config
	build     build.Info
	logger    *slog.Logger
	runtime   *wasm.Runtime
	policy    *policy.FileStore
	secrets   *policy.SecretsStore
	lifecycle *services.LifecycleManager
}

// New builds a Container: loads config, opens the policy and secrets
// stores, builds the capability-gated wazero runtime, and assembles
// the Lifecycle Manager.
func New(ctx context.Context, opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg, err := config.Load(opts.SystemConfigPath)
	if err != nil {
		return nil, err
	}

	policyStore := policy.NewFileStore(cfg.CacheDir)
	secretsStore := policy.NewSecretsStore(cfg.CacheDir)

	runtime, err := wasm.NewRuntime(ctx, wasm.Config{
		MemoryLimitMB: cfg.WasmMemoryLimitMB,
		Policies: func(componentID string) (*capabilities.PolicyDocument, bool) {
			doc, err := policyStore.Load(componentID)
			if err != nil {
				return nil, false
			}
			return doc, true
		},
	})
	if err != nil {
		return nil, err
	}

	componentStore := store.New(cfg.CacheDir,
		store.FileFetcher{},
		store.OCIFetcher{Username: cfg.OCIRegistryUser, Password: cfg.OCIRegistryPass},
	)

	policySvc := services.NewPolicyService(policyStore)
	lifecycle := services.NewLifecycleManager(componentStore, runtime, policySvc, secretsStore, runtime.Environ(), catalog)

	return &Container{
		cfg:       cfg,
		build:     build.Get(),
		logger:    opts.Logger,
		runtime:   runtime,
		policy:    policyStore,
		secrets:   secretsStore,
		lifecycle: lifecycle,
	}, nil
}

// Lifecycle returns the Lifecycle Manager.
func (c *Container) Lifecycle() *services.LifecycleManager { return c.lifecycle }

// Secrets returns the secrets store, exposed for a `set-secret` CLI
// command that never goes through the Lifecycle Manager since secrets
// are not policy state.
func (c *Container) Secrets() *policy.SecretsStore { return c.secrets }

// Config returns the resolved process configuration.
func (c *Container) Config() *config.Config { return c.cfg }

// Build returns the resolved build metadata.
func (c *Container) Build() build.Info { return c.build }

// Logger returns the configured logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// Close releases the underlying WASM runtime.
func (c *Container) Close(ctx context.Context) error {
	return c.runtime.Close(ctx)
}

// PreloadAll loads every sourceURI concurrently, in the shape of the
// teacher's capability_orchestrator.go plugin-loading fan-out: each
// load runs in its own goroutine and the first failure cancels the
// rest via the shared errgroup context.
func (c *Container) PreloadAll(ctx context.Context, sourceURIs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, uri := range sourceURIs {
		g.Go(func() error {
			_, err := c.lifecycle.Load(gctx, uri, nil, "")
			return err
		})
	}
	return g.Wait()
}
