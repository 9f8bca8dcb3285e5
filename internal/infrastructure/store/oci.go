package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// wasmMediaType is the layer media type an OCI-packaged component is
// expected to carry; components are single-layer, so the first layer
// matching it wins.
const wasmMediaType = "application/wasm"

// OCIFetcher resolves `oci://<host>/<repository>:<tag>` source URIs
// against a remote OCI registry, pulling the single wasm layer out of
// the referenced manifest. A tag that parses as a semver constraint
// (e.g. `^1.2`, `~1`) rather than an exact version is resolved against
// the repository's tag list.
type OCIFetcher struct {
	Username string
	Password string
}

// Scheme returns "oci".
func (OCIFetcher) Scheme() string { return "oci" }

// Fetch pulls the component's wasm layer bytes from the registry.
func (f OCIFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	ref := strings.TrimPrefix(uri, "oci://")
	if ref == "" {
		return nil, fmt.Errorf("empty oci:// reference in %q", uri)
	}

	repo, err := remote.NewRepository(ref)
	if err != nil {
		return nil, fmt.Errorf("parsing reference %q: %w", ref, err)
	}
	if f.Username != "" {
		repo.Client = &auth.Client{
			Client:     retry.DefaultClient,
			Cache:      auth.NewCache(),
			Credential: auth.StaticCredential(repo.Reference.Registry, auth.Credential{Username: f.Username, Password: f.Password}),
		}
	}

	tag, err := f.resolveTag(ctx, repo)
	if err != nil {
		return nil, err
	}

	dst := memory.New()
	manifestDesc, err := oras.Copy(ctx, repo, tag, dst, tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("copying manifest for tag %q: %w", tag, err)
	}

	manifestRC, err := dst.Fetch(ctx, manifestDesc)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	defer func() { _ = manifestRC.Close() }()

	var manifest ocispec.Manifest
	if err := json.NewDecoder(manifestRC).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	for _, layer := range manifest.Layers {
		if layer.MediaType != wasmMediaType {
			continue
		}
		layerRC, err := dst.Fetch(ctx, layer)
		if err != nil {
			return nil, fmt.Errorf("fetching wasm layer: %w", err)
		}
		defer func() { _ = layerRC.Close() }()
		data, err := io.ReadAll(layerRC)
		if err != nil {
			return nil, fmt.Errorf("reading wasm layer: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("manifest for %q has no %s layer", ref, wasmMediaType)
}

// resolveTag extracts the reference's tag and, if it is a semver
// constraint rather than an exact tag, picks the highest matching tag
// the repository currently advertises.
func (f OCIFetcher) resolveTag(ctx context.Context, repo *remote.Repository) (string, error) {
	tag := repo.Reference.ReferenceOrDefault()
	constraint, err := semver.NewConstraint(tag)
	if err != nil {
		// Not a constraint expression; treat as a literal tag.
		return tag, nil
	}
	if _, err := semver.NewVersion(tag); err == nil {
		// An exact version also parses as a trivial constraint; prefer
		// the literal tag.
		return tag, nil
	}

	var best *semver.Version
	var bestTag string
	err = repo.Tags(ctx, "", func(tags []string) error {
		for _, t := range tags {
			v, err := semver.NewVersion(t)
			if err != nil {
				continue
			}
			if !constraint.Check(v) {
				continue
			}
			if best == nil || v.GreaterThan(best) {
				best = v
				bestTag = t
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("listing tags: %w", err)
	}
	if best == nil {
		return "", fmt.Errorf("no tag satisfies constraint %q", tag)
	}
	return bestTag, nil
}
