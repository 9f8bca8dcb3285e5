package store

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileFetcher resolves `file://<absolute-path>` source URIs by
// reading the referenced path directly off the local filesystem.
type FileFetcher struct{}

// Scheme returns "file".
func (FileFetcher) Scheme() string { return "file" }

// Fetch reads the file named by uri's path component.
func (FileFetcher) Fetch(_ context.Context, uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	if path == "" {
		return nil, fmt.Errorf("empty file:// path in %q", uri)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return data, nil
}
