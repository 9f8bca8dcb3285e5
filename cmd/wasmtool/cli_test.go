package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// runCLI executes rootCmd with args against a fresh cache dir and
// returns combined stdout/stderr. Each subcommand builds its own
// Container via withContainer, so every invocation needs an isolated
// WASMTOOL_CACHE_DIR to avoid cross-test interference.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WASMTOOL_CACHE_DIR", t.TempDir())

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestList_NoComponentsLoaded(t *testing.T) {
	_, err := runCLI(t, "list")
	require.NoError(t, err)
}

func TestSearch_PrintsStaticCatalog(t *testing.T) {
	_, err := runCLI(t, "search")
	require.NoError(t, err)
}

func TestGrantStorage_RequiresReadOrWrite(t *testing.T) {
	_, err := runCLI(t, "grant", "storage", "some-component", "fs:///data")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--read or --write")
}

func TestUnload_UnknownComponentFails(t *testing.T) {
	_, err := runCLI(t, "unload", "nope")
	require.Error(t, err)
}

func TestInvoke_InvalidJSONArgsFails(t *testing.T) {
	_, err := runCLI(t, "invoke", "some-tool", "--args", "{not-json")
	require.Error(t, err)
}

func TestVersion_Succeeds(t *testing.T) {
	_, err := runCLI(t, "version")
	require.NoError(t, err)
}

func TestSetSecret_Succeeds(t *testing.T) {
	_, err := runCLI(t, "set-secret", "text_transform", "API_KEY", "s3cr3t")
	require.NoError(t, err)
}
