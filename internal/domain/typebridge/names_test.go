package typebridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToolName_Normalization(t *testing.T) {
	cases := []struct {
		iface, fn, want string
	}{
		{"", "echo", "echo"},
		{"wasi:http/handler", "handle-request", "wasi_http_handler_handle-request"},
		{"my.pkg:iface", "Fn", "my_pkg_iface_fn"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ToolName(c.iface, c.fn))
	}
}

func TestToolName_DeterministicAcrossCalls(t *testing.T) {
	a := ToolName("wasi:http/handler", "fetch-url")
	b := ToolName("wasi:http/handler", "fetch-url")
	require.Equal(t, a, b)
}

func TestToolName_HyphenPreservedForCollisionFreedom(t *testing.T) {
	// Two distinct valid component-model identifiers that differ only
	// by hyphen placement must not collapse to the same tool name.
	a := ToolName("", "fetch-url")
	b := ToolName("", "fetchurl")
	require.NotEqual(t, a, b)
}
