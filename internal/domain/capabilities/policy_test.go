package capabilities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchHost_WildcardIsSingleLabel(t *testing.T) {
	require.True(t, MatchHost("*.x.y", "a.x.y"))
	require.False(t, MatchHost("*.x.y", "a.b.x.y"))
	require.False(t, MatchHost("*.x.y", "x.y"))
}

func TestMatchHost_BareIsLiteral(t *testing.T) {
	require.True(t, MatchHost("api.example.com", "api.example.com"))
	require.False(t, MatchHost("api.example.com", "sub.api.example.com"))
}

func TestMatchStoragePath_RecursiveWildcard(t *testing.T) {
	require.True(t, MatchStoragePath("fs:///a/b/**", "fs:///a/b/c"))
	require.True(t, MatchStoragePath("fs:///a/b/**", "fs:///a/b"))
	require.False(t, MatchStoragePath("fs:///a/b/**", "fs:///a/other"))
}

func TestMatchStoragePath_ExactOnly(t *testing.T) {
	require.True(t, MatchStoragePath("fs:///a/b/c", "fs:///a/b/c"))
	require.False(t, MatchStoragePath("fs:///a/b/c", "fs:///a/b/c/d"))
}

func TestDenyByDefault(t *testing.T) {
	p := New()
	require.False(t, p.AllowsNetwork("api.example.com"))
	require.False(t, p.AllowsStorage("fs:///tmp/f", AccessRead))
	require.False(t, p.AllowsEnvironment("KEY"))
}

func TestMaterialize_SecretsBeforeEnv(t *testing.T) {
	p := New()
	p.GrantEnvironment("KEY")

	secrets := func(k string) (string, bool) {
		if k == "KEY" {
			return "from-secret", true
		}
		return "", false
	}
	env := func(k string) (string, bool) {
		if k == "KEY" {
			return "from-env", true
		}
		return "", false
	}

	ctx := p.Materialize(secrets, env)
	require.Equal(t, "from-secret", ctx.EnvPairs["KEY"])
}

func TestMaterialize_FallsBackToEnvWhenSecretEmpty(t *testing.T) {
	p := New()
	p.GrantEnvironment("KEY")

	secrets := func(string) (string, bool) { return "", false }
	env := func(k string) (string, bool) {
		if k == "KEY" {
			return "from-env", true
		}
		return "", false
	}

	ctx := p.Materialize(secrets, env)
	require.Equal(t, "from-env", ctx.EnvPairs["KEY"])
}

func TestMaterialize_UnlistedKeyNeverExposed(t *testing.T) {
	p := New()
	secrets := func(string) (string, bool) { return "leaked", true }
	env := func(string) (string, bool) { return "leaked", true }

	ctx := p.Materialize(secrets, env)
	require.Empty(t, ctx.EnvPairs)
}
