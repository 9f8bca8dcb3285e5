package capabilities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrant_Idempotent(t *testing.T) {
	p := New()
	p.GrantNetwork("api.example.com")
	p.GrantNetwork("api.example.com")
	require.Len(t, p.Network, 1)
}

func TestGrant_MergesAccessForSameURI(t *testing.T) {
	p := New()
	p.GrantStorage("fs:///tmp/f", []AccessMode{AccessRead})
	p.GrantStorage("fs:///tmp/f", []AccessMode{AccessWrite})

	require.Len(t, p.Storage, 1)
	require.True(t, p.Storage[0].HasAccess(AccessRead))
	require.True(t, p.Storage[0].HasAccess(AccessWrite))
}

func TestRevokeStorage_WholeRule(t *testing.T) {
	p := New()
	p.GrantStorage("fs:///tmp/f", []AccessMode{AccessRead, AccessWrite})
	require.True(t, p.RevokeStorage("fs:///tmp/f"))
	require.Empty(t, p.Storage)
}

func TestRevoke_MissingRuleReturnsFalse(t *testing.T) {
	p := New()
	require.False(t, p.RevokeNetwork("nope.example.com"))
	require.False(t, p.RevokeEnvironment("NOPE"))
	require.False(t, p.RevokeStorage("fs:///nope"))
}

func TestResetIdempotence(t *testing.T) {
	p := New()
	p.GrantNetwork("a.example.com")
	p.GrantEnvironment("KEY")

	p.Reset()
	first := p.Clone()
	p.Reset()
	second := p.Clone()

	require.Equal(t, first, second)
	require.True(t, p.IsEmpty())
}

// PolicyMonotonicity is testable property #5: grant(p, r); revoke(p,
// r) returns p to its prior state iff r was not already present;
// otherwise grant is a no-op and the revoke leaves p smaller than
// before the grant.
func TestPolicyMonotonicity_GrantThenRevoke(t *testing.T) {
	p := New()
	before := p.Clone()

	p.GrantNetwork("new.example.com")
	require.NotEqual(t, before, p)

	p.RevokeNetwork("new.example.com")
	require.Equal(t, before, p)
}

func TestPolicyMonotonicity_GrantOfExistingRuleIsNoOp(t *testing.T) {
	p := New()
	p.GrantNetwork("api.example.com")
	before := p.Clone()

	p.GrantNetwork("api.example.com")
	require.Equal(t, before, p)
}
