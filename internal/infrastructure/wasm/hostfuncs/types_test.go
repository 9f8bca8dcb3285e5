package hostfuncs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
)

func TestCallRecorder_NilUntilADenialIsRecorded(t *testing.T) {
	ctx, recorder := WithCallRecorder(context.Background())
	require.Nil(t, recorder.Err())

	recordDenial(ctx, apperrors.New(apperrors.KindCapabilityDenied, "network access denied"))
	require.True(t, apperrors.Is(recorder.Err(), apperrors.KindCapabilityDenied))
}

func TestCallRecorder_FirstDenialWins(t *testing.T) {
	ctx, recorder := WithCallRecorder(context.Background())

	recordDenial(ctx, apperrors.New(apperrors.KindCapabilityDenied, "first"))
	recordDenial(ctx, apperrors.New(apperrors.KindCapabilityDenied, "second"))

	require.Equal(t, "capability_denied: first", recorder.Err().Error())
}

func TestRecordDenial_NoRecorderAttachedIsANoOp(t *testing.T) {
	require.NotPanics(t, func() {
		recordDenial(context.Background(), errors.New("no recorder in this context"))
	})
}

func TestCapabilityChecker_CheckNetwork_DeniedYieldsCapabilityDeniedKind(t *testing.T) {
	checker := NewCapabilityChecker(func(string, string) bool { return false })
	err := checker.CheckNetwork("comp-a", "api.example.com")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindCapabilityDenied))
}

func TestCapabilityChecker_CheckNetwork_AllowedReturnsNil(t *testing.T) {
	checker := NewCapabilityChecker(func(string, string) bool { return true })
	require.NoError(t, checker.CheckNetwork("comp-a", "api.example.com"))
}
