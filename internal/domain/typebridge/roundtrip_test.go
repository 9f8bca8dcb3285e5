package typebridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// jsonRoundTrip re-encodes a JSON-ready `any` tree through
// encoding/json to normalize it the same way a real wire transfer
// would (map key order, number representation).
func jsonRoundTrip(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRoundTrip_ScalarTypes(t *testing.T) {
	cases := []struct {
		ty  *Type
		raw any
	}{
		{Bool(), true},
		{S32(), -5.0},
		{U8(), 200.0},
		{F64(), 3.5},
		{Char(), "x"},
		{String(), "hello"},
	}
	for _, c := range cases {
		v, err := Decode(jsonRoundTrip(t, c.raw), c.ty)
		require.NoError(t, err)
		require.Equal(t, jsonRoundTrip(t, c.raw), jsonRoundTrip(t, Encode(v)))
	}
}

func TestRoundTrip_Record(t *testing.T) {
	ty := Record(Field{Name: "s", Type: String()}, Field{Name: "n", Type: S32()})
	input := map[string]any{"s": "a", "n": 3.0}

	v, err := Decode(input, ty)
	require.NoError(t, err)
	require.Equal(t, input, jsonRoundTrip(t, Encode(v)))
}

func TestRoundTrip_Variant(t *testing.T) {
	ty := Variant(
		VariantCase{Name: "positive", Payload: S32()},
		VariantCase{Name: "zero"},
		VariantCase{Name: "negative", Payload: S32()},
	)

	neg := map[string]any{"tag": "negative", "val": -5.0}
	v, err := Decode(neg, ty)
	require.NoError(t, err)
	require.Equal(t, neg, jsonRoundTrip(t, Encode(v)))

	zero := map[string]any{"tag": "zero"}
	v, err = Decode(zero, ty)
	require.NoError(t, err)
	require.Equal(t, zero, jsonRoundTrip(t, Encode(v)))
}

func TestRoundTrip_OptionNullNormalization(t *testing.T) {
	ty := Option(String())

	v, err := Decode(nil, ty)
	require.NoError(t, err)
	require.Nil(t, Encode(v))

	v, err = Decode("x", ty)
	require.NoError(t, err)
	require.Equal(t, "x", Encode(v))
}

func TestRoundTrip_ResultOkErr(t *testing.T) {
	ty := Result(String(), String())

	ok := map[string]any{"ok": "value"}
	v, err := Decode(ok, ty)
	require.NoError(t, err)
	require.Equal(t, ok, jsonRoundTrip(t, Encode(v)))

	failed := map[string]any{"err": "boom"}
	v, err = Decode(failed, ty)
	require.NoError(t, err)
	require.Equal(t, failed, jsonRoundTrip(t, Encode(v)))
}

func TestRoundTrip_FlagsDuplicatesIdempotent(t *testing.T) {
	ty := Flags("read", "write")
	v, err := Decode([]any{"read", "read", "write"}, ty)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"read", "write"}, v.Flags)
}

func TestDecode_MissingRequiredField(t *testing.T) {
	ty := Record(Field{Name: "s", Type: String()})
	_, err := Decode(map[string]any{}, ty)
	require.Error(t, err)
}

func TestDecode_UnknownFieldRejected(t *testing.T) {
	ty := Record(Field{Name: "s", Type: String()})
	_, err := Decode(map[string]any{"s": "a", "extra": 1.0}, ty)
	require.Error(t, err)
}

func TestDecode_IntegerOverflow(t *testing.T) {
	_, err := Decode(300.0, U8())
	require.Error(t, err)
}

func TestDecode_FractionalIntegerRejected(t *testing.T) {
	_, err := Decode(1.5, S32())
	require.Error(t, err)
}

func TestDecode_CharRequiresSingleScalar(t *testing.T) {
	_, err := Decode("ab", Char())
	require.Error(t, err)
}

func TestZeroResults_EncodesUnderResultWrapping(t *testing.T) {
	results := []*Type{S32(), String()}
	values := ZeroResults(results)
	wrapped := EncodeResults(values)
	inner := wrapped["result"].(map[string]any)
	require.Contains(t, inner, "val0")
	require.Contains(t, inner, "val1")
}

func FuzzDecodeString(f *testing.F) {
	f.Add("hello")
	f.Add("")
	f.Add("héllo")
	f.Fuzz(func(t *testing.T, s string) {
		v, err := Decode(s, String())
		if err != nil {
			t.Skip()
		}
		require.Equal(t, s, Encode(v))
	})
}

func FuzzDecodeS32(f *testing.F) {
	f.Add(0.0)
	f.Add(-5.0)
	f.Add(2147483647.0)
	f.Fuzz(func(t *testing.T, n float64) {
		v, err := Decode(n, S32())
		if err != nil {
			return
		}
		require.Equal(t, int64(n), v.Int)
	})
}
