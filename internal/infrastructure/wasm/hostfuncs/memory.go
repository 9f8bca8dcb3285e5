package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// packPtrLen and unpackPtrLen match the guest SDK's packed-argument
// convention: a function that needs to pass a buffer across the
// boundary packs its pointer into the high 32 bits and its length into
// the low 32 bits of a single i64.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32) //nolint:gosec // packed format stores 32-bit values
	length = uint32(packed)    //nolint:gosec // packed format stores 32-bit values
	return ptr, length
}

// writeResponse marshals v to JSON, asks the guest to allocate space
// for it via its exported "allocate" function, copies the bytes into
// guest memory, and returns the packed ptr+len the guest should
// interpret as its call result.
func writeResponse(ctx context.Context, mod api.Module, v any) uint64 {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(map[string]any{"error": fmt.Sprintf("hostfuncs: failed to marshal response: %v", err)})
	}

	allocate := mod.ExportedFunction("allocate")
	if allocate == nil {
		return 0
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 {
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // guest pointers are 32-bit

	if !mod.Memory().Write(ptr, data) {
		return 0
	}
	return packPtrLen(ptr, uint32(len(data))) //nolint:gosec // response bodies are bounded well under 4GiB
}

// readRequest reads the JSON argument a guest passed as a packed
// ptr+len and decodes it into dst.
func readRequest(mod api.Module, packed uint64, dst any) error {
	ptr, length := unpackPtrLen(packed)
	raw, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return fmt.Errorf("hostfuncs: failed to read request from guest memory")
	}
	return json.Unmarshal(raw, dst)
}
