package hostfuncs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tetratelabs/wazero/api"
)

// LogMessageWire is the JSON wire format for a guest-emitted log
// record.
type LogMessageWire struct {
	ComponentID string        `json:"component_id,omitempty"`
	Level       string        `json:"level"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
	Attrs       []LogAttrWire `json:"attrs,omitempty"`
}

// LogAttrWire is a single structured logging attribute, carried as a
// typed string so the JSON boundary never needs a dynamic-any schema.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"` // string|int64|bool|float64|time|error
	Value string `json:"value"`
}

// LogMessage implements the log_message host function: it has no
// return value, matching the guest SDK's fire-and-forget logging call.
func LogMessage(ctx context.Context, mod api.Module, stack []uint64) {
	var msg LogMessageWire
	if err := readRequest(mod, stack[0], &msg); err != nil {
		slog.ErrorContext(ctx, "hostfuncs: failed to read log message", "error", err)
		return
	}

	componentID, _ := ComponentIDFromContext(ctx)
	if msg.ComponentID == "" {
		msg.ComponentID = componentID
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(msg.Level)); err != nil {
		slog.WarnContext(ctx, "hostfuncs: unknown log level from component", "level", msg.Level, "component_id", msg.ComponentID)
	}

	attrs := make([]slog.Attr, 0, len(msg.Attrs)+1)
	attrs = append(attrs, slog.String("component_id", msg.ComponentID))
	for _, a := range msg.Attrs {
		attrs = append(attrs, convertLogAttr(a))
	}
	slog.LogAttrs(ctx, level, msg.Message, attrs...)
}

func convertLogAttr(attr LogAttrWire) slog.Attr {
	switch attr.Type {
	case "string":
		return slog.String(attr.Key, attr.Value)
	case "int64":
		if v, err := strconv.ParseInt(attr.Value, 10, 64); err == nil {
			return slog.Int64(attr.Key, v)
		}
	case "bool":
		if v, err := strconv.ParseBool(attr.Value); err == nil {
			return slog.Bool(attr.Key, v)
		}
	case "float64":
		if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
			return slog.Float64(attr.Key, v)
		}
	case "time":
		if v, err := time.Parse(time.RFC3339Nano, attr.Value); err == nil {
			return slog.Time(attr.Key, v)
		}
	case "error":
		return slog.Any(attr.Key, fmt.Errorf("%s", attr.Value))
	}
	return slog.Any(attr.Key, attr.Value)
}
