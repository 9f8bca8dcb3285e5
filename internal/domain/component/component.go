// Package component defines the domain records the Lifecycle Manager
// owns: the component_id, function identifiers, generated tool
// descriptors, and the component record that ties a loaded binary to
// its introspected surface.
package component

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/wasmtool-dev/wasmtool/internal/domain/typebridge"
)

var (
	toolNamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)
	idSanitizePattern = regexp.MustCompile(`[^a-z0-9_-]`)
)

// FunctionKind distinguishes the four export shapes a component's
// surface may contain.
type FunctionKind string

const (
	FreeFunction FunctionKind = "free_function"
	Method       FunctionKind = "method"
	StaticMethod FunctionKind = "static_method"
	Constructor  FunctionKind = "constructor"
)

// FunctionIdentifier names one exported function. InterfaceName is
// empty for world-level exports.
type FunctionIdentifier struct {
	InterfaceName string
	FunctionName  string
	FunctionKind  FunctionKind
}

// ToolDescriptor is the externally visible shape of one registered
// tool.
type ToolDescriptor struct {
	ToolName     string
	ComponentID  string
	Function     FunctionIdentifier
	InputSchema  map[string]any
	OutputSchema map[string]any
	Description  string
}

// ValidToolName reports whether name satisfies the tool-name character
// class and length bound.
func ValidToolName(name string) bool {
	return toolNamePattern.MatchString(name)
}

// DeriveComponentID computes the canonical component_id from a source
// URI: the terminal path segment, extension stripped, characters
// outside [a-z0-9_-] replaced with `_`.
func DeriveComponentID(sourceURI string) string {
	base := path.Base(sourceURI)
	ext := path.Ext(base)
	if ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.ToLower(base)
	return idSanitizePattern.ReplaceAllString(base, "_")
}

// Mode is the invocation mode declared at load time.
type Mode string

const (
	Stateless Mode = "stateless"
	Stateful  Mode = "stateful"
)

// ValidationStamp detects out-of-band changes to a cached component
// file.
type ValidationStamp struct {
	Size        int64
	ModTime     time.Time
	ContentHash string // optional, empty when not computed
}

// Equal reports whether two stamps describe the same on-disk content,
// comparing ModTime with time.Time.Equal rather than == so stamps
// read back from disk at different moments still compare equal.
// ContentHash is compared only when both stamps carry one, since a
// stamp taken by a plain stat leaves it empty.
func (s ValidationStamp) Equal(other ValidationStamp) bool {
	if s.Size != other.Size || !s.ModTime.Equal(other.ModTime) {
		return false
	}
	return s.ContentHash == "" || other.ContentHash == "" || s.ContentHash == other.ContentHash
}

// ExportedFunction pairs a function identifier with its introspected
// signature, ready for schema generation.
type ExportedFunction struct {
	Identifier FunctionIdentifier
	Signature  typebridge.Signature
}

// Record is the in-memory record for one loaded component: either
// fully present (this struct populated and registered) or fully
// absent, per the no-partial-state invariant.
type Record struct {
	ComponentID string
	SourceURI   string
	LocalPath   string
	Stamp       ValidationStamp
	Mode        Mode
	ToolFilter  []string // allow-list passed to the original Load call, replayed on a drift-triggered reload

	Exports []ExportedFunction
	Tools   []ToolDescriptor

	// ToolNames is the set of tool names currently registered for this
	// component, used to diff on reload.
	ToolNames map[string]struct{}
}

// ToolNameSet returns the current tool name set as a fresh set value.
func (r *Record) ToolNameSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Tools))
	for _, t := range r.Tools {
		set[t.ToolName] = struct{}{}
	}
	return set
}
