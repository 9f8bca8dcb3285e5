package typebridge

import "strings"

// ToolName builds the raw `<interface>#<function>` name (or just
// `<function>` for world-level exports) and normalizes it per spec:
// lowercase, replace `:`, `/`, `.` with `_`, preserve `-` and ASCII
// alphanumerics, replace anything else with `_`.
//
// Because valid component-model identifiers permit hyphens but not
// underscores or dots in packages/interfaces, this normalization is
// collision-free across any two distinct valid interface names,
// provided hyphens are preserved exactly as done here.
func ToolName(interfaceName, functionName string) string {
	raw := functionName
	if interfaceName != "" {
		raw = interfaceName + "#" + functionName
	}
	return normalize(raw)
}

func normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == ':' || r == '/' || r == '.':
			b.WriteByte('_')
		case r == '-':
			b.WriteByte('-')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
