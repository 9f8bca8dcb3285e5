// Command wasmtool is a thin embedder harness around the Lifecycle
// Manager and Policy Engine: load/unload/list/grant/revoke/invoke
// components from the shell. The MCP transport framing itself is out
// of scope (spec.md §1 names it an external collaborator); this CLI
// exists to drive the core directly for local development and manual
// testing.
package main

func main() {
	Execute()
}
