package pnp

// nodeBuiltins is the set of Node.js core module names, used only to
// vary UndeclaredDependencyError's message when a specifier that isn't
// declared as a dependency happens to name a built-in. Restored from
// original_source's is_node_builtin check (spec.md names the check but
// not its membership data); cross-confirmed against
// other_examples/f358f1dc_evanw-esbuild__internal-resolver-yarnpnp.go.go,
// which independently reconstructs an equivalent table for the same
// purpose.
var nodeBuiltins = map[string]bool{
	"assert":         true,
	"buffer":         true,
	"child_process":  true,
	"cluster":        true,
	"constants":      true,
	"crypto":         true,
	"dgram":          true,
	"dns":            true,
	"domain":         true,
	"events":         true,
	"fs":             true,
	"http":           true,
	"https":          true,
	"module":         true,
	"net":            true,
	"os":             true,
	"path":           true,
	"process":        true,
	"punycode":       true,
	"querystring":    true,
	"readline":       true,
	"repl":           true,
	"stream":         true,
	"string_decoder": true,
	"timers":         true,
	"tls":            true,
	"tty":            true,
	"url":            true,
	"util":           true,
	"v8":             true,
	"vm":             true,
	"zlib":           true,
}

// isNodeBuiltin reports whether name is a Node.js core module.
func isNodeBuiltin(name string) bool {
	return nodeBuiltins[name]
}
