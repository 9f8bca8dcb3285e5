package capabilities

import "strings"

// MatchHost implements the network wildcard semantics: a bare host
// matches literally; `*.x.y` matches exactly one leading label, so
// `a.x.y` matches but `a.b.x.y` and `x.y` do not.
func MatchHost(rule, host string) bool {
	if !strings.HasPrefix(rule, "*.") {
		return rule == host
	}
	suffix := rule[1:] // ".x.y"
	if !strings.HasSuffix(host, suffix) {
		return false
	}
	label := strings.TrimSuffix(host, suffix)
	return label != "" && !strings.Contains(label, ".")
}

// MatchStoragePath implements the filesystem wildcard semantics: a
// rule ending in `/**` matches any path under that prefix; otherwise
// the rule matches only that exact path.
func MatchStoragePath(ruleURI, path string) bool {
	if strings.HasSuffix(ruleURI, "/**") {
		prefix := strings.TrimSuffix(ruleURI, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return ruleURI == path
}

// AllowsNetwork reports whether the policy's network allow-list grants
// access to host.
func (p *PolicyDocument) AllowsNetwork(host string) bool {
	for _, r := range p.Network {
		if MatchHost(r.Host, host) {
			return true
		}
	}
	return false
}

// AllowsStorage reports whether the policy's storage allow-list grants
// mode access to uri.
func (p *PolicyDocument) AllowsStorage(uri string, mode AccessMode) bool {
	for _, r := range p.Storage {
		if MatchStoragePath(r.URI, uri) && r.HasAccess(mode) {
			return true
		}
	}
	return false
}

// AllowsEnvironment reports whether the policy's environment
// allow-list grants exposure of key.
func (p *PolicyDocument) AllowsEnvironment(key string) bool {
	for _, r := range p.Environment {
		if r.Key == key {
			return true
		}
	}
	return false
}

// SecretsLookup resolves a per-component secret by key; ok is false
// when the key has no stored secret.
type SecretsLookup func(key string) (value string, ok bool)

// EnvLookup resolves a process environment variable by key; ok is
// false when unset.
type EnvLookup func(key string) (value string, ok bool)

// Context is the materialized capability set handed to a runtime
// store at invocation time: derived once, as a pure function of
// (policy, secrets, environment) at that instant, and never mutated
// afterward.
type Context struct {
	AllowedHosts      []string
	AllowedPathsRead  []string
	AllowedPathsWrite []string
	EnvPairs          map[string]string
}

// Materialize builds the capability context. env_pairs is derived by
// consulting, in order, the secrets store then the process
// environment; only keys in the environment allow-list are
// considered, and the first non-empty value wins.
func (p *PolicyDocument) Materialize(secrets SecretsLookup, env EnvLookup) Context {
	ctx := Context{EnvPairs: map[string]string{}}

	for _, r := range p.Network {
		ctx.AllowedHosts = append(ctx.AllowedHosts, r.Host)
	}
	for _, r := range p.Storage {
		if r.HasAccess(AccessRead) {
			ctx.AllowedPathsRead = append(ctx.AllowedPathsRead, r.URI)
		}
		if r.HasAccess(AccessWrite) {
			ctx.AllowedPathsWrite = append(ctx.AllowedPathsWrite, r.URI)
		}
	}
	for _, r := range p.Environment {
		if v, ok := secrets(r.Key); ok && v != "" {
			ctx.EnvPairs[r.Key] = v
			continue
		}
		if v, ok := env(r.Key); ok && v != "" {
			ctx.EnvPairs[r.Key] = v
		}
	}
	return ctx
}
