package capabilities

// GrantStorage adds a storage rule if not already present; if a rule
// for the same URI exists, its access set is merged. Idempotent.
func (p *PolicyDocument) GrantStorage(uri string, access []AccessMode) {
	for i := range p.Storage {
		if p.Storage[i].URI == uri {
			p.Storage[i].Access = mergeAccess(p.Storage[i].Access, access)
			return
		}
	}
	p.Storage = append(p.Storage, StorageRule{URI: uri, Access: dedupeAccess(access)})
}

// GrantNetwork adds a network rule if not already present. Idempotent.
func (p *PolicyDocument) GrantNetwork(host string) {
	for _, r := range p.Network {
		if r.Host == host {
			return
		}
	}
	p.Network = append(p.Network, NetworkRule{Host: host})
}

// GrantEnvironment adds an environment rule if not already present.
// Idempotent.
func (p *PolicyDocument) GrantEnvironment(key string) {
	for _, r := range p.Environment {
		if r.Key == key {
			return
		}
	}
	p.Environment = append(p.Environment, EnvironmentRule{Key: key})
}

// RevokeStorage removes the rule with exactly this URI. Whole-rule
// revocation: both read and write are removed together, there is no
// partial-access revocation by URI match. Reports whether a rule was
// removed.
func (p *PolicyDocument) RevokeStorage(uri string) bool {
	for i, r := range p.Storage {
		if r.URI == uri {
			p.Storage = append(p.Storage[:i], p.Storage[i+1:]...)
			if len(p.Storage) == 0 {
				p.Storage = nil
			}
			return true
		}
	}
	return false
}

// RevokeNetwork removes the rule with exactly this host.
func (p *PolicyDocument) RevokeNetwork(host string) bool {
	for i, r := range p.Network {
		if r.Host == host {
			p.Network = append(p.Network[:i], p.Network[i+1:]...)
			if len(p.Network) == 0 {
				p.Network = nil
			}
			return true
		}
	}
	return false
}

// RevokeEnvironment removes the rule with exactly this key.
func (p *PolicyDocument) RevokeEnvironment(key string) bool {
	for i, r := range p.Environment {
		if r.Key == key {
			p.Environment = append(p.Environment[:i], p.Environment[i+1:]...)
			if len(p.Environment) == 0 {
				p.Environment = nil
			}
			return true
		}
	}
	return false
}

// Reset empties all three allow-lists. Idempotent: resetting an
// already-empty document is a no-op observably equal to the prior
// state.
func (p *PolicyDocument) Reset() {
	p.Storage = nil
	p.Network = nil
	p.Environment = nil
}

// IsEmpty reports whether all three allow-lists are empty.
func (p *PolicyDocument) IsEmpty() bool {
	return len(p.Storage) == 0 && len(p.Network) == 0 && len(p.Environment) == 0
}

func dedupeAccess(access []AccessMode) []AccessMode {
	var out []AccessMode
	for _, a := range access {
		out = mergeOne(out, a)
	}
	return out
}

func mergeAccess(existing, add []AccessMode) []AccessMode {
	out := append([]AccessMode(nil), existing...)
	for _, a := range add {
		out = mergeOne(out, a)
	}
	return out
}

func mergeOne(set []AccessMode, a AccessMode) []AccessMode {
	for _, existing := range set {
		if existing == a {
			return set
		}
	}
	return append(set, a)
}
