package shardtree

import (
	"github.com/lni/dragonboat/v4/logger"
)

type ManifestOption func(*Manifest) error

// WithNaming overrides the canonical shard naming convention used to detect
// naming drift.
func WithNaming(naming NamingFunc) ManifestOption {
	return func(m *Manifest) error {
		m.naming = naming
		return nil
	}
}

// WithKnownKinds restricts the concrete shard kinds accepted during
// reconstruction. A shard record outside the set fails the build with
// ErrUnknownShardKind. Unset, any concrete kind is accepted.
func WithKnownKinds(kinds ...string) ManifestOption {
	return func(m *Manifest) error {
		m.known = map[string]bool{}
		for _, k := range kinds {
			m.known[shortKind(k)] = true
		}
		return nil
	}
}

func WithManifestLogger(log logger.ILogger) ManifestOption {
	return func(m *Manifest) error {
		m.log = log
		return nil
	}
}
