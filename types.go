package shardtree

import (
	"errors"

	"github.com/logbn/shardtree/internal/transport"
)

type (
	// Wire records are defined once in the transport package and aliased
	// here so the client, server and manifest share a single set of types.
	ShardId    = transport.ShardId
	ShardInfo  = transport.ShardInfo
	Forwarding = transport.Forwarding
	LinkInfo   = transport.LinkInfo
)

const (
	KindReplicating = "ReplicatingShard"
	KindReadOnly    = "ReadOnlyShard"
	KindWriteOnly   = "WriteOnlyShard"
	KindBlocked     = "BlockedShard"

	// Replicating shards are host agnostic. This sentinel stands in
	// wherever an identity requires a host.
	replicatingHost = "localhost"

	defaultWeight = 1

	magicPrefix = "shardtree"
)

var (
	ErrInvalidDefinition  = errors.New("invalid shard definition")
	ErrUnknownShardKind   = errors.New("unknown shard kind")
	ErrNoChildren         = errors.New("logical shard requires at least one child")
	ErrNoCopySource       = errors.New("no copy source available")
	ErrShardNotFound      = errors.New("shard record not found")
	ErrNoServersAvailable = errors.New("no topology servers available")
)

// NamingFunc produces the canonical shard name expected for a table group.
// The manifest uses it to detect drift between expected and actual naming.
type NamingFunc func(tableID string, enum int) string

func logicalKind(shortKind string) bool {
	switch shortKind {
	case KindReplicating, KindReadOnly, KindWriteOnly, KindBlocked:
		return true
	}
	return false
}

func logicalSuffix(shortKind string) string {
	switch shortKind {
	case KindReplicating:
		return "replicating"
	case KindReadOnly:
		return "read_only"
	case KindWriteOnly:
		return "write_only"
	case KindBlocked:
		return "blocked"
	}
	return ""
}
