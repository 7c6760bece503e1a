package shardtree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Template is an immutable tree node describing one shard (concrete or
// logical) and its children. Two templates built from the same shape compare
// equal regardless of the order their children were supplied in: child order
// is derived, sorted descending by the deep weighted comparator at
// construction time.
type Template struct {
	kind       string
	host       string
	weight     int
	sourceType string
	destType   string
	children   []*Template
}

// NewTemplate builds a template node. The children slice is copied and
// sorted; callers may reuse it afterward. A non-Replicating logical node
// derives its host from its first child, so it must have at least one child
// unless an explicit host was supplied.
func NewTemplate(kind, host string, weight int, sourceType, destType string, children []*Template) (t *Template, err error) {
	short := shortKind(kind)
	if logicalKind(short) && short != KindReplicating && len(children) == 0 && host == "" {
		err = fmt.Errorf("%w: %s", ErrNoChildren, kind)
		return
	}
	sorted := make([]*Template, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Compare(sorted[j]) > 0
	})
	t = &Template{
		kind:       kind,
		host:       host,
		weight:     weight,
		sourceType: sourceType,
		destType:   destType,
		children:   sorted,
	}
	return
}

func (t *Template) Kind() string { return t.kind }

func (t *Template) Weight() int { return t.weight }

func (t *Template) SourceType() string { return t.sourceType }

func (t *Template) DestType() string { return t.destType }

// Children returns the child templates in non-increasing comparator order.
func (t *Template) Children() []*Template {
	children := make([]*Template, len(t.children))
	copy(children, t.children)
	return children
}

// IsConcrete reports whether the node represents a physically hosted shard
// implementation rather than a logical routing or fencing construct.
func (t *Template) IsConcrete() bool {
	return !logicalKind(t.ShortKind())
}

func (t *Template) IsReplicating() bool {
	return t.ShortKind() == KindReplicating
}

// ShortKind is the last path component of the kind, so a fully qualified
// class name and its short alias produce identical derived identifiers.
func (t *Template) ShortKind() string {
	return shortKind(t.kind)
}

func shortKind(kind string) string {
	if i := strings.LastIndexByte(kind, '.'); i >= 0 {
		return kind[i+1:]
	}
	return kind
}

// EffectiveHost resolves the host a node materializes at. Concrete nodes own
// their host, Replicating nodes use the sentinel host, and the remaining
// logical kinds take the host of their first (sorted) child, falling back to
// an explicitly supplied host when childless.
func (t *Template) EffectiveHost() string {
	if t.IsConcrete() {
		return t.host
	}
	if t.IsReplicating() {
		return replicatingHost
	}
	if len(t.children) > 0 {
		return t.children[0].EffectiveHost()
	}
	return t.host
}

// Identifier names the node for overlap detection and config rendering.
// Replicating identifiers omit the host: replication is host agnostic at the
// top of a tree.
func (t *Template) Identifier() string {
	if t.IsReplicating() {
		return t.ShortKind()
	}
	return t.ShortKind() + ":" + t.EffectiveHost()
}

// DescendantIdentifiers returns the sorted, deduplicated identifiers of
// every concrete node in the tree, the receiver included when concrete.
func (t *Template) DescendantIdentifiers() []string {
	set := map[string]bool{}
	t.collectConcrete(set)
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *Template) collectConcrete(set map[string]bool) {
	if t.IsConcrete() {
		set[t.Identifier()] = true
	}
	for _, c := range t.children {
		c.collectConcrete(set)
	}
}

// Compare is the deep weighted comparator: a total order over templates used
// both for sorting children and as the equality relation for canonical map
// keys. Nodes order by (derived host, kind), then weight, then children
// lexicographically with shorter-sequence-is-less on equal prefixes. Logical
// nodes carry no intrinsic host, so the derived host is their identity host:
// a tree parsed from config and the same tree rebuilt from shard records
// compare equal even though only the latter stores hosts on logical nodes.
func (t *Template) Compare(o *Template) int {
	return t.compare(o)
}

// CompareShape compares node identity only, derived host and kind, ignoring
// weights and children. Use it where proportional responsibility and subtree
// layout are irrelevant.
func (t *Template) CompareShape(o *Template) int {
	if c := strings.Compare(t.EffectiveHost(), o.EffectiveHost()); c != 0 {
		return c
	}
	return strings.Compare(t.kind, o.kind)
}

func (t *Template) compare(o *Template) int {
	if c := strings.Compare(t.EffectiveHost(), o.EffectiveHost()); c != 0 {
		return c
	}
	if c := strings.Compare(t.kind, o.kind); c != 0 {
		return c
	}
	if t.weight < o.weight {
		return -1
	}
	if t.weight > o.weight {
		return 1
	}
	for i := 0; i < len(t.children) && i < len(o.children); i++ {
		if c := t.children[i].compare(o.children[i]); c != 0 {
			return c
		}
	}
	if len(t.children) < len(o.children) {
		return -1
	}
	if len(t.children) > len(o.children) {
		return 1
	}
	return 0
}

func (t *Template) Equal(o *Template) bool {
	return t.Compare(o) == 0
}

func (t *Template) SameShape(o *Template) bool {
	return t.CompareShape(o) == 0
}

// Signature renders the tree to a canonical string, injective over
// (derived host, kind, weight, children). Structurally equal templates
// produce equal signatures, making it usable as a grouping hash key.
func (t *Template) Signature() string {
	var b strings.Builder
	t.signature(&b)
	return b.String()
}

func (t *Template) signature(b *strings.Builder) {
	host := t.EffectiveHost()
	b.WriteString(strconv.Itoa(len(host)))
	b.WriteByte('|')
	b.WriteString(host)
	b.WriteString(t.kind)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(t.weight))
	b.WriteByte('(')
	for i, c := range t.children {
		if i > 0 {
			b.WriteByte(',')
		}
		c.signature(b)
	}
	b.WriteByte(')')
}

// Similar reports whether two templates physically touch at least one common
// concrete shard. Downstream tooling refuses concurrent operations on
// similar templates even when their shapes differ.
func (t *Template) Similar(o *Template) bool {
	mine := map[string]bool{}
	t.collectConcrete(mine)
	for _, id := range o.DescendantIdentifiers() {
		if mine[id] {
			return true
		}
	}
	return false
}

// ShardID materializes the shard identifier this node would occupy for the
// given table, appending the logical kind suffix where one applies.
func (t *Template) ShardID(table string) ShardId {
	name := table
	if suffix := logicalSuffix(t.ShortKind()); suffix != "" {
		name += "_" + suffix
	}
	return ShardId{
		Host: t.EffectiveHost(),
		Name: name,
	}
}

// ShardInfo materializes the full shard record for the given table, in the
// shape the remote topology service accepts on write operations.
func (t *Template) ShardInfo(table string) ShardInfo {
	return ShardInfo{
		ID:         t.ShardID(table),
		ClassName:  t.kind,
		SourceType: t.sourceType,
		DestType:   t.destType,
		Extra:      0,
	}
}
