package shardtree

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/lni/dragonboat/v4/logger"
)

// Manifest is the reconciled snapshot of a cluster's topology: every
// forwarding, link and shard record, the grouping of tables by structurally
// identical template, and the mapping from canonically expected shard names
// to the identifiers actually present in the service.
//
// A manifest is built once from a point-in-time snapshot and never updated
// incrementally. Rebuild it after any remote change.
type Manifest struct {
	state     *manifestState
	templates *orderedmap.OrderedMap[string, []*templateGroup]
	existing  map[string]ShardId
	naming    NamingFunc
	known     map[string]bool
	log       logger.ILogger
}

type templateGroup struct {
	template *Template
	tables   map[string][]int
}

var groupEnumPattern = regexp.MustCompile(`\d{3,}`)

// GroupEnumeration extracts the partition group number from a shard name:
// the first run of three or more digits, or zero for unpartitioned tables.
func GroupEnumeration(name string) int {
	digits := groupEnumPattern.FindString(name)
	if digits == "" {
		return 0
	}
	n, _ := parseInt(digits)
	return n
}

// DefaultNaming renders the canonical shard name for a table group.
func DefaultNaming(tableID string, enum int) string {
	return fmt.Sprintf("%s_%04d", tableID, enum)
}

// BuildManifest fetches a full topology snapshot through the client and
// reconciles it. There is no partial success: any fetch or reconstruction
// error aborts the whole build.
func BuildManifest(ctx context.Context, client TopologyClient, opts ...ManifestOption) (m *Manifest, err error) {
	m = &Manifest{
		state:     newManifestState(),
		templates: orderedmap.NewOrderedMap[string, []*templateGroup](),
		existing:  map[string]ShardId{},
		naming:    DefaultNaming,
		log:       logger.GetLogger(magicPrefix),
	}
	for _, fn := range opts {
		if err = fn(m); err != nil {
			return nil, err
		}
	}
	forwardings, err := client.GetForwardings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch forwardings: %w", err)
	}
	txn := m.state.withTxn(true)
	seen := map[ShardId]bool{}
	var queue []ShardId
	for _, f := range forwardings {
		txn.forwardingPut(f)
		if !seen[f.ShardID] {
			seen[f.ShardID] = true
			queue = append(queue, f.ShardID)
		}
	}
	// Link closure: walk downward from every forwarding root until no new
	// parents appear.
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		var links []LinkInfo
		links, err = client.ListDownwardLinks(ctx, id)
		if err != nil {
			txn.rollback()
			return nil, fmt.Errorf("list links for %s: %w", id, err)
		}
		for _, l := range links {
			txn.linkPut(l)
			if !seen[l.ChildID] {
				seen[l.ChildID] = true
				queue = append(queue, l.ChildID)
			}
		}
	}
	ids := make([]ShardId, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	for _, id := range ids {
		var info ShardInfo
		info, err = client.GetShard(ctx, id)
		if err != nil {
			txn.rollback()
			return nil, fmt.Errorf("fetch shard %s: %w", id, err)
		}
		txn.shardPut(info)
	}
	txn.commit()
	read := m.state.withTxn(false)
	for _, f := range forwardings {
		var t *Template
		t, err = m.buildTemplate(read, f.ShardID, defaultWeight)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", f.TableID, err)
		}
		enum := GroupEnumeration(f.ShardID.Name)
		m.existing[m.naming(f.TableID, enum)] = f.ShardID
		m.insertTemplate(t, f.TableID, enum)
	}
	m.log.Infof("Built manifest: %d forwardings, %d templates", len(forwardings), m.TemplateCount())
	return m, nil
}

func (m *Manifest) buildTemplate(s *manifestState, id ShardId, weight int) (t *Template, err error) {
	info, ok := s.Shard(id)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrShardNotFound, id)
		return
	}
	short := shortKind(info.ClassName)
	if len(m.known) > 0 && !logicalKind(short) && !m.known[short] {
		err = fmt.Errorf("%w: %s (%s)", ErrUnknownShardKind, info.ClassName, id)
		return
	}
	var children []*Template
	var child *Template
	s.LinkIterateByParent(id, func(l LinkInfo) bool {
		child, err = m.buildTemplate(s, l.ChildID, l.Weight)
		if err != nil {
			return false
		}
		children = append(children, child)
		return true
	})
	if err != nil {
		return
	}
	return NewTemplate(info.ClassName, info.ID.Host, weight, info.SourceType, info.DestType, children)
}

func (m *Manifest) insertTemplate(t *Template, tableID string, enum int) {
	sig := t.Signature()
	groups, _ := m.templates.Get(sig)
	for _, g := range groups {
		// The signature is the hash; structural equality is the authority.
		if g.template.Equal(t) {
			g.tables[tableID] = append(g.tables[tableID], enum)
			return
		}
	}
	m.templates.Set(sig, append(groups, &templateGroup{
		template: t,
		tables:   map[string][]int{tableID: {enum}},
	}))
}

// Templates iterates template classes in first-seen order with the tables
// and group enumerations sharing each shape. Return false to stop.
func (m *Manifest) Templates(fn func(t *Template, tables map[string][]int) bool) {
	for el := m.templates.Front(); el != nil; el = el.Next() {
		for _, g := range el.Value {
			if !fn(g.template, g.tables) {
				return
			}
		}
	}
}

func (m *Manifest) TemplateCount() (n int) {
	for el := m.templates.Front(); el != nil; el = el.Next() {
		n += len(el.Value)
	}
	return
}

// ExistingShardID resolves the shard id actually present in the service for
// a canonically expected shard name.
func (m *Manifest) ExistingShardID(name string) (id ShardId, ok bool) {
	id, ok = m.existing[name]
	return
}

func (m *Manifest) Forwardings() (forwardings []Forwarding) {
	m.state.withTxn(false).ForwardingIterate(func(f Forwarding) bool {
		forwardings = append(forwardings, f)
		return true
	})
	return
}

func (m *Manifest) LinksFor(parent ShardId) (links []LinkInfo) {
	m.state.withTxn(false).LinkIterateByParent(parent, func(l LinkInfo) bool {
		links = append(links, l)
		return true
	})
	return
}

func (m *Manifest) Shard(id ShardId) (info ShardInfo, ok bool) {
	return m.state.withTxn(false).Shard(id)
}

// Shards iterates every shard record in the snapshot, in key order, until fn
// returns false.
func (m *Manifest) Shards(fn func(info ShardInfo) bool) {
	m.state.withTxn(false).ShardIterate(fn)
}
