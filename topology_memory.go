package shardtree

import (
	"context"
	"fmt"
	"sync"
)

// MemoryTopology is an in-memory topology service. It backs a
// TopologyServer as a reference implementation and doubles as a local
// client for tests and dry runs.
type MemoryTopology struct {
	mutex       sync.RWMutex
	forwardings []Forwarding
	links       map[ShardId][]LinkInfo
	shards      map[ShardId]ShardInfo
	reloads     int
}

func NewMemoryTopology() *MemoryTopology {
	return &MemoryTopology{
		links:  map[ShardId][]LinkInfo{},
		shards: map[ShardId]ShardInfo{},
	}
}

func (t *MemoryTopology) GetForwardings(ctx context.Context) ([]Forwarding, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	forwardings := make([]Forwarding, len(t.forwardings))
	copy(forwardings, t.forwardings)
	return forwardings, nil
}

func (t *MemoryTopology) ListDownwardLinks(ctx context.Context, parent ShardId) ([]LinkInfo, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	links := make([]LinkInfo, len(t.links[parent]))
	copy(links, t.links[parent])
	return links, nil
}

func (t *MemoryTopology) GetShard(ctx context.Context, id ShardId) (info ShardInfo, err error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	info, ok := t.shards[id]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrShardNotFound, id)
	}
	return
}

func (t *MemoryTopology) ReloadForwardings(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.reloads++
	return nil
}

// Reloads reports how many times ReloadForwardings was called.
func (t *MemoryTopology) Reloads() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.reloads
}

func (t *MemoryTopology) PutShard(info ShardInfo) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.shards[info.ID] = info
}

func (t *MemoryTopology) AddLink(parent, child ShardId, weight int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.links[parent] = append(t.links[parent], LinkInfo{
		ParentID: parent,
		ChildID:  child,
		Weight:   weight,
	})
}

func (t *MemoryTopology) SetForwarding(f Forwarding) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.forwardings = append(t.forwardings, f)
}

// AddTemplate materializes a template tree under a table prefix: one shard
// record per node, one weighted link per edge, one forwarding to the root.
func (t *MemoryTopology) AddTemplate(tableID string, baseID uint64, prefix string, tpl *Template) ShardId {
	root := t.addTemplateNode(prefix, tpl)
	t.SetForwarding(Forwarding{
		TableID: tableID,
		BaseID:  baseID,
		ShardID: root,
	})
	return root
}

func (t *MemoryTopology) addTemplateNode(prefix string, tpl *Template) ShardId {
	id := tpl.ShardID(prefix)
	t.PutShard(tpl.ShardInfo(prefix))
	for _, child := range tpl.Children() {
		t.AddLink(id, t.addTemplateNode(prefix, child), child.Weight())
	}
	return id
}
