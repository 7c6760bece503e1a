package shardtree

import (
	"github.com/hashicorp/go-memdb"
)

// manifestState is the raw point-in-time snapshot fetched from the topology
// service: forwardings, link edges and shard records, indexed for the
// template build pass.
type manifestState struct {
	db  *memdb.MemDB
	txn *memdb.Txn
}

func newManifestState() *manifestState {
	db, err := memdb.NewMemDB(&memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"forwarding": {
				Name: "forwarding",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "TableID"},
								&memdb.UintFieldIndex{Field: "BaseID"},
							},
						},
					},
					"TableID": {
						Name:    "TableID",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "TableID"},
					},
				},
			},
			"link": {
				Name: "link",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "ParentKey"},
								&memdb.StringFieldIndex{Field: "ChildKey"},
							},
						},
					},
					"ParentKey": {
						Name:    "ParentKey",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "ParentKey"},
					},
				},
			},
			"shard": {
				Name: "shard",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return &manifestState{
		db: db,
	}
}

type forwardingRec struct {
	TableID    string
	BaseID     uint64
	Forwarding Forwarding
}

type linkRec struct {
	ParentKey string
	ChildKey  string
	Link      LinkInfo
}

type shardRec struct {
	Key  string
	Info ShardInfo
}

func (s *manifestState) withTxn(write bool) *manifestState {
	return &manifestState{s.db, s.db.Txn(write)}
}

func (s *manifestState) commit() {
	s.txn.Commit()
}

func (s *manifestState) rollback() {
	s.txn.Abort()
}

func (s *manifestState) forwardingPut(f Forwarding) {
	err := s.txn.Insert(`forwarding`, forwardingRec{f.TableID, f.BaseID, f})
	if err != nil {
		panic(err)
	}
}

func (s *manifestState) ForwardingIterate(fn func(f Forwarding) bool) {
	iter, err := s.txn.Get(`forwarding`, `id_prefix`, "")
	if err != nil {
		panic(err)
	}
	for {
		res := iter.Next()
		if res == nil || !fn(res.(forwardingRec).Forwarding) {
			break
		}
	}
}

func (s *manifestState) linkPut(l LinkInfo) {
	err := s.txn.Insert(`link`, linkRec{l.ParentID.String(), l.ChildID.String(), l})
	if err != nil {
		panic(err)
	}
}

func (s *manifestState) LinkIterateByParent(parent ShardId, fn func(l LinkInfo) bool) {
	iter, err := s.txn.Get(`link`, `ParentKey`, parent.String())
	if err != nil {
		panic(err)
	}
	for {
		res := iter.Next()
		if res == nil || !fn(res.(linkRec).Link) {
			break
		}
	}
}

func (s *manifestState) shardPut(info ShardInfo) {
	err := s.txn.Insert(`shard`, shardRec{info.ID.String(), info})
	if err != nil {
		panic(err)
	}
}

func (s *manifestState) Shard(id ShardId) (info ShardInfo, ok bool) {
	res, err := s.txn.First(`shard`, `id`, id.String())
	if err != nil {
		panic(err)
	}
	if res != nil {
		info = res.(shardRec).Info
		ok = true
	}
	return
}

func (s *manifestState) ShardIterate(fn func(info ShardInfo) bool) {
	iter, err := s.txn.Get(`shard`, `id_prefix`, "")
	if err != nil {
		panic(err)
	}
	for {
		res := iter.Next()
		if res == nil || !fn(res.(shardRec).Info) {
			break
		}
	}
}
