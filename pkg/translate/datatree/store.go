// Copyright 2023 Hedgehog
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package datatree keeps snapshots of configuration nodes addressed by
// identifiers and produces update batches out of two snapshots.
package datatree

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

const (
	tableNode = "node"
	indexID   = "id"
	indexType = "type"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableNode: {
			Name: tableNode,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: nodeIndexerByID{},
				},
				indexType: {
					Name:    indexType,
					Indexer: nodeIndexerByType{},
				},
			},
		},
	},
}

// Node is a single configuration node, value is nil for absent nodes
type Node struct {
	ID    iid.ID
	Value any
}

func (n Node) String() string {
	return fmt.Sprintf("%s=%v", n.ID, n.Value)
}

type nodeEntry struct {
	Node
	key string
	typ string
	seq uint64
}

// Store is an in-memory tree of configuration nodes. Nodes are returned in
// the order they were first put into the store.
type Store struct {
	db *memdb.MemDB

	seqLock sync.Mutex
	seq     uint64
}

func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create node store")
	}

	return &Store{db: db}, nil
}

// Put inserts or replaces nodes, all of them in a single transaction
func (s *Store) Put(nodes ...Node) error {
	s.seqLock.Lock()
	defer s.seqLock.Unlock()

	txn := s.db.Txn(true)
	defer txn.Abort()

	seq := s.seq
	for _, node := range nodes {
		if node.ID.IsEmpty() {
			return errors.New("node id is empty")
		}
		if node.ID.IsWildcarded() {
			return errors.Errorf("node id %s is wildcarded", node.ID)
		}
		if write.IsNil(node.Value) {
			return errors.Wrapf(write.ErrNoData, "node %s", node.ID)
		}

		entry := nodeEntry{
			Node: node,
			key:  node.ID.String(),
			typ:  node.ID.Type(),
		}

		existing, err := txn.First(tableNode, indexID, entry.key)
		if err != nil {
			return errors.Wrapf(err, "failed to lookup node %s", node.ID)
		}
		if existing != nil {
			entry.seq = existing.(nodeEntry).seq
		} else {
			seq++
			entry.seq = seq
		}

		if err := txn.Insert(tableNode, entry); err != nil {
			return errors.Wrapf(err, "failed to insert node %s", node.ID)
		}
	}

	s.seq = seq
	txn.Commit()

	return nil
}

// Delete removes the node and all of its descendants
func (s *Store) Delete(id iid.ID) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(tableNode, indexID, id.String()); err != nil {
		return errors.Wrapf(err, "failed to delete node %s", id)
	}
	if _, err := txn.DeletePrefix(tableNode, indexID+"_prefix", id.String()+"/"); err != nil {
		return errors.Wrapf(err, "failed to delete descendants of %s", id)
	}

	txn.Commit()

	return nil
}

func (s *Store) Get(id iid.ID) (any, bool) {
	if s == nil {
		return nil, false
	}

	raw, err := s.db.Txn(false).First(tableNode, indexID, id.String())
	if err != nil || raw == nil {
		return nil, false
	}

	return raw.(nodeEntry).Value, true
}

// ByType returns all nodes of the node type
func (s *Store) ByType(typ iid.ID) []Node {
	if s == nil {
		return nil
	}

	return s.collect(indexType, typ.Type())
}

// Descendants returns all nodes below id
func (s *Store) Descendants(id iid.ID) []Node {
	if s == nil {
		return nil
	}

	return s.collect(indexID+"_prefix", id.String()+"/")
}

func (s *Store) All() []Node {
	if s == nil {
		return nil
	}

	return s.collect(indexID)
}

func (s *Store) Len() int {
	return len(s.All())
}

// Types returns the node types present in the store
func (s *Store) Types() []iid.ID {
	res := []iid.ID{}
	seen := map[string]bool{}
	for _, node := range s.All() {
		typ := node.ID.Wildcarded()
		if !seen[typ.Type()] {
			seen[typ.Type()] = true
			res = append(res, typ)
		}
	}

	return res
}

// Snapshot returns a point-in-time copy, later changes of either store are
// not visible in the other one
func (s *Store) Snapshot() *Store {
	s.seqLock.Lock()
	defer s.seqLock.Unlock()

	return &Store{
		db:  s.db.Snapshot(),
		seq: s.seq,
	}
}

func (s *Store) collect(index string, args ...any) []Node {
	it, err := s.db.Txn(false).Get(tableNode, index, args...)
	if err != nil {
		return nil
	}

	entries := []nodeEntry{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		entries = append(entries, raw.(nodeEntry))
	}

	slices.SortFunc(entries, func(a, b nodeEntry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return strings.Compare(a.key, b.key)
		}
	})

	res := make([]Node, 0, len(entries))
	for _, entry := range entries {
		res = append(res, entry.Node)
	}

	return res
}

func fromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.Errorf("must provide only a single argument")
	}
	arg, ok := args[0].(string)
	if !ok {
		return nil, errors.Errorf("argument must be a string: %#v", args[0])
	}

	// null terminated
	return []byte(arg + "\x00"), nil
}

func prefixFromArgs(args ...any) ([]byte, error) {
	val, err := fromArgs(args...)
	if err != nil {
		return nil, err
	}

	return val[:len(val)-1], nil
}

type nodeIndexerByID struct{}

func (nodeIndexerByID) FromArgs(args ...any) ([]byte, error) {
	return fromArgs(args...)
}

func (nodeIndexerByID) PrefixFromArgs(args ...any) ([]byte, error) {
	return prefixFromArgs(args...)
}

func (nodeIndexerByID) FromObject(obj any) (bool, []byte, error) {
	entry, ok := obj.(nodeEntry)
	if !ok {
		return false, nil, errors.Errorf("unexpected type %T passed to FromObject", obj)
	}

	return true, []byte(entry.key + "\x00"), nil
}

type nodeIndexerByType struct{}

func (nodeIndexerByType) FromArgs(args ...any) ([]byte, error) {
	return fromArgs(args...)
}

func (nodeIndexerByType) FromObject(obj any) (bool, []byte, error) {
	entry, ok := obj.(nodeEntry)
	if !ok {
		return false, nil, errors.Errorf("unexpected type %T passed to FromObject", obj)
	}

	return true, []byte(entry.typ + "\x00"), nil
}
