// Copyright 2025 The clarinet-go Authors
// This file is part of the clarinet-go library.
//
// The clarinet-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The clarinet-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the clarinet-go library. If not, see <http://www.gnu.org/licenses/>.

package database

import (
	"fmt"

	"github.com/inconshreveable/log15"

	"github.com/hirosystems/clarinet-sub006/vm/datastore"
)

// rollbackLevel is one open savepoint. Edits are kept both in order (for
// replay into the parent or the store) and in a lookup map (so reads see
// the latest pending write without scanning).
type rollbackLevel struct {
	edits      []datastore.KV
	lookup     map[string]string
	metaEdits  []metadataEdit
	metaLookup map[string]string
}

type metadataEdit struct {
	contract string
	key      string
	value    string
}

func newRollbackLevel() *rollbackLevel {
	return &rollbackLevel{
		lookup:     make(map[string]string),
		metaLookup: make(map[string]string),
	}
}

// RollbackWrapper stacks savepoints over a versioned store. Writes land
// in the innermost open savepoint; committing a savepoint folds its edits
// into the parent, and committing the outermost one flushes everything to
// the store in a single batch. Rolling a savepoint back discards its
// edits without disturbing outer ones.
//
// Reads check pending edits innermost-first before falling through to the
// store, so a frame always observes its own uncommitted writes.
type RollbackWrapper struct {
	store  datastore.Store
	stack  []*rollbackLevel
	logger log15.Logger
}

// NewRollbackWrapper wraps a store with an empty savepoint stack.
func NewRollbackWrapper(store datastore.Store) *RollbackWrapper {
	return &RollbackWrapper{
		store:  store,
		logger: log15.New("module", "rollback"),
	}
}

// Store exposes the wrapped store for chain-tip operations that bypass
// the savepoint machinery.
func (w *RollbackWrapper) Store() datastore.Store { return w.store }

// Depth returns the number of open savepoints.
func (w *RollbackWrapper) Depth() int { return len(w.stack) }

// NestedBegin opens a new savepoint.
func (w *RollbackWrapper) NestedBegin() {
	w.stack = append(w.stack, newRollbackLevel())
}

// NestedRollback discards the innermost savepoint. It panics when no
// savepoint is open: that is a connection lifecycle bug, not a state
// condition a caller can handle.
func (w *RollbackWrapper) NestedRollback() {
	if len(w.stack) == 0 {
		panic("database: rollback with no open savepoint")
	}
	top := w.stack[len(w.stack)-1]
	if len(top.edits) > 0 || len(top.metaEdits) > 0 {
		w.logger.Debug("Discarding savepoint", "depth", len(w.stack), "edits", len(top.edits))
	}
	w.stack = w.stack[:len(w.stack)-1]
}

// NestedCommit folds the innermost savepoint into its parent, or flushes
// it to the store when it is the outermost one. It panics when no
// savepoint is open.
func (w *RollbackWrapper) NestedCommit() error {
	if len(w.stack) == 0 {
		panic("database: commit with no open savepoint")
	}
	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]

	if len(w.stack) > 0 {
		parent := w.stack[len(w.stack)-1]
		parent.edits = append(parent.edits, top.edits...)
		for k, v := range top.lookup {
			parent.lookup[k] = v
		}
		parent.metaEdits = append(parent.metaEdits, top.metaEdits...)
		for k, v := range top.metaLookup {
			parent.metaLookup[k] = v
		}
		return nil
	}

	if err := w.store.PutAll(top.edits); err != nil {
		return fmt.Errorf("database: flush edits: %w", err)
	}
	for _, me := range top.metaEdits {
		if err := w.store.InsertMetadata(me.contract, me.key, me.value); err != nil {
			return fmt.Errorf("database: flush metadata: %w", err)
		}
	}
	return nil
}

// CommitMinedBlock flushes the outermost savepoint's data edits but
// discards its metadata edits. A mined block's metadata was already
// persisted when the block was first processed, so re-inserting it would
// trip the write-once check.
func (w *RollbackWrapper) CommitMinedBlock() error {
	if len(w.stack) != 1 {
		panic(fmt.Sprintf("database: commit of mined block at depth %d", len(w.stack)))
	}
	top := w.stack[0]
	w.stack = w.stack[:0]
	if err := w.store.PutAll(top.edits); err != nil {
		return fmt.Errorf("database: flush edits: %w", err)
	}
	return nil
}

// SetValue records a pending write in the innermost savepoint. It panics
// when no savepoint is open.
func (w *RollbackWrapper) SetValue(key, value string) {
	if len(w.stack) == 0 {
		panic("database: write with no open savepoint")
	}
	top := w.stack[len(w.stack)-1]
	top.edits = append(top.edits, datastore.KV{Key: key, Value: value})
	top.lookup[key] = value
}

// GetValue reads key, observing pending writes innermost-first before
// consulting the store.
func (w *RollbackWrapper) GetValue(key string) (string, bool, error) {
	for i := len(w.stack) - 1; i >= 0; i-- {
		if v, ok := w.stack[i].lookup[key]; ok {
			return v, true, nil
		}
	}
	return w.store.Get(key)
}

// InsertMetadata records a pending metadata write. Metadata is
// write-once: inserting a pair that already exists, pending or
// persisted, is a programming error and panics. A store failure during
// the presence check is returned; nothing is recorded.
func (w *RollbackWrapper) InsertMetadata(contract, key, value string) error {
	if len(w.stack) == 0 {
		panic("database: metadata write with no open savepoint")
	}
	mk := contract + "\x00" + key
	for i := len(w.stack) - 1; i >= 0; i-- {
		if _, ok := w.stack[i].metaLookup[mk]; ok {
			panic(fmt.Sprintf("database: metadata rewrite for %s %s", contract, key))
		}
	}
	_, ok, err := w.store.GetMetadata(contract, key)
	if err != nil {
		return fmt.Errorf("database: metadata presence check: %w", err)
	}
	if ok {
		panic(fmt.Sprintf("database: metadata rewrite for %s %s", contract, key))
	}
	top := w.stack[len(w.stack)-1]
	top.metaEdits = append(top.metaEdits, metadataEdit{contract: contract, key: key, value: value})
	top.metaLookup[mk] = value
	return nil
}

// GetMetadata reads a metadata pair, observing pending inserts first.
func (w *RollbackWrapper) GetMetadata(contract, key string) (string, bool, error) {
	mk := contract + "\x00" + key
	for i := len(w.stack) - 1; i >= 0; i-- {
		if v, ok := w.stack[i].metaLookup[mk]; ok {
			return v, true, nil
		}
	}
	return w.store.GetMetadata(contract, key)
}
