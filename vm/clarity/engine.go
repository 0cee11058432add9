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

// Package clarity drives block and transaction processing over the typed
// state layer. An Engine owns the backing store and hands it out to one
// open block connection at a time; the block connection in turn admits
// one open transaction connection at a time. Lifecycle violations are
// panics, not errors: a double-open or a commit at the wrong depth is a
// bug in the caller, and continuing would corrupt chain state.
package clarity

import (
	"sync"

	"github.com/inconshreveable/log15"

	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/database"
	"github.com/hirosystems/clarinet-sub006/vm/datastore"
)

// Engine owns a versioned store and serializes block processing over it.
type Engine struct {
	mu     sync.Mutex
	store  datastore.Store
	inUse  bool
	logger log15.Logger
}

// NewEngine wraps a store. The engine assumes exclusive ownership; the
// caller must not touch the store directly while the engine lives.
func NewEngine(store datastore.Store) *Engine {
	return &Engine{
		store:  store,
		logger: log15.New("module", "clarity"),
	}
}

// BeginBlock opens the next block for processing and returns its
// connection. The store moves into the connection until the block is
// committed or rolled back; beginning a second block before then panics.
// A nil tracker runs the block free of cost enforcement.
func (e *Engine) BeginBlock(tracker costs.Tracker) (*BlockConnection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inUse {
		panic("clarity: block connection already open")
	}
	if tracker == nil {
		tracker = costs.NewFreeTracker()
	}
	tip, err := e.store.AdvanceChainTip(1)
	if err != nil {
		return nil, err
	}
	e.inUse = true

	wrapper := database.NewRollbackWrapper(e.store)
	wrapper.NestedBegin()
	e.logger.Debug("Opened block", "tip", tip.Hex(), "height", e.store.CurrentBlockHeight())
	return &BlockConnection{
		engine:  e,
		wrapper: wrapper,
		tracker: tracker,
		tip:     tip,
		logger:  e.logger.New("block", tip.Hex()),
	}, nil
}

// ReadOnly runs fn against current chain state and discards any writes
// it makes. Reads are uncosted.
func (e *Engine) ReadOnly(fn func(*database.ClarityDatabase) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inUse {
		panic("clarity: block connection already open")
	}
	wrapper := database.NewRollbackWrapper(e.store)
	wrapper.NestedBegin()
	defer wrapper.NestedRollback()
	return fn(database.NewClarityDatabase(wrapper, costs.NewFreeTracker()))
}

// Store returns the engine's store for chain inspection between blocks.
func (e *Engine) Store() datastore.Store {
	return e.store
}

// release returns the store to the engine when a block settles.
func (e *Engine) release() {
	e.mu.Lock()
	e.inUse = false
	e.mu.Unlock()
}
