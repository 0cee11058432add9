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

package clarity

import (
	"fmt"

	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/database"
	"github.com/hirosystems/clarinet-sub006/vm/events"
)

// TransactionConnection is the write handle on one transaction inside an
// open block. It carries the transaction's event log and asset tally.
// Costs charged during the transaction stick whether it commits or rolls
// back; only state writes are undone.
type TransactionConnection struct {
	block   *BlockConnection
	db      *database.ClarityDatabase
	assets  *events.AssetMap
	events  []events.Event
	settled bool
}

func newTransactionConnection(block *BlockConnection) *TransactionConnection {
	return &TransactionConnection{
		block:  block,
		db:     database.NewClarityDatabase(block.wrapper, block.tracker),
		assets: events.NewAssetMap(),
	}
}

// DB returns the typed state layer bound to this transaction's savepoint.
func (tx *TransactionConnection) DB() *database.ClarityDatabase {
	tx.checkLive()
	return tx.db
}

// Tracker returns the block's cost tracker.
func (tx *TransactionConnection) Tracker() costs.Tracker { return tx.block.tracker }

// Emit appends an event to the transaction's log.
func (tx *TransactionConnection) Emit(ev events.Event) {
	tx.checkLive()
	tx.events = append(tx.events, ev)
}

// Events returns the accumulated event log.
func (tx *TransactionConnection) Events() []events.Event {
	return append([]events.Event(nil), tx.events...)
}

// AssetMap returns the transaction's asset movement tally.
func (tx *TransactionConnection) AssetMap() *events.AssetMap { return tx.assets }

// AbortedState carries what a rolled-back execution would have
// committed, so the caller can log or inspect the discarded effects.
type AbortedState struct {
	Events []events.Event
	Assets *events.AssetMap
}

// WithAbortCallback runs execute inside its own savepoint, then lets
// shouldAbort inspect the asset movements and state the body produced.
// When execute errors, the savepoint rolls back and the error
// propagates. When shouldAbort returns true, the savepoint also rolls
// back, and the discarded events and asset tallies come back in a
// non-nil AbortedState. Either way, every cost charged during execute
// stays on the tracker; there are no refunds for abandoned work.
func (tx *TransactionConnection) WithAbortCallback(
	execute func(*database.ClarityDatabase) error,
	shouldAbort func(*events.AssetMap, *database.ClarityDatabase) bool,
) (*AbortedState, error) {
	tx.checkLive()

	tx.block.wrapper.NestedBegin()
	savedEvents := len(tx.events)
	outer := tx.assets
	tx.assets = events.NewAssetMap()

	// restore unwinds the event log and asset tally to the pre-execute
	// state, handing back what the body produced.
	restore := func() ([]events.Event, *events.AssetMap) {
		discarded := append([]events.Event(nil), tx.events[savedEvents:]...)
		inner := tx.assets
		tx.events = tx.events[:savedEvents]
		tx.assets = outer
		return discarded, inner
	}

	if err := execute(tx.db); err != nil {
		tx.block.wrapper.NestedRollback()
		restore()
		return nil, err
	}
	if shouldAbort != nil && shouldAbort(tx.assets, tx.db) {
		tx.block.wrapper.NestedRollback()
		discardedEvents, discardedAssets := restore()
		return &AbortedState{Events: discardedEvents, Assets: discardedAssets}, nil
	}
	if err := tx.block.wrapper.NestedCommit(); err != nil {
		restore()
		return nil, err
	}
	inner := tx.assets
	tx.assets = outer
	return nil, outer.Apply(inner)
}

// Commit folds the transaction savepoint into the block savepoint. The
// savepoint stack must be exactly two deep, the block's frame and this
// transaction's; anything else panics.
func (tx *TransactionConnection) Commit() error {
	tx.checkLive()
	if d := tx.block.wrapper.Depth(); d != 2 {
		panic(fmt.Sprintf("clarity: transaction commit at depth %d", d))
	}
	if err := tx.block.wrapper.NestedCommit(); err != nil {
		return err
	}
	tx.settle()
	return nil
}

// Rollback discards the transaction's writes. Charged costs remain.
func (tx *TransactionConnection) Rollback() {
	tx.checkLive()
	if d := tx.block.wrapper.Depth(); d != 2 {
		panic(fmt.Sprintf("clarity: transaction rollback at depth %d", d))
	}
	tx.block.wrapper.NestedRollback()
	tx.events = nil
	tx.settle()
}

// Done closes the connection, rolling back if the caller never settled
// it. Tracker memory resets here and only here: memory accounting is a
// per-transaction high-water mark, unlike costs, which accumulate for
// the whole block.
func (tx *TransactionConnection) Done() {
	if !tx.settled {
		tx.Rollback()
	}
}

func (tx *TransactionConnection) settle() {
	tx.settled = true
	tx.block.tracker.ResetMemory()
	tx.block.txSettled(tx)
}

func (tx *TransactionConnection) checkLive() {
	if tx.settled {
		panic("clarity: use of settled transaction connection")
	}
}
