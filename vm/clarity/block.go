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

	"github.com/inconshreveable/log15"

	"github.com/hirosystems/clarinet-sub006/common"
	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/database"
)

// BlockConnection is the write handle on one block being processed. It
// holds the block savepoint; transactions open nested savepoints inside
// it. The connection is single-use: after a commit or rollback it is
// spent and the store returns to the engine.
type BlockConnection struct {
	engine  *Engine
	wrapper *database.RollbackWrapper
	tracker costs.Tracker
	tip     common.BlockID
	openTx  *TransactionConnection
	settled bool
	logger  log15.Logger
}

// Tip returns the id the open block was provisionally indexed under.
func (c *BlockConnection) Tip() common.BlockID { return c.tip }

// Tracker returns the block's cost tracker.
func (c *BlockConnection) Tracker() costs.Tracker { return c.tracker }

// StartTransaction opens a transaction savepoint inside the block. At
// most one transaction may be open at a time; a second open panics.
func (c *BlockConnection) StartTransaction() *TransactionConnection {
	c.checkLive()
	if c.openTx != nil {
		panic("clarity: transaction connection already open")
	}
	c.wrapper.NestedBegin()
	tx := newTransactionConnection(c)
	c.openTx = tx
	return tx
}

// CommitTo settles the block under its final id: the block savepoint is
// flushed to the store, data and metadata both, and the provisional tip
// is re-indexed as final. Committing with a transaction still open, or
// with the savepoint stack at any depth but one, panics.
func (c *BlockConnection) CommitTo(final common.BlockID) error {
	c.checkLive()
	if c.openTx != nil {
		panic("clarity: block commit with open transaction")
	}
	if d := c.wrapper.Depth(); d != 1 {
		panic(fmt.Sprintf("clarity: block commit at depth %d", d))
	}
	if err := c.wrapper.NestedCommit(); err != nil {
		return err
	}
	if err := c.engine.store.CommitTo(final); err != nil {
		return err
	}
	c.settle()
	c.logger.Debug("Committed block", "final", final.Hex(), "cost", c.tracker.Total())
	return nil
}

// CommitMinedBlock settles a block whose metadata was already persisted
// when it was first assembled: data edits flush, metadata edits drop.
func (c *BlockConnection) CommitMinedBlock(final common.BlockID) error {
	c.checkLive()
	if c.openTx != nil {
		panic("clarity: block commit with open transaction")
	}
	if d := c.wrapper.Depth(); d != 1 {
		panic(fmt.Sprintf("clarity: block commit at depth %d", d))
	}
	if err := c.wrapper.CommitMinedBlock(); err != nil {
		return err
	}
	if err := c.engine.store.CommitTo(final); err != nil {
		return err
	}
	c.settle()
	c.logger.Debug("Committed mined block", "final", final.Hex())
	return nil
}

// Rollback abandons the block, discarding every pending edit. An open
// transaction is rolled back with it.
func (c *BlockConnection) Rollback() {
	c.checkLive()
	if c.openTx != nil {
		c.openTx.Rollback()
	}
	c.wrapper.NestedRollback()
	c.settle()
	c.logger.Debug("Rolled back block", "tip", c.tip.Hex())
}

// txSettled is called by the transaction connection when it closes.
func (c *BlockConnection) txSettled(tx *TransactionConnection) {
	if c.openTx == tx {
		c.openTx = nil
	}
}

func (c *BlockConnection) settle() {
	c.settled = true
	c.engine.release()
}

func (c *BlockConnection) checkLive() {
	if c.settled {
		panic("clarity: use of settled block connection")
	}
}
