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
	"errors"
	"math/big"
	"testing"

	"github.com/hirosystems/clarinet-sub006/common"
	"github.com/hirosystems/clarinet-sub006/crypto"
	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/database"
	"github.com/hirosystems/clarinet-sub006/vm/datastore"
	"github.com/hirosystems/clarinet-sub006/vm/events"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

func testPrincipal(seed byte) types.StandardPrincipal {
	var h common.Hash160
	for i := range h {
		h[i] = seed
	}
	return types.StandardPrincipal{Version: 26, Hash: h}
}

func testContract(t *testing.T) types.ContractID {
	t.Helper()
	id, err := types.NewContractID(testPrincipal(0xaa), "registry")
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func finalID(tag string) common.BlockID {
	return crypto.BlockIDFromBytes([]byte(tag))
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s must panic", name)
		}
	}()
	fn()
}

// declareCounter opens a block, declares a uint variable, and commits.
func declareCounter(t *testing.T, engine *Engine, contract types.ContractID) {
	t.Helper()
	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	if err := tx.DB().CreateVariable(contract, "counter", types.UIntType); err != nil {
		t.Fatal(err)
	}
	if err := tx.DB().SetVariable(contract, "counter", types.UInt64(0)); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := block.CommitTo(block.Tip()); err != nil {
		t.Fatal(err)
	}
}

func readCounter(t *testing.T, engine *Engine, contract types.ContractID) types.Value {
	t.Helper()
	var got types.Value
	err := engine.ReadOnly(func(db *database.ClarityDatabase) error {
		v, err := db.LookupVariable(contract, "counter")
		got = v
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return got
}

// ---- Block lifecycle -------------------------------------------------------------

func TestBlockCommitPersists(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	contract := testContract(t)
	declareCounter(t, engine, contract)

	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	if err := tx.DB().SetVariable(contract, "counter", types.UInt64(9)); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	final := finalID("final-block")
	if err := block.CommitTo(final); err != nil {
		t.Fatal(err)
	}

	if !readCounter(t, engine, contract).Equal(types.Some(types.UInt64(9))) {
		t.Error("committed write must persist")
	}
	if h, ok := engine.Store().HeightOfBlock(final); !ok || h != 2 {
		t.Errorf("final id indexed at (%d, %v), want height 2", h, ok)
	}
}

func TestBlockRollbackDiscards(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	contract := testContract(t)
	declareCounter(t, engine, contract)

	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	if err := tx.DB().SetVariable(contract, "counter", types.UInt64(9)); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	block.Rollback()

	if !readCounter(t, engine, contract).Equal(types.Some(types.UInt64(0))) {
		t.Error("rolled-back block must leave prior state intact")
	}
}

func TestBlockSingleOpen(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	mustPanic(t, "second BeginBlock", func() { engine.BeginBlock(nil) })
	mustPanic(t, "ReadOnly during open block", func() {
		engine.ReadOnly(func(*database.ClarityDatabase) error { return nil })
	})
	block.Rollback()

	// The engine is usable again after the block settles.
	block, err = engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	block.Rollback()
}

func TestBlockLifecyclePanics(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	mustPanic(t, "second StartTransaction", func() { block.StartTransaction() })
	mustPanic(t, "CommitTo with open transaction", func() { block.CommitTo(block.Tip()) })
	tx.Rollback()
	if err := block.CommitTo(block.Tip()); err != nil {
		t.Fatal(err)
	}
	mustPanic(t, "use after settle", func() { block.StartTransaction() })
}

func TestReadOnlyDiscardsWrites(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	contract := testContract(t)
	declareCounter(t, engine, contract)

	err := engine.ReadOnly(func(db *database.ClarityDatabase) error {
		return db.SetVariable(contract, "counter", types.UInt64(99))
	})
	if err != nil {
		t.Fatal(err)
	}
	if !readCounter(t, engine, contract).Equal(types.Some(types.UInt64(0))) {
		t.Error("read-only writes must not persist")
	}
}

// ---- Transaction atomicity -----------------------------------------------------------

func TestTransactionRollbackKeepsCharges(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	contract := testContract(t)
	declareCounter(t, engine, contract)

	tracker := costs.NewLimitedTracker(costs.MainnetLimits(), nil)
	block, err := engine.BeginBlock(tracker)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	if err := tx.DB().SetVariable(contract, "counter", types.UInt64(1)); err != nil {
		t.Fatal(err)
	}
	charged := tracker.Total()
	if charged.IsZero() {
		t.Fatal("the write must have been charged")
	}
	tx.Rollback()

	if tracker.Total() != charged {
		t.Error("rollback must not refund charged costs")
	}
	if err := block.CommitTo(block.Tip()); err != nil {
		t.Fatal(err)
	}
	if !readCounter(t, engine, contract).Equal(types.Some(types.UInt64(0))) {
		t.Error("rolled-back transaction must leave no state behind")
	}
}

func TestTransactionCommitThenBlockRollback(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	contract := testContract(t)
	declareCounter(t, engine, contract)

	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	if err := tx.DB().SetVariable(contract, "counter", types.UInt64(3)); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	// A committed transaction is still only pending in the block frame.
	block.Rollback()
	if !readCounter(t, engine, contract).Equal(types.Some(types.UInt64(0))) {
		t.Error("block rollback must discard committed transactions")
	}
}

func TestTransactionDoneRollsBackAndResetsMemory(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	tracker := costs.NewLimitedTracker(costs.MainnetLimits(), nil)
	block, err := engine.BeginBlock(tracker)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	if err := tracker.AddMemory(4096); err != nil {
		t.Fatal(err)
	}
	tx.Done()
	if tracker.MemoryUsed() != 0 {
		t.Error("transaction close must reset the memory watermark")
	}
	if err := block.CommitTo(block.Tip()); err != nil {
		t.Fatal(err)
	}
}

func TestTransactionEvents(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	tx.Emit(&events.STXTransferEvent{
		Sender:    testPrincipal(1),
		Recipient: testPrincipal(2),
		Amount:    big.NewInt(5),
	})
	got := tx.Events()
	if len(got) != 1 || got[0].EventType() != "stx_transfer_event" {
		t.Errorf("Events = %v", got)
	}
	tx.Rollback()
	block.Rollback()
}

// ---- Abort callback -------------------------------------------------------------------

func TestWithAbortCallbackCommitPath(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	contract := testContract(t)
	declareCounter(t, engine, contract)

	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	alice := types.Value(testPrincipal(1))

	aborted, err := tx.WithAbortCallback(
		func(db *database.ClarityDatabase) error {
			if err := db.SetVariable(contract, "counter", types.UInt64(5)); err != nil {
				return err
			}
			return tx.AssetMap().AddSTXTransfer(alice, big.NewInt(10))
		},
		func(assets *events.AssetMap, db *database.ClarityDatabase) bool {
			return false
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	if aborted != nil {
		t.Fatal("committed execution must not report an abort")
	}
	// The inner tally folded into the transaction's own map.
	if got := tx.AssetMap().GetSTX(alice); got.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("folded STX tally = %s, want 10", got)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := block.CommitTo(block.Tip()); err != nil {
		t.Fatal(err)
	}
	if !readCounter(t, engine, contract).Equal(types.Some(types.UInt64(5))) {
		t.Error("committed execution must persist its writes")
	}
}

func TestWithAbortCallbackAbortPath(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	contract := testContract(t)
	declareCounter(t, engine, contract)

	tracker := costs.NewLimitedTracker(costs.MainnetLimits(), nil)
	block, err := engine.BeginBlock(tracker)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()
	alice := types.Value(testPrincipal(1))

	var inspected *big.Int
	aborted, err := tx.WithAbortCallback(
		func(db *database.ClarityDatabase) error {
			if err := db.SetVariable(contract, "counter", types.UInt64(5)); err != nil {
				return err
			}
			tx.Emit(&events.STXTransferEvent{Sender: alice, Recipient: testPrincipal(2), Amount: big.NewInt(10)})
			return tx.AssetMap().AddSTXTransfer(alice, big.NewInt(10))
		},
		func(assets *events.AssetMap, db *database.ClarityDatabase) bool {
			inspected = assets.GetSTX(alice)
			return true
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	if aborted == nil {
		t.Fatal("aborted execution must report the discarded effects")
	}
	if inspected.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("abort callback saw tally %s, want 10", inspected)
	}
	if len(aborted.Events) != 1 {
		t.Errorf("discarded events = %d, want 1", len(aborted.Events))
	}
	if got := aborted.Assets.GetSTX(alice); got.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("discarded tally = %s, want 10", got)
	}

	// The abort discarded writes, events and tallies from the transaction.
	if len(tx.Events()) != 0 {
		t.Error("aborted events must not remain on the transaction")
	}
	if tx.AssetMap().GetSTX(alice).Sign() != 0 {
		t.Error("aborted tallies must not remain on the transaction")
	}
	if tracker.Total().IsZero() {
		t.Error("charges made before the abort must stick")
	}

	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := block.CommitTo(block.Tip()); err != nil {
		t.Fatal(err)
	}
	if !readCounter(t, engine, contract).Equal(types.Some(types.UInt64(0))) {
		t.Error("aborted writes must not persist")
	}
}

func TestWithAbortCallbackErrorPath(t *testing.T) {
	engine := NewEngine(datastore.NewMemoryStore())
	contract := testContract(t)
	declareCounter(t, engine, contract)

	block, err := engine.BeginBlock(nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := block.StartTransaction()

	boom := errors.New("boom")
	aborted, err := tx.WithAbortCallback(
		func(db *database.ClarityDatabase) error {
			if err := db.SetVariable(contract, "counter", types.UInt64(5)); err != nil {
				return err
			}
			return boom
		},
		nil,
	)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the execute error", err)
	}
	if aborted != nil {
		t.Error("an execute error is not an abort")
	}

	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := block.CommitTo(block.Tip()); err != nil {
		t.Fatal(err)
	}
	if !readCounter(t, engine, contract).Equal(types.Some(types.UInt64(0))) {
		t.Error("failed execution must leave no writes")
	}
}
