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
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hirosystems/clarinet-sub006/common"
	"github.com/hirosystems/clarinet-sub006/crypto"
	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/datastore"
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
	require.NoError(t, err)
	return id
}

// openDB builds a typed layer over a fresh in-memory store with one open
// savepoint, mirroring the state inside a live transaction.
func openDB(t *testing.T, tracker costs.Tracker) (*ClarityDatabase, datastore.Store) {
	t.Helper()
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)
	w.NestedBegin()
	if tracker == nil {
		tracker = costs.NewFreeTracker()
	}
	return NewClarityDatabase(w, tracker), store
}

// ---- Data variables -----------------------------------------------------------

func TestVariableLifecycle(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)

	require.NoError(t, db.CreateVariable(contract, "counter", types.UIntType))

	v, err := db.LookupVariable(contract, "counter")
	require.NoError(t, err)
	require.True(t, v.Equal(types.None), "unset variable must read as none")

	require.NoError(t, db.SetVariable(contract, "counter", types.UInt64(5)))
	v, err = db.LookupVariable(contract, "counter")
	require.NoError(t, err)
	require.True(t, v.Equal(types.UInt64(5)))

	require.NoError(t, db.SetVariable(contract, "counter", types.UInt64(6)))
	v, err = db.LookupVariable(contract, "counter")
	require.NoError(t, err)
	require.True(t, v.Equal(types.UInt64(6)), "latest write wins")
}

func TestVariableAdmission(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)

	require.NoError(t, db.CreateVariable(contract, "counter", types.UIntType))
	err := db.SetVariable(contract, "counter", types.Int64(5))
	require.ErrorIs(t, err, types.ErrTypeMismatch)

	v, err := db.LookupVariable(contract, "counter")
	require.NoError(t, err)
	require.True(t, v.Equal(types.None), "a rejected write must leave no trace")
}

func TestVariableUndeclared(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)

	_, err := db.LookupVariable(contract, "ghost")
	require.ErrorIs(t, err, ErrNoSuchStructure)
	err = db.SetVariable(contract, "ghost", types.UInt64(1))
	require.ErrorIs(t, err, ErrNoSuchStructure)

	require.NoError(t, db.CreateVariable(contract, "counter", types.UIntType))
	err = db.CreateVariable(contract, "counter", types.IntType)
	require.ErrorIs(t, err, ErrStructureExists)
}

func TestVariableNamespacesAreDisjoint(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)

	// The same name may exist as a variable and as a map.
	require.NoError(t, db.CreateVariable(contract, "state", types.UIntType))
	require.NoError(t, db.CreateMap(contract, "state", types.UIntType, types.BoolType))
}

// ---- Data maps ------------------------------------------------------------------

func TestMapEntryScenario(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)
	alice := types.Value(testPrincipal(1))

	require.NoError(t, db.CreateMap(contract, "balances", types.PrincipalType, types.UIntType))

	v, err := db.FetchEntry(contract, "balances", alice)
	require.NoError(t, err)
	require.True(t, v.Equal(types.None))

	ok, err := db.InsertEntry(contract, "balances", alice, types.UInt64(100))
	require.NoError(t, err)
	require.True(t, ok, "first insert lands")

	v, err = db.FetchEntry(contract, "balances", alice)
	require.NoError(t, err)
	require.True(t, v.Equal(types.Some(types.UInt64(100))))

	ok, err = db.InsertEntry(contract, "balances", alice, types.UInt64(200))
	require.NoError(t, err)
	require.False(t, ok, "insert over a present key is a no-op")

	v, err = db.FetchEntry(contract, "balances", alice)
	require.NoError(t, err)
	require.True(t, v.Equal(types.Some(types.UInt64(100))), "failed insert must not clobber")

	require.NoError(t, db.SetEntry(contract, "balances", alice, types.UInt64(200)))
	v, err = db.FetchEntry(contract, "balances", alice)
	require.NoError(t, err)
	require.True(t, v.Equal(types.Some(types.UInt64(200))))

	ok, err = db.DeleteEntry(contract, "balances", alice)
	require.NoError(t, err)
	require.True(t, ok)

	v, err = db.FetchEntry(contract, "balances", alice)
	require.NoError(t, err)
	require.True(t, v.Equal(types.None), "deleted key reads as none")

	ok, err = db.DeleteEntry(contract, "balances", alice)
	require.NoError(t, err)
	require.False(t, ok, "deleting an absent key reports false")

	// A deleted key can be re-inserted.
	ok, err = db.InsertEntry(contract, "balances", alice, types.UInt64(7))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMapAdmission(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)

	require.NoError(t, db.CreateMap(contract, "balances", types.PrincipalType, types.UIntType))

	_, err := db.FetchEntry(contract, "balances", types.UInt64(1))
	require.ErrorIs(t, err, types.ErrTypeMismatch, "key admission")

	err = db.SetEntry(contract, "balances", types.Value(testPrincipal(1)), types.BoolValue(true))
	require.ErrorIs(t, err, types.ErrTypeMismatch, "value admission")
}

func TestMapDistinctKeysAreIndependent(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)
	alice, bob := types.Value(testPrincipal(1)), types.Value(testPrincipal(2))

	require.NoError(t, db.CreateMap(contract, "balances", types.PrincipalType, types.UIntType))
	require.NoError(t, db.SetEntry(contract, "balances", alice, types.UInt64(1)))

	v, err := db.FetchEntry(contract, "balances", bob)
	require.NoError(t, err)
	require.True(t, v.Equal(types.None))
}

// ---- Budget enforcement -----------------------------------------------------------

func TestBudgetExhaustionLeavesNoTrace(t *testing.T) {
	limits := costs.Limits{
		// Enough to declare the variable, not enough to write it.
		Budget:      costs.ExecutionCost{Runtime: 3_000, WriteLength: 100, WriteCount: 2, ReadLength: 100, ReadCount: 2},
		MemoryLimit: 1 << 20,
	}
	tracker := costs.NewLimitedTracker(limits, nil)
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)
	w.NestedBegin()
	db := NewClarityDatabase(w, tracker)
	contract := testContract(t)

	require.NoError(t, db.CreateVariable(contract, "counter", types.UIntType))
	spent := tracker.Total()

	err := db.SetVariable(contract, "counter", types.UInt64(5))
	var budgetErr *costs.BudgetExceededError
	require.ErrorAs(t, err, &budgetErr)
	require.Equal(t, spent, tracker.Total(), "a rejected charge must not move the total")

	// Read back through an unmetered layer: the write never landed.
	free := NewClarityDatabase(w, costs.NewFreeTracker())
	v, err := free.LookupVariable(contract, "counter")
	require.NoError(t, err)
	require.True(t, v.Equal(types.None))
}

// ---- Fungible tokens ---------------------------------------------------------------

func TestFungibleTokenLifecycle(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)
	alice, bob := types.Value(testPrincipal(1)), types.Value(testPrincipal(2))

	require.NoError(t, db.CreateFungibleToken(contract, "stella", big.NewInt(1000)))

	supply, err := db.GetFtSupply(contract, "stella")
	require.NoError(t, err)
	require.Zero(t, supply.Sign(), "fresh token has zero supply")

	require.NoError(t, db.MintFt(contract, "stella", alice, big.NewInt(600)))
	err = db.MintFt(contract, "stella", bob, big.NewInt(500))
	require.ErrorIs(t, err, ErrSupplyOverflow, "mint past the cap")

	require.NoError(t, db.TransferFt(contract, "stella", alice, bob, big.NewInt(200)))
	balance, err := db.GetFtBalance(contract, "stella", bob)
	require.NoError(t, err)
	require.Equal(t, int64(200), balance.Int64())

	err = db.TransferFt(contract, "stella", bob, alice, big.NewInt(201))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	require.NoError(t, db.BurnFt(contract, "stella", alice, big.NewInt(100)))
	supply, err = db.GetFtSupply(contract, "stella")
	require.NoError(t, err)
	require.Equal(t, int64(500), supply.Int64(), "burn shrinks supply")

	balance, err = db.GetFtBalance(contract, "stella", alice)
	require.NoError(t, err)
	require.Equal(t, int64(300), balance.Int64())
}

func TestFungibleTokenUncapped(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)
	alice := types.Value(testPrincipal(1))

	require.NoError(t, db.CreateFungibleToken(contract, "points", nil))
	big1 := new(big.Int).Lsh(big.NewInt(1), 100)
	require.NoError(t, db.MintFt(contract, "points", alice, big1))
	require.NoError(t, db.MintFt(contract, "points", alice, big1))
}

func TestFungibleTokenUndeclared(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)

	_, err := db.GetFtSupply(contract, "ghost")
	require.ErrorIs(t, err, ErrNoSuchStructure)
	err = db.MintFt(contract, "ghost", types.Value(testPrincipal(1)), big.NewInt(1))
	require.ErrorIs(t, err, ErrNoSuchStructure)
}

// ---- Non-fungible tokens --------------------------------------------------------------

func TestNonFungibleTokenLifecycle(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)
	alice, bob := types.Value(testPrincipal(1)), types.Value(testPrincipal(2))
	key := types.Value(types.UInt64(42))

	require.NoError(t, db.CreateNonFungibleToken(contract, "deeds", types.UIntType))

	_, err := db.GetNftOwner(contract, "deeds", key)
	require.ErrorIs(t, err, ErrNoSuchAsset, "unminted asset has no owner")

	require.NoError(t, db.MintNft(contract, "deeds", key, alice))
	owner, err := db.GetNftOwner(contract, "deeds", key)
	require.NoError(t, err)
	require.True(t, owner.Equal(alice))

	err = db.MintNft(contract, "deeds", key, bob)
	require.ErrorIs(t, err, ErrAssetExists, "double mint")

	err = db.TransferNft(contract, "deeds", key, bob, alice)
	require.ErrorIs(t, err, ErrNotAssetOwner, "only the owner may transfer")

	require.NoError(t, db.TransferNft(contract, "deeds", key, alice, bob))
	owner, err = db.GetNftOwner(contract, "deeds", key)
	require.NoError(t, err)
	require.True(t, owner.Equal(bob))

	err = db.BurnNft(contract, "deeds", key, alice)
	require.ErrorIs(t, err, ErrNotAssetOwner)

	require.NoError(t, db.BurnNft(contract, "deeds", key, bob))
	_, err = db.GetNftOwner(contract, "deeds", key)
	require.ErrorIs(t, err, ErrNoSuchAsset, "burned asset has no owner")
}

func TestNonFungibleTokenKeyAdmission(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)

	require.NoError(t, db.CreateNonFungibleToken(contract, "deeds", types.UIntType))
	err := db.MintNft(contract, "deeds", types.BoolValue(true), types.Value(testPrincipal(1)))
	require.ErrorIs(t, err, types.ErrTypeMismatch)
}

// ---- STX accounts ---------------------------------------------------------------------

func TestSTXBalanceSnapshot(t *testing.T) {
	db, _ := openDB(t, nil)
	alice := types.Value(testPrincipal(1))

	snap, err := db.GetSTXBalanceSnapshot(alice)
	require.NoError(t, err)
	require.Zero(t, snap.Balance().Sign(), "fresh account is empty")

	require.NoError(t, snap.Credit(big.NewInt(1000)))
	require.NoError(t, snap.Debit(big.NewInt(300)))
	require.ErrorIs(t, snap.Debit(big.NewInt(800)), ErrInsufficientFunds)
	require.NoError(t, snap.Save())

	snap, err = db.GetSTXBalanceSnapshot(alice)
	require.NoError(t, err)
	require.Equal(t, int64(700), snap.Balance().Int64())
}

func TestSTXLockLifecycle(t *testing.T) {
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)
	w.NestedBegin()
	db := NewClarityDatabase(w, costs.NewFreeTracker())
	alice := types.Value(testPrincipal(1))

	snap, err := db.GetSTXBalanceSnapshot(alice)
	require.NoError(t, err)
	require.NoError(t, snap.Credit(big.NewInt(1000)))
	require.NoError(t, snap.LockTokens(big.NewInt(600), 5))
	require.Equal(t, int64(400), snap.Balance().Int64())
	require.Equal(t, int64(600), snap.LockedBalance().Int64())
	require.False(t, snap.CanTransfer(big.NewInt(500)), "locked funds are not spendable")

	require.ErrorIs(t, snap.LockTokens(big.NewInt(1), 6), ErrAlreadyLocked)
	require.NoError(t, snap.Save())

	// Below the unlock height the lock holds.
	_, err = store.AdvanceChainTip(4)
	require.NoError(t, err)
	snap, err = db.GetSTXBalanceSnapshot(alice)
	require.NoError(t, err)
	require.Equal(t, int64(400), snap.Balance().Int64())

	// At the unlock height the lock matures back into the balance.
	_, err = store.AdvanceChainTip(1)
	require.NoError(t, err)
	snap, err = db.GetSTXBalanceSnapshot(alice)
	require.NoError(t, err)
	require.Equal(t, int64(1000), snap.Balance().Int64())
	require.Zero(t, snap.LockedBalance().Sign())
}

func TestSTXLockValidation(t *testing.T) {
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)
	w.NestedBegin()
	db := NewClarityDatabase(w, costs.NewFreeTracker())

	_, err := store.AdvanceChainTip(3)
	require.NoError(t, err)

	snap, err := db.GetSTXBalanceSnapshot(types.Value(testPrincipal(1)))
	require.NoError(t, err)
	require.NoError(t, snap.Credit(big.NewInt(100)))
	require.Error(t, snap.LockTokens(big.NewInt(10), 3), "unlock height must be in the future")
	require.ErrorIs(t, snap.LockTokens(big.NewInt(200), 9), ErrInsufficientFunds)
}

func TestAccountNonces(t *testing.T) {
	db, _ := openDB(t, nil)
	alice := types.Value(testPrincipal(1))

	nonce, err := db.GetAccountNonce(alice)
	require.NoError(t, err)
	require.Zero(t, nonce)

	next, err := db.IncrementAccountNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), next)

	require.NoError(t, db.SetAccountNonce(alice, 9))
	nonce, err = db.GetAccountNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(9), nonce)
}

// ---- Contracts ------------------------------------------------------------------------

func TestContractStorage(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)
	source := "(define-data-var counter uint u0)"

	exists, err := db.ContractExists(contract)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, db.InsertContract(contract, source))

	exists, err = db.ContractExists(contract)
	require.NoError(t, err)
	require.True(t, exists)

	got, err := db.GetContractSource(contract)
	require.NoError(t, err)
	require.Equal(t, source, got)

	hash, err := db.GetContractHash(contract)
	require.NoError(t, err)
	require.Equal(t, crypto.ContractHash(source), hash)

	size, err := db.GetContractSize(contract)
	require.NoError(t, err)
	require.Equal(t, uint64(len(source)), size)

	require.ErrorIs(t, db.InsertContract(contract, "other"), ErrContractExists)
}

func TestContractDataSizeAndAnalysis(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)
	require.NoError(t, db.InsertContract(contract, "src"))

	size, err := db.GetContractDataSize(contract)
	require.NoError(t, err)
	require.Zero(t, size, "unset data size defaults to zero")

	require.NoError(t, db.SetContractDataSize(contract, 123))
	size, err = db.GetContractDataSize(contract)
	require.NoError(t, err)
	require.Equal(t, uint64(123), size)

	_, ok, err := db.GetContractAnalysis(contract)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.SetContractAnalysis(contract, "analysis-blob"))
	blob, ok, err := db.GetContractAnalysis(contract)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "analysis-blob", blob)
}

func TestContractMissing(t *testing.T) {
	db, _ := openDB(t, nil)
	contract := testContract(t)

	_, err := db.GetContractSource(contract)
	require.ErrorIs(t, err, ErrNoSuchContract)
	_, err = db.GetContractHash(contract)
	require.ErrorIs(t, err, ErrNoSuchContract)
	_, err = db.GetContractSize(contract)
	require.ErrorIs(t, err, ErrNoSuchContract)
}
