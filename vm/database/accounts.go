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
	"errors"
	"fmt"
	"math/big"

	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/serde"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

var (
	// ErrInsufficientFunds is returned when a debit or lock exceeds the
	// account's unlocked balance.
	ErrInsufficientFunds = errors.New("database: insufficient STX funds")

	// ErrAlreadyLocked is returned when a lock is requested while a
	// previous lock is still in force.
	ErrAlreadyLocked = errors.New("database: STX already locked")
)

// STXBalance is an account's STX position. Locked tokens rejoin the
// unlocked balance once the chain reaches UnlockHeight.
type STXBalance struct {
	Unlocked     *big.Int
	Locked       *big.Int
	UnlockHeight uint64
}

const (
	balanceFieldUnlocked     = "unlocked"
	balanceFieldLocked       = "locked"
	balanceFieldUnlockHeight = "unlock-height"
)

// zeroBalance returns an empty position.
func zeroBalance() STXBalance {
	return STXBalance{Unlocked: new(big.Int), Locked: new(big.Int)}
}

// STXBalanceSnapshot is a read-modify-write handle on one account's
// balance. Mutations accumulate in memory; nothing reaches the savepoint
// stack until Save.
type STXBalanceSnapshot struct {
	db        *ClarityDatabase
	principal types.Value
	balance   STXBalance
	height    uint64
}

// GetSTXBalanceSnapshot loads an account's position at the current block
// height, folding any matured lock back into the unlocked balance.
func (db *ClarityDatabase) GetSTXBalanceSnapshot(principal types.Value) (*STXBalanceSnapshot, error) {
	if err := db.charge(costs.CostStxBalance, []uint64{0}); err != nil {
		return nil, err
	}
	balance, err := db.loadBalance(principal)
	if err != nil {
		return nil, err
	}
	snap := &STXBalanceSnapshot{
		db:        db,
		principal: principal,
		balance:   balance,
		height:    uint64(db.CurrentBlockHeight()),
	}
	snap.maybeUnlock()
	return snap, nil
}

// Principal returns the account the snapshot belongs to.
func (s *STXBalanceSnapshot) Principal() types.Value { return s.principal }

// Balance returns the spendable (unlocked) amount.
func (s *STXBalanceSnapshot) Balance() *big.Int { return new(big.Int).Set(s.balance.Unlocked) }

// LockedBalance returns the amount still under lock.
func (s *STXBalanceSnapshot) LockedBalance() *big.Int { return new(big.Int).Set(s.balance.Locked) }

// CanTransfer reports whether the unlocked balance covers amount.
func (s *STXBalanceSnapshot) CanTransfer(amount *big.Int) bool {
	return s.balance.Unlocked.Cmp(amount) >= 0
}

// Debit removes amount from the unlocked balance.
func (s *STXBalanceSnapshot) Debit(amount *big.Int) error {
	if !s.CanTransfer(amount) {
		return fmt.Errorf("%w: balance %s amount %s", ErrInsufficientFunds, s.balance.Unlocked, amount)
	}
	s.balance.Unlocked.Sub(s.balance.Unlocked, amount)
	return nil
}

// Credit adds amount to the unlocked balance.
func (s *STXBalanceSnapshot) Credit(amount *big.Int) error {
	next := new(big.Int).Add(s.balance.Unlocked, amount)
	if _, err := types.NewUInt(next); err != nil {
		return err
	}
	s.balance.Unlocked = next
	return nil
}

// LockTokens moves amount from the unlocked balance under a lock that
// expires at unlockHeight. Only one lock may be in force at a time.
func (s *STXBalanceSnapshot) LockTokens(amount *big.Int, unlockHeight uint64) error {
	if s.balance.Locked.Sign() > 0 {
		return fmt.Errorf("%w: %s until height %d", ErrAlreadyLocked, s.balance.Locked, s.balance.UnlockHeight)
	}
	if unlockHeight <= s.height {
		return fmt.Errorf("database: unlock height %d not after current height %d", unlockHeight, s.height)
	}
	if s.balance.Unlocked.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s amount %s", ErrInsufficientFunds, s.balance.Unlocked, amount)
	}
	s.balance.Unlocked.Sub(s.balance.Unlocked, amount)
	s.balance.Locked = new(big.Int).Set(amount)
	s.balance.UnlockHeight = unlockHeight
	return nil
}

// maybeUnlock folds a matured lock back into the unlocked balance.
func (s *STXBalanceSnapshot) maybeUnlock() {
	if s.balance.Locked.Sign() > 0 && s.height >= s.balance.UnlockHeight {
		s.balance.Unlocked.Add(s.balance.Unlocked, s.balance.Locked)
		s.balance.Locked = new(big.Int)
		s.balance.UnlockHeight = 0
	}
}

// Save writes the position back through the savepoint stack.
func (s *STXBalanceSnapshot) Save() error {
	return s.db.storeBalance(s.principal, s.balance)
}

// ---- Balance persistence ----

// Balances persist as a three-field tuple so they stay readable through
// the ordinary value codec.
func (db *ClarityDatabase) loadBalance(principal types.Value) (STXBalance, error) {
	raw, ok, err := db.wrapper.GetValue(makeAccountKey(principal, StoreTypeSTXBalance))
	if err != nil {
		return STXBalance{}, err
	}
	if !ok {
		return zeroBalance(), nil
	}
	sig, err := balanceTupleType()
	if err != nil {
		return STXBalance{}, err
	}
	v, err := serde.DeserializeHex(raw, sig)
	if err != nil {
		return STXBalance{}, err
	}
	tuple := v.(types.TupleValue)
	unlocked, _ := tuple.Get(balanceFieldUnlocked)
	locked, _ := tuple.Get(balanceFieldLocked)
	unlockHeight, _ := tuple.Get(balanceFieldUnlockHeight)
	return STXBalance{
		Unlocked:     unlocked.(types.UIntValue).Big(),
		Locked:       locked.(types.UIntValue).Big(),
		UnlockHeight: mustUint64(unlockHeight.(types.UIntValue).Big()),
	}, nil
}

func (db *ClarityDatabase) storeBalance(principal types.Value, balance STXBalance) error {
	unlocked, err := types.NewUInt(balance.Unlocked)
	if err != nil {
		return err
	}
	locked, err := types.NewUInt(balance.Locked)
	if err != nil {
		return err
	}
	tuple, err := types.NewTuple(
		[]string{balanceFieldUnlocked, balanceFieldLocked, balanceFieldUnlockHeight},
		[]types.Value{unlocked, locked, types.UInt64(balance.UnlockHeight)},
	)
	if err != nil {
		return err
	}
	blob, err := serde.SerializeToHex(tuple)
	if err != nil {
		return err
	}
	db.wrapper.SetValue(makeAccountKey(principal, StoreTypeSTXBalance), blob)
	return nil
}

func balanceTupleType() (types.TypeSignature, error) {
	return types.NewTupleType(
		[]string{balanceFieldUnlocked, balanceFieldLocked, balanceFieldUnlockHeight},
		[]types.TypeSignature{types.UIntType, types.UIntType, types.UIntType},
	)
}

func mustUint64(n *big.Int) uint64 {
	if !n.IsUint64() {
		panic("database: stored unlock height out of range")
	}
	return n.Uint64()
}

// ---- Nonces ----

// GetAccountNonce returns the account's transaction nonce, zero for a
// never-seen account.
func (db *ClarityDatabase) GetAccountNonce(principal types.Value) (uint64, error) {
	n, err := db.readUIntKey(makeAccountKey(principal, StoreTypeNonce))
	if err != nil {
		return 0, err
	}
	return mustUint64(n), nil
}

// SetAccountNonce overwrites the account's nonce.
func (db *ClarityDatabase) SetAccountNonce(principal types.Value, nonce uint64) error {
	return db.writeUIntKey(makeAccountKey(principal, StoreTypeNonce), new(big.Int).SetUint64(nonce))
}

// IncrementAccountNonce bumps the nonce by one and returns the new value.
func (db *ClarityDatabase) IncrementAccountNonce(principal types.Value) (uint64, error) {
	n, err := db.GetAccountNonce(principal)
	if err != nil {
		return 0, err
	}
	if err := db.SetAccountNonce(principal, n+1); err != nil {
		return 0, err
	}
	return n + 1, nil
}
