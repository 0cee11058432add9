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

package session

import (
	"math/big"
	"sort"

	"github.com/hirosystems/clarinet-sub006/vm/events"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// STXAssetID is the ledger asset identifier for the native token.
const STXAssetID = "STX"

// Ledger is the session's introspection tally: committed events fold
// into per-account, per-asset balances a REPL can query. It mirrors
// event flow, not chain state, so it can drift from the store when runs
// execute against pre-seeded state. It is never part of committed state.
type Ledger struct {
	balances map[string]map[string]*big.Int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]map[string]*big.Int)}
}

// Record folds one event into the ledger and returns the principals it
// touched. Fungible movements credit the recipient and debit the sender;
// non-fungible movements count one unit per asset key.
func (l *Ledger) Record(ev events.Event) []types.Value {
	one := big.NewInt(1)
	switch e := ev.(type) {
	case *events.STXTransferEvent:
		l.add(e.Sender, STXAssetID, new(big.Int).Neg(e.Amount))
		l.add(e.Recipient, STXAssetID, e.Amount)
		return []types.Value{e.Sender, e.Recipient}
	case *events.STXMintEvent:
		l.add(e.Recipient, STXAssetID, e.Amount)
		return []types.Value{e.Recipient}
	case *events.STXBurnEvent:
		l.add(e.Sender, STXAssetID, new(big.Int).Neg(e.Amount))
		return []types.Value{e.Sender}
	case *events.STXLockEvent:
		return []types.Value{e.Locker}
	case *events.FTTransferEvent:
		l.add(e.Sender, e.Asset.String(), new(big.Int).Neg(e.Amount))
		l.add(e.Recipient, e.Asset.String(), e.Amount)
		return []types.Value{e.Sender, e.Recipient}
	case *events.FTMintEvent:
		l.add(e.Recipient, e.Asset.String(), e.Amount)
		return []types.Value{e.Recipient}
	case *events.FTBurnEvent:
		l.add(e.Sender, e.Asset.String(), new(big.Int).Neg(e.Amount))
		return []types.Value{e.Sender}
	case *events.NFTTransferEvent:
		l.add(e.Sender, e.Asset.String(), new(big.Int).Neg(one))
		l.add(e.Recipient, e.Asset.String(), one)
		return []types.Value{e.Sender, e.Recipient}
	case *events.NFTMintEvent:
		l.add(e.Recipient, e.Asset.String(), one)
		return []types.Value{e.Recipient}
	case *events.NFTBurnEvent:
		l.add(e.Sender, e.Asset.String(), new(big.Int).Neg(one))
		return []types.Value{e.Sender}
	}
	return nil
}

// Balance returns the tallied balance of one asset for an account.
func (l *Ledger) Balance(account types.Value, asset string) *big.Int {
	if byAsset, ok := l.balances[account.String()]; ok {
		if v, ok := byAsset[asset]; ok {
			return new(big.Int).Set(v)
		}
	}
	return new(big.Int)
}

// Assets returns every asset with a nonzero tally for an account, in
// sorted order.
func (l *Ledger) Assets(account types.Value) []string {
	byAsset, ok := l.balances[account.String()]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(byAsset))
	for asset, v := range byAsset {
		if v.Sign() != 0 {
			out = append(out, asset)
		}
	}
	sort.Strings(out)
	return out
}

// Reset clears every tally.
func (l *Ledger) Reset() {
	l.balances = make(map[string]map[string]*big.Int)
}

func (l *Ledger) add(principal types.Value, asset string, amount *big.Int) {
	key := principal.String()
	byAsset, ok := l.balances[key]
	if !ok {
		byAsset = make(map[string]*big.Int)
		l.balances[key] = byAsset
	}
	prev, ok := byAsset[asset]
	if !ok {
		prev = new(big.Int)
	}
	byAsset[asset] = new(big.Int).Add(prev, amount)
}
