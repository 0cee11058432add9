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

package events

import (
	"errors"
	"math/big"
	"sort"

	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// ErrAmountOverflow is returned when folding asset movements would exceed
// the 128-bit unsigned range.
var ErrAmountOverflow = errors.New("events: asset amount overflow")

var amountMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// AssetMap tallies the asset movements a transaction performed, keyed by
// the principal whose holdings moved. Nested call frames each get their
// own map; a frame's map is folded into its parent only when the frame
// commits, so rolled-back movements never surface.
type AssetMap struct {
	stxMoved  map[string]*big.Int
	stxBurned map[string]*big.Int
	tokens    map[string]map[string]*big.Int      // principal -> asset -> amount
	assets    map[string]map[string][]types.Value // principal -> asset -> keys
	owners    map[string]types.Value              // principal key -> principal value
	assetIDs  map[string]AssetID                  // rendered asset -> AssetID
}

// NewAssetMap returns an empty tally.
func NewAssetMap() *AssetMap {
	return &AssetMap{
		stxMoved:  make(map[string]*big.Int),
		stxBurned: make(map[string]*big.Int),
		tokens:    make(map[string]map[string]*big.Int),
		assets:    make(map[string]map[string][]types.Value),
		owners:    make(map[string]types.Value),
		assetIDs:  make(map[string]AssetID),
	}
}

// AddSTXTransfer records liquid STX leaving a principal's account.
func (m *AssetMap) AddSTXTransfer(principal types.Value, amount *big.Int) error {
	return m.addChecked(m.stxMoved, principal, amount)
}

// AddSTXBurn records STX destroyed from a principal's account.
func (m *AssetMap) AddSTXBurn(principal types.Value, amount *big.Int) error {
	return m.addChecked(m.stxBurned, principal, amount)
}

// AddTokenTransfer records fungible token units leaving a principal's balance.
func (m *AssetMap) AddTokenTransfer(principal types.Value, asset AssetID, amount *big.Int) error {
	key := m.noteOwner(principal)
	assetKey := m.noteAsset(asset)
	byAsset, ok := m.tokens[key]
	if !ok {
		byAsset = make(map[string]*big.Int)
		m.tokens[key] = byAsset
	}
	prev, ok := byAsset[assetKey]
	if !ok {
		prev = new(big.Int)
	}
	next := new(big.Int).Add(prev, amount)
	if next.Cmp(amountMax) > 0 {
		return ErrAmountOverflow
	}
	byAsset[assetKey] = next
	return nil
}

// AddAssetTransfer records a non-fungible asset leaving a principal's
// ownership. Keys accumulate in movement order.
func (m *AssetMap) AddAssetTransfer(principal types.Value, asset AssetID, assetKey types.Value) {
	key := m.noteOwner(principal)
	name := m.noteAsset(asset)
	byAsset, ok := m.assets[key]
	if !ok {
		byAsset = make(map[string][]types.Value)
		m.assets[key] = byAsset
	}
	byAsset[name] = append(byAsset[name], assetKey)
}

// GetSTX returns the liquid STX recorded as moved out of a principal.
func (m *AssetMap) GetSTX(principal types.Value) *big.Int {
	if v, ok := m.stxMoved[principal.String()]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// GetSTXBurned returns the STX recorded as burned by a principal.
func (m *AssetMap) GetSTXBurned(principal types.Value) *big.Int {
	if v, ok := m.stxBurned[principal.String()]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// GetToken returns the recorded outflow of one fungible asset.
func (m *AssetMap) GetToken(principal types.Value, asset AssetID) *big.Int {
	if byAsset, ok := m.tokens[principal.String()]; ok {
		if v, ok := byAsset[asset.String()]; ok {
			return new(big.Int).Set(v)
		}
	}
	return new(big.Int)
}

// GetAsset returns the non-fungible keys recorded as moved out of a
// principal for one asset class, in movement order.
func (m *AssetMap) GetAsset(principal types.Value, asset AssetID) []types.Value {
	if byAsset, ok := m.assets[principal.String()]; ok {
		return append([]types.Value(nil), byAsset[asset.String()]...)
	}
	return nil
}

// Principals returns every principal with recorded movement, sorted by
// rendered form for deterministic iteration.
func (m *AssetMap) Principals() []types.Value {
	seen := make(map[string]types.Value)
	for k := range m.stxMoved {
		seen[k] = m.owners[k]
	}
	for k := range m.stxBurned {
		seen[k] = m.owners[k]
	}
	for k := range m.tokens {
		seen[k] = m.owners[k]
	}
	for k := range m.assets {
		seen[k] = m.owners[k]
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

// Apply folds another tally into this one. The argument is the tally of a
// committed inner frame; on success it should be discarded.
func (m *AssetMap) Apply(other *AssetMap) error {
	for k, v := range other.stxMoved {
		if err := m.addChecked(m.stxMoved, other.owners[k], v); err != nil {
			return err
		}
	}
	for k, v := range other.stxBurned {
		if err := m.addChecked(m.stxBurned, other.owners[k], v); err != nil {
			return err
		}
	}
	for k, byAsset := range other.tokens {
		for assetKey, v := range byAsset {
			if err := m.AddTokenTransfer(other.owners[k], other.assetIDs[assetKey], v); err != nil {
				return err
			}
		}
	}
	for k, byAsset := range other.assets {
		for assetKey, moved := range byAsset {
			for _, ak := range moved {
				m.AddAssetTransfer(other.owners[k], other.assetIDs[assetKey], ak)
			}
		}
	}
	return nil
}

func (m *AssetMap) addChecked(table map[string]*big.Int, principal types.Value, amount *big.Int) error {
	key := m.noteOwner(principal)
	prev, ok := table[key]
	if !ok {
		prev = new(big.Int)
	}
	next := new(big.Int).Add(prev, amount)
	if next.Cmp(amountMax) > 0 {
		return ErrAmountOverflow
	}
	table[key] = next
	return nil
}

func (m *AssetMap) noteOwner(principal types.Value) string {
	key := principal.String()
	if _, ok := m.owners[key]; !ok {
		m.owners[key] = principal
	}
	return key
}

func (m *AssetMap) noteAsset(asset AssetID) string {
	key := asset.String()
	if _, ok := m.assetIDs[key]; !ok {
		m.assetIDs[key] = asset
	}
	return key
}
