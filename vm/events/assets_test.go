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
	"testing"

	"github.com/hirosystems/clarinet-sub006/common"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

func principal(seed byte) types.StandardPrincipal {
	var h common.Hash160
	for i := range h {
		h[i] = seed
	}
	return types.StandardPrincipal{Version: 26, Hash: h}
}

func assetID(t *testing.T, name string) AssetID {
	t.Helper()
	contract, err := types.NewContractID(principal(9), "tokens")
	if err != nil {
		t.Fatal(err)
	}
	return AssetID{Contract: contract, Name: name}
}

func TestAssetMapAccumulates(t *testing.T) {
	m := NewAssetMap()
	alice := principal(1)
	stella := assetID(t, "stella")

	if err := m.AddSTXTransfer(alice, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSTXTransfer(alice, big.NewInt(50)); err != nil {
		t.Fatal(err)
	}
	if got := m.GetSTX(alice); got.Cmp(big.NewInt(150)) != 0 {
		t.Errorf("GetSTX = %s, want 150", got)
	}

	if err := m.AddSTXBurn(alice, big.NewInt(7)); err != nil {
		t.Fatal(err)
	}
	if got := m.GetSTXBurned(alice); got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("GetSTXBurned = %s, want 7", got)
	}

	if err := m.AddTokenTransfer(alice, stella, big.NewInt(3)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddTokenTransfer(alice, stella, big.NewInt(4)); err != nil {
		t.Fatal(err)
	}
	if got := m.GetToken(alice, stella); got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("GetToken = %s, want 7", got)
	}

	m.AddAssetTransfer(alice, stella, types.UInt64(1))
	m.AddAssetTransfer(alice, stella, types.UInt64(2))
	keys := m.GetAsset(alice, stella)
	if len(keys) != 2 || !keys[0].Equal(types.UInt64(1)) || !keys[1].Equal(types.UInt64(2)) {
		t.Errorf("GetAsset = %v, want movement order [u1 u2]", keys)
	}
}

func TestAssetMapGettersCopy(t *testing.T) {
	m := NewAssetMap()
	alice := principal(1)
	if err := m.AddSTXTransfer(alice, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
	got := m.GetSTX(alice)
	got.SetInt64(0)
	if m.GetSTX(alice).Cmp(big.NewInt(10)) != 0 {
		t.Error("GetSTX must return a copy")
	}
}

func TestAssetMapOverflow(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	m := NewAssetMap()
	alice := principal(1)
	if err := m.AddSTXTransfer(alice, max); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSTXTransfer(alice, big.NewInt(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("err = %v, want ErrAmountOverflow", err)
	}
	if err := m.AddTokenTransfer(alice, assetID(t, "stella"), max); err != nil {
		t.Fatal(err)
	}
	if err := m.AddTokenTransfer(alice, assetID(t, "stella"), big.NewInt(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("token err = %v, want ErrAmountOverflow", err)
	}
}

func TestAssetMapApplyFoldsInnerFrame(t *testing.T) {
	outer := NewAssetMap()
	alice, bob := principal(1), principal(2)
	stella := assetID(t, "stella")

	if err := outer.AddSTXTransfer(alice, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}

	inner := NewAssetMap()
	if err := inner.AddSTXTransfer(alice, big.NewInt(5)); err != nil {
		t.Fatal(err)
	}
	if err := inner.AddSTXBurn(bob, big.NewInt(2)); err != nil {
		t.Fatal(err)
	}
	if err := inner.AddTokenTransfer(bob, stella, big.NewInt(9)); err != nil {
		t.Fatal(err)
	}
	inner.AddAssetTransfer(bob, stella, types.UInt64(4))

	if err := outer.Apply(inner); err != nil {
		t.Fatal(err)
	}
	if got := outer.GetSTX(alice); got.Cmp(big.NewInt(15)) != 0 {
		t.Errorf("folded STX = %s, want 15", got)
	}
	if got := outer.GetSTXBurned(bob); got.Cmp(big.NewInt(2)) != 0 {
		t.Errorf("folded burn = %s, want 2", got)
	}
	if got := outer.GetToken(bob, stella); got.Cmp(big.NewInt(9)) != 0 {
		t.Errorf("folded token = %s, want 9", got)
	}
	if keys := outer.GetAsset(bob, stella); len(keys) != 1 || !keys[0].Equal(types.UInt64(4)) {
		t.Errorf("folded asset keys = %v", keys)
	}
}

func TestAssetMapPrincipalsSorted(t *testing.T) {
	m := NewAssetMap()
	a, b := principal(1), principal(2)
	if err := m.AddSTXTransfer(b, big.NewInt(1)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSTXBurn(a, big.NewInt(1)); err != nil {
		t.Fatal(err)
	}
	got := m.Principals()
	if len(got) != 2 {
		t.Fatalf("Principals len = %d, want 2", len(got))
	}
	if got[0].String() > got[1].String() {
		t.Error("Principals must sort by rendered form")
	}
}

func TestAssetIDString(t *testing.T) {
	id := assetID(t, "stella")
	want := id.Contract.String() + "::stella"
	if id.String() != want {
		t.Errorf("AssetID.String = %q, want %q", id.String(), want)
	}
}
