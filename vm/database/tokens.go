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
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/serde"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

var (
	// ErrSupplyOverflow is returned when a mint would push circulating
	// supply past the token's declared cap or the 128-bit range.
	ErrSupplyOverflow = errors.New("database: token supply overflow")

	// ErrInsufficientBalance is returned when a transfer or burn exceeds
	// the holder's balance.
	ErrInsufficientBalance = errors.New("database: insufficient token balance")

	// ErrNoSuchAsset is returned when a non-fungible asset has never
	// been minted, or was burned.
	ErrNoSuchAsset = errors.New("database: no such asset")

	// ErrAssetExists is returned when a mint names an asset key that
	// already has an owner.
	ErrAssetExists = errors.New("database: asset already minted")

	// ErrNotAssetOwner is returned when a transfer or burn names a
	// sender that does not own the asset.
	ErrNotAssetOwner = errors.New("database: sender does not own asset")
)

// uncappedMarker stands in for an absent supply cap in the token
// descriptor metadata.
const uncappedMarker = "uncapped"

// ---- Fungible tokens ----

// CreateFungibleToken declares a fungible token class. A nil supplyCap
// leaves the supply bounded only by the 128-bit unsigned range.
func (db *ClarityDatabase) CreateFungibleToken(contract types.ContractID, name string, supplyCap *big.Int) error {
	if err := db.charge(costs.CostFtSupply, []uint64{0}); err != nil {
		return err
	}
	if err := db.checkUndeclared(contract, StoreTypeFungibleToken, name); err != nil {
		return err
	}
	desc := uncappedMarker
	if supplyCap != nil {
		blob, err := serializeUInt(supplyCap)
		if err != nil {
			return err
		}
		desc = blob
	}
	if err := db.wrapper.InsertMetadata(contract.String(), descriptorKey(StoreTypeFungibleToken, name), desc); err != nil {
		return err
	}
	zero, err := serializeUInt(new(big.Int))
	if err != nil {
		return err
	}
	db.wrapper.SetValue(makeKey(contract, StoreTypeCirculatingSupply, name), zero)
	return nil
}

// loadSupplyCap returns the declared cap, or nil for an uncapped token.
// A missing descriptor means the token was never declared.
func (db *ClarityDatabase) loadSupplyCap(contract types.ContractID, name string) (*big.Int, error) {
	raw, ok, err := db.wrapper.GetMetadata(contract.String(), descriptorKey(StoreTypeFungibleToken, name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoSuchStructure, contract, name)
	}
	if raw == uncappedMarker {
		return nil, nil
	}
	cap, err := deserializeUInt(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: token %s.%s: %v", ErrBadDescriptor, contract, name, err)
	}
	return cap, nil
}

// GetFtSupply returns the circulating supply of a token class.
func (db *ClarityDatabase) GetFtSupply(contract types.ContractID, name string) (*big.Int, error) {
	if _, err := db.loadSupplyCap(contract, name); err != nil {
		return nil, err
	}
	if err := db.charge(costs.CostFtSupply, []uint64{0}); err != nil {
		return nil, err
	}
	return db.readUIntKey(makeKey(contract, StoreTypeCirculatingSupply, name))
}

// GetFtBalance returns a principal's balance, zero when never credited.
func (db *ClarityDatabase) GetFtBalance(contract types.ContractID, name string, principal types.Value) (*big.Int, error) {
	if _, err := db.loadSupplyCap(contract, name); err != nil {
		return nil, err
	}
	if err := db.charge(costs.CostFtBalance, []uint64{0}); err != nil {
		return nil, err
	}
	return db.readUIntKey(ftBalanceKey(contract, name, principal))
}

// MintFt credits freshly issued units to a principal, enforcing the
// supply cap.
func (db *ClarityDatabase) MintFt(contract types.ContractID, name string, recipient types.Value, amount *big.Int) error {
	cap, err := db.loadSupplyCap(contract, name)
	if err != nil {
		return err
	}
	if err := db.charge(costs.CostFtMint, []uint64{0}); err != nil {
		return err
	}
	supply, err := db.readUIntKey(makeKey(contract, StoreTypeCirculatingSupply, name))
	if err != nil {
		return err
	}
	newSupply := new(big.Int).Add(supply, amount)
	if cap != nil && newSupply.Cmp(cap) > 0 {
		return fmt.Errorf("%w: %s.%s supply %s cap %s", ErrSupplyOverflow, contract, name, newSupply, cap)
	}
	balance, err := db.readUIntKey(ftBalanceKey(contract, name, recipient))
	if err != nil {
		return err
	}
	if err := db.writeUIntKey(makeKey(contract, StoreTypeCirculatingSupply, name), newSupply); err != nil {
		return err
	}
	return db.writeUIntKey(ftBalanceKey(contract, name, recipient), new(big.Int).Add(balance, amount))
}

// TransferFt moves units between principals without changing supply.
func (db *ClarityDatabase) TransferFt(contract types.ContractID, name string, sender, recipient types.Value, amount *big.Int) error {
	if _, err := db.loadSupplyCap(contract, name); err != nil {
		return err
	}
	if err := db.charge(costs.CostFtTransfer, []uint64{0}); err != nil {
		return err
	}
	fromBalance, err := db.readUIntKey(ftBalanceKey(contract, name, sender))
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s.%s balance %s amount %s", ErrInsufficientBalance, contract, name, fromBalance, amount)
	}
	toBalance, err := db.readUIntKey(ftBalanceKey(contract, name, recipient))
	if err != nil {
		return err
	}
	if err := db.writeUIntKey(ftBalanceKey(contract, name, sender), new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return db.writeUIntKey(ftBalanceKey(contract, name, recipient), new(big.Int).Add(toBalance, amount))
}

// BurnFt destroys units from a balance, shrinking circulating supply.
func (db *ClarityDatabase) BurnFt(contract types.ContractID, name string, sender types.Value, amount *big.Int) error {
	if _, err := db.loadSupplyCap(contract, name); err != nil {
		return err
	}
	if err := db.charge(costs.CostFtBurn, []uint64{0}); err != nil {
		return err
	}
	balance, err := db.readUIntKey(ftBalanceKey(contract, name, sender))
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s.%s balance %s amount %s", ErrInsufficientBalance, contract, name, balance, amount)
	}
	supply, err := db.readUIntKey(makeKey(contract, StoreTypeCirculatingSupply, name))
	if err != nil {
		return err
	}
	if err := db.writeUIntKey(ftBalanceKey(contract, name, sender), new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	return db.writeUIntKey(makeKey(contract, StoreTypeCirculatingSupply, name), new(big.Int).Sub(supply, amount))
}

// ---- Non-fungible tokens ----

// CreateNonFungibleToken declares a non-fungible asset class keyed by
// values of keyType.
func (db *ClarityDatabase) CreateNonFungibleToken(contract types.ContractID, name string, keyType types.TypeSignature) error {
	size, err := keyType.MaxSerializedSize()
	if err != nil {
		return err
	}
	if err := db.charge(costs.CostNftMint, []uint64{uint64(size)}); err != nil {
		return err
	}
	if err := db.checkUndeclared(contract, StoreTypeNonFungibleToken, name); err != nil {
		return err
	}
	blob, err := serde.SerializeType(keyType)
	if err != nil {
		return err
	}
	return db.wrapper.InsertMetadata(contract.String(), descriptorKey(StoreTypeNonFungibleToken, name), hex.EncodeToString(blob))
}

// GetNftOwner resolves an asset's current owner. Burned and never-minted
// assets both resolve to ErrNoSuchAsset; burning writes a none marker so
// ownership history stays intact in the versioned store.
func (db *ClarityDatabase) GetNftOwner(contract types.ContractID, name string, assetKey types.Value) (types.Value, error) {
	entryKey, err := db.nftEntryKey(contract, name, assetKey)
	if err != nil {
		return nil, err
	}
	if err := db.charge(costs.CostNftOwner, []uint64{0}); err != nil {
		return nil, err
	}
	return db.nftOwnerAt(contract, name, assetKey, entryKey)
}

// MintNft brings an asset into existence owned by recipient.
func (db *ClarityDatabase) MintNft(contract types.ContractID, name string, assetKey, recipient types.Value) error {
	entryKey, err := db.nftEntryKey(contract, name, assetKey)
	if err != nil {
		return err
	}
	if err := db.charge(costs.CostNftMint, []uint64{0}); err != nil {
		return err
	}
	if _, err := db.nftOwnerAt(contract, name, assetKey, entryKey); err == nil {
		return fmt.Errorf("%w: %s.%s %s", ErrAssetExists, contract, name, assetKey)
	} else if !errors.Is(err, ErrNoSuchAsset) {
		return err
	}
	return db.writeOwner(entryKey, types.Some(recipient))
}

// TransferNft moves an asset from its current owner to recipient.
func (db *ClarityDatabase) TransferNft(contract types.ContractID, name string, assetKey, sender, recipient types.Value) error {
	entryKey, err := db.nftEntryKey(contract, name, assetKey)
	if err != nil {
		return err
	}
	if err := db.charge(costs.CostNftTransfer, []uint64{0}); err != nil {
		return err
	}
	owner, err := db.nftOwnerAt(contract, name, assetKey, entryKey)
	if err != nil {
		return err
	}
	if !owner.Equal(sender) {
		return fmt.Errorf("%w: %s.%s %s", ErrNotAssetOwner, contract, name, assetKey)
	}
	return db.writeOwner(entryKey, types.Some(recipient))
}

// BurnNft destroys an asset after checking the sender owns it.
func (db *ClarityDatabase) BurnNft(contract types.ContractID, name string, assetKey, sender types.Value) error {
	entryKey, err := db.nftEntryKey(contract, name, assetKey)
	if err != nil {
		return err
	}
	if err := db.charge(costs.CostNftBurn, []uint64{0}); err != nil {
		return err
	}
	owner, err := db.nftOwnerAt(contract, name, assetKey, entryKey)
	if err != nil {
		return err
	}
	if !owner.Equal(sender) {
		return fmt.Errorf("%w: %s.%s %s", ErrNotAssetOwner, contract, name, assetKey)
	}
	return db.writeOwner(entryKey, types.None)
}

// nftEntryKey admission-checks the asset key against the class
// descriptor and renders the store key.
func (db *ClarityDatabase) nftEntryKey(contract types.ContractID, name string, assetKey types.Value) (string, error) {
	keyType, err := db.loadType(contract, StoreTypeNonFungibleToken, name)
	if err != nil {
		return "", err
	}
	if err := admit(keyType, assetKey); err != nil {
		return "", err
	}
	keyBlob, err := serde.SerializeToHex(assetKey)
	if err != nil {
		return "", err
	}
	return makeEntryKey(contract, StoreTypeNonFungibleToken, name, keyBlob), nil
}

func (db *ClarityDatabase) nftOwnerAt(contract types.ContractID, name string, assetKey types.Value, entryKey string) (types.Value, error) {
	raw, ok, err := db.wrapper.GetValue(entryKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s %s", ErrNoSuchAsset, contract, name, assetKey)
	}
	stored, err := types.NewOptionalType(types.PrincipalType)
	if err != nil {
		return nil, err
	}
	v, err := serde.DeserializeHex(raw, stored)
	if err != nil {
		return nil, err
	}
	some, ok := v.(types.SomeValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s %s", ErrNoSuchAsset, contract, name, assetKey)
	}
	return some.Inner, nil
}

func (db *ClarityDatabase) writeOwner(entryKey string, owner types.Value) error {
	blob, err := serde.SerializeToHex(owner)
	if err != nil {
		return err
	}
	db.wrapper.SetValue(entryKey, blob)
	return nil
}

// ---- Serialized uint plumbing ----

func ftBalanceKey(contract types.ContractID, name string, principal types.Value) string {
	return makeEntryKey(contract, StoreTypeFungibleToken, name, principal.String())
}

func serializeUInt(n *big.Int) (string, error) {
	v, err := types.NewUInt(n)
	if err != nil {
		return "", err
	}
	return serde.SerializeToHex(v)
}

func deserializeUInt(blob string) (*big.Int, error) {
	v, err := serde.DeserializeHex(blob, types.UIntType)
	if err != nil {
		return nil, err
	}
	return v.(types.UIntValue).Big(), nil
}

// readUIntKey reads a serialized uint, defaulting to zero when the key
// has never been written.
func (db *ClarityDatabase) readUIntKey(key string) (*big.Int, error) {
	raw, ok, err := db.wrapper.GetValue(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return deserializeUInt(raw)
}

func (db *ClarityDatabase) writeUIntKey(key string, n *big.Int) error {
	blob, err := serializeUInt(n)
	if err != nil {
		return err
	}
	db.wrapper.SetValue(key, blob)
	return nil
}
