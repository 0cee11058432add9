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

// Package database layers typed, admission-checked contract state over
// the versioned store. Every structure access resolves the structure's
// declared type from its descriptor, checks admission, charges the cost
// tracker, and moves serialized values through the savepoint stack.
package database

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/inconshreveable/log15"

	"github.com/hirosystems/clarinet-sub006/common"
	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/serde"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

var (
	// ErrNoSuchStructure is returned when an access names a variable,
	// map or token the contract never declared.
	ErrNoSuchStructure = errors.New("database: data structure not declared")

	// ErrStructureExists is returned when a declaration reuses a name in
	// the same namespace.
	ErrStructureExists = errors.New("database: data structure already declared")

	// ErrBadDescriptor is returned when a stored descriptor fails to
	// decode. Descriptors are written by this package, so this indicates
	// store corruption.
	ErrBadDescriptor = errors.New("database: corrupt structure descriptor")
)

// ClarityDatabase is the typed state interface contract execution runs
// against. It owns no store of its own: all reads and writes flow through
// the savepoint stack of its RollbackWrapper, and every metered access
// charges the cost tracker before touching data.
type ClarityDatabase struct {
	wrapper *RollbackWrapper
	tracker costs.Tracker
	logger  log15.Logger
}

// NewClarityDatabase binds a typed layer to a savepoint stack and a cost
// tracker.
func NewClarityDatabase(wrapper *RollbackWrapper, tracker costs.Tracker) *ClarityDatabase {
	return &ClarityDatabase{
		wrapper: wrapper,
		tracker: tracker,
		logger:  log15.New("module", "database"),
	}
}

// Wrapper exposes the underlying savepoint stack.
func (db *ClarityDatabase) Wrapper() *RollbackWrapper { return db.wrapper }

// Tracker exposes the bound cost tracker.
func (db *ClarityDatabase) Tracker() costs.Tracker { return db.tracker }

// CurrentBlockHeight reports the read tip height of the backing store.
func (db *ClarityDatabase) CurrentBlockHeight() uint32 {
	return db.wrapper.Store().CurrentBlockHeight()
}

// BlockIDAtHeight resolves a height through the store's block index.
func (db *ClarityDatabase) BlockIDAtHeight(height uint32) (common.BlockID, bool) {
	return db.wrapper.Store().BlockAtHeight(height)
}

// charge computes and books the cost of one metered operation. The two
// tracker calls are deliberately not fused: ComputeCost may consult a
// cost-contract override, and AddCost is all-or-nothing against the
// remaining budget.
func (db *ClarityDatabase) charge(fn costs.CostFunction, input []uint64) error {
	cost, err := db.tracker.ComputeCost(fn, input)
	if err != nil {
		return err
	}
	return db.tracker.AddCost(cost)
}

// ---- Data variables ----

// CreateVariable declares a data variable and stores its descriptor.
func (db *ClarityDatabase) CreateVariable(contract types.ContractID, name string, valueType types.TypeSignature) error {
	size, err := valueType.MaxSerializedSize()
	if err != nil {
		return err
	}
	if err := db.charge(costs.CostCreateVar, []uint64{uint64(size)}); err != nil {
		return err
	}
	if err := db.checkUndeclared(contract, StoreTypeVariable, name); err != nil {
		return err
	}
	blob, err := serde.SerializeType(valueType)
	if err != nil {
		return err
	}
	return db.wrapper.InsertMetadata(contract.String(), descriptorKey(StoreTypeVariable, name), hex.EncodeToString(blob))
}

// SetVariable admission-checks and stores a new value for a variable.
func (db *ClarityDatabase) SetVariable(contract types.ContractID, name string, value types.Value) error {
	valueType, err := db.loadType(contract, StoreTypeVariable, name)
	if err != nil {
		return err
	}
	if err := admit(valueType, value); err != nil {
		return err
	}
	blob, err := serde.SerializeToHex(value)
	if err != nil {
		return err
	}
	if err := db.charge(costs.CostSetVar, []uint64{uint64(len(blob) / 2)}); err != nil {
		return err
	}
	db.wrapper.SetValue(makeKey(contract, StoreTypeVariable, name), blob)
	return nil
}

// LookupVariable returns a variable's current value, or none when it has
// never been set.
func (db *ClarityDatabase) LookupVariable(contract types.ContractID, name string) (types.Value, error) {
	valueType, err := db.loadType(contract, StoreTypeVariable, name)
	if err != nil {
		return nil, err
	}
	size, err := valueType.MaxSerializedSize()
	if err != nil {
		return nil, err
	}
	if err := db.charge(costs.CostFetchVar, []uint64{uint64(size)}); err != nil {
		return nil, err
	}
	raw, ok, err := db.wrapper.GetValue(makeKey(contract, StoreTypeVariable, name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.None, nil
	}
	return serde.DeserializeHex(raw, valueType)
}

// ---- Data maps ----

// mapDescriptor carries a map's declared key and value types. It is
// persisted as a serialized two-field tuple type so the variable and map
// descriptors share one codec.
type mapDescriptor struct {
	keyType   types.TypeSignature
	valueType types.TypeSignature
}

const (
	mapDescKeyField   = "key"
	mapDescValueField = "value"
)

// CreateMap declares a data map and stores its descriptor.
func (db *ClarityDatabase) CreateMap(contract types.ContractID, name string, keyType, valueType types.TypeSignature) error {
	keySize, err := keyType.MaxSerializedSize()
	if err != nil {
		return err
	}
	valueSize, err := valueType.MaxSerializedSize()
	if err != nil {
		return err
	}
	if err := db.charge(costs.CostCreateMap, []uint64{uint64(keySize), uint64(valueSize)}); err != nil {
		return err
	}
	if err := db.checkUndeclared(contract, StoreTypeDataMap, name); err != nil {
		return err
	}
	desc, err := types.NewTupleType(
		[]string{mapDescKeyField, mapDescValueField},
		[]types.TypeSignature{keyType, valueType},
	)
	if err != nil {
		return err
	}
	blob, err := serde.SerializeType(desc)
	if err != nil {
		return err
	}
	return db.wrapper.InsertMetadata(contract.String(), descriptorKey(StoreTypeDataMap, name), hex.EncodeToString(blob))
}

func (db *ClarityDatabase) loadMapDescriptor(contract types.ContractID, name string) (mapDescriptor, error) {
	sig, err := db.loadType(contract, StoreTypeDataMap, name)
	if err != nil {
		return mapDescriptor{}, err
	}
	tuple, ok := sig.(types.TupleType)
	if !ok {
		return mapDescriptor{}, fmt.Errorf("%w: map %s.%s", ErrBadDescriptor, contract, name)
	}
	keyType, ok1 := tuple.Field(mapDescKeyField)
	valueType, ok2 := tuple.Field(mapDescValueField)
	if !ok1 || !ok2 {
		return mapDescriptor{}, fmt.Errorf("%w: map %s.%s", ErrBadDescriptor, contract, name)
	}
	return mapDescriptor{keyType: keyType, valueType: valueType}, nil
}

// FetchEntry returns (some value) for a present key and none otherwise.
// Present keys are stored optional-wrapped, so a stored none marks a
// deletion rather than a held value.
func (db *ClarityDatabase) FetchEntry(contract types.ContractID, name string, key types.Value) (types.Value, error) {
	desc, err := db.loadMapDescriptor(contract, name)
	if err != nil {
		return nil, err
	}
	if err := admit(desc.keyType, key); err != nil {
		return nil, err
	}
	keyBlob, err := serde.SerializeToHex(key)
	if err != nil {
		return nil, err
	}
	valueSize, err := desc.valueType.MaxSerializedSize()
	if err != nil {
		return nil, err
	}
	if err := db.charge(costs.CostFetchEntry, []uint64{uint64(len(keyBlob) / 2), uint64(valueSize)}); err != nil {
		return nil, err
	}
	raw, ok, err := db.wrapper.GetValue(makeEntryKey(contract, StoreTypeDataMap, name, keyBlob))
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.None, nil
	}
	stored, err := types.NewOptionalType(desc.valueType)
	if err != nil {
		return nil, err
	}
	return serde.DeserializeHex(raw, stored)
}

// SetEntry unconditionally maps key to value, declaring success whether
// or not the key was already present.
func (db *ClarityDatabase) SetEntry(contract types.ContractID, name string, key, value types.Value) error {
	_, err := db.writeEntry(contract, name, key, types.Some(value), value)
	return err
}

// InsertEntry maps key to value only when the key is absent. It reports
// whether the insert took effect.
func (db *ClarityDatabase) InsertEntry(contract types.ContractID, name string, key, value types.Value) (bool, error) {
	existing, err := db.FetchEntry(contract, name, key)
	if err != nil {
		return false, err
	}
	if _, present := existing.(types.SomeValue); present {
		return false, nil
	}
	return db.writeEntry(contract, name, key, types.Some(value), value)
}

// DeleteEntry removes a key by storing a none marker over it. It reports
// whether the key was present.
func (db *ClarityDatabase) DeleteEntry(contract types.ContractID, name string, key types.Value) (bool, error) {
	existing, err := db.FetchEntry(contract, name, key)
	if err != nil {
		return false, err
	}
	if _, present := existing.(types.SomeValue); !present {
		return false, nil
	}
	return db.writeEntry(contract, name, key, types.None, nil)
}

// writeEntry validates key (and value when one is being stored) against
// the map's descriptor, charges the write, and records the edit.
func (db *ClarityDatabase) writeEntry(contract types.ContractID, name string, key types.Value, stored types.Value, value types.Value) (bool, error) {
	desc, err := db.loadMapDescriptor(contract, name)
	if err != nil {
		return false, err
	}
	if err := admit(desc.keyType, key); err != nil {
		return false, err
	}
	if value != nil {
		if err := admit(desc.valueType, value); err != nil {
			return false, err
		}
	}
	keyBlob, err := serde.SerializeToHex(key)
	if err != nil {
		return false, err
	}
	valueBlob, err := serde.SerializeToHex(stored)
	if err != nil {
		return false, err
	}
	if err := db.charge(costs.CostSetEntry, []uint64{uint64(len(keyBlob) / 2), uint64(len(valueBlob) / 2)}); err != nil {
		return false, err
	}
	db.wrapper.SetValue(makeEntryKey(contract, StoreTypeDataMap, name, keyBlob), valueBlob)
	return true, nil
}

// ---- Shared helpers ----

// loadType fetches and decodes a structure descriptor.
func (db *ClarityDatabase) loadType(contract types.ContractID, st StoreType, name string) (types.TypeSignature, error) {
	raw, ok, err := db.wrapper.GetMetadata(contract.String(), descriptorKey(st, name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoSuchStructure, contract, name)
	}
	blob, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrBadDescriptor, contract, name, err)
	}
	sig, err := serde.DeserializeType(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrBadDescriptor, contract, name, err)
	}
	return sig, nil
}

// checkUndeclared guards declarations against namespace reuse.
func (db *ClarityDatabase) checkUndeclared(contract types.ContractID, st StoreType, name string) error {
	_, ok, err := db.wrapper.GetMetadata(contract.String(), descriptorKey(st, name))
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s.%s", ErrStructureExists, contract, name)
	}
	return nil
}

// admit wraps a failed admission check with the declared and actual shapes.
func admit(sig types.TypeSignature, v types.Value) error {
	ok, err := sig.Admits(v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s does not admit %s", types.ErrTypeMismatch, sig, v)
	}
	return nil
}
