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
	"fmt"

	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// StoreType discriminates the key namespaces of the versioned store so
// two data structures with the same declared name can never collide.
type StoreType byte

const (
	StoreTypeVariable StoreType = iota
	StoreTypeDataMap
	StoreTypeFungibleToken
	StoreTypeCirculatingSupply
	StoreTypeNonFungibleToken
	StoreTypeSTXBalance
	StoreTypeNonce
)

// makeKey builds the versioned-store key for a named data structure.
func makeKey(contract types.ContractID, st StoreType, name string) string {
	return fmt.Sprintf("vm::%s::%d::%s", contract, st, name)
}

// makeEntryKey extends a structure key with a serialized lookup key, for
// map entries and non-fungible assets.
func makeEntryKey(contract types.ContractID, st StoreType, name, serializedKey string) string {
	return fmt.Sprintf("vm::%s::%d::%s::%s", contract, st, name, serializedKey)
}

// makeAccountKey builds the versioned-store key for per-principal state.
func makeAccountKey(principal types.Value, st StoreType) string {
	return fmt.Sprintf("vm-account::%s::%d", principal, st)
}

// Metadata keys. Metadata is keyed by contract already, so these only
// carry the structure namespace and name.
func descriptorKey(st StoreType, name string) string {
	return fmt.Sprintf("descriptor::%d::%s", st, name)
}

const (
	metaContractSource   = "contract-source"
	metaContractHash     = "contract-hash"
	metaContractSize     = "contract-size"
	metaContractDataSize = "contract-data-size"
	metaContractAnalysis = "contract-analysis"
)
