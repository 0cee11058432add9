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

// Package events defines the transaction event records a contract execution
// emits and the asset movement tallies folded from them.
package events

import (
	"fmt"
	"math/big"

	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// Event is implemented by every transaction event record.
type Event interface {
	// EventType returns the wire name of the event, e.g. "stx_transfer_event".
	EventType() string
}

// STXTransferEvent records a liquid STX movement between two principals.
type STXTransferEvent struct {
	Sender    types.Value
	Recipient types.Value
	Amount    *big.Int
	Memo      []byte
}

func (e *STXTransferEvent) EventType() string { return "stx_transfer_event" }

// STXMintEvent records STX entering circulation.
type STXMintEvent struct {
	Recipient types.Value
	Amount    *big.Int
}

func (e *STXMintEvent) EventType() string { return "stx_mint_event" }

// STXBurnEvent records STX leaving circulation.
type STXBurnEvent struct {
	Sender types.Value
	Amount *big.Int
}

func (e *STXBurnEvent) EventType() string { return "stx_burn_event" }

// STXLockEvent records STX locked until a future block height.
type STXLockEvent struct {
	Locker       types.Value
	LockedAmount *big.Int
	UnlockHeight uint64
}

func (e *STXLockEvent) EventType() string { return "stx_lock_event" }

// FTTransferEvent records a fungible token movement.
type FTTransferEvent struct {
	Asset     AssetID
	Sender    types.Value
	Recipient types.Value
	Amount    *big.Int
}

func (e *FTTransferEvent) EventType() string { return "ft_transfer_event" }

// FTMintEvent records new fungible token units credited to a principal.
type FTMintEvent struct {
	Asset     AssetID
	Recipient types.Value
	Amount    *big.Int
}

func (e *FTMintEvent) EventType() string { return "ft_mint_event" }

// FTBurnEvent records fungible token units destroyed from a balance.
type FTBurnEvent struct {
	Asset  AssetID
	Sender types.Value
	Amount *big.Int
}

func (e *FTBurnEvent) EventType() string { return "ft_burn_event" }

// NFTTransferEvent records a non-fungible asset changing owner.
type NFTTransferEvent struct {
	Asset     AssetID
	AssetKey  types.Value
	Sender    types.Value
	Recipient types.Value
}

func (e *NFTTransferEvent) EventType() string { return "nft_transfer_event" }

// NFTMintEvent records a non-fungible asset coming into existence.
type NFTMintEvent struct {
	Asset     AssetID
	AssetKey  types.Value
	Recipient types.Value
}

func (e *NFTMintEvent) EventType() string { return "nft_mint_event" }

// NFTBurnEvent records a non-fungible asset destroyed by its owner.
type NFTBurnEvent struct {
	Asset    AssetID
	AssetKey types.Value
	Sender   types.Value
}

func (e *NFTBurnEvent) EventType() string { return "nft_burn_event" }

// SmartContractEvent records a print expression evaluated inside a contract.
type SmartContractEvent struct {
	Contract types.ContractID
	Value    types.Value
}

func (e *SmartContractEvent) EventType() string { return "smart_contract_log" }

// AssetID names one asset class declared by a contract.
type AssetID struct {
	Contract types.ContractID
	Name     string
}

func (a AssetID) String() string {
	return fmt.Sprintf("%s::%s", a.Contract, a.Name)
}
