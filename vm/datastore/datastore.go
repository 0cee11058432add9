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

// Package datastore provides the versioned key/value stores that back
// contract state. Every write is recorded against the block height it
// happened at; reads resolve through the current chain tip, so pointing
// the tip at an older block rewinds every key to its value as of that
// block without touching history.
package datastore

import (
	"errors"

	"github.com/hirosystems/clarinet-sub006/common"
)

var (
	// ErrUnknownBlock is returned when a chain-tip move names a block id
	// the store has never indexed.
	ErrUnknownBlock = errors.New("datastore: unknown block id")

	// ErrClosed is returned on use after Close.
	ErrClosed = errors.New("datastore: store is closed")

	// ErrMetadataExists is returned on a second insert for the same
	// (contract, key) metadata pair.
	ErrMetadataExists = errors.New("datastore: metadata already written")
)

// KV is one key/value pair destined for the open chain tip.
type KV struct {
	Key   string
	Value string
}

// Store is a versioned key/value store with metadata side storage.
//
// Data writes land at the open chain tip and become visible to reads at
// that tip and any later one. Metadata is keyed by (contract, key) with
// no height dimension; it tracks contract identity, which never changes
// once written.
type Store interface {
	// PutAll writes a batch of pairs at the open chain tip.
	PutAll(entries []KV) error

	// Get resolves key at the current tip: the most recent write at a
	// height no greater than the tip's height. The bool reports whether
	// any such write exists.
	Get(key string) (string, bool, error)

	// CurrentBlockHeight returns the height of the current (read) tip.
	CurrentBlockHeight() uint32

	// OpenChainTip returns the id of the block open for writing.
	OpenChainTip() common.BlockID

	// SetBlockHash moves the read tip to a previously indexed block and
	// returns the prior tip id, enabling time-shifted reads.
	SetBlockHash(tip common.BlockID) (common.BlockID, error)

	// BlockAtHeight and HeightOfBlock expose the height <-> id indexes.
	BlockAtHeight(height uint32) (common.BlockID, bool)
	HeightOfBlock(id common.BlockID) (uint32, bool)

	// AdvanceChainTip appends count new blocks with deterministically
	// derived ids and returns the new open tip.
	AdvanceChainTip(count uint32) (common.BlockID, error)

	// CommitTo re-indexes the open block under its final id, once the
	// surrounding block processing has settled on one.
	CommitTo(final common.BlockID) error

	// InsertMetadata records a (contract, key, value) triple. Metadata
	// is write-once; a second insert for the same pair is an error.
	InsertMetadata(contract, key, value string) error

	// GetMetadata returns the metadata value for (contract, key).
	GetMetadata(contract, key string) (string, bool, error)

	Close() error
}
