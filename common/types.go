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

// Package common contains the fixed-size identifier types shared by every
// layer of the engine: block identifiers, principal address hashes, and the
// naming rules for contracts and their members.
package common

import (
	"encoding/hex"
	"fmt"
)

const (
	// BlockIDLength is the byte length of a block identifier.
	BlockIDLength = 32

	// Hash160Length is the byte length of a principal's address hash.
	Hash160Length = 20
)

// BlockID identifies one block's state snapshot. Every stored entry is tagged
// with the BlockID that was open for writing when the entry was written.
type BlockID [BlockIDLength]byte

// BytesToBlockID sets b to id, left-padding with zeros if b is short and
// keeping only the rightmost bytes if it is long.
func BytesToBlockID(b []byte) BlockID {
	var id BlockID
	id.SetBytes(b)
	return id
}

// HexToBlockID parses a hex string (with or without 0x prefix) into a BlockID.
func HexToBlockID(s string) (BlockID, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return BlockID{}, fmt.Errorf("invalid block id hex: %v", err)
	}
	if len(raw) != BlockIDLength {
		return BlockID{}, fmt.Errorf("invalid block id length %d, want %d", len(raw), BlockIDLength)
	}
	return BytesToBlockID(raw), nil
}

// SetBytes sets the block id to the value of b. If b is larger than
// BlockIDLength, b will be cropped from the left.
func (id *BlockID) SetBytes(b []byte) {
	if len(b) > len(id) {
		b = b[len(b)-BlockIDLength:]
	}
	copy(id[BlockIDLength-len(b):], b)
}

// Bytes returns the block id as a byte slice.
func (id BlockID) Bytes() []byte { return id[:] }

// Hex returns the block id as a 0x-prefixed hex string.
func (id BlockID) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

func (id BlockID) String() string { return id.Hex() }

// IsZero reports whether the block id is all zero bytes.
func (id BlockID) IsZero() bool { return id == BlockID{} }

// Hash160 is the 20-byte address hash carried by a standard principal.
type Hash160 [Hash160Length]byte

// BytesToHash160 sets b to h, cropping from the left when b is oversized.
func BytesToHash160(b []byte) Hash160 {
	var h Hash160
	if len(b) > len(h) {
		b = b[len(b)-Hash160Length:]
	}
	copy(h[Hash160Length-len(b):], b)
	return h
}

// Bytes returns the hash as a byte slice.
func (h Hash160) Bytes() []byte { return h[:] }

// Hex returns the hash as a 0x-prefixed hex string.
func (h Hash160) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash160) String() string { return h.Hex() }

// ByteSliceEqual reports whether a and b hold the same bytes. Unlike
// bytes.Equal it distinguishes a nil slice from an empty one.
func ByteSliceEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if (a == nil) != (b == nil) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
