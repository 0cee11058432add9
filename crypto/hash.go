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

// Package crypto provides the hashing primitives used for contract and block
// identity.
package crypto

import (
	"crypto/sha512"
	"hash"

	"github.com/hirosystems/clarinet-sub006/common"
	"golang.org/x/crypto/sha3"
)

// KeccakState wraps sha3.state. In addition to the usual hash methods, it also
// supports Read to get a variable amount of data from the hash state. Read is
// faster than Sum because it doesn't copy the internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState creates a new KeccakState.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 calculates and returns the Keccak256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	b := make([]byte, 32)
	d := NewKeccakState()
	for _, datum := range data {
		d.Write(datum)
	}
	d.Read(b)
	return b
}

// ContractHash computes the identity hash stored in write-once metadata for a
// deployed contract's source text.
func ContractHash(source string) []byte {
	return Keccak256([]byte(source))
}

// Sha512Trunc256 computes SHA-512/256 of the input, the digest used to derive
// block identifiers.
func Sha512Trunc256(data ...[]byte) []byte {
	d := sha512.New512_256()
	for _, datum := range data {
		d.Write(datum)
	}
	return d.Sum(nil)
}

// BlockIDFromBytes derives a block identifier by hashing the given material
// with SHA-512/256.
func BlockIDFromBytes(data []byte) common.BlockID {
	return common.BytesToBlockID(Sha512Trunc256(data))
}
