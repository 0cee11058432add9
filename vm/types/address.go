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

package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/hirosystems/clarinet-sub006/common"
)

// c32check address codec: a Crockford base-32 rendering of
// (version, hash160) with a 4-byte double-SHA256 checksum.

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const addressChecksumLen = 4

var c32Reverse [128]int8

func init() {
	for i := range c32Reverse {
		c32Reverse[i] = -1
	}
	for i := 0; i < len(c32Alphabet); i++ {
		c32Reverse[c32Alphabet[i]] = int8(i)
	}
	// Crockford aliases.
	c32Reverse['O'] = c32Reverse['0']
	c32Reverse['L'] = c32Reverse['1']
	c32Reverse['I'] = c32Reverse['1']
}

// ErrBadAddress is returned when an address string cannot be decoded.
var ErrBadAddress = errors.New("types: malformed principal address")

// EncodeAddress renders a (version, hash) pair as a c32check address string.
func EncodeAddress(version byte, hash common.Hash160) string {
	sum := addressChecksum(version, hash)
	payload := make([]byte, 0, common.Hash160Length+addressChecksumLen)
	payload = append(payload, hash[:]...)
	payload = append(payload, sum[:]...)

	var sb strings.Builder
	sb.WriteByte('S')
	sb.WriteByte(c32Alphabet[version&0x1f])
	sb.WriteString(c32Encode(payload))
	return sb.String()
}

// DecodeAddress parses a c32check address back into its version and hash,
// verifying the checksum.
func DecodeAddress(addr string) (byte, common.Hash160, error) {
	if len(addr) < 3 || addr[0] != 'S' {
		return 0, common.Hash160{}, ErrBadAddress
	}
	v := c32Lookup(addr[1])
	if v < 0 {
		return 0, common.Hash160{}, fmt.Errorf("%w: bad version char %q", ErrBadAddress, addr[1])
	}
	payload, err := c32Decode(addr[2:], common.Hash160Length+addressChecksumLen)
	if err != nil {
		return 0, common.Hash160{}, err
	}
	hash := common.BytesToHash160(payload[:common.Hash160Length])
	want := addressChecksum(byte(v), hash)
	if !common.ByteSliceEqual(payload[common.Hash160Length:], want[:]) {
		return 0, common.Hash160{}, fmt.Errorf("%w: checksum mismatch", ErrBadAddress)
	}
	return byte(v), hash, nil
}

func addressChecksum(version byte, hash common.Hash160) [addressChecksumLen]byte {
	inner := sha256.Sum256(append([]byte{version}, hash[:]...))
	outer := sha256.Sum256(inner[:])
	var sum [addressChecksumLen]byte
	copy(sum[:], outer[:addressChecksumLen])
	return sum
}

// c32Encode packs data MSB-first into 5-bit groups, front-padded so the total
// bit count is a multiple of five.
func c32Encode(data []byte) string {
	bits := len(data) * 8
	pad := (5 - bits%5) % 5
	var sb strings.Builder
	acc, accBits := uint32(0), pad
	for _, b := range data {
		acc = acc<<8 | uint32(b)
		accBits += 8
		for accBits >= 5 {
			accBits -= 5
			sb.WriteByte(c32Alphabet[(acc>>uint(accBits))&0x1f])
		}
	}
	return sb.String()
}

// c32Decode reverses c32Encode for a payload of known byte length.
func c32Decode(s string, byteLen int) ([]byte, error) {
	bits := byteLen * 8
	wantChars := (bits + 4) / 5
	if len(s) != wantChars {
		return nil, fmt.Errorf("%w: length %d, want %d chars", ErrBadAddress, len(s), wantChars)
	}
	acc := new(big.Int)
	for i := 0; i < len(s); i++ {
		v := c32Lookup(s[i])
		if v < 0 {
			return nil, fmt.Errorf("%w: bad char %q", ErrBadAddress, s[i])
		}
		acc.Lsh(acc, 5)
		acc.Or(acc, big.NewInt(int64(v)))
	}
	if acc.BitLen() > bits {
		return nil, fmt.Errorf("%w: nonzero padding bits", ErrBadAddress)
	}
	return acc.FillBytes(make([]byte, byteLen)), nil
}

func c32Lookup(c byte) int8 {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if int(c) >= len(c32Reverse) {
		return -1
	}
	return c32Reverse[c]
}
