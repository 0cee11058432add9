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

// Package serde implements the canonical binary wire format for Clarity
// values: one type-tag byte per value, big-endian length prefixes for
// composite payloads, and fixed 16-byte big-endian integers. The format is
// self-describing; an expected TypeSignature may additionally be enforced
// during decoding.
package serde

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// Wire type tags, one byte preceding every encoded value.
const (
	TagInt               byte = 0x00
	TagUInt              byte = 0x01
	TagBuffer            byte = 0x02
	TagBoolTrue          byte = 0x03
	TagBoolFalse         byte = 0x04
	TagPrincipalStandard byte = 0x05
	TagPrincipalContract byte = 0x06
	TagResponseOk        byte = 0x07
	TagResponseErr       byte = 0x08
	TagOptionalNone      byte = 0x09
	TagOptionalSome      byte = 0x0a
	TagList              byte = 0x0b
	TagTuple             byte = 0x0c
	TagStringASCII       byte = 0x0d
	TagStringUTF8        byte = 0x0e
)

const intByteLen = 16

// ErrUnserializable is returned when a value cannot be represented in the
// wire format (e.g. its type contains NoType).
var ErrUnserializable = errors.New("serde: value is not serializable")

var twoTo128 = new(big.Int).Lsh(big.NewInt(1), 128)

// Serialize encodes v into the canonical wire format.
func Serialize(v types.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, 1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SerializeToHex encodes v and renders the result as lowercase hex.
func SerializeToHex(v types.Value) (string, error) {
	raw, err := Serialize(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// SerializedSize computes len(Serialize(v)) without encoding.
func SerializedSize(v types.Value) (uint32, error) {
	size, err := sizeOf(v)
	if err != nil {
		return 0, err
	}
	if size > uint64(types.MaxValueSize) {
		return 0, types.ErrValueTooLarge
	}
	return uint32(size), nil
}

func writeValue(buf *bytes.Buffer, v types.Value, depth int) error {
	if depth > types.MaxTypeDepth {
		return types.ErrTypeSignatureTooDeep
	}
	switch val := v.(type) {
	case types.IntValue:
		buf.WriteByte(TagInt)
		writeInt128(buf, val.Big())
	case types.UIntValue:
		buf.WriteByte(TagUInt)
		writeInt128(buf, val.Big())
	case types.BoolValue:
		if val {
			buf.WriteByte(TagBoolTrue)
		} else {
			buf.WriteByte(TagBoolFalse)
		}
	case types.BufferValue:
		buf.WriteByte(TagBuffer)
		writeLen(buf, val.Len())
		buf.Write(val.Bytes())
	case types.ASCIIValue:
		buf.WriteByte(TagStringASCII)
		writeLen(buf, uint32(len(val)))
		buf.WriteString(string(val))
	case types.UTF8Value:
		buf.WriteByte(TagStringUTF8)
		writeLen(buf, val.ByteLen())
		buf.WriteString(string(val))
	case types.StandardPrincipal:
		buf.WriteByte(TagPrincipalStandard)
		buf.WriteByte(val.Version)
		buf.Write(val.Hash.Bytes())
	case types.ContractPrincipal:
		buf.WriteByte(TagPrincipalContract)
		buf.WriteByte(val.Issuer.Version)
		buf.Write(val.Issuer.Hash.Bytes())
		buf.WriteByte(byte(len(val.Name)))
		buf.WriteString(val.Name)
	case types.NoneValue:
		buf.WriteByte(TagOptionalNone)
	case types.SomeValue:
		buf.WriteByte(TagOptionalSome)
		return writeValue(buf, val.Inner, depth+1)
	case types.ResponseValue:
		if val.Committed {
			buf.WriteByte(TagResponseOk)
		} else {
			buf.WriteByte(TagResponseErr)
		}
		return writeValue(buf, val.Inner, depth+1)
	case types.ListValue:
		buf.WriteByte(TagList)
		writeLen(buf, val.Len())
		for _, e := range val.Values() {
			if err := writeValue(buf, e, depth+1); err != nil {
				return err
			}
		}
	case types.TupleValue:
		buf.WriteByte(TagTuple)
		writeLen(buf, val.Len())
		for _, k := range val.Keys() {
			buf.WriteByte(byte(len(k)))
			buf.WriteString(k)
			field, _ := val.Get(k)
			if err := writeValue(buf, field, depth+1); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnserializable, v)
	}
	return nil
}

// writeInt128 emits n as 16 big-endian bytes; negative values are written in
// two's complement.
func writeInt128(buf *bytes.Buffer, n *big.Int) {
	if n.Sign() < 0 {
		n = new(big.Int).Add(n, twoTo128)
	}
	out := make([]byte, intByteLen)
	n.FillBytes(out)
	buf.Write(out)
}

func writeLen(buf *bytes.Buffer, n uint32) {
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], n)
	buf.Write(lenBytes[:])
}

func sizeOf(v types.Value) (uint64, error) {
	switch val := v.(type) {
	case types.IntValue, types.UIntValue:
		return 1 + intByteLen, nil
	case types.BoolValue, types.NoneValue:
		return 1, nil
	case types.BufferValue:
		return 1 + 4 + uint64(val.Len()), nil
	case types.ASCIIValue:
		return 1 + 4 + uint64(len(val)), nil
	case types.UTF8Value:
		return 1 + 4 + uint64(val.ByteLen()), nil
	case types.StandardPrincipal:
		return 1 + 1 + 20, nil
	case types.ContractPrincipal:
		return 1 + 1 + 20 + 1 + uint64(len(val.Name)), nil
	case types.SomeValue:
		inner, err := sizeOf(val.Inner)
		return 1 + inner, err
	case types.ResponseValue:
		inner, err := sizeOf(val.Inner)
		return 1 + inner, err
	case types.ListValue:
		total := uint64(1 + 4)
		for _, e := range val.Values() {
			n, err := sizeOf(e)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	case types.TupleValue:
		total := uint64(1 + 4)
		for _, k := range val.Keys() {
			field, _ := val.Get(k)
			n, err := sizeOf(field)
			if err != nil {
				return 0, err
			}
			total += 1 + uint64(len(k)) + n
		}
		return total, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnserializable, v)
}
