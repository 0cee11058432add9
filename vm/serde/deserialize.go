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

package serde

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/hirosystems/clarinet-sub006/common"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// ---- Error sentinels -------------------------------------------------------

// ErrTruncated is returned when the input ends before a complete value was
// decoded.
var ErrTruncated = errors.New("serde: truncated input")

// ErrBadTag is returned when the type-tag byte is not a known tag.
var ErrBadTag = errors.New("serde: unknown type tag")

// ErrLeftoverBytes is returned by the exact decode variant when trailing
// bytes remain after a successful parse.
var ErrLeftoverBytes = errors.New("serde: leftover bytes after value")

// ErrBadPayload is returned when a structurally-decoded payload violates the
// value rules (bad string bytes, bad names, oversized values).
var ErrBadPayload = errors.New("serde: malformed payload")

// ExpectationError reports a decoded value that is incompatible with the
// expected type signature supplied by the caller.
type ExpectationError struct {
	Expected types.TypeSignature
	Found    string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("serde: deserialize expected %s, found %s", e.Expected, e.Found)
}

func expectationErr(expected types.TypeSignature, found string) error {
	return &ExpectationError{Expected: expected, Found: found}
}

// ---- Decoder ----------------------------------------------------------------

// Deserialize decodes a single value from data. If expected is non-nil, the
// decoded structure must be admitted by it. Trailing bytes are permitted; use
// DeserializeExact to reject them.
func Deserialize(data []byte, expected types.TypeSignature) (types.Value, error) {
	v, _, err := DeserializeWithConsumed(data, expected)
	return v, err
}

// DeserializeExact decodes a single value and fails with ErrLeftoverBytes if
// any input remains.
func DeserializeExact(data []byte, expected types.TypeSignature) (types.Value, error) {
	v, n, err := DeserializeWithConsumed(data, expected)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d of %d bytes consumed", ErrLeftoverBytes, n, len(data))
	}
	return v, nil
}

// DeserializeWithConsumed decodes a single value and reports how many input
// bytes were consumed.
func DeserializeWithConsumed(data []byte, expected types.TypeSignature) (types.Value, int, error) {
	d := &decoder{data: data}
	v, err := d.readValue(expected, 1)
	if err != nil {
		return nil, d.pos, err
	}
	if expected != nil {
		// A decoded value must fit the declared type's worst-case bound;
		// exceeding it means the length fields lied about the type.
		if maxSize, err2 := expected.MaxSerializedSize(); err2 == nil && uint64(d.pos) > uint64(maxSize) {
			return nil, d.pos, expectationErr(expected, fmt.Sprintf("%d-byte encoding", d.pos))
		}
	}
	return v, d.pos, nil
}

// DeserializeHex decodes a hex rendering (with or without 0x prefix) of a
// serialized value.
func DeserializeHex(s string, expected types.TypeSignature) (types.Value, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return DeserializeExact(raw, expected)
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, ErrTruncated
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, ErrTruncated
	}
	out := d.data[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

func (d *decoder) readLen() (uint32, error) {
	raw, err := d.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

// readValue decodes one value. expected may be nil; depth counts nesting and
// is bounded by MaxTypeDepth.
func (d *decoder) readValue(expected types.TypeSignature, depth int) (types.Value, error) {
	if depth > types.MaxTypeDepth {
		return nil, types.ErrTypeSignatureTooDeep
	}
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagInt:
		if err := checkKind(expected, types.KindInt); err != nil {
			return nil, err
		}
		raw, err := d.readBytes(intByteLen)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(raw)
		if raw[0]&0x80 != 0 {
			n.Sub(n, twoTo128)
		}
		v, err := types.NewInt(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return v, nil

	case TagUInt:
		if err := checkKind(expected, types.KindUInt); err != nil {
			return nil, err
		}
		raw, err := d.readBytes(intByteLen)
		if err != nil {
			return nil, err
		}
		v, err := types.NewUInt(new(big.Int).SetBytes(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return v, nil

	case TagBoolTrue, TagBoolFalse:
		if err := checkKind(expected, types.KindBool); err != nil {
			return nil, err
		}
		return types.BoolValue(tag == TagBoolTrue), nil

	case TagBuffer:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		if expected != nil {
			bt, ok := expected.(types.BufferType)
			if !ok {
				return nil, expectationErr(expected, "buffer")
			}
			if n > bt.MaxLen {
				return nil, expectationErr(expected, fmt.Sprintf("(buff %d)", n))
			}
		}
		raw, err := d.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		v, err := types.NewBuffer(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return v, nil

	case TagStringASCII:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		if expected != nil {
			st, ok := expected.(types.ASCIIType)
			if !ok {
				return nil, expectationErr(expected, "string-ascii")
			}
			if n > st.MaxLen {
				return nil, expectationErr(expected, fmt.Sprintf("(string-ascii %d)", n))
			}
		}
		raw, err := d.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		v, err := types.NewASCII(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return v, nil

	case TagStringUTF8:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		raw, err := d.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		v, err := types.NewUTF8(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if expected != nil {
			st, ok := expected.(types.UTF8Type)
			if !ok {
				return nil, expectationErr(expected, "string-utf8")
			}
			if v.Len() > st.MaxLen {
				return nil, expectationErr(expected, fmt.Sprintf("(string-utf8 %d)", v.Len()))
			}
		}
		return v, nil

	case TagPrincipalStandard:
		if err := checkKind(expected, types.KindPrincipal); err != nil {
			return nil, err
		}
		return d.readStandardPrincipal()

	case TagPrincipalContract:
		if err := checkKind(expected, types.KindPrincipal); err != nil {
			return nil, err
		}
		issuer, err := d.readStandardPrincipal()
		if err != nil {
			return nil, err
		}
		nameLen, err := d.readByte()
		if err != nil {
			return nil, err
		}
		name, err := d.readBytes(int(nameLen))
		if err != nil {
			return nil, err
		}
		v, err := types.NewContractPrincipal(issuer, string(name))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return v, nil

	case TagOptionalNone:
		if expected != nil {
			if _, ok := expected.(types.OptionalType); !ok {
				return nil, expectationErr(expected, "none")
			}
		}
		return types.None, nil

	case TagOptionalSome:
		var innerExpected types.TypeSignature
		if expected != nil {
			ot, ok := expected.(types.OptionalType)
			if !ok {
				return nil, expectationErr(expected, "optional")
			}
			innerExpected = ot.Inner
		}
		inner, err := d.readValue(innerExpected, depth+1)
		if err != nil {
			return nil, err
		}
		return types.Some(inner), nil

	case TagResponseOk, TagResponseErr:
		committed := tag == TagResponseOk
		var innerExpected types.TypeSignature
		if expected != nil {
			rt, ok := expected.(types.ResponseType)
			if !ok {
				return nil, expectationErr(expected, "response")
			}
			if committed {
				innerExpected = rt.OkType
			} else {
				innerExpected = rt.ErrType
			}
			if innerExpected.Kind() == types.KindNoType {
				return nil, expectationErr(expected, "response arm that cannot occur")
			}
		}
		inner, err := d.readValue(innerExpected, depth+1)
		if err != nil {
			return nil, err
		}
		if committed {
			return types.Ok(inner), nil
		}
		return types.Err(inner), nil

	case TagList:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		var elemExpected types.TypeSignature
		if expected != nil {
			lt, ok := expected.(types.ListType)
			if !ok {
				return nil, expectationErr(expected, "list")
			}
			if n > lt.MaxLen {
				return nil, expectationErr(expected, fmt.Sprintf("(list %d ...)", n))
			}
			elemExpected = lt.Elem
		}
		elems := make([]types.Value, 0, minU32(n, 64))
		for i := uint32(0); i < n; i++ {
			e, err := d.readValue(elemExpected, depth+1)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		v, err := types.NewList(elems)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return v, nil

	case TagTuple:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		var tupleExpected types.TupleType
		hasExpected := false
		if expected != nil {
			tt, ok := expected.(types.TupleType)
			if !ok {
				return nil, expectationErr(expected, "tuple")
			}
			if n != tt.Len() {
				return nil, expectationErr(expected, fmt.Sprintf("tuple of %d fields", n))
			}
			tupleExpected, hasExpected = tt, true
		}
		names := make([]string, 0, n)
		values := make([]types.Value, 0, n)
		for i := uint32(0); i < n; i++ {
			keyLen, err := d.readByte()
			if err != nil {
				return nil, err
			}
			keyRaw, err := d.readBytes(int(keyLen))
			if err != nil {
				return nil, err
			}
			key := string(keyRaw)
			if !common.IsClarityName(key) {
				return nil, fmt.Errorf("%w: tuple key %q", ErrBadPayload, key)
			}
			var fieldExpected types.TypeSignature
			if hasExpected {
				sig, present := tupleExpected.Field(key)
				if !present {
					return nil, expectationErr(expected, fmt.Sprintf("tuple field %q", key))
				}
				fieldExpected = sig
			}
			field, err := d.readValue(fieldExpected, depth+1)
			if err != nil {
				return nil, err
			}
			names = append(names, key)
			values = append(values, field)
		}
		v, err := types.NewTuple(names, values)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrBadTag, tag)
}

func (d *decoder) readStandardPrincipal() (types.StandardPrincipal, error) {
	version, err := d.readByte()
	if err != nil {
		return types.StandardPrincipal{}, err
	}
	raw, err := d.readBytes(common.Hash160Length)
	if err != nil {
		return types.StandardPrincipal{}, err
	}
	return types.StandardPrincipal{Version: version, Hash: common.BytesToHash160(raw)}, nil
}

// checkKind enforces that the expected signature has the given kind before
// the payload is read.
func checkKind(expected types.TypeSignature, kind types.Kind) error {
	if expected == nil {
		return nil
	}
	if expected.Kind() != kind {
		return expectationErr(expected, kind.String())
	}
	return nil
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
