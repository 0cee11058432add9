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
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/hirosystems/clarinet-sub006/common"
)

// ---- Error sentinels -------------------------------------------------------

// ErrIntOutOfRange is returned when a 128-bit integer constructor receives a
// value outside the representable range.
var ErrIntOutOfRange = errors.New("types: integer out of 128-bit range")

// ErrValueTooLarge is returned when a composite value would exceed
// MaxValueSize once serialized.
var ErrValueTooLarge = errors.New("types: value exceeds maximum size")

// ErrBadStringData is returned when string constructors receive bytes that
// violate the character rules of the string flavor.
var ErrBadStringData = errors.New("types: invalid string contents")

// ErrBadTupleShape is returned when tuple constructors receive mismatched or
// duplicate field names.
var ErrBadTupleShape = errors.New("types: malformed tuple construction")

// ---- Bounds ----------------------------------------------------------------

const (
	// MaxValueSize bounds the serialized representation of any single value.
	MaxValueSize uint32 = 1024 * 1024

	// maxUTF8ScalarLen is the widest UTF-8 encoding of one scalar.
	maxUTF8ScalarLen = 4
)

var (
	intMax  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	intMin  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	uintMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// ---- Value -----------------------------------------------------------------

// Value is one Clarity runtime value. Implementations are immutable once
// constructed; sharing a Value between callers is safe.
type Value interface {
	// Kind returns the fundamental category of this value.
	Kind() Kind

	// String renders the value as a Clarity literal.
	String() string

	// Equal reports deep structural equality with another value.
	Equal(other Value) bool
}

// ---- Integers ----------------------------------------------------------------

// IntValue is a signed 128-bit integer.
type IntValue struct {
	n *big.Int
}

// NewInt builds an IntValue, rejecting values outside the signed 128-bit range.
func NewInt(n *big.Int) (IntValue, error) {
	if n.Cmp(intMin) < 0 || n.Cmp(intMax) > 0 {
		return IntValue{}, ErrIntOutOfRange
	}
	return IntValue{n: new(big.Int).Set(n)}, nil
}

// Int64 builds an IntValue from a native integer. It cannot fail.
func Int64(n int64) IntValue {
	return IntValue{n: big.NewInt(n)}
}

// Big returns a copy of the underlying integer.
func (v IntValue) Big() *big.Int   { return new(big.Int).Set(v.n) }
func (v IntValue) Kind() Kind      { return KindInt }
func (v IntValue) String() string  { return v.n.String() }

func (v IntValue) Equal(other Value) bool {
	o, ok := other.(IntValue)
	return ok && v.n.Cmp(o.n) == 0
}

// UIntValue is an unsigned 128-bit integer.
type UIntValue struct {
	n *big.Int
}

// NewUInt builds a UIntValue, rejecting negative or >128-bit values.
func NewUInt(n *big.Int) (UIntValue, error) {
	if n.Sign() < 0 || n.Cmp(uintMax) > 0 {
		return UIntValue{}, ErrIntOutOfRange
	}
	return UIntValue{n: new(big.Int).Set(n)}, nil
}

// UInt64 builds a UIntValue from a native integer. It cannot fail.
func UInt64(n uint64) UIntValue {
	return UIntValue{n: new(big.Int).SetUint64(n)}
}

// Big returns a copy of the underlying integer.
func (v UIntValue) Big() *big.Int  { return new(big.Int).Set(v.n) }
func (v UIntValue) Kind() Kind     { return KindUInt }
func (v UIntValue) String() string { return "u" + v.n.String() }

func (v UIntValue) Equal(other Value) bool {
	o, ok := other.(UIntValue)
	return ok && v.n.Cmp(o.n) == 0
}

// ---- Bool --------------------------------------------------------------------

// BoolValue is a Clarity boolean.
type BoolValue bool

func (v BoolValue) Kind() Kind { return KindBool }

func (v BoolValue) String() string {
	if v {
		return "true"
	}
	return "false"
}

func (v BoolValue) Equal(other Value) bool {
	o, ok := other.(BoolValue)
	return ok && v == o
}

// ---- Buffer ------------------------------------------------------------------

// BufferValue is an immutable byte buffer.
type BufferValue struct {
	data []byte
}

// NewBuffer builds a BufferValue, copying data. Buffers above MaxValueSize are
// rejected.
func NewBuffer(data []byte) (BufferValue, error) {
	if uint64(len(data)) > uint64(MaxValueSize) {
		return BufferValue{}, ErrValueTooLarge
	}
	return BufferValue{data: append([]byte(nil), data...)}, nil
}

// Bytes returns a copy of the buffer contents.
func (v BufferValue) Bytes() []byte { return append([]byte(nil), v.data...) }

// Len returns the buffer length in bytes.
func (v BufferValue) Len() uint32 { return uint32(len(v.data)) }

func (v BufferValue) Kind() Kind { return KindBuffer }

func (v BufferValue) String() string {
	return fmt.Sprintf("0x%x", v.data)
}

func (v BufferValue) Equal(other Value) bool {
	o, ok := other.(BufferValue)
	return ok && common.ByteSliceEqual(v.data, o.data)
}

// ---- Strings -----------------------------------------------------------------

// ASCIIValue is a bounded string of printable ASCII characters.
type ASCIIValue string

// NewASCII validates that every byte of s is printable ASCII (or whitespace)
// and returns the value.
func NewASCII(s string) (ASCIIValue, error) {
	if uint64(len(s)) > uint64(MaxValueSize) {
		return "", ErrValueTooLarge
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 0x20 || c > 0x7e) && c != '\t' && c != '\n' && c != '\r' {
			return "", fmt.Errorf("%w: non-printable byte 0x%02x", ErrBadStringData, c)
		}
	}
	return ASCIIValue(s), nil
}

// Len returns the string length in bytes.
func (v ASCIIValue) Len() uint32 { return uint32(len(v)) }

func (v ASCIIValue) Kind() Kind     { return KindStringASCII }
func (v ASCIIValue) String() string { return `"` + string(v) + `"` }

func (v ASCIIValue) Equal(other Value) bool {
	o, ok := other.(ASCIIValue)
	return ok && v == o
}

// UTF8Value is a bounded string of UTF-8 scalars. Its declared length is
// counted in scalars, not bytes.
type UTF8Value string

// NewUTF8 validates that s is well-formed UTF-8 and returns the value.
func NewUTF8(s string) (UTF8Value, error) {
	if uint64(len(s)) > uint64(MaxValueSize) {
		return "", ErrValueTooLarge
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: not valid utf8", ErrBadStringData)
	}
	return UTF8Value(s), nil
}

// Len returns the string length in scalars.
func (v UTF8Value) Len() uint32 { return uint32(utf8.RuneCountInString(string(v))) }

// ByteLen returns the encoded byte length.
func (v UTF8Value) ByteLen() uint32 { return uint32(len(v)) }

func (v UTF8Value) Kind() Kind     { return KindStringUTF8 }
func (v UTF8Value) String() string { return `u"` + string(v) + `"` }

func (v UTF8Value) Equal(other Value) bool {
	o, ok := other.(UTF8Value)
	return ok && v == o
}

// ---- Principals ----------------------------------------------------------------

// StandardPrincipal is a single-signature or multisig account address: one
// version byte plus a 20-byte hash.
type StandardPrincipal struct {
	Version byte
	Hash    common.Hash160
}

func (v StandardPrincipal) Kind() Kind { return KindPrincipal }

func (v StandardPrincipal) String() string {
	return "'" + EncodeAddress(v.Version, v.Hash)
}

func (v StandardPrincipal) Equal(other Value) bool {
	o, ok := other.(StandardPrincipal)
	return ok && v == o
}

// ContractPrincipal is a contract-qualified address.
type ContractPrincipal struct {
	Issuer StandardPrincipal
	Name   string
}

// NewContractPrincipal validates the contract name component.
func NewContractPrincipal(issuer StandardPrincipal, name string) (ContractPrincipal, error) {
	if !common.IsContractName(name) {
		return ContractPrincipal{}, fmt.Errorf("%w: contract name %q", common.ErrInvalidName, name)
	}
	return ContractPrincipal{Issuer: issuer, Name: name}, nil
}

func (v ContractPrincipal) Kind() Kind { return KindPrincipal }

func (v ContractPrincipal) String() string {
	return v.Issuer.String() + "." + v.Name
}

func (v ContractPrincipal) Equal(other Value) bool {
	o, ok := other.(ContractPrincipal)
	return ok && v == o
}

// ---- Optional ------------------------------------------------------------------

// SomeValue wraps a present optional value.
type SomeValue struct {
	Inner Value
}

// Some wraps v in an optional.
func Some(v Value) SomeValue { return SomeValue{Inner: v} }

func (v SomeValue) Kind() Kind     { return KindOptional }
func (v SomeValue) String() string { return "(some " + v.Inner.String() + ")" }

func (v SomeValue) Equal(other Value) bool {
	o, ok := other.(SomeValue)
	return ok && v.Inner.Equal(o.Inner)
}

// NoneValue is the absent optional value.
type NoneValue struct{}

// None is the canonical absent optional.
var None = NoneValue{}

func (v NoneValue) Kind() Kind     { return KindOptional }
func (v NoneValue) String() string { return "none" }

func (v NoneValue) Equal(other Value) bool {
	_, ok := other.(NoneValue)
	return ok
}

// ---- Response ------------------------------------------------------------------

// ResponseValue is an ok/err tagged value.
type ResponseValue struct {
	Committed bool // true for (ok ...), false for (err ...)
	Inner     Value
}

// Ok wraps v in a committed response.
func Ok(v Value) ResponseValue { return ResponseValue{Committed: true, Inner: v} }

// Err wraps v in a failed response.
func Err(v Value) ResponseValue { return ResponseValue{Committed: false, Inner: v} }

func (v ResponseValue) Kind() Kind { return KindResponse }

func (v ResponseValue) String() string {
	if v.Committed {
		return "(ok " + v.Inner.String() + ")"
	}
	return "(err " + v.Inner.String() + ")"
}

func (v ResponseValue) Equal(other Value) bool {
	o, ok := other.(ResponseValue)
	return ok && v.Committed == o.Committed && v.Inner.Equal(o.Inner)
}

// ---- List ----------------------------------------------------------------------

// ListValue is an ordered sequence of values sharing a least common supertype.
type ListValue struct {
	elems []Value
}

// NewList builds a ListValue. The element types must share a least common
// supertype; otherwise construction fails with a type mismatch.
func NewList(elems []Value) (ListValue, error) {
	if len(elems) > 1 {
		// Verify the elements fold to a single supertype now so that TypeOf
		// cannot fail later.
		acc := TypeOf(elems[0])
		for _, e := range elems[1:] {
			lub, err := LeastSupertype(acc, TypeOf(e))
			if err != nil {
				return ListValue{}, err
			}
			acc = lub
		}
	}
	return ListValue{elems: append([]Value(nil), elems...)}, nil
}

// Values returns a copy of the element slice.
func (v ListValue) Values() []Value { return append([]Value(nil), v.elems...) }

// Len returns the number of elements.
func (v ListValue) Len() uint32 { return uint32(len(v.elems)) }

func (v ListValue) Kind() Kind { return KindList }

func (v ListValue) String() string {
	parts := make([]string, len(v.elems))
	for i, e := range v.elems {
		parts[i] = e.String()
	}
	return "(list " + strings.Join(parts, " ") + ")"
}

func (v ListValue) Equal(other Value) bool {
	o, ok := other.(ListValue)
	if !ok || len(v.elems) != len(o.elems) {
		return false
	}
	for i := range v.elems {
		if !v.elems[i].Equal(o.elems[i]) {
			return false
		}
	}
	return true
}

// ---- Tuple ---------------------------------------------------------------------

// TupleValue is an ordered field-name to value mapping. Field order is the
// insertion order and is significant for serialization.
type TupleValue struct {
	order []string
	data  map[string]Value
}

// NewTuple builds a TupleValue from parallel name/value slices. Names must be
// valid identifiers and unique.
func NewTuple(names []string, values []Value) (TupleValue, error) {
	if len(names) != len(values) || len(names) == 0 {
		return TupleValue{}, ErrBadTupleShape
	}
	data := make(map[string]Value, len(names))
	for i, name := range names {
		if !common.IsClarityName(name) {
			return TupleValue{}, fmt.Errorf("%w: tuple key %q", common.ErrInvalidName, name)
		}
		if _, dup := data[name]; dup {
			return TupleValue{}, fmt.Errorf("%w: duplicate key %q", ErrBadTupleShape, name)
		}
		data[name] = values[i]
	}
	return TupleValue{order: append([]string(nil), names...), data: data}, nil
}

// Get returns the value stored under name.
func (v TupleValue) Get(name string) (Value, bool) {
	val, ok := v.data[name]
	return val, ok
}

// Keys returns the field names in insertion order.
func (v TupleValue) Keys() []string { return append([]string(nil), v.order...) }

// Len returns the number of fields.
func (v TupleValue) Len() uint32 { return uint32(len(v.order)) }

func (v TupleValue) Kind() Kind { return KindTuple }

func (v TupleValue) String() string {
	parts := make([]string, len(v.order))
	for i, k := range v.order {
		parts[i] = "(" + k + " " + v.data[k].String() + ")"
	}
	return "(tuple " + strings.Join(parts, " ") + ")"
}

func (v TupleValue) Equal(other Value) bool {
	o, ok := other.(TupleValue)
	if !ok || len(v.order) != len(o.order) {
		return false
	}
	// Field order is not significant for equality, only for serialization.
	for k, val := range v.data {
		oval, present := o.data[k]
		if !present || !val.Equal(oval) {
			return false
		}
	}
	return true
}
