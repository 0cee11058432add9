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
	"math"
	"strings"

	"github.com/hirosystems/clarinet-sub006/common"
)

// ---- Error sentinels -------------------------------------------------------

// ErrTypeSignatureTooDeep is returned when a signature nests composite types
// beyond MaxTypeDepth.
var ErrTypeSignatureTooDeep = errors.New("types: type signature too deep")

// ErrNoTypeSerialization is returned when a worst-case size is requested for a
// signature that can never be serialized.
var ErrNoTypeSerialization = errors.New("types: NoType is never serializable")

// ErrTypeMismatch is returned when two signatures cannot be unified or a value
// fails admission.
var ErrTypeMismatch = errors.New("types: type mismatch")

// ErrSizeOverflow is returned when a worst-case size computation exceeds the
// maximum value size.
var ErrSizeOverflow = errors.New("types: serialized size overflows bound")

// MaxTypeDepth is the deepest permitted nesting of composite types, enforced
// during signature construction and value decoding.
const MaxTypeDepth = 16

// ---- TypeSignature -----------------------------------------------------------

// TypeSignature is a structural type descriptor. It bounds which values a
// typed slot admits and what the worst-case serialized size of such a value
// can be.
type TypeSignature interface {
	// Kind returns the fundamental category of the signature.
	Kind() Kind

	// String renders the signature in Clarity type syntax.
	String() string

	// Equal reports structural identity with another signature.
	Equal(other TypeSignature) bool

	// Admits reports whether the dynamic value v may be stored in a slot of
	// this type. A false result carries no error; errors indicate the check
	// itself could not be performed.
	Admits(v Value) (bool, error)

	// MaxSerializedSize computes the deterministic worst-case encoded byte
	// size of any value this signature admits.
	MaxSerializedSize() (uint32, error)

	// Depth returns the nesting depth of the signature (primitives are 1).
	Depth() int
}

// ---- Primitives ----------------------------------------------------------------

type primitiveType struct {
	kind Kind
}

var (
	// IntType admits signed 128-bit integers.
	IntType TypeSignature = primitiveType{KindInt}
	// UIntType admits unsigned 128-bit integers.
	UIntType TypeSignature = primitiveType{KindUInt}
	// BoolType admits booleans.
	BoolType TypeSignature = primitiveType{KindBool}
	// PrincipalType admits standard and contract-qualified principals.
	PrincipalType TypeSignature = primitiveType{KindPrincipal}
	// NoType is the placeholder for the never-materialized arm of a response
	// or optional. It admits nothing and cannot be serialized.
	NoType TypeSignature = primitiveType{KindNoType}
)

func (p primitiveType) Kind() Kind  { return p.kind }
func (p primitiveType) Depth() int  { return 1 }

func (p primitiveType) String() string {
	return p.kind.String()
}

func (p primitiveType) Equal(other TypeSignature) bool {
	o, ok := other.(primitiveType)
	return ok && p.kind == o.kind
}

func (p primitiveType) Admits(v Value) (bool, error) {
	switch p.kind {
	case KindInt:
		_, ok := v.(IntValue)
		return ok, nil
	case KindUInt:
		_, ok := v.(UIntValue)
		return ok, nil
	case KindBool:
		_, ok := v.(BoolValue)
		return ok, nil
	case KindPrincipal:
		return v.Kind() == KindPrincipal, nil
	case KindNoType:
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown primitive %v", ErrTypeMismatch, p.kind)
}

func (p primitiveType) MaxSerializedSize() (uint32, error) {
	switch p.kind {
	case KindInt, KindUInt:
		return 1 + 16, nil
	case KindBool:
		return 1, nil
	case KindPrincipal:
		// Worst case is a contract principal: tag, version, hash, name
		// length, name bytes.
		return 1 + 1 + common.Hash160Length + 1 + common.MaxContractNameLength, nil
	case KindNoType:
		return 0, ErrNoTypeSerialization
	}
	return 0, fmt.Errorf("%w: unknown primitive %v", ErrTypeMismatch, p.kind)
}

// ---- Buffer & strings ------------------------------------------------------------

// BufferType admits byte buffers up to MaxLen bytes.
type BufferType struct {
	MaxLen uint32
}

// NewBufferType builds a buffer signature, bounding MaxLen by MaxValueSize.
func NewBufferType(maxLen uint32) (BufferType, error) {
	if maxLen > MaxValueSize {
		return BufferType{}, ErrValueTooLarge
	}
	return BufferType{MaxLen: maxLen}, nil
}

func (t BufferType) Kind() Kind     { return KindBuffer }
func (t BufferType) Depth() int     { return 1 }
func (t BufferType) String() string { return fmt.Sprintf("(buff %d)", t.MaxLen) }

func (t BufferType) Equal(other TypeSignature) bool {
	o, ok := other.(BufferType)
	return ok && t == o
}

func (t BufferType) Admits(v Value) (bool, error) {
	b, ok := v.(BufferValue)
	return ok && b.Len() <= t.MaxLen, nil
}

func (t BufferType) MaxSerializedSize() (uint32, error) {
	return checkedSizeAdd(1+4, t.MaxLen)
}

// ASCIIType admits printable-ASCII strings up to MaxLen bytes.
type ASCIIType struct {
	MaxLen uint32
}

// NewASCIIType builds an ascii string signature.
func NewASCIIType(maxLen uint32) (ASCIIType, error) {
	if maxLen > MaxValueSize {
		return ASCIIType{}, ErrValueTooLarge
	}
	return ASCIIType{MaxLen: maxLen}, nil
}

func (t ASCIIType) Kind() Kind     { return KindStringASCII }
func (t ASCIIType) Depth() int     { return 1 }
func (t ASCIIType) String() string { return fmt.Sprintf("(string-ascii %d)", t.MaxLen) }

func (t ASCIIType) Equal(other TypeSignature) bool {
	o, ok := other.(ASCIIType)
	return ok && t == o
}

func (t ASCIIType) Admits(v Value) (bool, error) {
	s, ok := v.(ASCIIValue)
	return ok && s.Len() <= t.MaxLen, nil
}

func (t ASCIIType) MaxSerializedSize() (uint32, error) {
	return checkedSizeAdd(1+4, t.MaxLen)
}

// UTF8Type admits UTF-8 strings up to MaxLen scalars.
type UTF8Type struct {
	MaxLen uint32
}

// NewUTF8Type builds a utf8 string signature.
func NewUTF8Type(maxLen uint32) (UTF8Type, error) {
	if uint64(maxLen)*maxUTF8ScalarLen > uint64(MaxValueSize) {
		return UTF8Type{}, ErrValueTooLarge
	}
	return UTF8Type{MaxLen: maxLen}, nil
}

func (t UTF8Type) Kind() Kind     { return KindStringUTF8 }
func (t UTF8Type) Depth() int     { return 1 }
func (t UTF8Type) String() string { return fmt.Sprintf("(string-utf8 %d)", t.MaxLen) }

func (t UTF8Type) Equal(other TypeSignature) bool {
	o, ok := other.(UTF8Type)
	return ok && t == o
}

func (t UTF8Type) Admits(v Value) (bool, error) {
	s, ok := v.(UTF8Value)
	return ok && s.Len() <= t.MaxLen, nil
}

func (t UTF8Type) MaxSerializedSize() (uint32, error) {
	return checkedSizeAdd(1+4, t.MaxLen*maxUTF8ScalarLen)
}

// ---- List --------------------------------------------------------------------

// ListType admits lists of at most MaxLen elements, each admitted by Elem.
type ListType struct {
	MaxLen uint32
	Elem   TypeSignature
}

// NewListType builds a list signature, enforcing the depth limit.
func NewListType(maxLen uint32, elem TypeSignature) (ListType, error) {
	t := ListType{MaxLen: maxLen, Elem: elem}
	if t.Depth() > MaxTypeDepth {
		return ListType{}, ErrTypeSignatureTooDeep
	}
	if _, err := t.MaxSerializedSize(); err != nil && !errors.Is(err, ErrNoTypeSerialization) {
		return ListType{}, err
	}
	return t, nil
}

func (t ListType) Kind() Kind { return KindList }
func (t ListType) Depth() int { return 1 + t.Elem.Depth() }

func (t ListType) String() string {
	return fmt.Sprintf("(list %d %s)", t.MaxLen, t.Elem)
}

func (t ListType) Equal(other TypeSignature) bool {
	o, ok := other.(ListType)
	return ok && t.MaxLen == o.MaxLen && t.Elem.Equal(o.Elem)
}

func (t ListType) Admits(v Value) (bool, error) {
	l, ok := v.(ListValue)
	if !ok || l.Len() > t.MaxLen {
		return false, nil
	}
	for _, e := range l.elems {
		admitted, err := t.Elem.Admits(e)
		if err != nil || !admitted {
			return false, err
		}
	}
	return true, nil
}

func (t ListType) MaxSerializedSize() (uint32, error) {
	if t.MaxLen == 0 {
		return 1 + 4, nil
	}
	elemSize, err := t.Elem.MaxSerializedSize()
	if err != nil {
		return 0, err
	}
	total := uint64(1+4) + uint64(t.MaxLen)*uint64(elemSize)
	if total > uint64(MaxValueSize) {
		return 0, ErrSizeOverflow
	}
	return uint32(total), nil
}

// ---- Tuple -------------------------------------------------------------------

// TupleType admits tuples with exactly the declared field set.
type TupleType struct {
	order  []string
	fields map[string]TypeSignature
}

// NewTupleType builds a tuple signature from parallel name/type slices,
// enforcing name validity, uniqueness, and the depth limit.
func NewTupleType(names []string, sigs []TypeSignature) (TupleType, error) {
	if len(names) != len(sigs) || len(names) == 0 {
		return TupleType{}, ErrBadTupleShape
	}
	fields := make(map[string]TypeSignature, len(names))
	for i, name := range names {
		if !common.IsClarityName(name) {
			return TupleType{}, fmt.Errorf("%w: tuple key %q", common.ErrInvalidName, name)
		}
		if _, dup := fields[name]; dup {
			return TupleType{}, fmt.Errorf("%w: duplicate key %q", ErrBadTupleShape, name)
		}
		fields[name] = sigs[i]
	}
	t := TupleType{order: append([]string(nil), names...), fields: fields}
	if t.Depth() > MaxTypeDepth {
		return TupleType{}, ErrTypeSignatureTooDeep
	}
	return t, nil
}

// Field returns the signature declared under name.
func (t TupleType) Field(name string) (TypeSignature, bool) {
	sig, ok := t.fields[name]
	return sig, ok
}

// Keys returns the declared field names in insertion order.
func (t TupleType) Keys() []string { return append([]string(nil), t.order...) }

// Len returns the number of declared fields.
func (t TupleType) Len() uint32 { return uint32(len(t.order)) }

func (t TupleType) Kind() Kind { return KindTuple }

func (t TupleType) Depth() int {
	max := 0
	for _, sig := range t.fields {
		if d := sig.Depth(); d > max {
			max = d
		}
	}
	return 1 + max
}

func (t TupleType) String() string {
	parts := make([]string, len(t.order))
	for i, k := range t.order {
		parts[i] = "(" + k + " " + t.fields[k].String() + ")"
	}
	return "(tuple " + strings.Join(parts, " ") + ")"
}

func (t TupleType) Equal(other TypeSignature) bool {
	o, ok := other.(TupleType)
	if !ok || len(t.fields) != len(o.fields) {
		return false
	}
	for k, sig := range t.fields {
		osig, present := o.fields[k]
		if !present || !sig.Equal(osig) {
			return false
		}
	}
	return true
}

func (t TupleType) Admits(v Value) (bool, error) {
	tv, ok := v.(TupleValue)
	if !ok || len(tv.data) != len(t.fields) {
		return false, nil
	}
	for k, sig := range t.fields {
		val, present := tv.data[k]
		if !present {
			return false, nil
		}
		admitted, err := sig.Admits(val)
		if err != nil || !admitted {
			return false, err
		}
	}
	return true, nil
}

func (t TupleType) MaxSerializedSize() (uint32, error) {
	total := uint64(1 + 4)
	for k, sig := range t.fields {
		fieldSize, err := sig.MaxSerializedSize()
		if err != nil {
			return 0, err
		}
		total += 1 + uint64(len(k)) + uint64(fieldSize)
		if total > uint64(MaxValueSize) {
			return 0, ErrSizeOverflow
		}
	}
	return uint32(total), nil
}

// ---- Optional & response ---------------------------------------------------------

// OptionalType admits none plus any some value admitted by Inner.
type OptionalType struct {
	Inner TypeSignature
}

// NewOptionalType builds an optional signature, enforcing the depth limit.
func NewOptionalType(inner TypeSignature) (OptionalType, error) {
	t := OptionalType{Inner: inner}
	if t.Depth() > MaxTypeDepth {
		return OptionalType{}, ErrTypeSignatureTooDeep
	}
	return t, nil
}

func (t OptionalType) Kind() Kind     { return KindOptional }
func (t OptionalType) Depth() int     { return 1 + t.Inner.Depth() }
func (t OptionalType) String() string { return "(optional " + t.Inner.String() + ")" }

func (t OptionalType) Equal(other TypeSignature) bool {
	o, ok := other.(OptionalType)
	return ok && t.Inner.Equal(o.Inner)
}

func (t OptionalType) Admits(v Value) (bool, error) {
	switch val := v.(type) {
	case NoneValue:
		return true, nil
	case SomeValue:
		return t.Inner.Admits(val.Inner)
	}
	return false, nil
}

func (t OptionalType) MaxSerializedSize() (uint32, error) {
	innerSize, err := t.Inner.MaxSerializedSize()
	if errors.Is(err, ErrNoTypeSerialization) {
		// Only none is representable.
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return checkedSizeAdd(1, innerSize)
}

// ResponseType admits ok values admitted by OkType and err values admitted by
// ErrType.
type ResponseType struct {
	OkType  TypeSignature
	ErrType TypeSignature
}

// NewResponseType builds a response signature, enforcing the depth limit.
func NewResponseType(okType, errType TypeSignature) (ResponseType, error) {
	t := ResponseType{OkType: okType, ErrType: errType}
	if t.Depth() > MaxTypeDepth {
		return ResponseType{}, ErrTypeSignatureTooDeep
	}
	return t, nil
}

func (t ResponseType) Kind() Kind { return KindResponse }

func (t ResponseType) Depth() int {
	okDepth, errDepth := t.OkType.Depth(), t.ErrType.Depth()
	if errDepth > okDepth {
		okDepth = errDepth
	}
	return 1 + okDepth
}

func (t ResponseType) String() string {
	return "(response " + t.OkType.String() + " " + t.ErrType.String() + ")"
}

func (t ResponseType) Equal(other TypeSignature) bool {
	o, ok := other.(ResponseType)
	return ok && t.OkType.Equal(o.OkType) && t.ErrType.Equal(o.ErrType)
}

func (t ResponseType) Admits(v Value) (bool, error) {
	r, ok := v.(ResponseValue)
	if !ok {
		return false, nil
	}
	if r.Committed {
		return t.OkType.Admits(r.Inner)
	}
	return t.ErrType.Admits(r.Inner)
}

func (t ResponseType) MaxSerializedSize() (uint32, error) {
	okSize, okErr := t.OkType.MaxSerializedSize()
	errSize, errErr := t.ErrType.MaxSerializedSize()
	switch {
	case okErr == nil && errErr == nil:
		if errSize > okSize {
			okSize = errSize
		}
		return checkedSizeAdd(1, okSize)
	case okErr == nil && errors.Is(errErr, ErrNoTypeSerialization):
		return checkedSizeAdd(1, okSize)
	case errErr == nil && errors.Is(okErr, ErrNoTypeSerialization):
		return checkedSizeAdd(1, errSize)
	case okErr != nil && !errors.Is(okErr, ErrNoTypeSerialization):
		return 0, okErr
	case errErr != nil && !errors.Is(errErr, ErrNoTypeSerialization):
		return 0, errErr
	}
	// Both arms are NoType: nothing is representable.
	return 0, ErrNoTypeSerialization
}

// ---- TypeOf & least supertype -------------------------------------------------

// TypeOf computes the most specific signature admitting v.
func TypeOf(v Value) TypeSignature {
	switch val := v.(type) {
	case IntValue:
		return IntType
	case UIntValue:
		return UIntType
	case BoolValue:
		return BoolType
	case StandardPrincipal, ContractPrincipal:
		return PrincipalType
	case BufferValue:
		return BufferType{MaxLen: val.Len()}
	case ASCIIValue:
		return ASCIIType{MaxLen: val.Len()}
	case UTF8Value:
		return UTF8Type{MaxLen: val.Len()}
	case NoneValue:
		return OptionalType{Inner: NoType}
	case SomeValue:
		return OptionalType{Inner: TypeOf(val.Inner)}
	case ResponseValue:
		if val.Committed {
			return ResponseType{OkType: TypeOf(val.Inner), ErrType: NoType}
		}
		return ResponseType{OkType: NoType, ErrType: TypeOf(val.Inner)}
	case ListValue:
		if len(val.elems) == 0 {
			return ListType{MaxLen: 0, Elem: NoType}
		}
		elem := TypeOf(val.elems[0])
		for _, e := range val.elems[1:] {
			lub, err := LeastSupertype(elem, TypeOf(e))
			if err != nil {
				// NewList verified unifiability at construction.
				panic(fmt.Sprintf("types: list elements lost unifiability: %v", err))
			}
			elem = lub
		}
		return ListType{MaxLen: val.Len(), Elem: elem}
	case TupleValue:
		sigs := make([]TypeSignature, len(val.order))
		for i, k := range val.order {
			sigs[i] = TypeOf(val.data[k])
		}
		t, err := NewTupleType(val.order, sigs)
		if err != nil {
			panic(fmt.Sprintf("types: tuple value with unrepresentable type: %v", err))
		}
		return t
	}
	return NoType
}

// LeastSupertype unifies two signatures into the narrowest signature admitting
// everything either admits. NoType is the identity.
func LeastSupertype(a, b TypeSignature) (TypeSignature, error) {
	if a.Kind() == KindNoType {
		return b, nil
	}
	if b.Kind() == KindNoType {
		return a, nil
	}
	if a.Kind() != b.Kind() {
		return nil, fmt.Errorf("%w: cannot unify %s and %s", ErrTypeMismatch, a, b)
	}
	switch at := a.(type) {
	case primitiveType:
		return a, nil
	case BufferType:
		bt := b.(BufferType)
		return BufferType{MaxLen: maxU32(at.MaxLen, bt.MaxLen)}, nil
	case ASCIIType:
		bt := b.(ASCIIType)
		return ASCIIType{MaxLen: maxU32(at.MaxLen, bt.MaxLen)}, nil
	case UTF8Type:
		bt := b.(UTF8Type)
		return UTF8Type{MaxLen: maxU32(at.MaxLen, bt.MaxLen)}, nil
	case ListType:
		bt := b.(ListType)
		elem, err := LeastSupertype(at.Elem, bt.Elem)
		if err != nil {
			return nil, err
		}
		return ListType{MaxLen: maxU32(at.MaxLen, bt.MaxLen), Elem: elem}, nil
	case OptionalType:
		bt := b.(OptionalType)
		inner, err := LeastSupertype(at.Inner, bt.Inner)
		if err != nil {
			return nil, err
		}
		return OptionalType{Inner: inner}, nil
	case ResponseType:
		bt := b.(ResponseType)
		okT, err := LeastSupertype(at.OkType, bt.OkType)
		if err != nil {
			return nil, err
		}
		errT, err := LeastSupertype(at.ErrType, bt.ErrType)
		if err != nil {
			return nil, err
		}
		return ResponseType{OkType: okT, ErrType: errT}, nil
	case TupleType:
		bt := b.(TupleType)
		if len(at.fields) != len(bt.fields) {
			return nil, fmt.Errorf("%w: tuple field counts differ", ErrTypeMismatch)
		}
		sigs := make([]TypeSignature, len(at.order))
		for i, k := range at.order {
			bsig, present := bt.fields[k]
			if !present {
				return nil, fmt.Errorf("%w: tuple field %q missing", ErrTypeMismatch, k)
			}
			lub, err := LeastSupertype(at.fields[k], bsig)
			if err != nil {
				return nil, err
			}
			sigs[i] = lub
		}
		return NewTupleType(at.order, sigs)
	}
	return nil, fmt.Errorf("%w: cannot unify %s and %s", ErrTypeMismatch, a, b)
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func checkedSizeAdd(a, b uint32) (uint32, error) {
	if uint64(a)+uint64(b) > uint64(math.MaxUint32) {
		return 0, ErrSizeOverflow
	}
	return a + b, nil
}
