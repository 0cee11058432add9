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
	"bytes"
	"fmt"

	"github.com/hirosystems/clarinet-sub006/common"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// Type-signature tags, distinct from value tags so a descriptor blob can
// never be confused with a value blob.
const (
	typeTagNoType    byte = 0x80
	typeTagInt       byte = 0x81
	typeTagUInt      byte = 0x82
	typeTagBool      byte = 0x83
	typeTagPrincipal byte = 0x84
	typeTagBuffer    byte = 0x85
	typeTagASCII     byte = 0x86
	typeTagUTF8      byte = 0x87
	typeTagList      byte = 0x88
	typeTagTuple     byte = 0x89
	typeTagOptional  byte = 0x8a
	typeTagResponse  byte = 0x8b
)

// SerializeType encodes a type signature for descriptor storage.
func SerializeType(t types.TypeSignature) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeType(&buf, t, 1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeType decodes a descriptor blob back into a type signature,
// failing on trailing bytes.
func DeserializeType(data []byte) (types.TypeSignature, error) {
	d := &decoder{data: data}
	t, err := d.readType(1)
	if err != nil {
		return nil, err
	}
	if d.pos != len(data) {
		return nil, fmt.Errorf("%w: %d of %d bytes consumed", ErrLeftoverBytes, d.pos, len(data))
	}
	return t, nil
}

func writeType(buf *bytes.Buffer, t types.TypeSignature, depth int) error {
	if depth > types.MaxTypeDepth {
		return types.ErrTypeSignatureTooDeep
	}
	switch sig := t.(type) {
	case types.BufferType:
		buf.WriteByte(typeTagBuffer)
		writeLen(buf, sig.MaxLen)
	case types.ASCIIType:
		buf.WriteByte(typeTagASCII)
		writeLen(buf, sig.MaxLen)
	case types.UTF8Type:
		buf.WriteByte(typeTagUTF8)
		writeLen(buf, sig.MaxLen)
	case types.ListType:
		buf.WriteByte(typeTagList)
		writeLen(buf, sig.MaxLen)
		return writeType(buf, sig.Elem, depth+1)
	case types.OptionalType:
		buf.WriteByte(typeTagOptional)
		return writeType(buf, sig.Inner, depth+1)
	case types.ResponseType:
		buf.WriteByte(typeTagResponse)
		if err := writeType(buf, sig.OkType, depth+1); err != nil {
			return err
		}
		return writeType(buf, sig.ErrType, depth+1)
	case types.TupleType:
		buf.WriteByte(typeTagTuple)
		writeLen(buf, sig.Len())
		for _, k := range sig.Keys() {
			buf.WriteByte(byte(len(k)))
			buf.WriteString(k)
			field, _ := sig.Field(k)
			if err := writeType(buf, field, depth+1); err != nil {
				return err
			}
		}
	default:
		switch t.Kind() {
		case types.KindNoType:
			buf.WriteByte(typeTagNoType)
		case types.KindInt:
			buf.WriteByte(typeTagInt)
		case types.KindUInt:
			buf.WriteByte(typeTagUInt)
		case types.KindBool:
			buf.WriteByte(typeTagBool)
		case types.KindPrincipal:
			buf.WriteByte(typeTagPrincipal)
		default:
			return fmt.Errorf("%w: type %s", ErrUnserializable, t)
		}
	}
	return nil
}

func (d *decoder) readType(depth int) (types.TypeSignature, error) {
	if depth > types.MaxTypeDepth {
		return nil, types.ErrTypeSignatureTooDeep
	}
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case typeTagNoType:
		return types.NoType, nil
	case typeTagInt:
		return types.IntType, nil
	case typeTagUInt:
		return types.UIntType, nil
	case typeTagBool:
		return types.BoolType, nil
	case typeTagPrincipal:
		return types.PrincipalType, nil
	case typeTagBuffer:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		sig, err := types.NewBufferType(n)
		if err != nil {
			return nil, err
		}
		return sig, nil
	case typeTagASCII:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		sig, err := types.NewASCIIType(n)
		if err != nil {
			return nil, err
		}
		return sig, nil
	case typeTagUTF8:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		sig, err := types.NewUTF8Type(n)
		if err != nil {
			return nil, err
		}
		return sig, nil
	case typeTagList:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		elem, err := d.readType(depth + 1)
		if err != nil {
			return nil, err
		}
		sig, err := types.NewListType(n, elem)
		if err != nil {
			return nil, err
		}
		return sig, nil
	case typeTagOptional:
		inner, err := d.readType(depth + 1)
		if err != nil {
			return nil, err
		}
		sig, err := types.NewOptionalType(inner)
		if err != nil {
			return nil, err
		}
		return sig, nil
	case typeTagResponse:
		okType, err := d.readType(depth + 1)
		if err != nil {
			return nil, err
		}
		errType, err := d.readType(depth + 1)
		if err != nil {
			return nil, err
		}
		sig, err := types.NewResponseType(okType, errType)
		if err != nil {
			return nil, err
		}
		return sig, nil
	case typeTagTuple:
		n, err := d.readLen()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, n)
		sigs := make([]types.TypeSignature, 0, n)
		for i := uint32(0); i < n; i++ {
			keyLen, err := d.readByte()
			if err != nil {
				return nil, err
			}
			keyRaw, err := d.readBytes(int(keyLen))
			if err != nil {
				return nil, err
			}
			if !common.IsClarityName(string(keyRaw)) {
				return nil, fmt.Errorf("%w: tuple key %q", ErrBadPayload, string(keyRaw))
			}
			field, err := d.readType(depth + 1)
			if err != nil {
				return nil, err
			}
			names = append(names, string(keyRaw))
			sigs = append(sigs, field)
		}
		sig, err := types.NewTupleType(names, sigs)
		if err != nil {
			return nil, err
		}
		return sig, nil
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrBadTag, tag)
}
