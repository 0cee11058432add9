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
	"errors"
	"testing"

	"github.com/hirosystems/clarinet-sub006/vm/types"
)

func mustType(sig types.TypeSignature, err error) types.TypeSignature {
	if err != nil {
		panic(err)
	}
	return sig
}

func TestTypeCodecRoundTrip(t *testing.T) {
	ascii8 := mustType(types.NewASCIIType(8))
	cases := map[string]types.TypeSignature{
		"no-type":   types.NoType,
		"int":       types.IntType,
		"uint":      types.UIntType,
		"bool":      types.BoolType,
		"principal": types.PrincipalType,
		"buffer":    mustType(types.NewBufferType(32)),
		"ascii":     ascii8,
		"utf8":      mustType(types.NewUTF8Type(100)),
		"list":      mustType(types.NewListType(10, types.IntType)),
		"optional":  mustType(types.NewOptionalType(types.PrincipalType)),
		"response":  mustType(types.NewResponseType(types.UIntType, ascii8)),
		"tuple": mustType(types.NewTupleType(
			[]string{"amount", "memo"},
			[]types.TypeSignature{types.UIntType, mustType(types.NewBufferType(34))},
		)),
		"nested": mustType(types.NewListType(4, mustType(types.NewOptionalType(
			mustType(types.NewTupleType(
				[]string{"id"},
				[]types.TypeSignature{types.UIntType},
			)),
		)))),
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := SerializeType(sig)
			if err != nil {
				t.Fatalf("SerializeType: %v", err)
			}
			got, err := DeserializeType(raw)
			if err != nil {
				t.Fatalf("DeserializeType: %v", err)
			}
			if got.String() != sig.String() {
				t.Errorf("round trip %s -> %s", sig, got)
			}
		})
	}
}

func TestTypeCodecRejectsValueTags(t *testing.T) {
	if _, err := DeserializeType([]byte{TagInt}); !errors.Is(err, ErrBadTag) {
		t.Errorf("err = %v, want ErrBadTag", err)
	}
}

func TestTypeCodecRejectsTrailingBytes(t *testing.T) {
	raw, err := SerializeType(types.BoolType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DeserializeType(append(raw, typeTagBool)); !errors.Is(err, ErrLeftoverBytes) {
		t.Errorf("err = %v, want ErrLeftoverBytes", err)
	}
}

func TestTypeCodecRejectsBadTupleKey(t *testing.T) {
	raw := []byte{
		typeTagTuple,
		0, 0, 0, 1, // one field
		2, '9', 'a', // names must not start with a digit
		typeTagInt,
	}
	if _, err := DeserializeType(raw); !errors.Is(err, ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}

func TestTypeCodecDepthLimit(t *testing.T) {
	sig := types.TypeSignature(types.IntType)
	var err error
	for i := 0; i < types.MaxTypeDepth-1; i++ {
		sig, err = types.NewOptionalType(sig)
		if err != nil {
			t.Fatal(err)
		}
	}
	raw, err := SerializeType(sig)
	if err != nil {
		t.Fatalf("a maximally deep signature must still encode: %v", err)
	}
	if _, err := DeserializeType(raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
