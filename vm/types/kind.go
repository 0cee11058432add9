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

// Package types defines the Clarity value model: the tagged union of runtime
// values and the structural type signatures that bound them.
//
// Design principles:
//   - Every Value has a most-specific TypeSignature (TypeOf).
//   - Admission of a Value into a typed slot is checked against the slot's
//     declared signature, never inferred from the value alone.
//   - Signatures compute a deterministic worst-case serialized size, used to
//     bound deserialization.
package types

import "fmt"

// Kind categorizes the fundamental shape of a value or type signature.
type Kind int

const (
	KindNoType Kind = iota
	KindInt
	KindUInt
	KindBool
	KindBuffer
	KindStringASCII
	KindStringUTF8
	KindPrincipal
	KindList
	KindTuple
	KindOptional
	KindResponse
)

var kindNames = [...]string{
	KindNoType:      "NoType",
	KindInt:         "int",
	KindUInt:        "uint",
	KindBool:        "bool",
	KindBuffer:      "buff",
	KindStringASCII: "string-ascii",
	KindStringUTF8:  "string-utf8",
	KindPrincipal:   "principal",
	KindList:        "list",
	KindTuple:       "tuple",
	KindOptional:    "optional",
	KindResponse:    "response",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}
