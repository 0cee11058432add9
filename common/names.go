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

package common

import "errors"

const (
	// MaxClarityNameLength bounds identifiers: variable, map, token, tuple
	// field, and function names.
	MaxClarityNameLength = 128

	// MaxContractNameLength bounds the name component of a contract
	// identifier.
	MaxContractNameLength = 40
)

// ErrInvalidName is returned when an identifier violates the naming rules.
var ErrInvalidName = errors.New("invalid clarity name")

// TransientContractName is the placeholder contract name used for snippets
// evaluated outside any deployed contract.
const TransientContractName = "__transient"

// IsClarityName reports whether s is a well-formed identifier: it must start
// with a letter or one of the special-form characters, continue with letters,
// digits, or the permitted punctuation, and respect MaxClarityNameLength.
func IsClarityName(s string) bool {
	if len(s) == 0 || len(s) > MaxClarityNameLength {
		return false
	}
	if !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameChar(s[i]) {
			return false
		}
	}
	return true
}

// IsContractName reports whether s may name a contract. Contract names follow
// the identifier rules with a tighter length bound; the transient placeholder
// is always accepted.
func IsContractName(s string) bool {
	if s == TransientContractName {
		return true
	}
	if len(s) == 0 || len(s) > MaxContractNameLength {
		return false
	}
	return IsClarityName(s)
}

func isNameStart(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	}
	switch c {
	case '+', '-', '*', '/', '<', '>', '=':
		return true
	}
	return false
}

func isNameChar(c byte) bool {
	if isNameStart(c) {
		return true
	}
	switch {
	case c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '?', '_':
		return true
	}
	return false
}
