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
	"fmt"
	"strings"

	"github.com/hirosystems/clarinet-sub006/common"
)

// ContractID is the fully qualified identity of a deployed contract: the
// issuing principal plus the contract name. It keys every piece of
// contract-scoped persisted state.
type ContractID struct {
	Issuer StandardPrincipal
	Name   string
}

// NewContractID validates the name component.
func NewContractID(issuer StandardPrincipal, name string) (ContractID, error) {
	if !common.IsContractName(name) {
		return ContractID{}, fmt.Errorf("%w: contract name %q", common.ErrInvalidName, name)
	}
	return ContractID{Issuer: issuer, Name: name}, nil
}

// TransientContractID is the identity snippets evaluate under before any
// contract is deployed.
func TransientContractID() ContractID {
	return ContractID{Name: common.TransientContractName}
}

// ParseContractID parses "ADDRESS.name" into a ContractID.
func ParseContractID(s string) (ContractID, error) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return ContractID{}, fmt.Errorf("%w: missing '.' in %q", common.ErrInvalidName, s)
	}
	version, hash, err := DecodeAddress(s[:dot])
	if err != nil {
		return ContractID{}, err
	}
	return NewContractID(StandardPrincipal{Version: version, Hash: hash}, s[dot+1:])
}

// Principal returns the contract-qualified principal value of the contract.
func (c ContractID) Principal() ContractPrincipal {
	return ContractPrincipal{Issuer: c.Issuer, Name: c.Name}
}

func (c ContractID) String() string {
	return EncodeAddress(c.Issuer.Version, c.Issuer.Hash) + "." + c.Name
}
