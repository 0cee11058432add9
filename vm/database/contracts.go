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

package database

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/hirosystems/clarinet-sub006/crypto"
	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

var (
	// ErrNoSuchContract is returned when an access names a contract that
	// was never deployed.
	ErrNoSuchContract = errors.New("database: no such contract")

	// ErrContractExists is returned when a deploy reuses an occupied
	// contract identifier.
	ErrContractExists = errors.New("database: contract already deployed")
)

// InsertContract records a deployed contract's source, hash and size.
// These identity facts are write-once; redeploying to the same id is
// rejected before any metadata lands.
func (db *ClarityDatabase) InsertContract(contract types.ContractID, source string) error {
	if err := db.charge(costs.CostContractStorage, []uint64{uint64(len(source))}); err != nil {
		return err
	}
	exists, err := db.ContractExists(contract)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrContractExists, contract)
	}
	if err := db.wrapper.InsertMetadata(contract.String(), metaContractSource, source); err != nil {
		return err
	}
	if err := db.wrapper.InsertMetadata(contract.String(), metaContractHash, hex.EncodeToString(crypto.ContractHash(source))); err != nil {
		return err
	}
	if err := db.wrapper.InsertMetadata(contract.String(), metaContractSize, strconv.FormatUint(uint64(len(source)), 10)); err != nil {
		return err
	}
	db.logger.Debug("Stored contract", "contract", contract.String(), "size", len(source))
	return nil
}

// ContractExists reports whether a contract id is occupied, observing
// deploys pending in open savepoints.
func (db *ClarityDatabase) ContractExists(contract types.ContractID) (bool, error) {
	_, ok, err := db.wrapper.GetMetadata(contract.String(), metaContractSource)
	return ok, err
}

// GetContractSource returns the deployed source text.
func (db *ClarityDatabase) GetContractSource(contract types.ContractID) (string, error) {
	if err := db.charge(costs.CostLoadContract, []uint64{0}); err != nil {
		return "", err
	}
	src, ok, err := db.wrapper.GetMetadata(contract.String(), metaContractSource)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSuchContract, contract)
	}
	return src, nil
}

// GetContractHash returns the keccak hash recorded at deploy time.
func (db *ClarityDatabase) GetContractHash(contract types.ContractID) ([]byte, error) {
	raw, ok, err := db.wrapper.GetMetadata(contract.String(), metaContractHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchContract, contract)
	}
	return hex.DecodeString(raw)
}

// GetContractSize returns the source length recorded at deploy time.
func (db *ClarityDatabase) GetContractSize(contract types.ContractID) (uint64, error) {
	raw, ok, err := db.wrapper.GetMetadata(contract.String(), metaContractSize)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchContract, contract)
	}
	return strconv.ParseUint(raw, 10, 64)
}

// SetContractDataSize records the footprint the deploy added to the data
// space. Written once, after the deploying transaction has executed the
// contract's top-level definitions.
func (db *ClarityDatabase) SetContractDataSize(contract types.ContractID, size uint64) error {
	return db.wrapper.InsertMetadata(contract.String(), metaContractDataSize, strconv.FormatUint(size, 10))
}

// GetContractDataSize returns the recorded data footprint, zero when the
// deploy predates footprint tracking.
func (db *ClarityDatabase) GetContractDataSize(contract types.ContractID) (uint64, error) {
	raw, ok, err := db.wrapper.GetMetadata(contract.String(), metaContractDataSize)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

// SetContractAnalysis stores the analyzer's output blob for a contract.
func (db *ClarityDatabase) SetContractAnalysis(contract types.ContractID, analysis string) error {
	if err := db.charge(costs.CostAnalysisStorage, []uint64{uint64(len(analysis))}); err != nil {
		return err
	}
	return db.wrapper.InsertMetadata(contract.String(), metaContractAnalysis, analysis)
}

// GetContractAnalysis returns the stored analyzer output, if any.
func (db *ClarityDatabase) GetContractAnalysis(contract types.ContractID) (string, bool, error) {
	return db.wrapper.GetMetadata(contract.String(), metaContractAnalysis)
}
