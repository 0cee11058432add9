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

package costs

import "fmt"

// CostFunction identifies one abstract metered operation. Each identifier
// resolves either to the built-in model below or to a governance-confirmed
// (contract, function) override.
type CostFunction int

const (
	CostUnknown CostFunction = iota
	CostAnalysisTypeCheck
	CostAnalysisStorage
	CostAstParse
	CostLookupVariableDepth
	CostFetchVar
	CostSetVar
	CostCreateVar
	CostFetchEntry
	CostSetEntry
	CostCreateMap
	CostFtSupply
	CostFtBalance
	CostFtTransfer
	CostFtMint
	CostFtBurn
	CostNftOwner
	CostNftTransfer
	CostNftMint
	CostNftBurn
	CostStxBalance
	CostStxTransfer
	CostContractCall
	CostContractStorage
	CostLoadContract
)

var costFunctionNames = map[CostFunction]string{
	CostAnalysisTypeCheck:   "cost_analysis_type_check",
	CostAnalysisStorage:     "cost_analysis_storage",
	CostAstParse:            "cost_ast_parse",
	CostLookupVariableDepth: "cost_lookup_variable_depth",
	CostFetchVar:            "cost_fetch_var",
	CostSetVar:              "cost_set_var",
	CostCreateVar:           "cost_create_var",
	CostFetchEntry:          "cost_fetch_entry",
	CostSetEntry:            "cost_set_entry",
	CostCreateMap:           "cost_create_map",
	CostFtSupply:            "cost_ft_supply",
	CostFtBalance:           "cost_ft_balance",
	CostFtTransfer:          "cost_ft_transfer",
	CostFtMint:              "cost_ft_mint",
	CostFtBurn:              "cost_ft_burn",
	CostNftOwner:            "cost_nft_owner",
	CostNftTransfer:         "cost_nft_transfer",
	CostNftMint:             "cost_nft_mint",
	CostNftBurn:             "cost_nft_burn",
	CostStxBalance:          "cost_stx_balance",
	CostStxTransfer:         "cost_stx_transfer",
	CostContractCall:        "cost_contract_call",
	CostContractStorage:     "cost_contract_storage",
	CostLoadContract:        "cost_load_contract",
}

func (f CostFunction) String() string {
	if name, ok := costFunctionNames[f]; ok {
		return name
	}
	return fmt.Sprintf("cost_function(%d)", int(f))
}

// linear is a first-degree cost polynomial a*n + b, saturating on overflow.
type linear struct {
	a, b uint64
}

func (l linear) eval(n uint64) uint64 {
	if l.a != 0 && n > (^uint64(0)-l.b)/l.a {
		return ^uint64(0)
	}
	return l.a*n + l.b
}

// modelEntry describes the built-in cost of one metered operation as linear
// polynomials over the summed input sizes.
type modelEntry struct {
	runtime     linear
	writeLength linear
	writeCount  linear
	readLength  linear
	readCount   linear
}

func (m modelEntry) eval(n uint64) ExecutionCost {
	return ExecutionCost{
		Runtime:     m.runtime.eval(n),
		WriteLength: m.writeLength.eval(n),
		WriteCount:  m.writeCount.eval(n),
		ReadLength:  m.readLength.eval(n),
		ReadCount:   m.readCount.eval(n),
	}
}

// defaultCostModel is the boot cost table used when no governance override is
// confirmed for an identifier.
var defaultCostModel = map[CostFunction]modelEntry{
	CostAnalysisTypeCheck:   {runtime: linear{1000, 1000}},
	CostAnalysisStorage:     {runtime: linear{2, 100}, writeLength: linear{1, 1}, writeCount: linear{0, 1}},
	CostAstParse:            {runtime: linear{27, 81}},
	CostLookupVariableDepth: {runtime: linear{1, 1}},
	CostFetchVar:            {runtime: linear{1, 543}, readLength: linear{1, 0}, readCount: linear{0, 1}},
	CostSetVar:              {runtime: linear{5, 691}, writeLength: linear{1, 0}, writeCount: linear{0, 1}},
	CostCreateVar:           {runtime: linear{7, 2025}, writeLength: linear{1, 1}, writeCount: linear{0, 2}},
	CostFetchEntry:          {runtime: linear{1, 1466}, readLength: linear{1, 0}, readCount: linear{0, 1}},
	CostSetEntry:            {runtime: linear{4, 1574}, writeLength: linear{1, 0}, writeCount: linear{0, 1}, readCount: linear{0, 1}},
	CostCreateMap:           {runtime: linear{1, 1564}, writeLength: linear{1, 1}, writeCount: linear{0, 1}},
	CostFtSupply:            {runtime: linear{0, 483}, readLength: linear{0, 16}, readCount: linear{0, 1}},
	CostFtBalance:           {runtime: linear{0, 547}, readLength: linear{0, 16}, readCount: linear{0, 1}},
	CostFtTransfer:          {runtime: linear{0, 555}, writeLength: linear{0, 32}, writeCount: linear{0, 2}, readLength: linear{0, 32}, readCount: linear{0, 2}},
	CostFtMint:              {runtime: linear{0, 1479}, writeLength: linear{0, 32}, writeCount: linear{0, 2}, readLength: linear{0, 32}, readCount: linear{0, 2}},
	CostFtBurn:              {runtime: linear{0, 549}, writeLength: linear{0, 32}, writeCount: linear{0, 2}, readLength: linear{0, 32}, readCount: linear{0, 2}},
	CostNftOwner:            {runtime: linear{9, 795}, readLength: linear{1, 0}, readCount: linear{0, 1}},
	CostNftTransfer:         {runtime: linear{9, 795}, writeLength: linear{1, 0}, writeCount: linear{0, 1}, readLength: linear{1, 0}, readCount: linear{0, 1}},
	CostNftMint:             {runtime: linear{9, 795}, writeLength: linear{1, 0}, writeCount: linear{0, 1}, readLength: linear{1, 0}, readCount: linear{0, 1}},
	CostNftBurn:             {runtime: linear{9, 795}, writeLength: linear{1, 0}, writeCount: linear{0, 1}, readLength: linear{1, 0}, readCount: linear{0, 1}},
	CostStxBalance:          {runtime: linear{0, 1385}, readLength: linear{0, 16}, readCount: linear{0, 1}},
	CostStxTransfer:         {runtime: linear{0, 1430}, writeLength: linear{0, 32}, writeCount: linear{0, 2}, readLength: linear{0, 32}, readCount: linear{0, 2}},
	CostContractCall:        {runtime: linear{0, 134}},
	CostContractStorage:     {runtime: linear{13, 7982}, writeLength: linear{1, 1}, writeCount: linear{0, 1}},
	CostLoadContract:        {runtime: linear{1, 157}, readLength: linear{1, 1}, readCount: linear{0, 1}},
}

// sumInputs folds the input-size arguments of a metered operation into the
// single size the linear model is evaluated at.
func sumInputs(input []uint64) uint64 {
	total := uint64(0)
	for _, n := range input {
		if total+n < total {
			return ^uint64(0)
		}
		total += n
	}
	return total
}
