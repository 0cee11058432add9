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

import (
	"errors"
	"fmt"

	log "github.com/inconshreveable/log15"

	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// ErrCostComputation is returned when a user-defined cost function produces a
// value that is not a well-formed execution-cost tuple.
var ErrCostComputation = errors.New("costs: cost computation failed")

// CostFunctionRef names executable contract code usable as a cost function.
type CostFunctionRef struct {
	Contract types.ContractID
	Function string
}

func (r CostFunctionRef) String() string {
	return r.Contract.String() + "::" + r.Function
}

// CostExecutor evaluates a cost-function contract call inside a cost-free
// evaluation context and returns its result value. The tracker has no hidden
// dependency on a VM instance; the capability is supplied at construction.
type CostExecutor func(ref CostFunctionRef, input []uint64) (types.Value, error)

// Tracker meters execution against a budget.
type Tracker interface {
	// ComputeCost evaluates the cost function for the given input sizes
	// without charging it.
	ComputeCost(fn CostFunction, input []uint64) (ExecutionCost, error)

	// AddCost charges cost against the budget. On failure the accumulated
	// total is unchanged.
	AddCost(cost ExecutionCost) error

	// AddMemory charges n bytes against the memory limit.
	AddMemory(n uint64) error

	// DropMemory releases n bytes.
	DropMemory(n uint64)

	// ResetMemory zeroes memory usage. Called at transaction boundaries;
	// runtime cost is never reset within a block.
	ResetMemory()

	// ShortCircuitContractCall charges the registered substitute cost for
	// the (contract, function) call site, if any, and reports whether the
	// caller should skip the real invocation's cost computation.
	ShortCircuitContractCall(contract types.ContractID, function string, input []uint64) (bool, error)

	// Total returns the accumulated cost so far.
	Total() ExecutionCost

	// MemoryUsed returns the current memory charge.
	MemoryUsed() uint64

	// Free reports whether this tracker performs no metering.
	Free() bool
}

// ---- Free tracker ------------------------------------------------------------

// FreeTracker performs no metering; every operation succeeds.
type FreeTracker struct{}

// NewFreeTracker returns the untracked cost mode.
func NewFreeTracker() *FreeTracker { return &FreeTracker{} }

func (t *FreeTracker) ComputeCost(CostFunction, []uint64) (ExecutionCost, error) {
	return ZeroCost, nil
}
func (t *FreeTracker) AddCost(ExecutionCost) error { return nil }
func (t *FreeTracker) AddMemory(uint64) error      { return nil }
func (t *FreeTracker) DropMemory(uint64)           {}
func (t *FreeTracker) ResetMemory()                {}
func (t *FreeTracker) ShortCircuitContractCall(types.ContractID, string, []uint64) (bool, error) {
	return false, nil
}
func (t *FreeTracker) Total() ExecutionCost { return ZeroCost }
func (t *FreeTracker) MemoryUsed() uint64   { return 0 }
func (t *FreeTracker) Free() bool           { return true }

// ---- Limited tracker -----------------------------------------------------------

type circuitKey struct {
	contract string
	function string
}

// LimitedTracker meters execution against a fixed five-dimension budget and a
// memory limit. Cost-function identifiers resolve to the built-in boot model
// unless a governance-confirmed override is registered.
type LimitedTracker struct {
	total       ExecutionCost
	budget      ExecutionCost
	memory      uint64
	memoryLimit uint64

	overrides map[CostFunction]CostFunctionRef
	circuits  map[circuitKey]CostFunctionRef
	exec      CostExecutor

	logger log.Logger
}

// NewLimitedTracker builds a budgeted tracker. exec may be nil if no
// overridden cost functions will ever be registered.
func NewLimitedTracker(limits Limits, exec CostExecutor) *LimitedTracker {
	return &LimitedTracker{
		budget:      limits.Budget,
		memoryLimit: limits.MemoryLimit,
		overrides:   make(map[CostFunction]CostFunctionRef),
		circuits:    make(map[circuitKey]CostFunctionRef),
		exec:        exec,
		logger:      log.New("module", "costs"),
	}
}

// RegisterOverride points fn at a governance-confirmed cost contract.
func (t *LimitedTracker) RegisterOverride(fn CostFunction, ref CostFunctionRef) {
	t.overrides[fn] = ref
	t.logger.Debug("cost function overridden", "fn", fn, "ref", ref)
}

// RegisterCircuit installs a substitute cost computation for a specific
// (contract, function) call site.
func (t *LimitedTracker) RegisterCircuit(contract types.ContractID, function string, ref CostFunctionRef) {
	t.circuits[circuitKey{contract.String(), function}] = ref
}

func (t *LimitedTracker) ComputeCost(fn CostFunction, input []uint64) (ExecutionCost, error) {
	if ref, overridden := t.overrides[fn]; overridden {
		return t.computeOverridden(ref, input)
	}
	entry, known := defaultCostModel[fn]
	if !known {
		return ExecutionCost{}, fmt.Errorf("%w: unknown cost function %s", ErrCostComputation, fn)
	}
	return entry.eval(sumInputs(input)), nil
}

// computeOverridden executes the referenced contract function in a free
// context and parses the 5-field cost tuple it must return.
func (t *LimitedTracker) computeOverridden(ref CostFunctionRef, input []uint64) (ExecutionCost, error) {
	if t.exec == nil {
		return ExecutionCost{}, fmt.Errorf("%w: no executor for %s", ErrCostComputation, ref)
	}
	result, err := t.exec(ref, input)
	if err != nil {
		return ExecutionCost{}, fmt.Errorf("%w: %s: %v", ErrCostComputation, ref, err)
	}
	cost, err := ParseCostTuple(result)
	if err != nil {
		return ExecutionCost{}, fmt.Errorf("%w: %s: %v", ErrCostComputation, ref, err)
	}
	return cost, nil
}

func (t *LimitedTracker) AddCost(cost ExecutionCost) error {
	newTotal, err := t.total.Add(cost)
	if err != nil {
		return err
	}
	if newTotal.ExceedsAny(t.budget) {
		return &BudgetExceededError{Total: newTotal, Budget: t.budget}
	}
	t.total = newTotal
	return nil
}

func (t *LimitedTracker) AddMemory(n uint64) error {
	if t.memory+n < t.memory || t.memory+n > t.memoryLimit {
		return &MemoryExceededError{Used: t.memory + n, Limit: t.memoryLimit}
	}
	t.memory += n
	return nil
}

func (t *LimitedTracker) DropMemory(n uint64) {
	if n > t.memory {
		t.memory = 0
		return
	}
	t.memory -= n
}

func (t *LimitedTracker) ResetMemory() { t.memory = 0 }

func (t *LimitedTracker) ShortCircuitContractCall(contract types.ContractID, function string, input []uint64) (bool, error) {
	ref, ok := t.circuits[circuitKey{contract.String(), function}]
	if !ok {
		return false, nil
	}
	cost, err := t.computeOverridden(ref, input)
	if err != nil {
		return false, err
	}
	if err := t.AddCost(cost); err != nil {
		return false, err
	}
	return true, nil
}

func (t *LimitedTracker) Total() ExecutionCost { return t.total }
func (t *LimitedTracker) MemoryUsed() uint64   { return t.memory }
func (t *LimitedTracker) Free() bool           { return false }

// ---- Cost tuple parsing ----------------------------------------------------------

var costTupleFields = [...]string{"runtime", "write_length", "write_count", "read_length", "read_count"}

// ParseCostTuple extracts an ExecutionCost from a cost function's return
// value, which must be a 5-field tuple of unsigned integers named exactly
// {runtime, write_length, write_count, read_length, read_count}, optionally
// wrapped in (ok ...).
func ParseCostTuple(v types.Value) (ExecutionCost, error) {
	if resp, ok := v.(types.ResponseValue); ok {
		if !resp.Committed {
			return ExecutionCost{}, fmt.Errorf("cost function returned (err %s)", resp.Inner)
		}
		v = resp.Inner
	}
	tuple, ok := v.(types.TupleValue)
	if !ok {
		return ExecutionCost{}, fmt.Errorf("cost function returned %s, want 5-field tuple", v)
	}
	if tuple.Len() != uint32(len(costTupleFields)) {
		return ExecutionCost{}, fmt.Errorf("cost tuple has %d fields, want %d", tuple.Len(), len(costTupleFields))
	}
	dims := make([]uint64, len(costTupleFields))
	for i, name := range costTupleFields {
		field, present := tuple.Get(name)
		if !present {
			return ExecutionCost{}, fmt.Errorf("cost tuple missing field %q", name)
		}
		u, ok := field.(types.UIntValue)
		if !ok {
			return ExecutionCost{}, fmt.Errorf("cost tuple field %q is not uint", name)
		}
		big := u.Big()
		if !big.IsUint64() {
			return ExecutionCost{}, fmt.Errorf("cost tuple field %q out of range", name)
		}
		dims[i] = big.Uint64()
	}
	return ExecutionCost{
		Runtime:     dims[0],
		WriteLength: dims[1],
		WriteCount:  dims[2],
		ReadLength:  dims[3],
		ReadCount:   dims[4],
	}, nil
}
