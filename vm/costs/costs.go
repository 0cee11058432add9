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

// Package costs implements the multi-dimensional execution cost model: cost
// accumulation against a per-block budget, per-attempt memory accounting, and
// the table of overridable cost functions with call-site circuits.
package costs

import (
	"errors"
	"fmt"
)

// ErrCostOverflow is returned when cost arithmetic would overflow a
// dimension.
var ErrCostOverflow = errors.New("costs: execution cost overflow")

// ExecutionCost tracks the five independent cost dimensions.
type ExecutionCost struct {
	Runtime     uint64 `toml:"runtime"`
	WriteLength uint64 `toml:"write_length"`
	WriteCount  uint64 `toml:"write_count"`
	ReadLength  uint64 `toml:"read_length"`
	ReadCount   uint64 `toml:"read_count"`
}

// ZeroCost is the additive identity.
var ZeroCost = ExecutionCost{}

// Add returns the dimension-wise sum, failing on overflow in any dimension.
func (c ExecutionCost) Add(other ExecutionCost) (ExecutionCost, error) {
	out := ExecutionCost{}
	var err error
	if out.Runtime, err = checkedAdd(c.Runtime, other.Runtime); err != nil {
		return ExecutionCost{}, err
	}
	if out.WriteLength, err = checkedAdd(c.WriteLength, other.WriteLength); err != nil {
		return ExecutionCost{}, err
	}
	if out.WriteCount, err = checkedAdd(c.WriteCount, other.WriteCount); err != nil {
		return ExecutionCost{}, err
	}
	if out.ReadLength, err = checkedAdd(c.ReadLength, other.ReadLength); err != nil {
		return ExecutionCost{}, err
	}
	if out.ReadCount, err = checkedAdd(c.ReadCount, other.ReadCount); err != nil {
		return ExecutionCost{}, err
	}
	return out, nil
}

// Sub returns the dimension-wise difference, saturating at zero. Used for
// reporting, never for budget enforcement.
func (c ExecutionCost) Sub(other ExecutionCost) ExecutionCost {
	return ExecutionCost{
		Runtime:     saturatingSub(c.Runtime, other.Runtime),
		WriteLength: saturatingSub(c.WriteLength, other.WriteLength),
		WriteCount:  saturatingSub(c.WriteCount, other.WriteCount),
		ReadLength:  saturatingSub(c.ReadLength, other.ReadLength),
		ReadCount:   saturatingSub(c.ReadCount, other.ReadCount),
	}
}

// ExceedsAny reports whether any dimension of c exceeds the corresponding
// dimension of limit.
func (c ExecutionCost) ExceedsAny(limit ExecutionCost) bool {
	return c.Runtime > limit.Runtime ||
		c.WriteLength > limit.WriteLength ||
		c.WriteCount > limit.WriteCount ||
		c.ReadLength > limit.ReadLength ||
		c.ReadCount > limit.ReadCount
}

// IsZero reports whether every dimension is zero.
func (c ExecutionCost) IsZero() bool { return c == ExecutionCost{} }

func (c ExecutionCost) String() string {
	return fmt.Sprintf("{runtime: %d, write_len: %d, write_cnt: %d, read_len: %d, read_cnt: %d}",
		c.Runtime, c.WriteLength, c.WriteCount, c.ReadLength, c.ReadCount)
}

// RuntimeCost builds a cost with only the runtime dimension set.
func RuntimeCost(runtime uint64) ExecutionCost {
	return ExecutionCost{Runtime: runtime}
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a+b < a {
		return 0, ErrCostOverflow
	}
	return a + b, nil
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// BudgetExceededError reports an AddCost that would push the cumulative total
// past the block budget. The tracker's total is unchanged after the failure.
type BudgetExceededError struct {
	Total  ExecutionCost // the total the rejected charge would have produced
	Budget ExecutionCost
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("costs: budget exceeded: total %s, budget %s", e.Total, e.Budget)
}

// MemoryExceededError reports an AddMemory that would exceed the memory limit.
type MemoryExceededError struct {
	Used  uint64
	Limit uint64
}

func (e *MemoryExceededError) Error() string {
	return fmt.Sprintf("costs: memory exceeded: used %d, limit %d", e.Used, e.Limit)
}
