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
	"bytes"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// Limits is the configuration accepted at connection-open time: the
// five-dimension block budget plus the per-attempt memory limit.
type Limits struct {
	Budget      ExecutionCost `toml:"budget"`
	MemoryLimit uint64        `toml:"memory_limit"`
}

// MainnetLimits returns the mainnet-equivalent block budget.
func MainnetLimits() Limits {
	return Limits{
		Budget: ExecutionCost{
			Runtime:     5_000_000_000,
			WriteLength: 15_000_000,
			WriteCount:  15_000,
			ReadLength:  100_000_000,
			ReadCount:   15_000,
		},
		MemoryLimit: 100 * 1024 * 1024,
	}
}

// TestnetLimits returns a looser budget for local development chains.
func TestnetLimits() Limits {
	l := MainnetLimits()
	l.Budget.Runtime *= 2
	return l
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadLimits reads a Limits configuration from a TOML file, rejecting unknown
// fields.
func LoadLimits(path string) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, err
	}
	limits := MainnetLimits()
	if err := tomlSettings.NewDecoder(bytes.NewReader(data)).Decode(&limits); err != nil {
		return Limits{}, fmt.Errorf("invalid limits config: %v", err)
	}
	return limits, nil
}

