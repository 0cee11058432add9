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

// Package session orchestrates single-snippet execution: parse, analyze,
// evaluate, persist. The language front-end is injected through narrow
// interfaces; this package owns the block and transaction lifecycle
// around each run and the introspection tallies a REPL queries between
// runs.
package session

import (
	"errors"
	"fmt"

	"github.com/inconshreveable/log15"

	"github.com/hirosystems/clarinet-sub006/crypto"
	"github.com/hirosystems/clarinet-sub006/vm/clarity"
	"github.com/hirosystems/clarinet-sub006/vm/costs"
	"github.com/hirosystems/clarinet-sub006/vm/database"
	"github.com/hirosystems/clarinet-sub006/vm/events"
	"github.com/hirosystems/clarinet-sub006/vm/types"
)

// ErrNoFrontEnd is returned when a run needs a front-end stage that was
// not injected.
var ErrNoFrontEnd = errors.New("session: missing front-end collaborator")

// Program is a parsed snippet. Body is the front-end's representation
// and stays opaque to this package; HasDefinitions steers the run
// between expression evaluation and contract deployment.
type Program struct {
	Body           interface{}
	HasDefinitions bool
}

// Parser turns source text into a Program.
type Parser interface {
	Parse(contract types.ContractID, source string) (*Program, error)
}

// Analyzer type-checks a Program against current chain state and returns
// the analysis blob to persist alongside the contract.
type Analyzer interface {
	Analyze(program *Program, contract types.ContractID, db *database.ClarityDatabase) (string, error)
}

// Evaluator executes a Program inside an open transaction and returns
// the last expression's value.
type Evaluator interface {
	Eval(program *Program, contract types.ContractID, sender types.Value, tx *clarity.TransactionConnection) (types.Value, error)
}

// DeployedContract describes a contract a run persisted.
type DeployedContract struct {
	ID       types.ContractID
	Source   string
	Hash     []byte
	Analysis string
}

// Result is the outcome of one run. When Aborted is set, Events and
// Assets describe effects that were rolled back, not committed state.
type Result struct {
	Value    types.Value
	Events   []events.Event
	Assets   *events.AssetMap
	Cost     costs.ExecutionCost
	Aborted  bool
	Contract *DeployedContract
}

// Interpreter drives runs against one engine. It is not safe for
// concurrent use; execution is single-threaded by design.
type Interpreter struct {
	engine    *clarity.Engine
	parser    Parser
	analyzer  Analyzer
	evaluator Evaluator

	limits   *costs.Limits
	executor costs.CostExecutor

	ledger   *Ledger
	accounts map[string]types.Value
	logger   log15.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLimits switches runs from free execution to budgeted execution.
// The executor evaluates governance-supplied cost functions when the
// tracker's defaults have been overridden.
func WithLimits(limits costs.Limits, executor costs.CostExecutor) Option {
	return func(i *Interpreter) {
		l := limits
		i.limits = &l
		i.executor = executor
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger log15.Logger) Option {
	return func(i *Interpreter) { i.logger = logger }
}

// New builds an Interpreter over an engine and its front-end
// collaborators.
func New(engine *clarity.Engine, parser Parser, analyzer Analyzer, evaluator Evaluator, opts ...Option) *Interpreter {
	i := &Interpreter{
		engine:    engine,
		parser:    parser,
		analyzer:  analyzer,
		evaluator: evaluator,
		ledger:    NewLedger(),
		accounts:  make(map[string]types.Value),
		logger:    log15.New("module", "session"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ledger returns the session's introspection ledger.
func (i *Interpreter) Ledger() *Ledger { return i.ledger }

// Accounts returns every principal observed in committed events, keyed
// by rendered form.
func (i *Interpreter) Accounts() map[string]types.Value {
	out := make(map[string]types.Value, len(i.accounts))
	for k, v := range i.accounts {
		out[k] = v
	}
	return out
}

// Run executes one snippet as its own block and transaction. A snippet
// with definitions deploys as a contract under contract id; a bare
// expression evaluates without persisting anything beyond its state
// writes.
func (i *Interpreter) Run(source string, contract types.ContractID, sender types.Value) (*Result, error) {
	return i.run(source, contract, sender, nil)
}

// RunWithAbort is Run with a post-execution veto: shouldAbort inspects
// the asset movements and state the snippet produced, and returning true
// discards the writes while keeping the charge. The result then carries
// the discarded effects with Aborted set.
func (i *Interpreter) RunWithAbort(
	source string,
	contract types.ContractID,
	sender types.Value,
	shouldAbort func(*events.AssetMap, *database.ClarityDatabase) bool,
) (*Result, error) {
	return i.run(source, contract, sender, shouldAbort)
}

func (i *Interpreter) run(
	source string,
	contract types.ContractID,
	sender types.Value,
	shouldAbort func(*events.AssetMap, *database.ClarityDatabase) bool,
) (*Result, error) {
	if i.parser == nil || i.evaluator == nil {
		return nil, fmt.Errorf("%w: parser and evaluator are required", ErrNoFrontEnd)
	}
	tracker := i.newTracker()
	if err := chargeTracker(tracker, costs.CostAstParse, uint64(len(source))); err != nil {
		return nil, err
	}
	program, err := i.parser.Parse(contract, source)
	if err != nil {
		return nil, err
	}

	block, err := i.engine.BeginBlock(tracker)
	if err != nil {
		return nil, err
	}
	tx := block.StartTransaction()

	var (
		value    types.Value
		deployed *DeployedContract
	)
	execute := func(db *database.ClarityDatabase) error {
		if program.HasDefinitions {
			d, v, err := i.deploy(program, contract, sender, source, tx, db)
			if err != nil {
				return err
			}
			deployed, value = d, v
			return nil
		}
		v, err := i.evaluator.Eval(program, contract, sender, tx)
		if err != nil {
			return err
		}
		value = v
		return nil
	}

	abortState, err := tx.WithAbortCallback(execute, shouldAbort)
	if err != nil {
		tx.Rollback()
		block.Rollback()
		return nil, err
	}

	result := &Result{Value: value, Contract: deployed}
	if abortState != nil {
		result.Aborted = true
		result.Events = abortState.Events
		result.Assets = abortState.Assets
	} else {
		result.Events = tx.Events()
		result.Assets = tx.AssetMap()
		i.fold(result.Events)
	}

	if err := tx.Commit(); err != nil {
		block.Rollback()
		return nil, err
	}
	if err := block.CommitTo(block.Tip()); err != nil {
		return nil, err
	}
	result.Cost = tracker.Total()
	i.logger.Debug("Run complete", "contract", contract.String(), "aborted", result.Aborted, "events", len(result.Events))
	return result, nil
}

// deploy evaluates a definition-bearing snippet as a contract body and
// persists it: source, hash and size metadata plus the analysis blob.
func (i *Interpreter) deploy(
	program *Program,
	contract types.ContractID,
	sender types.Value,
	source string,
	tx *clarity.TransactionConnection,
	db *database.ClarityDatabase,
) (*DeployedContract, types.Value, error) {
	exists, err := db.ContractExists(contract)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: %s", database.ErrContractExists, contract)
	}

	var analysis string
	if i.analyzer != nil {
		if err := chargeTracker(tx.Tracker(), costs.CostAnalysisTypeCheck, uint64(len(source))); err != nil {
			return nil, nil, err
		}
		analysis, err = i.analyzer.Analyze(program, contract, db)
		if err != nil {
			return nil, nil, err
		}
	}

	value, err := i.evaluator.Eval(program, contract, sender, tx)
	if err != nil {
		return nil, nil, err
	}

	if err := db.InsertContract(contract, source); err != nil {
		return nil, nil, err
	}
	if analysis != "" {
		if err := db.SetContractAnalysis(contract, analysis); err != nil {
			return nil, nil, err
		}
	}
	if err := db.SetContractDataSize(contract, uint64(len(source))); err != nil {
		return nil, nil, err
	}

	return &DeployedContract{
		ID:       contract,
		Source:   source,
		Hash:     crypto.ContractHash(source),
		Analysis: analysis,
	}, value, nil
}

// newTracker builds a fresh tracker per run: budgets are per block, and
// each run is its own block.
func (i *Interpreter) newTracker() costs.Tracker {
	if i.limits == nil {
		return costs.NewFreeTracker()
	}
	return costs.NewLimitedTracker(*i.limits, i.executor)
}

// fold drains committed events into the introspection ledger and the
// observed account set.
func (i *Interpreter) fold(evs []events.Event) {
	for _, ev := range evs {
		for _, p := range i.ledger.Record(ev) {
			if p != nil {
				i.accounts[p.String()] = p
			}
		}
	}
}

func chargeTracker(tracker costs.Tracker, fn costs.CostFunction, input uint64) error {
	cost, err := tracker.ComputeCost(fn, []uint64{input})
	if err != nil {
		return err
	}
	return tracker.AddCost(cost)
}
