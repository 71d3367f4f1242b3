/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package suitetestutil

import (
	"context"
	"sync"

	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
)

// StepResult is the outcome of an executed step.
type StepResult struct {
	Code      steps.Code
	ProofType string
	Err       error
}

// Executor records the steps run by a suite. Like the verifier, it stops running actions once a
// step has failed.
type Executor struct {
	mutex   sync.Mutex
	results []*StepResult
	helpers int
	failed  bool
}

// NewExecutor returns a recording executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// ExecuteStep runs the action and records its result.
func (e *Executor) ExecuteStep(ctx context.Context, code steps.Code, proofType string, action suite.Action) {
	if e.isFailing() {
		return
	}

	err := action(ctx)

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.results = append(e.results, &StepResult{Code: code, ProofType: proofType, Err: err})

	if err != nil {
		e.failed = true
	}
}

// ExecuteHelper runs the action and returns its error.
func (e *Executor) ExecuteHelper(ctx context.Context, action suite.Action) error {
	if e.isFailing() {
		return nil
	}

	e.mutex.Lock()
	e.helpers++
	e.mutex.Unlock()

	return action(ctx)
}

// Codes returns the codes of the executed steps in order.
func (e *Executor) Codes() []steps.Code {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	codes := make([]steps.Code, len(e.results))

	for i, r := range e.results {
		codes[i] = r.Code
	}

	return codes
}

// Failure returns the failed step, or nil if all steps succeeded.
func (e *Executor) Failure() *StepResult {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for _, r := range e.results {
		if r.Err != nil {
			return r
		}
	}

	return nil
}

// Helpers returns the number of helpers that were run.
func (e *Executor) Helpers() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.helpers
}

func (e *Executor) isFailing() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.failed
}
