/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/tracing"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
)

// StepRecord is the outcome of a step in a verification run.
type StepRecord struct {
	Code    steps.Code   `json:"code"`
	Status  steps.Status `json:"status"`
	Message string       `json:"message,omitempty"`
}

// StepUpdate is published to the progress callback when a step starts and when it completes.
type StepUpdate struct {
	Code         steps.Code   `json:"code"`
	Label        string       `json:"label"`
	Status       steps.Status `json:"status"`
	ParentStep   steps.Code   `json:"parentStep"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}

// ProgressCallback receives step updates during verification.
type ProgressCallback func(update *StepUpdate)

// run holds the state of a single verification. It implements suite.Executor so the suites
// and the status checkers share its fail-fast guard.
type run struct {
	id       string
	tree     []*steps.Step
	callback ProgressCallback
	tracer   trace.Tracer
	metrics  metricsProvider
	logger   *log.Log
	records  []*StepRecord
	failed   bool
}

func newRun(tree []*steps.Step, cb ProgressCallback, tracer trace.Tracer, m metricsProvider,
	credentialID string) *run {
	id := uuid.NewString()

	return &run{
		id:       id,
		tree:     tree,
		callback: cb,
		tracer:   tracer,
		metrics:  m,
		logger:   logger.With(logfields.WithRunID(id), logfields.WithCredentialID(credentialID)),
	}
}

// ExecuteStep runs the action of a reported step unless the run has already failed.
func (r *run) ExecuteStep(ctx context.Context, code steps.Code, proofType string, action suite.Action) {
	if r.failed {
		r.logger.Debug("Skipping step after failure", logfields.WithStepCode(string(code)))

		return
	}

	ctx, span := r.tracer.Start(ctx, "verification step "+string(code),
		trace.WithAttributes(tracing.StepCodeAttribute(string(code)), tracing.ProofTypeAttribute(proofType)))
	defer span.End()

	substep := steps.FindSubstep(code, r.tree, proofType)

	r.notify(substep, code, steps.Starting, "")

	if err := action(ctx); err != nil {
		logfields.StepFailed(r.logger, string(code), proofType, err)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		r.fail(code, err.Error())
		r.notify(substep, code, steps.Failure, err.Error())

		return
	}

	r.logger.Debug("Step succeeded", logfields.WithStepCode(string(code)), logfields.WithSuite(proofType))

	r.record(&StepRecord{Code: code, Status: steps.Success})
	r.notify(substep, code, steps.Success, "")
}

// ExecuteHelper runs an unreported action unless the run has already failed. The action's error
// is returned so that it can be handed to the step that consumes the helper's result.
func (r *run) ExecuteHelper(ctx context.Context, action suite.Action) error {
	if r.failed {
		return nil
	}

	return action(ctx)
}

// fail appends a failure record without publishing an update.
func (r *run) fail(code steps.Code, message string) {
	r.failed = true

	r.record(&StepRecord{Code: code, Status: steps.Failure, Message: message})
}

func (r *run) record(rec *StepRecord) {
	r.records = append(r.records, rec)

	r.metrics.VerifierIncrementStepResultCount(string(rec.Code), string(rec.Status))
}

func (r *run) notify(substep *steps.Substep, code steps.Code, status steps.Status, errMsg string) {
	if r.callback == nil {
		return
	}

	if substep == nil {
		r.logger.Warn("Step is not in the verification steps. The update is not published.",
			logfields.WithStepCode(string(code)), logfields.WithStepStatus(string(status)))

		return
	}

	r.logger.Debug("Publishing step update", logfields.WithStepCode(string(code)),
		logfields.WithParentStep(string(substep.ParentStep)), logfields.WithStepStatus(string(status)))

	r.callback(&StepUpdate{
		Code:         code,
		Label:        substep.LabelPending,
		Status:       status,
		ParentStep:   substep.ParentStep,
		ErrorMessage: errMsg,
	})
}

// firstFailure returns the first failure record in push order.
func (r *run) firstFailure() *StepRecord {
	for _, rec := range r.records {
		if rec.Status == steps.Failure {
			return rec
		}
	}

	return nil
}

func (r *run) snapshot() []*StepRecord {
	return append([]*StepRecord(nil), r.records...)
}
