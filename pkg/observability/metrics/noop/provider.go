/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package noop

import (
	"time"

	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics"
)

// Provider implements a no-op metrics provider.
type Provider struct {
}

// NewProvider creates new instance of a no-op metrics provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Create does nothing.
func (pp *Provider) Create() error {
	return nil
}

// Destroy does nothing.
func (pp *Provider) Destroy() error {
	return nil
}

// Metrics returns supported metrics.
func (pp *Provider) Metrics() metrics.Metrics {
	return &NoOptMetrics{}
}

// NoOptMetrics provides default no operation implementation for the Metrics interface.
type NoOptMetrics struct{}

// VerifierInitTime records the time it takes to initialize the verifier.
func (nm NoOptMetrics) VerifierInitTime(time.Duration) {}

// VerifierVerifyTime records the time it takes to verify a certificate.
func (nm NoOptMetrics) VerifierVerifyTime(time.Duration) {}

// VerifierProofVerificationTime records the time it takes to verify a proof.
func (nm NoOptMetrics) VerifierProofVerificationTime(string, time.Duration) {}

// VerifierStatusCheckTime records the time it takes to run the status checks.
func (nm NoOptMetrics) VerifierStatusCheckTime(time.Duration) {}

// VerifierIncrementResultCount increments the number of verifications with the given status.
func (nm NoOptMetrics) VerifierIncrementResultCount(string) {}

// VerifierIncrementStepResultCount increments the number of steps with the given code and status.
func (nm NoOptMetrics) VerifierIncrementStepResultCount(string, string) {}

// ExplorerLookupTime records the time it takes to look up a transaction.
func (nm NoOptMetrics) ExplorerLookupTime(string, time.Duration) {}

// ExplorerIncrementErrorCount increments the number of failed lookups.
func (nm NoOptMetrics) ExplorerIncrementErrorCount(string) {}

// IssuerResolveTime records the time it takes to resolve an issuer profile.
func (nm NoOptMetrics) IssuerResolveTime(time.Duration) {}

// IssuerIncrementCacheHitCount increments the number of issuer profile cache hits.
func (nm NoOptMetrics) IssuerIncrementCacheHitCount() {}

// DBPutTime records the time it takes to store a value.
func (nm NoOptMetrics) DBPutTime(string, time.Duration) {}

// DBGetTime records the time it takes to retrieve a value.
func (nm NoOptMetrics) DBGetTime(string, time.Duration) {}

// DBQueryTime records the time it takes to query the database.
func (nm NoOptMetrics) DBQueryTime(string, time.Duration) {}
