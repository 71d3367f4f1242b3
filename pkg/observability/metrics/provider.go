/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"time"
)

// Constants used by different metrics provider.
const (
	// Namespace Organization namespace.
	Namespace = "blockcerts"

	// Verifier Verification engine.
	Verifier                      = "verifier"
	VerifierInitTimeMetric        = "init_seconds"
	VerifierVerifyTimeMetric      = "verify_seconds"
	VerifierProofTimeMetric       = "proof_verification_seconds"
	VerifierStatusCheckMetric     = "status_check_seconds"
	VerifierResultCountMetric     = "result_count"
	VerifierStepResultCountMetric = "step_result_count"

	// Explorer Blockchain explorer lookups.
	Explorer                 = "explorer"
	ExplorerLookupTimeMetric = "lookup_seconds"
	ExplorerErrorCountMetric = "error_count"

	// Issuer Issuer profile resolution.
	Issuer                    = "issuer"
	IssuerResolveTimeMetric   = "resolve_seconds"
	IssuerCacheHitCountMetric = "cache_hit_count"

	// DB Database operations.
	DB                = "db"
	DBPutTimeMetric   = "put_seconds"
	DBGetTimeMetric   = "get_seconds"
	DBQueryTimeMetric = "query_seconds"
)

// Provider is an interface for metrics provider.
type Provider interface {
	// Create creates a metrics provider instance
	Create() error
	// Destroy destroys the metrics provider instance
	Destroy() error
	// Metrics providers metrics
	Metrics() Metrics
}

// Metrics is an interface for the metrics to be supported by the provider.
type Metrics interface {
	VerifierInitTime(value time.Duration)
	VerifierVerifyTime(value time.Duration)
	VerifierProofVerificationTime(proofType string, value time.Duration)
	VerifierStatusCheckTime(value time.Duration)
	VerifierIncrementResultCount(status string)
	VerifierIncrementStepResultCount(code, status string)
	ExplorerLookupTime(explorer string, value time.Duration)
	ExplorerIncrementErrorCount(explorer string)
	IssuerResolveTime(value time.Duration)
	IssuerIncrementCacheHitCount()
	DBPutTime(dbType string, value time.Duration)
	DBGetTime(dbType string, value time.Duration)
	DBQueryTime(dbType string, value time.Duration)
}
