/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"
	"time"
)

// MetricsProvider implements mock metrics which count the results reported to them.
type MetricsProvider struct {
	mutex        sync.Mutex
	results      map[string]int
	stepResults  map[string]int
	lookupErrors map[string]int
	cacheHits    int
	proofTypes   []string
	dbOps        map[string]int
}

// NewMetricsProvider returns mock metrics.
func NewMetricsProvider() *MetricsProvider {
	return &MetricsProvider{
		results:      make(map[string]int),
		stepResults:  make(map[string]int),
		lookupErrors: make(map[string]int),
		dbOps:        make(map[string]int),
	}
}

// VerifierInitTime records the time it takes to initialize the verifier.
func (m *MetricsProvider) VerifierInitTime(time.Duration) {}

// VerifierVerifyTime records the time it takes to verify a certificate.
func (m *MetricsProvider) VerifierVerifyTime(time.Duration) {}

// VerifierProofVerificationTime records the proof type of each verified proof.
func (m *MetricsProvider) VerifierProofVerificationTime(proofType string, _ time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.proofTypes = append(m.proofTypes, proofType)
}

// VerifierStatusCheckTime records the time it takes to run the status checks.
func (m *MetricsProvider) VerifierStatusCheckTime(time.Duration) {}

// VerifierIncrementResultCount counts the final status.
func (m *MetricsProvider) VerifierIncrementResultCount(status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.results[status]++
}

// VerifierIncrementStepResultCount counts the step result.
func (m *MetricsProvider) VerifierIncrementStepResultCount(code, status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.stepResults[code+":"+status]++
}

// ExplorerLookupTime records the time it takes to look up a transaction.
func (m *MetricsProvider) ExplorerLookupTime(string, time.Duration) {}

// ExplorerIncrementErrorCount counts the lookup error.
func (m *MetricsProvider) ExplorerIncrementErrorCount(explorer string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.lookupErrors[explorer]++
}

// IssuerResolveTime records the time it takes to resolve an issuer profile.
func (m *MetricsProvider) IssuerResolveTime(time.Duration) {}

// IssuerIncrementCacheHitCount counts the cache hit.
func (m *MetricsProvider) IssuerIncrementCacheHitCount() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cacheHits++
}

// DBPutTime counts the put operation.
func (m *MetricsProvider) DBPutTime(dbType string, _ time.Duration) {
	m.countDBOp(dbType, "put")
}

// DBGetTime counts the get operation.
func (m *MetricsProvider) DBGetTime(dbType string, _ time.Duration) {
	m.countDBOp(dbType, "get")
}

// DBQueryTime counts the query.
func (m *MetricsProvider) DBQueryTime(dbType string, _ time.Duration) {
	m.countDBOp(dbType, "query")
}

func (m *MetricsProvider) countDBOp(dbType, op string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.dbOps[dbType+":"+op]++
}

// DBOpCount returns the number of database operations of the given kind (put, get or query).
func (m *MetricsProvider) DBOpCount(dbType, op string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.dbOps[dbType+":"+op]
}

// ResultCount returns the number of verifications completed with the given status.
func (m *MetricsProvider) ResultCount(status string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.results[status]
}

// StepResultCount returns the number of steps completed with the given code and status.
func (m *MetricsProvider) StepResultCount(code, status string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.stepResults[code+":"+status]
}

// LookupErrorCount returns the number of failed lookups for the given explorer.
func (m *MetricsProvider) LookupErrorCount(explorer string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.lookupErrors[explorer]
}

// CacheHitCount returns the number of issuer cache hits.
func (m *MetricsProvider) CacheHitCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.cacheHits
}

// ProofTypes returns the verified proof types in order.
func (m *MetricsProvider) ProofTypes() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]string(nil), m.proofTypes...)
}
