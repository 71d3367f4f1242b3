/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"

	. "github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics" //nolint:revive,stylecheck
)

const metricsPath = "/metrics"

var (
	createOnce sync.Once //nolint:gochecknoglobals
	instance   *PromMetrics
)

type httpServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// PromProvider is a Prometheus metrics provider. If an HTTP server is provided then it is
// started on Create and serves the metrics endpoint.
type PromProvider struct {
	httpServer httpServer
}

// NewPrometheusProvider returns a new Prometheus metrics provider.
func NewPrometheusProvider(httpServer httpServer) *PromProvider {
	return &PromProvider{httpServer: httpServer}
}

// Create starts the metrics HTTP server, if one was provided.
func (pp *PromProvider) Create() error {
	if pp.httpServer == nil {
		return nil
	}

	if err := pp.httpServer.Start(); err != nil {
		return fmt.Errorf("start metrics HTTP server: %w", err)
	}

	return nil
}

// Metrics returns the Prometheus metrics.
func (pp *PromProvider) Metrics() Metrics {
	return GetMetrics()
}

// Destroy stops the metrics HTTP server, if one was provided.
func (pp *PromProvider) Destroy() error {
	if pp.httpServer == nil {
		return nil
	}

	return pp.httpServer.Stop(context.Background())
}

// GetMetrics returns metrics implementation.
func GetMetrics() *PromMetrics {
	createOnce.Do(func() {
		instance = NewMetrics()
	})

	return instance
}

// PromMetrics manages the metrics of the verifier.
type PromMetrics struct {
	verifierInitTime         prometheus.Histogram
	verifierVerifyTime       prometheus.Histogram
	verifierProofTimes       *prometheus.HistogramVec
	verifierStatusCheckTime  prometheus.Histogram
	verifierResultCounts     *prometheus.CounterVec
	verifierStepResultCounts *prometheus.CounterVec

	explorerLookupTimes *prometheus.HistogramVec
	explorerErrorCounts *prometheus.CounterVec

	issuerResolveTime   prometheus.Histogram
	issuerCacheHitCount prometheus.Counter

	dbPutTimes   *prometheus.HistogramVec
	dbGetTimes   *prometheus.HistogramVec
	dbQueryTimes *prometheus.HistogramVec
}

// NewMetrics creates and registers the metrics. It should be called only once per registry.
func NewMetrics() *PromMetrics {
	pm := &PromMetrics{
		verifierInitTime: newHistogram(
			Verifier, VerifierInitTimeMetric,
			"The time (in seconds) that it takes to initialize the verifier for a certificate.",
		),
		verifierVerifyTime: newHistogram(
			Verifier, VerifierVerifyTimeMetric,
			"The time (in seconds) that it takes to verify a certificate.",
		),
		verifierProofTimes: newHistogramVec(
			Verifier, VerifierProofTimeMetric,
			"The time (in seconds) that it takes to verify a proof.",
			"proof_type",
		),
		verifierStatusCheckTime: newHistogram(
			Verifier, VerifierStatusCheckMetric,
			"The time (in seconds) that it takes to run the status checks of a certificate.",
		),
		verifierResultCounts: newCounterVec(
			Verifier, VerifierResultCountMetric,
			"The number of verifications by final status.",
			"status",
		),
		verifierStepResultCounts: newCounterVec(
			Verifier, VerifierStepResultCountMetric,
			"The number of verification steps by code and status.",
			"step", "status",
		),
		explorerLookupTimes: newHistogramVec(
			Explorer, ExplorerLookupTimeMetric,
			"The time (in seconds) that it takes to look up a transaction with an explorer API.",
			"explorer",
		),
		explorerErrorCounts: newCounterVec(
			Explorer, ExplorerErrorCountMetric,
			"The number of failed transaction lookups per explorer API.",
			"explorer",
		),
		issuerResolveTime: newHistogram(
			Issuer, IssuerResolveTimeMetric,
			"The time (in seconds) that it takes to resolve an issuer profile.",
		),
		issuerCacheHitCount: newCounter(
			Issuer, IssuerCacheHitCountMetric,
			"The number of issuer profiles served from the cache.",
		),
		dbPutTimes: newHistogramVec(
			DB, DBPutTimeMetric,
			"The time (in seconds) that it takes to store a value.",
			"type",
		),
		dbGetTimes: newHistogramVec(
			DB, DBGetTimeMetric,
			"The time (in seconds) that it takes to retrieve a value.",
			"type",
		),
		dbQueryTimes: newHistogramVec(
			DB, DBQueryTimeMetric,
			"The time (in seconds) that it takes to query the database.",
			"type",
		),
	}

	prometheus.MustRegister(
		pm.verifierInitTime, pm.verifierVerifyTime, pm.verifierProofTimes, pm.verifierStatusCheckTime,
		pm.verifierResultCounts, pm.verifierStepResultCounts,
		pm.explorerLookupTimes, pm.explorerErrorCounts,
		pm.issuerResolveTime, pm.issuerCacheHitCount,
		pm.dbPutTimes, pm.dbGetTimes, pm.dbQueryTimes,
	)

	return pm
}

// VerifierInitTime records the time it takes to initialize the verifier.
func (pm *PromMetrics) VerifierInitTime(value time.Duration) {
	pm.verifierInitTime.Observe(value.Seconds())
}

// VerifierVerifyTime records the time it takes to verify a certificate.
func (pm *PromMetrics) VerifierVerifyTime(value time.Duration) {
	pm.verifierVerifyTime.Observe(value.Seconds())
}

// VerifierProofVerificationTime records the time it takes to verify a proof of the given type.
func (pm *PromMetrics) VerifierProofVerificationTime(proofType string, value time.Duration) {
	pm.verifierProofTimes.WithLabelValues(proofType).Observe(value.Seconds())
}

// VerifierStatusCheckTime records the time it takes to run the status checks.
func (pm *PromMetrics) VerifierStatusCheckTime(value time.Duration) {
	pm.verifierStatusCheckTime.Observe(value.Seconds())
}

// VerifierIncrementResultCount increments the number of verifications with the given final status.
func (pm *PromMetrics) VerifierIncrementResultCount(status string) {
	pm.verifierResultCounts.WithLabelValues(status).Inc()
}

// VerifierIncrementStepResultCount increments the number of steps with the given code and status.
func (pm *PromMetrics) VerifierIncrementStepResultCount(code, status string) {
	pm.verifierStepResultCounts.WithLabelValues(code, status).Inc()
}

// ExplorerLookupTime records the time it takes to look up a transaction.
func (pm *PromMetrics) ExplorerLookupTime(explorer string, value time.Duration) {
	pm.explorerLookupTimes.WithLabelValues(explorer).Observe(value.Seconds())
}

// ExplorerIncrementErrorCount increments the number of failed lookups for the given explorer.
func (pm *PromMetrics) ExplorerIncrementErrorCount(explorer string) {
	pm.explorerErrorCounts.WithLabelValues(explorer).Inc()
}

// IssuerResolveTime records the time it takes to resolve an issuer profile.
func (pm *PromMetrics) IssuerResolveTime(value time.Duration) {
	pm.issuerResolveTime.Observe(value.Seconds())
}

// IssuerIncrementCacheHitCount increments the number of issuer profile cache hits.
func (pm *PromMetrics) IssuerIncrementCacheHitCount() {
	pm.issuerCacheHitCount.Inc()
}

// DBPutTime records the time it takes to store a value.
func (pm *PromMetrics) DBPutTime(dbType string, value time.Duration) {
	pm.dbPutTimes.WithLabelValues(dbType).Observe(value.Seconds())
}

// DBGetTime records the time it takes to retrieve a value.
func (pm *PromMetrics) DBGetTime(dbType string, value time.Duration) {
	pm.dbGetTimes.WithLabelValues(dbType).Observe(value.Seconds())
}

// DBQueryTime records the time it takes to query the database.
func (pm *PromMetrics) DBQueryTime(dbType string, value time.Duration) {
	pm.dbQueryTimes.WithLabelValues(dbType).Observe(value.Seconds())
}

// Handler serves the registered metrics.
type Handler struct {
	handler http.Handler
}

// NewHandler returns the metrics endpoint handler.
func NewHandler() *Handler {
	return &Handler{handler: promhttp.Handler()}
}

// Method returns the HTTP method.
func (h *Handler) Method() string {
	return http.MethodGet
}

// Path returns the HTTP path.
func (h *Handler) Path() string {
	return metricsPath
}

// Handler returns the HTTP handler.
func (h *Handler) Handler() common.HTTPRequestHandler {
	return h.handler.ServeHTTP
}

func newCounter(subsystem, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func newCounterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func newHistogram(subsystem, name, help string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func newHistogramVec(subsystem, name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}
