/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"fmt"
	"sync"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/blockcerts-verifier/pkg/canonicalizer"
	"github.com/trustbloc/blockcerts-verifier/pkg/didresolver"
	"github.com/trustbloc/blockcerts-verifier/pkg/explorer"
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics/noop"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/tracing"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
)

type metricsProvider interface {
	VerifierInitTime(value time.Duration)
	VerifierVerifyTime(value time.Duration)
	VerifierProofVerificationTime(proofType string, value time.Duration)
	VerifierStatusCheckTime(value time.Duration)
	VerifierIncrementResultCount(status string)
	VerifierIncrementStepResultCount(code, status string)
}

// options holds the engine configuration. Unset collaborators are replaced with the defaults
// documented on each option.
type options struct {
	locale            string
	statusChecks      []steps.Code
	lookup            explorer.Lookup
	issuerResolver    issuer.ProfileResolver
	didResolver       didresolver.Resolver
	revocationFetcher issuer.RevocationFetcher
	jsonCanonicalizer canonicalizer.Canonicalizer
	ldCanonicalizer   canonicalizer.Canonicalizer
	clock             func() time.Time
	metrics           metricsProvider
	tracer            trace.Tracer
}

// Option is an engine option.
type Option func(opts *options)

// WithLocale sets the locale of labels and messages. Defaults to "auto" which resolves to en-US.
func WithLocale(locale string) Option {
	return func(opts *options) {
		opts.locale = locale
	}
}

// WithStatusChecks sets the status-check substeps run after proof verification, in order.
// Defaults to checkRevokedStatus followed by checkExpiresDate.
func WithStatusChecks(codes ...steps.Code) Option {
	return func(opts *options) {
		opts.statusChecks = codes
	}
}

// WithTransactionLookup sets the blockchain transaction lookup. Defaults to an explorer client
// using the public explorer APIs.
func WithTransactionLookup(lookup explorer.Lookup) Option {
	return func(opts *options) {
		opts.lookup = lookup
	}
}

// WithIssuerResolver sets the issuer profile resolver. Defaults to an HTTP resolver.
func WithIssuerResolver(resolver issuer.ProfileResolver) Option {
	return func(opts *options) {
		opts.issuerResolver = resolver
	}
}

// WithDIDResolver sets the DID resolver. Defaults to a universal resolver client.
func WithDIDResolver(resolver didresolver.Resolver) Option {
	return func(opts *options) {
		opts.didResolver = resolver
	}
}

// WithRevocationFetcher sets the revocation list fetcher. Defaults to an HTTP client.
func WithRevocationFetcher(fetcher issuer.RevocationFetcher) Option {
	return func(opts *options) {
		opts.revocationFetcher = fetcher
	}
}

// WithJSONCanonicalizer sets the canonicalizer of legacy (v1.x) documents. Defaults to literal JSON.
func WithJSONCanonicalizer(c canonicalizer.Canonicalizer) Option {
	return func(opts *options) {
		opts.jsonCanonicalizer = c
	}
}

// WithLDCanonicalizer sets the canonicalizer of linked data documents. Defaults to URDNA2015.
func WithLDCanonicalizer(c canonicalizer.Canonicalizer) Option {
	return func(opts *options) {
		opts.ldCanonicalizer = c
	}
}

// WithClock sets the clock used for expiry and key validity checks. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(opts *options) {
		opts.clock = clock
	}
}

// WithMetrics sets the metrics provider. Defaults to no-op metrics.
func WithMetrics(m metricsProvider) Option {
	return func(opts *options) {
		opts.metrics = m
	}
}

// WithTracer sets the tracer. Defaults to the verifier tracer of the global tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) {
		opts.tracer = tracer
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		locale:       i18n.LocaleAuto,
		statusChecks: steps.DefaultStatusChecks,
		clock:        time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.lookup == nil {
		o.lookup = explorer.New()
	}

	if o.issuerResolver == nil {
		o.issuerResolver = issuer.NewResolver()
	}

	if o.revocationFetcher == nil {
		o.revocationFetcher = issuer.NewRevocationClient()
	}

	if o.didResolver == nil {
		r, err := didresolver.New(didresolver.DefaultResolverURL)
		if err != nil {
			logger.Warn("Unable to create the default DID resolver. DID verification methods will fail.",
				log.WithError(err))
		} else {
			o.didResolver = r
		}
	}

	if o.jsonCanonicalizer == nil {
		o.jsonCanonicalizer = canonicalizer.NewJSON()
	}

	if o.ldCanonicalizer == nil {
		o.ldCanonicalizer = defaultLDCanonicalizer()
	}

	if o.metrics == nil {
		o.metrics = &noop.NoOptMetrics{}
	}

	if o.tracer == nil {
		o.tracer = tracing.Tracer(tracing.SubsystemVerifier)
	}

	return o
}

//nolint:gochecknoglobals
var (
	ldCanonicalizerOnce sync.Once
	ldCanonicalizer     canonicalizer.Canonicalizer
)

// defaultLDCanonicalizer returns the JSON-LD canonicalizer shared by engines which were not given one,
// so that the contexts it loads are fetched once per process.
func defaultLDCanonicalizer() canonicalizer.Canonicalizer {
	ldCanonicalizerOnce.Do(func() {
		c, err := canonicalizer.NewLD()
		if err != nil {
			logger.Warn("Unable to create the default JSON-LD canonicalizer. Linked data proofs will fail.",
				log.WithError(err))

			ldCanonicalizer = &failedCanonicalizer{err: err}

			return
		}

		ldCanonicalizer = c
	})

	return ldCanonicalizer
}

type failedCanonicalizer struct {
	err error
}

func (c *failedCanonicalizer) Canonicalize(map[string]interface{}) ([]byte, error) {
	return nil, fmt.Errorf("JSON-LD canonicalizer unavailable: %w", c.err)
}
