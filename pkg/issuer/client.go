/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	bcerrors "github.com/trustbloc/blockcerts-verifier/pkg/errors"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics/noop"
)

var logger = log.New("issuer")

const (
	defaultCacheLifetime   = 5 * time.Minute
	defaultCacheSize       = 100
	defaultMaxRetries      = 3
	defaultInitialInterval = 250 * time.Millisecond
	defaultMaxInterval     = 2 * time.Second
	defaultTimeout         = 15 * time.Second
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type metricsProvider interface {
	IssuerResolveTime(value time.Duration)
	IssuerIncrementCacheHitCount()
}

type options struct {
	httpClient      httpClient
	metrics         metricsProvider
	cacheLifetime   time.Duration
	cacheSize       int
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

// Option is a resolver/fetcher option.
type Option func(opts *options)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client httpClient) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithCache sets the cache size and the default cache lifetime. The lifetime is used when
// the server does not return a Cache-Control max-age.
func WithCache(size int, lifetime time.Duration) Option {
	return func(opts *options) {
		opts.cacheSize = size
		opts.cacheLifetime = lifetime
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(m metricsProvider) Option {
	return func(opts *options) {
		opts.metrics = m
	}
}

// WithMaxRetries sets the number of retries for transient errors.
func WithMaxRetries(value uint64) Option {
	return func(opts *options) {
		opts.maxRetries = value
	}
}

// WithBackoff sets the initial and maximum retry intervals.
func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(opts *options) {
		opts.initialInterval = initial
		opts.maxInterval = maxInterval
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		httpClient:      &http.Client{Timeout: defaultTimeout},
		cacheLifetime:   defaultCacheLifetime,
		cacheSize:       defaultCacheSize,
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		metrics:         &noop.NoOptMetrics{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

type response struct {
	body         []byte
	cacheControl string
}

func (o *options) get(ctx context.Context, targetURL string) (*response, error) {
	var resp *response

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.initialInterval
	b.MaxInterval = o.maxInterval

	err := backoff.RetryNotify(
		func() error {
			r, err := o.doGet(ctx, targetURL)
			if err != nil {
				if bcerrors.IsTransient(err) {
					return err
				}

				return backoff.Permanent(err)
			}

			resp = r

			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(b, o.maxRetries), ctx),
		func(err error, d time.Duration) {
			logger.Debug("Transient error, retrying", log.WithError(err),
				logfields.WithRequestURL(targetURL), logfields.WithBackoff(d))
		},
	)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (o *options) doGet(ctx context.Context, targetURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Accept", "application/json, application/ld+json")

	httpResp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, bcerrors.NewTransientf("failed to get response (URL: %s): %w", targetURL, err)
	}

	defer func() {
		if e := httpResp.Body.Close(); e != nil {
			logfields.CloseResponseBodyError(logger, e)
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, bcerrors.NewTransientf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		logger.Debug("Unexpected HTTP status", logfields.WithRequestURL(targetURL),
			logfields.WithHTTPStatus(httpResp.StatusCode), logfields.WithResponse(body))

		if httpResp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", targetURL, bcerrors.ErrContentNotFound)
		}

		e := fmt.Errorf("status code %d from %s", httpResp.StatusCode, targetURL)

		if httpResp.StatusCode >= http.StatusInternalServerError || httpResp.StatusCode == http.StatusTooManyRequests {
			return nil, bcerrors.NewTransient(e)
		}

		return nil, e
	}

	return &response{body: body, cacheControl: httpResp.Header.Get("Cache-Control")}, nil
}

// maxAge returns the max-age directive of a Cache-Control header, or the given default.
func maxAge(cacheControl string, defaultValue time.Duration) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)

		if strings.EqualFold(directive, "no-store") || strings.EqualFold(directive, "no-cache") {
			return 0
		}

		value, ok := cutPrefixFold(directive, "max-age=")
		if !ok {
			continue
		}

		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			logger.Debug("Invalid max-age in Cache-Control header", logfields.WithParameter(cacheControl))

			return defaultValue
		}

		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}

	return s[len(prefix):], true
}
