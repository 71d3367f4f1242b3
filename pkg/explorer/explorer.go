/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/cenkalti/backoff/v4"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	bcerrors "github.com/trustbloc/blockcerts-verifier/pkg/errors"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics/noop"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/tracing"
)

var logger = log.New("explorer")

const (
	defaultCacheLifetime   = 10 * time.Minute
	defaultCacheSize       = 500
	defaultMaxRetries      = 3
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second
	defaultTimeout         = 20 * time.Second

	// TransactionIDPlaceholder is replaced with the transaction ID in an API's service URL.
	TransactionIDPlaceholder = "{transaction_id}"
)

// ErrNotConfirmed is returned when the transaction exists but has not yet been included in a block.
var ErrNotConfirmed = errors.New("transaction not confirmed")

// ErrNoAPI is returned when no explorer API is configured for the requested chain.
var ErrNoAPI = errors.New("no explorer API configured for chain")

// TransactionData contains the data extracted from an anchoring transaction.
type TransactionData struct {
	RemoteHash       string    `json:"remoteHash"`
	IssuingAddress   string    `json:"issuingAddress"`
	Time             time.Time `json:"time"`
	RevokedAddresses []string  `json:"revokedAddresses,omitempty"`
}

// Lookup looks up an anchoring transaction on a blockchain.
type Lookup interface {
	LookForTx(ctx context.Context, txID string, bc *chain.Blockchain) (*TransactionData, error)
}

// ParseFunc extracts transaction data from an explorer response body.
type ParseFunc func(body []byte) (*TransactionData, error)

// API describes an explorer service.
type API struct {
	Name string

	// ServiceURLs maps a chain to the URL template of the transaction endpoint.
	ServiceURLs map[chain.Code]string

	// Priority orders APIs. Lower values are tried first.
	Priority int

	Parse ParseFunc
}

func (a *API) serviceURL(code chain.Code, txID string) (string, bool) {
	u, ok := a.ServiceURLs[code]
	if !ok || u == "" {
		return "", false
	}

	return strings.ReplaceAll(u, TransactionIDPlaceholder, txID), true
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type metricsProvider interface {
	ExplorerLookupTime(explorer string, value time.Duration)
	ExplorerIncrementErrorCount(explorer string)
}

// Client looks up transactions using an ordered list of explorer APIs.
type Client struct {
	httpClient      httpClient
	metrics         metricsProvider
	tracer          trace.Tracer
	apis            []*API
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	cacheLifetime   time.Duration
	cacheSize       int
	cache           gcache.Cache
}

// Option is a Client option.
type Option func(opts *Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client httpClient) Option {
	return func(opts *Client) {
		opts.httpClient = client
	}
}

// WithAPIs adds explorer APIs to the default ones.
func WithAPIs(apis ...*API) Option {
	return func(opts *Client) {
		opts.apis = append(opts.apis, apis...)
	}
}

// WithoutDefaultAPIs removes the built-in explorer APIs. It must precede WithAPIs.
func WithoutDefaultAPIs() Option {
	return func(opts *Client) {
		opts.apis = nil
	}
}

// WithMaxRetries sets the number of retries for transient errors on a single API.
func WithMaxRetries(value uint64) Option {
	return func(opts *Client) {
		opts.maxRetries = value
	}
}

// WithBackoff sets the initial and maximum retry intervals.
func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(opts *Client) {
		opts.initialInterval = initial
		opts.maxInterval = maxInterval
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(m metricsProvider) Option {
	return func(opts *Client) {
		opts.metrics = m
	}
}

// WithTracer sets the tracer of the explorer lookups.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *Client) {
		opts.tracer = tracer
	}
}

// WithCache sets the size and lifetime of the transaction cache.
func WithCache(size int, lifetime time.Duration) Option {
	return func(opts *Client) {
		opts.cacheSize = size
		opts.cacheLifetime = lifetime
	}
}

// New returns a new explorer client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: defaultTimeout},
		apis:            DefaultAPIs(),
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		cacheLifetime:   defaultCacheLifetime,
		cacheSize:       defaultCacheSize,
		metrics:         &noop.NoOptMetrics{},
		tracer:          tracing.Tracer(tracing.SubsystemExplorer),
	}

	for _, opt := range opts {
		opt(c)
	}

	sort.SliceStable(c.apis, func(i, j int) bool {
		return c.apis[i].Priority < c.apis[j].Priority
	})

	c.cache = gcache.New(c.cacheSize).ARC().Expiration(c.cacheLifetime).Build()

	return c
}

// LookForTx returns the data of the given transaction. Each API serving the chain is tried in priority
// order and the first successful response is returned.
func (c *Client) LookForTx(ctx context.Context, txID string, bc *chain.Blockchain) (*TransactionData, error) {
	if bc == nil {
		return nil, fmt.Errorf("chain is required")
	}

	if bc.IsMockChain() {
		return nil, fmt.Errorf("transactions cannot be looked up on mock chain [%s]", bc.Code)
	}

	key := string(bc.Code) + ":" + txID

	if v, err := c.cache.Get(key); err == nil {
		return v.(*TransactionData), nil //nolint:forcetypeassert
	}

	var lastErr error

	tried := 0

	for _, api := range c.apis {
		serviceURL, ok := api.serviceURL(bc.Code, txID)
		if !ok {
			continue
		}

		tried++

		start := time.Now()

		data, err := c.tracedLookup(ctx, api, serviceURL, txID, bc)

		c.metrics.ExplorerLookupTime(api.Name, time.Since(start))

		if err != nil {
			c.metrics.ExplorerIncrementErrorCount(api.Name)

			logger.Info("Explorer lookup failed, trying next explorer", log.WithError(err),
				logfields.WithExplorer(api.Name), logfields.WithTransactionID(txID), logfields.WithChain(bc.String()),
				logfields.WithRetries(int(c.maxRetries)))

			lastErr = err

			continue
		}

		if err := c.cache.Set(key, data); err != nil {
			logger.Warn("Error caching transaction data", log.WithError(err), logfields.WithTransactionID(txID))
		}

		return data, nil
	}

	if tried == 0 {
		return nil, fmt.Errorf("%w [%s]", ErrNoAPI, bc.Code)
	}

	return nil, fmt.Errorf("look up transaction [%s] on chain [%s]: %w", txID, bc.Code, lastErr)
}

func (c *Client) tracedLookup(ctx context.Context, api *API, serviceURL, txID string,
	bc *chain.Blockchain) (*TransactionData, error) {
	ctx, span := c.tracer.Start(ctx, "explorer lookup",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			tracing.ExplorerAttribute(api.Name),
			tracing.ChainAttribute(string(bc.Code)),
			tracing.TransactionIDAttribute(txID),
		),
	)
	defer span.End()

	data, err := c.lookup(ctx, api, serviceURL, bc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return data, err
}

func (c *Client) lookup(ctx context.Context, api *API, serviceURL string,
	bc *chain.Blockchain) (*TransactionData, error) {
	var data *TransactionData

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval

	err := backoff.RetryNotify(
		func() error {
			body, err := c.get(ctx, serviceURL)
			if err != nil {
				if bcerrors.IsTransient(err) {
					return err
				}

				return backoff.Permanent(err)
			}

			data, err = api.Parse(body)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("parse response from %s: %w", api.Name, err))
			}

			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx),
		func(err error, d time.Duration) {
			logger.Debug("Transient error looking up transaction, retrying", log.WithError(err),
				logfields.WithExplorer(api.Name), logfields.WithBackoff(d))
		},
	)
	if err != nil {
		return nil, err
	}

	data.RemoteHash = bc.StripHashPrefix(data.RemoteHash)

	return data, nil
}

func (c *Client) get(ctx context.Context, serviceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, bcerrors.NewTransientf("failed to get response (URL: %s): %w", serviceURL, err)
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			logfields.CloseResponseBodyError(logger, e)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, bcerrors.NewTransientf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("transaction at %s: %w", serviceURL, bcerrors.ErrContentNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, bcerrors.NewTransientf("explorer returned status %d: %s", resp.StatusCode, body)
	default:
		return nil, fmt.Errorf("explorer returned status %d: %s", resp.StatusCode, body)
	}
}
