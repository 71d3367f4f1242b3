/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package didresolver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/hyperledger/aries-framework-go/pkg/doc/did"
	vdrapi "github.com/hyperledger/aries-framework-go/pkg/framework/aries/api/vdr"
	"github.com/hyperledger/aries-framework-go/pkg/vdr/httpbinding"
	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	bcerrors "github.com/trustbloc/blockcerts-verifier/pkg/errors"
	"github.com/trustbloc/blockcerts-verifier/pkg/internal/cacheutil"
)

var logger = log.New("did-resolver")

const (
	defaultCacheLifetime = 10 * time.Minute
	defaultCacheSize     = 100
	defaultTimeout       = 20 * time.Second

	// DefaultResolverURL is the universal resolver endpoint used when none is configured.
	DefaultResolverURL = "https://dev.uniresolver.io/1.0/identifiers"
)

// ErrVerificationMethodNotFound is returned when the DID document has no matching verification method.
var ErrVerificationMethodNotFound = errors.New("verification method not found")

// ErrUnsupportedCurve is returned when a verification method's key is not a secp256k1 key.
var ErrUnsupportedCurve = errors.New("unsupported key curve: expecting secp256k1")

// Resolver resolves DID documents.
type Resolver interface {
	Resolve(ctx context.Context, didID string) (*did.Doc, error)
}

type vdr interface {
	Read(didID string, opts ...vdrapi.DIDMethodOption) (*did.DocResolution, error)
}

// Client resolves DIDs against a universal resolver using the HTTP binding VDR.
type Client struct {
	vdr           vdr
	cacheLifetime time.Duration
	cacheSize     int
	cache         gcache.Cache
}

type options struct {
	httpClient    *http.Client
	timeout       time.Duration
	cacheLifetime time.Duration
	cacheSize     int
	vdr           vdr
}

// Option is a DID resolver option.
type Option func(opts *options)

// WithHTTPClient sets the HTTP client used by the VDR.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithTimeout sets the resolution timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}

// WithCache sets the size and the lifetime of the DID document cache.
func WithCache(size int, lifetime time.Duration) Option {
	return func(opts *options) {
		opts.cacheSize = size
		opts.cacheLifetime = lifetime
	}
}

// WithVDR overrides the VDR (used in tests).
func WithVDR(v vdr) Option {
	return func(opts *options) {
		opts.vdr = v
	}
}

// New returns a DID resolver for the given universal resolver endpoint.
func New(resolverURL string, opts ...Option) (*Client, error) {
	o := &options{
		httpClient:    &http.Client{},
		timeout:       defaultTimeout,
		cacheLifetime: defaultCacheLifetime,
		cacheSize:     defaultCacheSize,
	}

	for _, opt := range opts {
		opt(o)
	}

	v := o.vdr

	if v == nil {
		if resolverURL == "" {
			resolverURL = DefaultResolverURL
		}

		hv, err := httpbinding.New(resolverURL,
			httpbinding.WithHTTPClient(o.httpClient),
			httpbinding.WithTimeout(o.timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("create HTTP binding VDR for [%s]: %w", resolverURL, err)
		}

		v = hv
	}

	c := &Client{
		vdr:           v,
		cacheLifetime: o.cacheLifetime,
		cacheSize:     o.cacheSize,
	}

	c.cache = cacheutil.MakeCache(c.cacheSize, func(didID string) (cacheutil.Cacheable, error) {
		return c.read(didID)
	})

	logger.Debug("Created DID resolver", logfields.WithServiceEndpoint(resolverURL))

	return c, nil
}

// Resolve returns the DID document for the given DID. A DID URL (with a fragment) resolves to the
// document of the DID.
func (c *Client) Resolve(ctx context.Context, didID string) (*did.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(didID, "did:") {
		return nil, fmt.Errorf("invalid DID [%s]", didID)
	}

	v, err := c.cache.Get(BaseDID(didID))
	if err != nil {
		return nil, err
	}

	return v.(*cachedDoc).doc, nil //nolint:forcetypeassert
}

type cachedDoc struct {
	doc      *did.Doc
	lifetime time.Duration
}

func (d *cachedDoc) CacheLifetime() time.Duration {
	return d.lifetime
}

func (c *Client) read(didID string) (*cachedDoc, error) {
	res, err := c.vdr.Read(didID)
	if err != nil {
		if errors.Is(err, vdrapi.ErrNotFound) {
			return nil, fmt.Errorf("resolve DID [%s]: %w", didID, bcerrors.ErrContentNotFound)
		}

		return nil, bcerrors.NewTransientf("resolve DID [%s]: %w", didID, err)
	}

	if res == nil || res.DIDDocument == nil {
		return nil, fmt.Errorf("resolve DID [%s]: empty document", didID)
	}

	logger.Debug("Resolved DID document", logfields.WithDID(didID))

	return &cachedDoc{doc: res.DIDDocument, lifetime: c.cacheLifetime}, nil
}

// BaseDID strips the fragment, query and path from a DID URL.
func BaseDID(didURL string) string {
	if i := strings.IndexAny(didURL, "#?/"); i >= 0 {
		return didURL[:i]
	}

	return didURL
}

// FindVerificationMethod returns the verification method of the document identified by the given DID URL.
// Relative IDs ("#key-1") in the document are resolved against the document ID.
func FindVerificationMethod(doc *did.Doc, vmID string) (*did.VerificationMethod, error) {
	fragment := vmID
	if i := strings.Index(vmID, "#"); i >= 0 {
		fragment = vmID[i:]
	}

	for i := range doc.VerificationMethod {
		vm := &doc.VerificationMethod[i]

		if vm.ID == vmID || vm.ID == fragment || doc.ID+vm.ID == vmID {
			return vm, nil
		}
	}

	return nil, fmt.Errorf("%w [%s]", ErrVerificationMethodNotFound, vmID)
}

// PublicKey returns the secp256k1 public key of the given verification method, taken from its JWK if
// present or from its raw value otherwise.
func PublicKey(vm *did.VerificationMethod) (*btcec.PublicKey, error) {
	if k := vm.JSONWebKey(); k != nil {
		if pk, ok := k.Key.(*ecdsa.PublicKey); ok {
			if !isSecp256k1(pk.Curve) {
				return nil, fmt.Errorf("%w: verification method [%s] has a JWK on curve %s",
					ErrUnsupportedCurve, vm.ID, curveName(pk.Curve))
			}

			return (*btcec.PublicKey)(pk), nil
		}
	}

	if len(vm.Value) == 0 {
		return nil, fmt.Errorf("verification method [%s] has no public key", vm.ID)
	}

	pk, err := btcec.ParsePubKey(vm.Value, btcec.S256())
	if err != nil {
		return nil, fmt.Errorf("parse secp256k1 key of verification method [%s]: %w", vm.ID, err)
	}

	return pk, nil
}

func isSecp256k1(curve elliptic.Curve) bool {
	if curve == nil {
		return false
	}

	params, s256 := curve.Params(), btcec.S256().Params()

	return params.P.Cmp(s256.P) == 0 && params.N.Cmp(s256.N) == 0 && params.B.Cmp(s256.B) == 0 &&
		params.Gx.Cmp(s256.Gx) == 0 && params.Gy.Cmp(s256.Gy) == 0
}

func curveName(curve elliptic.Curve) string {
	if curve == nil || curve.Params().Name == "" {
		return "unknown"
	}

	return curve.Params().Name
}

// AddressFromVerificationMethod derives the P2PKH address of the verification method's key for the
// given bitcoin network.
func AddressFromVerificationMethod(vm *did.VerificationMethod, params *chaincfg.Params) (string, error) {
	if params == nil {
		return "", fmt.Errorf("address derivation is only supported for bitcoin chains")
	}

	pk, err := PublicKey(vm)
	if err != nil {
		return "", err
	}

	addr, err := btcutil.NewAddressPubKey(pk.SerializeCompressed(), params)
	if err != nil {
		return "", fmt.Errorf("derive address: %w", err)
	}

	return addr.AddressPubKeyHash().EncodeAddress(), nil
}
