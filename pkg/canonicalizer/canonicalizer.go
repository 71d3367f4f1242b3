/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package canonicalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/cachedstore"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	ariesld "github.com/hyperledger/aries-framework-go/pkg/doc/ld"
	"github.com/hyperledger/aries-framework-go/pkg/doc/ldcontext"
	ldstore "github.com/hyperledger/aries-framework-go/pkg/store/ld"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/piprate/json-gold/ld"
	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/trustbloc/sidetree-go/pkg/canonicalizer"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

var logger = log.New("canonicalizer")

const (
	nQuadsFormat     = "application/n-quads"
	algorithmURDNA   = "URDNA2015"
	defaultLDTimeout = 30 * time.Second
	fallbackVocab    = "http://fallback.org/"
)

// ErrUnmappedFields is returned when a document contains terms which are not defined by its contexts.
var ErrUnmappedFields = errors.New("found unmapped fields during JSON-LD normalization")

var fallbackIRI = regexp.MustCompile(`<http://fallback\.org/([^>]*)>`)

// Canonicalizer produces the byte-stable serialization of a credential that is hashed by proof suites.
type Canonicalizer interface {
	Canonicalize(doc map[string]interface{}) ([]byte, error)
}

// JSON canonicalizes documents with the JSON Canonicalization Scheme. It is used for
// legacy credential versions which are hashed as literal JSON.
type JSON struct{}

// NewJSON returns a JSON canonicalizer.
func NewJSON() *JSON {
	return &JSON{}
}

// Canonicalize returns the canonical JSON bytes of the document.
func (c *JSON) Canonicalize(doc map[string]interface{}) ([]byte, error) {
	b, err := canonicalizer.MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical JSON: %w", err)
	}

	return b, nil
}

// LD canonicalizes documents with the URDNA2015 RDF dataset normalization algorithm. Terms which are
// not defined by the document's contexts are expanded with a fallback vocabulary so that they are
// detected instead of being dropped from the normalized dataset.
type LD struct {
	loader ld.DocumentLoader
}

// LDOption is an option for the JSON-LD canonicalizer.
type LDOption func(c *ldOptions)

type ldOptions struct {
	loader          ld.DocumentLoader
	httpClient      *http.Client
	storageProvider storage.Provider
	contexts        []ldcontext.Document
	contextErr      error
}

// WithDocumentLoader sets the loader used to dereference contexts. The default loader serves the
// contexts embedded in the aries framework along with the contexts given with WithContext, and
// keeps the contexts it fetches in the storage provider.
func WithDocumentLoader(loader ld.DocumentLoader) LDOption {
	return func(o *ldOptions) {
		o.loader = loader
	}
}

// WithHTTPClient sets the HTTP client used to fetch remote contexts.
func WithHTTPClient(client *http.Client) LDOption {
	return func(o *ldOptions) {
		o.httpClient = client
	}
}

// WithStorageProvider sets the provider of the context store. Defaults to an in-memory store.
func WithStorageProvider(provider storage.Provider) LDOption {
	return func(o *ldOptions) {
		o.storageProvider = provider
	}
}

// WithContext preloads the given context document so that it is never fetched.
func WithContext(url string, doc interface{}) LDOption {
	return func(o *ldOptions) {
		content, err := json.Marshal(doc)
		if err != nil {
			o.contextErr = fmt.Errorf("marshal context [%s]: %w", url, err)

			return
		}

		o.contexts = append(o.contexts, ldcontext.Document{URL: url, Content: content})
	}
}

// WithContextDocuments preloads the given context documents.
func WithContextDocuments(docs ...ldcontext.Document) LDOption {
	return func(o *ldOptions) {
		o.contexts = append(o.contexts, docs...)
	}
}

// NewLD returns a JSON-LD canonicalizer.
func NewLD(opts ...LDOption) (*LD, error) {
	options := &ldOptions{
		httpClient: &http.Client{Timeout: defaultLDTimeout},
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.contextErr != nil {
		return nil, options.contextErr
	}

	if options.loader != nil {
		if len(options.contexts) > 0 {
			logger.Warn("Preloaded contexts are ignored since a custom document loader was provided",
				logfields.WithSize(len(options.contexts)))
		}

		return &LD{loader: options.loader}, nil
	}

	loader, err := newDocumentLoader(options)
	if err != nil {
		return nil, err
	}

	return &LD{loader: loader}, nil
}

func newDocumentLoader(options *ldOptions) (*ariesld.DocumentLoader, error) {
	var provider storage.Provider = mem.NewProvider()

	if options.storageProvider != nil {
		provider = cachedstore.NewProvider(options.storageProvider, mem.NewProvider())
	}

	contextStore, err := ldstore.NewContextStore(provider)
	if err != nil {
		return nil, fmt.Errorf("create JSON-LD context store: %w", err)
	}

	remoteProviderStore, err := ldstore.NewRemoteProviderStore(provider)
	if err != nil {
		return nil, fmt.Errorf("create remote provider store: %w", err)
	}

	loader, err := ariesld.NewDocumentLoader(
		&ldStoreProvider{contextStore: contextStore, remoteProviderStore: remoteProviderStore},
		ariesld.WithExtraContexts(options.contexts...),
		ariesld.WithRemoteDocumentLoader(ld.NewDefaultDocumentLoader(options.httpClient)),
	)
	if err != nil {
		return nil, fmt.Errorf("new document loader: %w", err)
	}

	logger.Debug("Created JSON-LD document loader", logfields.WithSize(len(options.contexts)))

	return loader, nil
}

// Canonicalize returns the normalized N-Quads of the document. ErrUnmappedFields is returned if
// the document contains terms which are not defined by its contexts.
func (c *LD) Canonicalize(doc map[string]interface{}) ([]byte, error) {
	options := ld.NewJsonLdOptions("")
	options.ProcessingMode = ld.JsonLd_1_1
	options.DocumentLoader = c.loader
	options.ExpandContext = map[string]interface{}{
		"@vocab": fallbackVocab,
	}

	rdf, err := ld.NewJsonLdProcessor().ToRDF(doc, options)
	if err != nil {
		return nil, fmt.Errorf("normalize JSON-LD document: %w", err)
	}

	dataset, ok := rdf.(*ld.RDFDataset)
	if !ok {
		return nil, fmt.Errorf("unexpected RDF dataset type: %T", rdf)
	}

	options.Algorithm = algorithmURDNA
	options.Format = nQuadsFormat

	view, err := ld.NewJsonLdApi().Normalize(dataset, options)
	if err != nil {
		return nil, fmt.Errorf("normalize JSON-LD document: %w", err)
	}

	nquads, ok := view.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected normalized view type: %T", view)
	}

	if fields := unmappedFields(nquads); len(fields) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnmappedFields, strings.Join(fields, ", "))
	}

	return []byte(nquads), nil
}

// unmappedFields returns the sorted names of the terms that were expanded with the fallback vocabulary.
func unmappedFields(nquads string) []string {
	matches := fallbackIRI.FindAllStringSubmatch(nquads, -1)
	if len(matches) == 0 {
		return nil
	}

	names := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		names[m[1]] = struct{}{}
	}

	fields := make([]string, 0, len(names))

	for name := range names {
		fields = append(fields, name)
	}

	sort.Strings(fields)

	return fields
}

type ldStoreProvider struct {
	contextStore        ldstore.ContextStore
	remoteProviderStore ldstore.RemoteProviderStore
}

func (p *ldStoreProvider) JSONLDContextStore() ldstore.ContextStore {
	return p.contextStore
}

func (p *ldStoreProvider) JSONLDRemoteProviderStore() ldstore.RemoteProviderStore {
	return p.remoteProviderStore
}
