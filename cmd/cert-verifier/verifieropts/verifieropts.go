/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifieropts

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/doc/ldcontext"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/spf13/cobra"

	"github.com/trustbloc/blockcerts-verifier/internal/pkg/cmdutil"
	"github.com/trustbloc/blockcerts-verifier/internal/pkg/tlsutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/canonicalizer"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/didresolver"
	"github.com/trustbloc/blockcerts-verifier/pkg/explorer"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
)

const (
	// CommonEnvVarUsageText is appended to the usage of each flag.
	CommonEnvVarUsageText = "Alternatively, this can be set with the following environment variable: "

	didResolverURLFlagName  = "did-resolver-url"
	didResolverURLEnvKey    = "BLOCKCERTS_DID_RESOLVER_URL"
	didResolverURLFlagUsage = "The URL of the universal resolver used to resolve the DIDs of issuers. " +
		CommonEnvVarUsageText + didResolverURLEnvKey

	statusChecksFlagName  = "status-checks"
	statusChecksEnvKey    = "BLOCKCERTS_STATUS_CHECKS"
	statusChecksFlagUsage = "Comma-separated status checks run after the proofs are verified. " +
		"Defaults to checkRevokedStatus,checkExpiresDate. " + CommonEnvVarUsageText + statusChecksEnvKey

	esploraAPIFlagName  = "esplora-api"
	esploraAPIEnvKey    = "BLOCKCERTS_ESPLORA_API"
	esploraAPIFlagUsage = "An Esplora transaction endpoint for a chain, in the format chain=URL where the URL contains " +
		"the placeholder " + explorer.TransactionIDPlaceholder + ". For example, " +
		"bitcoin=https://esplora.example.com/api/tx/" + explorer.TransactionIDPlaceholder +
		". These endpoints are tried before the built-in explorers. " + CommonEnvVarUsageText + esploraAPIEnvKey

	disableDefaultExplorersFlagName  = "disable-default-explorers"
	disableDefaultExplorersEnvKey    = "BLOCKCERTS_DISABLE_DEFAULT_EXPLORERS"
	disableDefaultExplorersFlagUsage = "Set to true to use only the configured Esplora endpoints. " +
		CommonEnvVarUsageText + disableDefaultExplorersEnvKey

	explorerMaxRetriesFlagName  = "explorer-max-retries"
	explorerMaxRetriesEnvKey    = "BLOCKCERTS_EXPLORER_MAX_RETRIES"
	explorerMaxRetriesFlagUsage = "The maximum number of retries of an explorer request that failed with a " +
		"transient error. " + CommonEnvVarUsageText + explorerMaxRetriesEnvKey

	httpTimeoutFlagName  = "http-timeout"
	httpTimeoutEnvKey    = "BLOCKCERTS_HTTP_TIMEOUT"
	httpTimeoutFlagUsage = "The timeout of outbound HTTP requests. Defaults to 20s. " +
		CommonEnvVarUsageText + httpTimeoutEnvKey

	tlsSystemCertPoolFlagName  = "tls-systemcertpool"
	tlsSystemCertPoolEnvKey    = "BLOCKCERTS_TLS_SYSTEMCERTPOOL"
	tlsSystemCertPoolFlagUsage = "Use the system certificate pool. Possible values [true] [false]. " +
		"Defaults to true. " + CommonEnvVarUsageText + tlsSystemCertPoolEnvKey

	tlsCACertsFlagName  = "tls-cacerts"
	tlsCACertsEnvKey    = "BLOCKCERTS_TLS_CACERTS"
	tlsCACertsFlagUsage = "Comma-separated list of CA certificate files. " + CommonEnvVarUsageText + tlsCACertsEnvKey

	ldContextFileFlagName  = "ld-context-file"
	ldContextFileEnvKey    = "BLOCKCERTS_LD_CONTEXT_FILE"
	ldContextFileFlagUsage = "Comma-separated list of JSON files, each holding a JSON-LD context document " +
		`in the format {"url": "...", "documentURL": "...", "content": {...}}. These contexts are preloaded ` +
		"and are never fetched. " + CommonEnvVarUsageText + ldContextFileEnvKey

	defaultHTTPTimeout        = 20 * time.Second
	defaultExplorerMaxRetries = 3
	esploraAPIName            = "esplora"
)

// Parameters holds the settings of the collaborators of the verifier.
type Parameters struct {
	DIDResolverURL          string
	StatusChecks            []steps.Code
	EsploraAPIs             map[chain.Code]string
	DisableDefaultExplorers bool
	ExplorerMaxRetries      int
	HTTPTimeout             time.Duration
	TLSSystemCertPool       bool
	TLSCACerts              []string
	LDContextFiles          []string
}

// CreateFlags adds the verifier flags to the command.
func CreateFlags(cmd *cobra.Command) {
	cmd.Flags().String(didResolverURLFlagName, "", didResolverURLFlagUsage)
	cmd.Flags().StringArray(statusChecksFlagName, nil, statusChecksFlagUsage)
	cmd.Flags().StringArray(esploraAPIFlagName, nil, esploraAPIFlagUsage)
	cmd.Flags().String(disableDefaultExplorersFlagName, "", disableDefaultExplorersFlagUsage)
	cmd.Flags().String(explorerMaxRetriesFlagName, "", explorerMaxRetriesFlagUsage)
	cmd.Flags().String(httpTimeoutFlagName, "", httpTimeoutFlagUsage)
	cmd.Flags().String(tlsSystemCertPoolFlagName, "", tlsSystemCertPoolFlagUsage)
	cmd.Flags().StringArray(tlsCACertsFlagName, nil, tlsCACertsFlagUsage)
	cmd.Flags().StringArray(ldContextFileFlagName, nil, ldContextFileFlagUsage)
}

// GetParameters returns the verifier settings from the flags or environment variables.
func GetParameters(cmd *cobra.Command) (*Parameters, error) {
	didResolverURL := cmdutil.GetUserSetOptionalVarFromString(cmd, didResolverURLFlagName, didResolverURLEnvKey)
	if didResolverURL == "" {
		didResolverURL = didresolver.DefaultResolverURL
	}

	statusChecks := steps.DefaultStatusChecks

	if values := cmdutil.GetUserSetOptionalVarFromArrayString(cmd, statusChecksFlagName, statusChecksEnvKey); len(values) > 0 {
		statusChecks = make([]steps.Code, len(values))

		for i, v := range values {
			statusChecks[i] = steps.Code(strings.TrimSpace(v))
		}
	}

	esploraAPIs, err := getEsploraAPIs(cmd)
	if err != nil {
		return nil, err
	}

	disableDefaultExplorers, err := cmdutil.GetBool(cmd, disableDefaultExplorersFlagName,
		disableDefaultExplorersEnvKey, false)
	if err != nil {
		return nil, err
	}

	if disableDefaultExplorers && len(esploraAPIs) == 0 {
		return nil, fmt.Errorf("at least one %s must be set when the default explorers are disabled",
			esploraAPIFlagName)
	}

	maxRetries, err := cmdutil.GetInt(cmd, explorerMaxRetriesFlagName, explorerMaxRetriesEnvKey,
		defaultExplorerMaxRetries)
	if err != nil {
		return nil, err
	}

	httpTimeout, err := cmdutil.GetDuration(cmd, httpTimeoutFlagName, httpTimeoutEnvKey, defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}

	tlsSystemCertPool, err := cmdutil.GetBool(cmd, tlsSystemCertPoolFlagName, tlsSystemCertPoolEnvKey, true)
	if err != nil {
		return nil, err
	}

	ldContextFiles := cmdutil.GetUserSetOptionalVarFromArrayString(cmd, ldContextFileFlagName, ldContextFileEnvKey)

	return &Parameters{
		DIDResolverURL:          didResolverURL,
		StatusChecks:            statusChecks,
		EsploraAPIs:             esploraAPIs,
		DisableDefaultExplorers: disableDefaultExplorers,
		ExplorerMaxRetries:      maxRetries,
		HTTPTimeout:             httpTimeout,
		TLSSystemCertPool:       tlsSystemCertPool,
		TLSCACerts:              cmdutil.GetUserSetOptionalVarFromArrayString(cmd, tlsCACertsFlagName, tlsCACertsEnvKey),
		LDContextFiles:          ldContextFiles,
	}, nil
}

func getEsploraAPIs(cmd *cobra.Command) (map[chain.Code]string, error) {
	values := cmdutil.GetUserSetOptionalVarFromArrayString(cmd, esploraAPIFlagName, esploraAPIEnvKey)

	apis := make(map[chain.Code]string, len(values))

	for _, v := range values {
		code, serviceURL, ok := strings.Cut(v, "=")
		if !ok || serviceURL == "" {
			return nil, fmt.Errorf("invalid value for %s [%s]: expecting chain=URL", esploraAPIFlagName, v)
		}

		if _, err := chain.Get(chain.Code(code)); err != nil {
			return nil, fmt.Errorf("invalid value for %s [%s]: %w", esploraAPIFlagName, v, err)
		}

		if !strings.Contains(serviceURL, explorer.TransactionIDPlaceholder) {
			return nil, fmt.Errorf("invalid value for %s [%s]: URL must contain %s",
				esploraAPIFlagName, v, explorer.TransactionIDPlaceholder)
		}

		apis[chain.Code(code)] = serviceURL
	}

	return apis, nil
}

// HTTPClient returns the client of all outbound requests.
func (p *Parameters) HTTPClient() (*http.Client, error) {
	rootCAs, err := tlsutil.GetCertPool(p.TLSSystemCertPool, p.TLSCACerts)
	if err != nil {
		return nil, fmt.Errorf("get cert pool: %w", err)
	}

	return &http.Client{
		Timeout: p.HTTPTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    rootCAs,
				MinVersion: tls.VersionTLS12,
			},
		},
	}, nil
}

// VerifierOptions returns the options of a verification engine built from the parameters. The JSON-LD
// contexts fetched by the canonicalizer are kept in the given storage provider, which may be nil. The
// given options are applied last so that they may replace the collaborators created here.
func (p *Parameters) VerifierOptions(client *http.Client, m metrics.Metrics, provider storage.Provider,
	opts ...verifier.Option) ([]verifier.Option, error) {
	didResolver, err := didresolver.New(p.DIDResolverURL, didresolver.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create DID resolver: %w", err)
	}

	ldCanonicalizer, err := p.LDCanonicalizer(client, provider)
	if err != nil {
		return nil, err
	}

	return append([]verifier.Option{
		verifier.WithStatusChecks(p.StatusChecks...),
		verifier.WithTransactionLookup(explorer.New(p.explorerOptions(client, m)...)),
		verifier.WithIssuerResolver(issuer.NewResolver(issuer.WithHTTPClient(client), issuer.WithMetrics(m))),
		verifier.WithRevocationFetcher(issuer.NewRevocationClient(issuer.WithHTTPClient(client))),
		verifier.WithDIDResolver(didResolver),
		verifier.WithLDCanonicalizer(ldCanonicalizer),
		verifier.WithMetrics(m),
	}, opts...), nil
}

// LDCanonicalizer returns the JSON-LD canonicalizer shared by all verifications. Remote contexts are
// fetched with the given client.
func (p *Parameters) LDCanonicalizer(client *http.Client, provider storage.Provider) (*canonicalizer.LD, error) {
	contexts, err := loadContexts(p.LDContextFiles)
	if err != nil {
		return nil, err
	}

	ldOpts := []canonicalizer.LDOption{
		canonicalizer.WithHTTPClient(client),
		canonicalizer.WithContextDocuments(contexts...),
	}

	if provider != nil {
		ldOpts = append(ldOpts, canonicalizer.WithStorageProvider(provider))
	}

	c, err := canonicalizer.NewLD(ldOpts...)
	if err != nil {
		return nil, fmt.Errorf("create JSON-LD canonicalizer: %w", err)
	}

	return c, nil
}

func loadContexts(files []string) ([]ldcontext.Document, error) {
	contexts := make([]ldcontext.Document, 0, len(files))

	for _, file := range files {
		content, err := os.ReadFile(file) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("read JSON-LD context file [%s]: %w", file, err)
		}

		var doc ldcontext.Document

		if err := json.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal JSON-LD context file [%s]: %w", file, err)
		}

		if doc.URL == "" || len(doc.Content) == 0 {
			return nil, fmt.Errorf("invalid JSON-LD context file [%s]: url and content are required", file)
		}

		contexts = append(contexts, doc)
	}

	return contexts, nil
}

func (p *Parameters) explorerOptions(client *http.Client, m metrics.Metrics) []explorer.Option {
	opts := []explorer.Option{
		explorer.WithHTTPClient(client),
		explorer.WithMetrics(m),
		explorer.WithMaxRetries(uint64(p.ExplorerMaxRetries)),
	}

	if p.DisableDefaultExplorers {
		opts = append(opts, explorer.WithoutDefaultAPIs())
	}

	if len(p.EsploraAPIs) > 0 {
		opts = append(opts, explorer.WithAPIs(&explorer.API{
			Name:        esploraAPIName,
			ServiceURLs: p.EsploraAPIs,
			Priority:    0,
			Parse:       explorer.ParseBlockstream,
		}))
	}

	return opts
}
