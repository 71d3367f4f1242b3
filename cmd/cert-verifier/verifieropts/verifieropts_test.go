/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifieropts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/didresolver"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics/noop"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
)

func TestGetParameters(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cmd := newCmd(t)

		p, err := GetParameters(cmd)
		require.NoError(t, err)
		require.Equal(t, didresolver.DefaultResolverURL, p.DIDResolverURL)
		require.Equal(t, steps.DefaultStatusChecks, p.StatusChecks)
		require.Empty(t, p.EsploraAPIs)
		require.False(t, p.DisableDefaultExplorers)
		require.Equal(t, defaultExplorerMaxRetries, p.ExplorerMaxRetries)
		require.Equal(t, defaultHTTPTimeout, p.HTTPTimeout)
		require.True(t, p.TLSSystemCertPool)
		require.Empty(t, p.TLSCACerts)
	})

	t.Run("flags", func(t *testing.T) {
		cmd := newCmd(t,
			"--"+didResolverURLFlagName, "https://resolver.example.com/1.0/identifiers",
			"--"+statusChecksFlagName, string(steps.CheckRevokedStatus),
			"--"+esploraAPIFlagName, "testnet=https://esplora.example.com/testnet/api/tx/{transaction_id}",
			"--"+disableDefaultExplorersFlagName, "true",
			"--"+explorerMaxRetriesFlagName, "5",
			"--"+httpTimeoutFlagName, "3s",
			"--"+tlsSystemCertPoolFlagName, "false",
			"--"+tlsCACertsFlagName, "ca1.pem",
			"--"+tlsCACertsFlagName, "ca2.pem",
			"--"+ldContextFileFlagName, "blockcerts-v3.json",
		)

		p, err := GetParameters(cmd)
		require.NoError(t, err)
		require.Equal(t, "https://resolver.example.com/1.0/identifiers", p.DIDResolverURL)
		require.Equal(t, []steps.Code{steps.CheckRevokedStatus}, p.StatusChecks)
		require.Equal(t, "https://esplora.example.com/testnet/api/tx/{transaction_id}", p.EsploraAPIs[chain.Testnet])
		require.True(t, p.DisableDefaultExplorers)
		require.Equal(t, 5, p.ExplorerMaxRetries)
		require.Equal(t, 3*time.Second, p.HTTPTimeout)
		require.False(t, p.TLSSystemCertPool)
		require.Equal(t, []string{"ca1.pem", "ca2.pem"}, p.TLSCACerts)
		require.Equal(t, []string{"blockcerts-v3.json"}, p.LDContextFiles)
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv(statusChecksEnvKey, "checkExpiresDate, checkRevokedStatus")
		t.Setenv(httpTimeoutEnvKey, "1m")

		p, err := GetParameters(newCmd(t))
		require.NoError(t, err)
		require.Equal(t, []steps.Code{steps.CheckExpiresDate, steps.CheckRevokedStatus}, p.StatusChecks)
		require.Equal(t, time.Minute, p.HTTPTimeout)
	})

	t.Run("invalid Esplora API", func(t *testing.T) {
		for _, value := range []string{
			"https://esplora.example.com/api/tx/{transaction_id}",
			"testnet=",
			"dogecoin=https://esplora.example.com/api/tx/{transaction_id}",
			"testnet=https://esplora.example.com/api/tx",
		} {
			_, err := GetParameters(newCmd(t, "--"+esploraAPIFlagName, value))
			require.Error(t, err, value)
			require.Contains(t, err.Error(), "invalid value for "+esploraAPIFlagName)
		}
	})

	t.Run("default explorers disabled without Esplora API", func(t *testing.T) {
		_, err := GetParameters(newCmd(t, "--"+disableDefaultExplorersFlagName, "true"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "at least one "+esploraAPIFlagName)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := GetParameters(newCmd(t, "--"+disableDefaultExplorersFlagName, "maybe"))
		require.Error(t, err)
		require.Contains(t, err.Error(), disableDefaultExplorersFlagName)

		_, err = GetParameters(newCmd(t, "--"+explorerMaxRetriesFlagName, "many"))
		require.Error(t, err)
		require.Contains(t, err.Error(), explorerMaxRetriesFlagName)

		_, err = GetParameters(newCmd(t, "--"+httpTimeoutFlagName, "soon"))
		require.Error(t, err)
		require.Contains(t, err.Error(), httpTimeoutFlagName)

		_, err = GetParameters(newCmd(t, "--"+tlsSystemCertPoolFlagName, "yes please"))
		require.Error(t, err)
		require.Contains(t, err.Error(), tlsSystemCertPoolFlagName)
	})
}

func TestParameters_HTTPClient(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		p := &Parameters{TLSSystemCertPool: true, HTTPTimeout: time.Second}

		client, err := p.HTTPClient()
		require.NoError(t, err)
		require.NotNil(t, client)
		require.Equal(t, time.Second, client.Timeout)
	})

	t.Run("invalid CA certificate file", func(t *testing.T) {
		p := &Parameters{TLSCACerts: []string{"./testdata/does-not-exist.pem"}}

		_, err := p.HTTPClient()
		require.Error(t, err)
		require.Contains(t, err.Error(), "get cert pool")
	})
}

func TestParameters_VerifierOptions(t *testing.T) {
	p := &Parameters{
		DIDResolverURL:          didresolver.DefaultResolverURL,
		StatusChecks:            steps.DefaultStatusChecks,
		EsploraAPIs:             map[chain.Code]string{chain.Testnet: "https://esplora.example.com/{transaction_id}"},
		DisableDefaultExplorers: true,
		ExplorerMaxRetries:      1,
		TLSSystemCertPool:       true,
		HTTPTimeout:             time.Second,
	}

	client, err := p.HTTPClient()
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		opts, err := p.VerifierOptions(client, &noop.NoOptMetrics{}, mem.NewProvider(), verifier.WithLocale("fr"))
		require.NoError(t, err)
		require.Len(t, opts, 8)

		require.Len(t, p.explorerOptions(client, &noop.NoOptMetrics{}), 5)
	})

	t.Run("invalid JSON-LD context file", func(t *testing.T) {
		p2 := *p
		p2.LDContextFiles = []string{filepath.Join(t.TempDir(), "missing.json")}

		_, err := p2.VerifierOptions(client, &noop.NoOptMetrics{}, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "read JSON-LD context file")
	})
}

func TestParameters_LDCanonicalizer(t *testing.T) {
	const contextURL = "https://example.com/contexts/person.json"

	dir := t.TempDir()

	contextFile := filepath.Join(dir, "person.json")
	require.NoError(t, os.WriteFile(contextFile, []byte(`{
		"url": "`+contextURL+`",
		"content": {"@context": {"name": "http://schema.org/name"}}
	}`), 0o600))

	t.Run("preloaded context", func(t *testing.T) {
		p := &Parameters{LDContextFiles: []string{contextFile}}

		c, err := p.LDCanonicalizer(nil, mem.NewProvider())
		require.NoError(t, err)

		b, err := c.Canonicalize(map[string]interface{}{
			"@context": contextURL,
			"@id":      "http://example.com/alice",
			"name":     "Alice",
		})
		require.NoError(t, err)
		require.Equal(t, "<http://example.com/alice> <http://schema.org/name> \"Alice\" .\n", string(b))
	})

	t.Run("invalid context file", func(t *testing.T) {
		invalidFile := filepath.Join(dir, "invalid.json")
		require.NoError(t, os.WriteFile(invalidFile, []byte(`{"url": "`+contextURL+`"`), 0o600))

		_, err := (&Parameters{LDContextFiles: []string{invalidFile}}).LDCanonicalizer(nil, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unmarshal JSON-LD context file")
	})

	t.Run("context file without content", func(t *testing.T) {
		emptyFile := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(emptyFile, []byte(`{"url": "`+contextURL+`"}`), 0o600))

		_, err := (&Parameters{LDContextFiles: []string{emptyFile}}).LDCanonicalizer(nil, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "url and content are required")
	})
}

func newCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}

	CreateFlags(cmd)

	require.NoError(t, cmd.ParseFlags(args))

	return cmd
}
