/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package canonicalizer

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"

	"github.com/piprate/json-gold/ld"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	c := NewJSON()

	b, err := c.Canonicalize(map[string]interface{}{
		"b": 1,
		"a": "x",
		"c": map[string]interface{}{
			"z": true,
			"y": nil,
		},
	})
	require.NoError(t, err)
	require.Equal(t, `{"a":"x","b":1,"c":{"y":null,"z":true}}`, string(b))

	_, err = c.Canonicalize(map[string]interface{}{"fn": func() {}})
	require.Error(t, err)
}

func TestLD(t *testing.T) {
	const expected = "<http://example.com/alice> <http://schema.org/name> \"Alice\" .\n"

	doc := map[string]interface{}{
		"@context": map[string]interface{}{
			"name": "http://schema.org/name",
		},
		"@id":  "http://example.com/alice",
		"name": "Alice",
	}

	t.Run("inline context", func(t *testing.T) {
		c, err := NewLD()
		require.NoError(t, err)

		b, err := c.Canonicalize(doc)
		require.NoError(t, err)
		require.Equal(t, expected, string(b))
	})

	t.Run("preloaded context", func(t *testing.T) {
		const contextURL = "https://example.com/contexts/person.json"

		c, err := NewLD(
			WithHTTPClient(&http.Client{}),
			WithContext(contextURL, map[string]interface{}{
				"@context": map[string]interface{}{
					"name": "http://schema.org/name",
				},
			}),
		)
		require.NoError(t, err)

		b, err := c.Canonicalize(map[string]interface{}{
			"@context": contextURL,
			"@id":      "http://example.com/alice",
			"name":     "Alice",
		})
		require.NoError(t, err)
		require.Equal(t, expected, string(b))
	})

	t.Run("embedded context", func(t *testing.T) {
		c, err := NewLD(WithHTTPClient(&http.Client{Transport: &failingTransport{}}))
		require.NoError(t, err)

		_, err = c.Canonicalize(map[string]interface{}{
			"@context": []interface{}{"https://www.w3.org/2018/credentials/v1"},
			"id":       "urn:uuid:bbba8553-8ec1-445f-82c9-a57251dd731c",
			"type":     []interface{}{"VerifiableCredential"},
			"issuer":   "did:example:issuer",
			"credentialSubject": map[string]interface{}{
				"id": "did:example:subject",
			},
		})
		require.NoError(t, err)
	})

	t.Run("remote context is fetched once", func(t *testing.T) {
		var fetches int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&fetches, 1)

			w.Header().Set("Content-Type", "application/ld+json")
			_, err := w.Write([]byte(`{"@context": {"name": "http://schema.org/name"}}`))
			require.NoError(t, err)
		}))
		defer srv.Close()

		c, err := NewLD(WithHTTPClient(srv.Client()), WithStorageProvider(mem.NewProvider()))
		require.NoError(t, err)

		remoteDoc := map[string]interface{}{
			"@context": srv.URL + "/contexts/person.json",
			"@id":      "http://example.com/alice",
			"name":     "Alice",
		}

		for i := 0; i < 3; i++ {
			b, err := c.Canonicalize(remoteDoc)
			require.NoError(t, err)
			require.Equal(t, expected, string(b))
		}

		require.EqualValues(t, 1, atomic.LoadInt32(&fetches))
	})

	t.Run("unmapped fields", func(t *testing.T) {
		c, err := NewLD()
		require.NoError(t, err)

		_, err = c.Canonicalize(map[string]interface{}{
			"@context": map[string]interface{}{
				"name": "http://schema.org/name",
			},
			"@id":   "http://example.com/alice",
			"name":  "Alice",
			"grade": "A+",
			"award": map[string]interface{}{
				"level": "gold",
			},
		})
		require.ErrorIs(t, err, ErrUnmappedFields)
		require.Contains(t, err.Error(), "award, grade, level")
	})

	t.Run("document vocabulary", func(t *testing.T) {
		c, err := NewLD()
		require.NoError(t, err)

		b, err := c.Canonicalize(map[string]interface{}{
			"@context": map[string]interface{}{
				"@vocab": "http://schema.org/",
			},
			"@id":  "http://example.com/alice",
			"name": "Alice",
		})
		require.NoError(t, err)
		require.Equal(t, expected, string(b))
	})

	t.Run("invalid context", func(t *testing.T) {
		_, err := NewLD(WithContext("https://example.com/invalid", map[string]interface{}{"fn": func() {}}))
		require.Error(t, err)
		require.Contains(t, err.Error(), "marshal context [https://example.com/invalid]")
	})

	t.Run("loader error", func(t *testing.T) {
		c, err := NewLD(WithDocumentLoader(&failingLoader{}), WithContext("https://example.com/ignored", nil))
		require.NoError(t, err)

		_, err = c.Canonicalize(map[string]interface{}{
			"@context": "https://example.com/unknown",
			"name":     "Alice",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "normalize JSON-LD document")
	})
}

type failingLoader struct{}

func (l *failingLoader) LoadDocument(string) (*ld.RemoteDocument, error) {
	return nil, errors.New("injected loader error")
}

type failingTransport struct{}

func (rt *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("remote contexts are not available")
}
