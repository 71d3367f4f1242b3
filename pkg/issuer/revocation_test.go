/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const revocationList = `{
  "@context": "https://w3id.org/openbadges/v2",
  "id": "https://issuer.example.com/revocation-list.json",
  "type": "RevocationList",
  "revokedAssertions": [
    {"id": "urn:uuid:3bc1a96a-3501-46ed-8f75-49612bbac257", "revocationReason": "Test"},
    {"id": "urn:uuid:bbba8553-8ec1-445f-82c9-a57251dd731c"}
  ]
}`

func TestRevocationClient_FetchRevocationList(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "urn:uuid:3bc1a96a-3501-46ed-8f75-49612bbac257", r.URL.Query().Get("assertionId"))
			require.Equal(t, "v1", r.URL.Query().Get("format"))

			_, e := w.Write([]byte(revocationList))
			require.NoError(t, e)
		}))
		defer srv.Close()

		list, err := NewRevocationClient().FetchRevocationList(context.Background(), srv.URL+"/list?format=v1",
			"urn:uuid:3bc1a96a-3501-46ed-8f75-49612bbac257")
		require.NoError(t, err)
		require.Len(t, list.RevokedAssertions, 2)

		a := list.Find("", "urn:uuid:3bc1a96a-3501-46ed-8f75-49612bbac257")
		require.NotNil(t, a)
		require.Equal(t, "Test", a.RevocationReason)

		require.Nil(t, list.Find("urn:uuid:other"))
	})

	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := NewRevocationClient().FetchRevocationList(context.Background(), srv.URL, "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "get revocation list")
	})

	t.Run("invalid list", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, e := w.Write([]byte(`{"revokedAssertions": "x"}`))
			require.NoError(t, e)
		}))
		defer srv.Close()

		_, err := NewRevocationClient().FetchRevocationList(context.Background(), srv.URL, "id")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unmarshal revocation list")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRevocationClient().FetchRevocationList(context.Background(), "://", "id")
		require.Error(t, err)
	})
}
