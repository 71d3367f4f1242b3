/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
	"github.com/trustbloc/blockcerts-verifier/pkg/internal/testutil/suitetestutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/mocks"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
)

const (
	credentialID = "urn:uuid:3bc1a96a-3501-46ed-8f75-49612bbac257"
	listURL      = "https://issuer.example.com/revocation-list.json"
)

func TestRevocationChecker_Check(t *testing.T) {
	text := i18n.New(i18n.DefaultLocale)

	t.Run("not revoked", func(t *testing.T) {
		fetcher := mocks.NewRevocationFetcher().WithList(listURL, &issuer.RevocationList{
			RevokedAssertions: []*issuer.RevokedAssertion{{ID: "urn:uuid:other", RevocationReason: "Test"}},
		})

		exec := suitetestutil.NewExecutor()
		NewRevocationChecker(fetcher, text).Check(context.Background(), exec, newSubject(listURL, ""))

		require.Nil(t, exec.Failure())
		require.Equal(t, []steps.Code{steps.CheckRevokedStatus}, exec.Codes())
		require.Equal(t, 1, exec.Helpers())
		require.Equal(t, 1, fetcher.Fetches())
	})

	t.Run("revoked with reason", func(t *testing.T) {
		fetcher := mocks.NewRevocationFetcher().WithList(listURL, &issuer.RevocationList{
			RevokedAssertions: []*issuer.RevokedAssertion{{ID: credentialID, RevocationReason: "Test"}},
		})

		exec := suitetestutil.NewExecutor()
		NewRevocationChecker(fetcher, text).Check(context.Background(), exec, newSubject(listURL, ""))

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckRevokedStatus, failure.Code)
		require.EqualError(t, failure.Err, "Test")
	})

	t.Run("revoked without reason", func(t *testing.T) {
		fetcher := mocks.NewRevocationFetcher().WithList(listURL, &issuer.RevocationList{
			RevokedAssertions: []*issuer.RevokedAssertion{{ID: credentialID}},
		})

		exec := suitetestutil.NewExecutor()
		NewRevocationChecker(fetcher, text).Check(context.Background(), exec, newSubject(listURL, ""))

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.EqualError(t, failure.Err, "This certificate has been revoked by the issuer.")
	})

	t.Run("no revocation list", func(t *testing.T) {
		fetcher := mocks.NewRevocationFetcher()

		exec := suitetestutil.NewExecutor()
		NewRevocationChecker(fetcher, text).Check(context.Background(), exec, newSubject("", ""))

		require.Nil(t, exec.Failure())
		require.Equal(t, []steps.Code{steps.CheckRevokedStatus}, exec.Codes())
		require.Zero(t, fetcher.Fetches())
	})

	t.Run("fetch error", func(t *testing.T) {
		fetcher := mocks.NewRevocationFetcher().WithError(errors.New("injected fetch error"))

		exec := suitetestutil.NewExecutor()
		NewRevocationChecker(fetcher, text).Check(context.Background(), exec, newSubject(listURL, ""))

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckRevokedStatus, failure.Code)
		require.EqualError(t, failure.Err, "Unable to get the revocation list of the issuer")
		require.Contains(t, errors.Unwrap(failure.Err).Error(), "injected fetch error")
	})
}

func TestExpiryChecker_Check(t *testing.T) {
	text := i18n.New(i18n.DefaultLocale)
	now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("expired", func(t *testing.T) {
		exec := suitetestutil.NewExecutor()
		NewExpiryChecker(clock, text).Check(context.Background(), exec, newSubject("", "2000-01-01T00:00:00Z"))

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckExpiresDate, failure.Code)
		require.EqualError(t, failure.Err, "This certificate has expired.")
	})

	t.Run("expires now", func(t *testing.T) {
		exec := suitetestutil.NewExecutor()
		NewExpiryChecker(clock, text).Check(context.Background(), exec,
			newSubject("", now.Format(time.RFC3339)))

		require.NotNil(t, exec.Failure())
	})

	t.Run("not expired", func(t *testing.T) {
		exec := suitetestutil.NewExecutor()
		NewExpiryChecker(clock, text).Check(context.Background(), exec, newSubject("", "2039-12-31T00:00:00Z"))

		require.Nil(t, exec.Failure())
		require.Equal(t, []steps.Code{steps.CheckExpiresDate}, exec.Codes())
	})

	t.Run("no expiry", func(t *testing.T) {
		exec := suitetestutil.NewExecutor()
		NewExpiryChecker(nil, text).Check(context.Background(), exec, newSubject("", ""))

		require.Nil(t, exec.Failure())
	})

	t.Run("malformed expiry", func(t *testing.T) {
		exec := suitetestutil.NewExecutor()
		NewExpiryChecker(clock, text).Check(context.Background(), exec, newSubject("", "next tuesday"))

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.EqualError(t, failure.Err, "The expiration date of this certificate is malformed")
	})
}

func newSubject(revocationListURL, expires string) *Subject {
	return &Subject{
		Certificate: &certificate.Certificate{
			ID:      credentialID,
			Expires: expires,
		},
		RevocationListURL: revocationListURL,
	}
}
