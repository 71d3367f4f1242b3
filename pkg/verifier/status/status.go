/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
	"github.com/trustbloc/blockcerts-verifier/pkg/internal/timeutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
)

var logger = log.New("status-check")

const (
	errGetRevokedAssertions = "getRevokedAssertions"
	errRevoked              = "ensureNotRevoked"
	errExpired              = "ensureNotExpired"
	errMalformedExpiry      = "malformedExpiry"
)

// Subject is the certificate whose status is checked.
type Subject struct {
	Certificate       *certificate.Certificate
	RevocationListURL string
}

// Checker runs a status-check substep through the executor.
type Checker interface {
	Check(ctx context.Context, exec suite.Executor, subject *Subject)
}

// RevocationChecker ensures the certificate is not in the issuer's revocation list.
type RevocationChecker struct {
	fetcher issuer.RevocationFetcher
	text    i18n.Provider
}

// NewRevocationChecker returns a revocation checker.
func NewRevocationChecker(fetcher issuer.RevocationFetcher, text i18n.Provider) *RevocationChecker {
	return &RevocationChecker{fetcher: fetcher, text: text}
}

// Check runs the checkRevokedStatus substep. An issuer without a revocation list passes the check.
func (c *RevocationChecker) Check(ctx context.Context, exec suite.Executor, subject *Subject) {
	cert := subject.Certificate

	if subject.RevocationListURL == "" {
		logger.Warn("No revocation list URL was set on the issuer.", logfields.WithCredentialID(cert.ID))

		exec.ExecuteStep(ctx, steps.CheckRevokedStatus, "", func(context.Context) error { return nil })

		return
	}

	var list *issuer.RevocationList

	fetchErr := exec.ExecuteHelper(ctx, func(ctx context.Context) error {
		if c.fetcher == nil {
			return errors.New("revocation list fetcher is not configured")
		}

		var err error

		list, err = c.fetcher.FetchRevocationList(ctx, subject.RevocationListURL, cert.ID)

		return err
	})

	exec.ExecuteStep(ctx, steps.CheckRevokedStatus, "", func(context.Context) error {
		if fetchErr != nil {
			return suite.NewFailure(c.text, errGetRevokedAssertions, fetchErr)
		}

		if list == nil {
			return nil
		}

		revoked := list.Find(cert.ID, cert.RevocationKey)
		if revoked == nil {
			return nil
		}

		cause := fmt.Errorf("certificate [%s] is in revocation list [%s]", revoked.ID, subject.RevocationListURL)

		if revoked.RevocationReason != "" {
			return &suite.Failure{Message: revoked.RevocationReason, Cause: cause}
		}

		return suite.NewFailure(c.text, errRevoked, cause)
	})
}

// ExpiryChecker ensures the certificate has not expired.
type ExpiryChecker struct {
	clock func() time.Time
	text  i18n.Provider
}

// NewExpiryChecker returns an expiry checker. A nil clock defaults to time.Now.
func NewExpiryChecker(clock func() time.Time, text i18n.Provider) *ExpiryChecker {
	if clock == nil {
		clock = time.Now
	}

	return &ExpiryChecker{clock: clock, text: text}
}

// Check runs the checkExpiresDate substep. A certificate without an expiry date passes the check.
func (c *ExpiryChecker) Check(ctx context.Context, exec suite.Executor, subject *Subject) {
	exec.ExecuteStep(ctx, steps.CheckExpiresDate, "", func(context.Context) error {
		expires := subject.Certificate.Expires
		if expires == "" {
			return nil
		}

		expiry, err := timeutil.Parse(expires)
		if err != nil {
			return suite.NewFailure(c.text, errMalformedExpiry, err)
		}

		if now := c.clock(); !expiry.After(now) {
			return suite.NewFailure(c.text, errExpired,
				fmt.Errorf("certificate expired at %s", expiry.Format(time.RFC3339)))
		}

		return nil
	})
}
