/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package merkleproof2017

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trustbloc/blockcerts-verifier/pkg/internal/timeutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite/anchored"
)

// Suite verifies MerkleProof2017 signatures of v2 certificates and Chainpoint receipts of v1 certificates.
type Suite struct {
	*anchored.Base
}

// New returns a MerkleProof2017 suite.
func New(sctx *suite.Context) (suite.Suite, error) {
	s := &Suite{}

	base, err := anchored.New(sctx, s.verifyIdentity)
	if err != nil {
		return nil, err
	}

	s.Base = base

	return s, nil
}

// Init resolves the issuer profile and its keys.
func (s *Suite) Init(ctx context.Context) error {
	profileURL := s.IssuerProfileURL()
	if profileURL == "" {
		return fmt.Errorf("issuer of certificate [%s] has no profile URL", s.SuiteContext().Certificate.ID)
	}

	return s.ResolveIssuer(ctx, profileURL, true)
}

func (s *Suite) verifyIdentity(ctx context.Context, exec suite.Executor) {
	exec.ExecuteStep(ctx, steps.CheckIssuerSignature, s.Type(), s.checkIssuerSignature)
	exec.ExecuteStep(ctx, steps.CheckAuthenticity, s.Type(), s.checkAuthenticity)
}

// The issuing address must be one of the keys published by the issuer.
func (s *Suite) checkIssuerSignature(context.Context) error {
	address := s.IssuingAddress()
	if address == "" {
		return s.Failure(anchored.ErrIdentityMismatch, errors.New("transaction has no issuing address"))
	}

	for _, k := range s.Keys() {
		if k.PublicKey == address {
			return nil
		}
	}

	return s.Failure(anchored.ErrIdentityMismatch, fmt.Errorf("%w [%s]", issuer.ErrKeyNotFound, address))
}

func (s *Suite) checkAuthenticity(context.Context) error {
	if err := s.CheckIssuingKey(s.IssuingAddress(), s.signingTime()); err != nil {
		return err
	}

	return s.CheckNotRevokedBySpentOutput()
}

// The transaction time is the signing date. Mock chains have no transaction so the issuance date is used.
func (s *Suite) signingTime() time.Time {
	if txData := s.TransactionData(); txData != nil && !txData.Time.IsZero() {
		return txData.Time
	}

	issuedOn, err := timeutil.ParseOptional(s.SuiteContext().Certificate.IssuedOn)
	if err != nil || issuedOn == nil {
		return time.Time{}
	}

	return *issuedOn
}

// SigningDate returns the date at which the proof was signed.
func (s *Suite) SigningDate() string {
	return anchored.FormatDate(s.signingTime())
}
