/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package merkleproof2019

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/didresolver"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite/anchored"
)

var logger = log.New("merkleproof2019")

const didPrefix = "did:"

// Suite verifies MerkleProof2019 proofs of v3 certificates. The proof may reference its signing key
// through a DID verification method.
type Suite struct {
	*anchored.Base

	verificationMethod string
	did                string
}

// New returns a MerkleProof2019 suite.
func New(sctx *suite.Context) (suite.Suite, error) {
	s := &Suite{}

	base, err := anchored.New(sctx, s.verifyIdentity)
	if err != nil {
		return nil, err
	}

	s.Base = base
	s.verificationMethod = sctx.Proof.VerificationMethod

	if strings.HasPrefix(s.verificationMethod, didPrefix) {
		s.did = didresolver.BaseDID(s.verificationMethod)
	}

	return s, nil
}

// Init resolves the issuer profile. Issuers identified by a DID may publish their keys in the DID
// document only, in which case the profile is not required to contain keys.
func (s *Suite) Init(ctx context.Context) error {
	cert := s.SuiteContext().Certificate

	profileURL := s.IssuerProfileURL()
	if profileURL == "" {
		if s.did != "" && cert.Issuer != nil && cert.Issuer.ID == s.did {
			logger.Debug("Issuer is identified by its DID. No issuer profile to resolve.", logfields.WithDID(s.did))

			return nil
		}

		return fmt.Errorf("issuer of certificate [%s] has no profile URL", cert.ID)
	}

	return s.ResolveIssuer(ctx, profileURL, s.did == "")
}

// verifyIdentity resolves the address of the DID verification method, if any, before matching the
// issuer identity with the transaction.
func (s *Suite) verifyIdentity(ctx context.Context, exec suite.Executor) {
	var didAddress string

	didErr := exec.ExecuteHelper(ctx, func(ctx context.Context) error {
		var err error

		didAddress, err = s.resolveDIDAddress(ctx)

		return err
	})

	exec.ExecuteStep(ctx, steps.CheckIssuerSignature, s.Type(), func(context.Context) error {
		if didErr != nil {
			return didErr
		}

		return s.checkIssuerSignature(didAddress)
	})

	exec.ExecuteStep(ctx, steps.CheckAuthenticity, s.Type(), s.checkAuthenticity)
}

// resolveDIDAddress returns the address of the verification method key, or an empty string if the
// proof does not reference a DID.
func (s *Suite) resolveDIDAddress(ctx context.Context) (string, error) {
	if s.did == "" {
		return "", nil
	}

	resolver := s.SuiteContext().DIDResolver
	if resolver == nil {
		return "", s.Failure(anchored.ErrIdentityMismatch, errors.New("DID resolver is not configured"))
	}

	doc, err := resolver.Resolve(ctx, s.did)
	if err != nil {
		return "", s.Failure(anchored.ErrIdentityMismatch, fmt.Errorf("resolve DID [%s]: %w", s.did, err))
	}

	vm, err := didresolver.FindVerificationMethod(doc, s.verificationMethod)
	if err != nil {
		return "", s.Failure(anchored.ErrIdentityMismatch, err)
	}

	address, err := didresolver.AddressFromVerificationMethod(vm, s.Chain().AddressParams())
	if err != nil {
		return "", s.Failure(anchored.ErrIdentityMismatch, err)
	}

	logger.Debug("Derived issuing address from verification method", logfields.WithDID(s.did),
		logfields.WithKeyID(vm.ID), logfields.WithAddress(address))

	return address, nil
}

// checkIssuerSignature matches the issuer identity with the transaction's issuing address. When the proof
// references a DID, the issuer profile must be the DID's and the DID key must have signed the transaction.
// Otherwise the issuing address must be published in the issuer profile.
func (s *Suite) checkIssuerSignature(didAddress string) error {
	issuingAddress := s.IssuingAddress()
	if issuingAddress == "" {
		return s.Failure(anchored.ErrIdentityMismatch, errors.New("transaction has no issuing address"))
	}

	if s.did == "" {
		for _, k := range s.Keys() {
			if k.PublicKey == issuingAddress {
				return nil
			}
		}

		return s.Failure(anchored.ErrIdentityMismatch,
			fmt.Errorf("issuing address [%s] is not published by the issuer", issuingAddress))
	}

	if profile := s.Profile(); profile != nil && profile.ID != s.did {
		return s.Failure(anchored.ErrIdentityMismatch,
			fmt.Errorf("issuer profile [%s] does not match DID [%s]", profile.ID, s.did))
	}

	if didAddress != issuingAddress {
		return s.Failure(anchored.ErrIdentityMismatch,
			fmt.Errorf("verification method address [%s] does not match issuing address [%s]",
				didAddress, issuingAddress))
	}

	return nil
}

// checkAuthenticity ensures the issuing key was valid when the proof was created. Keys published in a DID
// document carry no validity period so only profile keys are checked.
func (s *Suite) checkAuthenticity(context.Context) error {
	if s.did == "" || len(s.Keys()) > 0 {
		if err := s.CheckIssuingKey(s.IssuingAddress(), s.signingTime()); err != nil {
			return err
		}
	}

	return s.CheckNotRevokedBySpentOutput()
}

// The creation date of the proof is the signing date, falling back to the transaction time.
func (s *Suite) signingTime() time.Time {
	if created := s.SuiteContext().Proof.Created; created != nil {
		return *created
	}

	if txData := s.TransactionData(); txData != nil {
		return txData.Time
	}

	return time.Time{}
}

// SigningDate returns the date at which the proof was signed.
func (s *Suite) SigningDate() string {
	return anchored.FormatDate(s.signingTime())
}

// IssuerPublicKey returns the verification method for DID signed proofs.
func (s *Suite) IssuerPublicKey() string {
	if s.did != "" {
		return s.verificationMethod
	}

	return s.Base.IssuerPublicKey()
}
