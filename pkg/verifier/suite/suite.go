/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package suite

import (
	"context"
	"time"

	"github.com/trustbloc/blockcerts-verifier/pkg/canonicalizer"
	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/didresolver"
	"github.com/trustbloc/blockcerts-verifier/pkg/explorer"
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
)

// Action is the body of a verification step.
type Action func(ctx context.Context) error

// Executor runs the actions of a verification run. Once a step has failed, subsequent
// steps and helpers are not executed.
type Executor interface {
	// ExecuteStep runs a reported step. The step's status is published before and after the action.
	ExecuteStep(ctx context.Context, code steps.Code, proofType string, action Action)

	// ExecuteHelper runs an unreported action which produces data for a following step. The
	// returned error is meant to be handed to that step.
	ExecuteHelper(ctx context.Context, action Action) error
}

// Signer describes the signer of a proof.
type Signer interface {
	SigningDate() string
	IssuerPublicKey() string
	IssuerName() string
	IssuerProfileDomain() string
	IssuerProfileURL() string
}

// BlockchainAnchored is implemented by suites whose proof is anchored in a blockchain transaction.
type BlockchainAnchored interface {
	Chain() *chain.Blockchain
	TransactionID() string
	TransactionLink() string
	RawTransactionLink() string
}

// Suite verifies one proof of a certificate.
type Suite interface {
	Signer

	// Type returns the proof type handled by the suite.
	Type() string

	// Init prepares the suite. An error aborts initialization of the verifier.
	Init(ctx context.Context) error

	// VerifyProof runs the suite's steps through the executor.
	VerifyProof(ctx context.Context, exec Executor)

	// ProofVerificationSteps returns the substeps the suite reports under the given parent step.
	ProofVerificationSteps(parent steps.Code) []*steps.Substep
}

// Context holds everything a suite needs to verify a proof.
type Context struct {
	Certificate *certificate.Certificate
	Proof       *certificate.Proof
	Text        i18n.Provider

	Lookup            explorer.Lookup
	IssuerResolver    issuer.ProfileResolver
	DIDResolver       didresolver.Resolver
	JSONCanonicalizer canonicalizer.Canonicalizer
	LDCanonicalizer   canonicalizer.Canonicalizer

	Clock func() time.Time
}

// Now returns the current time from the context's clock.
func (c *Context) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}

	return c.Clock()
}

// Canonicalizer returns the canonicalizer for the certificate's version. Legacy versions are
// hashed as JSON while linked data versions are normalized with URDNA2015.
func (c *Context) Canonicalizer() canonicalizer.Canonicalizer {
	switch c.Certificate.Version {
	case certificate.V1_1, certificate.V1_2:
		return c.JSONCanonicalizer
	default:
		return c.LDCanonicalizer
	}
}

// Constructor creates a suite for the proof in the given context.
type Constructor func(ctx *Context) (Suite, error)

// Failure is a step failure carrying a localized message. The message is reported to
// callers while the cause is kept for logging.
type Failure struct {
	Message string
	Cause   error
}

// NewFailure returns a failure with the localized error text for the given key.
func NewFailure(text i18n.Provider, key string, cause error) *Failure {
	return &Failure{Message: text.Text(i18n.GroupErrors, key), Cause: cause}
}

// Error returns the localized message.
func (f *Failure) Error() string {
	return f.Message
}

// Unwrap returns the cause.
func (f *Failure) Unwrap() error {
	return f.Cause
}
