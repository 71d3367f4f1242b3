/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package merkleproof2017

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/blockcerts-verifier/internal/pkg/testutil/certtestutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
	"github.com/trustbloc/blockcerts-verifier/pkg/internal/testutil/suitetestutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/mocks"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
)

func TestNew(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := certtestutil.NewV2(t)

		s, err := New(newContext(f, mocks.NewTxLookup(), mocks.NewProfileResolver()))
		require.NoError(t, err)
		require.Equal(t, "MerkleProof2017", s.Type())
	})

	t.Run("no receipt", func(t *testing.T) {
		f := certtestutil.NewV2(t)

		sctx := newContext(f, mocks.NewTxLookup(), mocks.NewProfileResolver())
		sctx.Proof.Receipt = nil

		_, err := New(sctx)
		require.Error(t, err)
		require.Contains(t, err.Error(), "has no receipt")
	})
}

func TestSuite_Init(t *testing.T) {
	f := certtestutil.NewV2(t)

	t.Run("success", func(t *testing.T) {
		s := newSuite(t, f, mocks.NewTxLookup(), newProfileResolver())

		require.NoError(t, s.Init(context.Background()))
		require.Equal(t, certtestutil.IssuerName, s.IssuerName())
		require.Equal(t, "issuer.example.com", s.IssuerProfileDomain())
		require.Equal(t, certtestutil.IssuerProfileURL, s.IssuerProfileURL())
	})

	t.Run("issuer profile not found", func(t *testing.T) {
		s := newSuite(t, f, mocks.NewTxLookup(), mocks.NewProfileResolver())

		err := s.Init(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "Unable to get issuer profile")
	})

	t.Run("issuer profile without keys", func(t *testing.T) {
		profile := certtestutil.Profile()
		profile.PublicKeys = nil

		s := newSuite(t, f, mocks.NewTxLookup(),
			mocks.NewProfileResolver().WithProfile(certtestutil.IssuerProfileURL, profile))

		err := s.Init(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "Unable to parse JSON out of issuer identification data.")
		require.ErrorIs(t, err, issuer.ErrNoKeys)
	})

	t.Run("issuer without profile URL", func(t *testing.T) {
		f := certtestutil.NewV2(t, certtestutil.WithIssuerID("did:example:issuer"))

		s := newSuite(t, f, mocks.NewTxLookup(), newProfileResolver())

		err := s.Init(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "has no profile URL")
	})
}

func TestSuite_VerifyProof(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := certtestutil.NewV2(t)
		lookup := mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, f.Transaction())

		s := newInitializedSuite(t, f, lookup, newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		require.Nil(t, exec.Failure())
		require.Equal(t, []steps.Code{
			steps.GetTransactionID,
			steps.ComputeLocalHash,
			steps.FetchRemoteHash,
			steps.CompareHashes,
			steps.CheckMerkleRoot,
			steps.CheckReceipt,
			steps.CheckIssuerSignature,
			steps.CheckAuthenticity,
		}, exec.Codes())
		require.Equal(t, 1, exec.Helpers())

		require.Equal(t, "2022-02-03T14:08:54Z", s.SigningDate())
		require.Equal(t, certtestutil.IssuingAddress, s.IssuerPublicKey())

		anchored, ok := s.(suite.BlockchainAnchored)
		require.True(t, ok)
		require.Equal(t, chain.Testnet, anchored.Chain().Code)
		require.Equal(t, certtestutil.TransactionID, anchored.TransactionID())
		require.Equal(t, "https://testnet.blockchain.info/tx/"+certtestutil.TransactionID, anchored.TransactionLink())
		require.Equal(t, "https://testnet.blockchain.info/rawtx/"+certtestutil.TransactionID,
			anchored.RawTransactionLink())
	})

	t.Run("mock chain", func(t *testing.T) {
		bc, err := chain.Get(chain.Mocknet)
		require.NoError(t, err)

		f := certtestutil.NewV2(t, certtestutil.WithChain(bc))
		lookup := mocks.NewTxLookup()

		s := newInitializedSuite(t, f, lookup, newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		require.Nil(t, exec.Failure())
		require.Equal(t, []steps.Code{
			steps.ComputeLocalHash,
			steps.CompareHashes,
			steps.CheckMerkleRoot,
			steps.CheckReceipt,
		}, exec.Codes())
		require.Zero(t, lookup.Lookups())
		require.Equal(t, "2022-02-03T14:00:00Z", s.SigningDate())
	})

	t.Run("mock chain with wrong merkle root", func(t *testing.T) {
		bc, err := chain.Get(chain.Mocknet)
		require.NoError(t, err)

		f := certtestutil.NewV2(t, certtestutil.WithChain(bc), certtestutil.WithWrongMerkleRoot())

		s := newInitializedSuite(t, f, mocks.NewTxLookup(), newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckMerkleRoot, failure.Code)
		require.EqualError(t, failure.Err, "Merkle root does not match remote hash.")
	})

	t.Run("tampered certificate", func(t *testing.T) {
		f := certtestutil.NewV2(t, certtestutil.WithTamperedContent())
		lookup := mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, f.Transaction())

		s := newInitializedSuite(t, f, lookup, newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CompareHashes, failure.Code)
		require.EqualError(t, failure.Err, "Computed hash does not match remote hash")
		require.Equal(t, steps.CompareHashes, exec.Codes()[len(exec.Codes())-1])
		require.Zero(t, exec.Helpers())
	})

	t.Run("transaction lookup error", func(t *testing.T) {
		f := certtestutil.NewV2(t)
		lookup := mocks.NewTxLookup().WithError(errors.New("injected lookup error"))

		s := newInitializedSuite(t, f, lookup, newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.FetchRemoteHash, failure.Code)
		require.EqualError(t, failure.Err, "Unable to get remote hash")

		var sf *suite.Failure
		require.True(t, errors.As(failure.Err, &sf))
		require.Contains(t, sf.Cause.Error(), "injected lookup error")
	})

	t.Run("remote hash mismatch", func(t *testing.T) {
		f := certtestutil.NewV2(t)
		tx := f.Transaction()
		tx.RemoteHash = certtestutil.Sibling

		s := newInitializedSuite(t, f, mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, tx),
			newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckMerkleRoot, failure.Code)
	})

	t.Run("malformed receipt", func(t *testing.T) {
		f := certtestutil.NewV2(t, certtestutil.WithWrongMerkleRoot())
		lookup := mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, f.Transaction())

		s := newInitializedSuite(t, f, lookup, newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckReceipt, failure.Code)
		require.EqualError(t, failure.Err,
			"The receipt is malformed. There was a problem navigating the merkle tree in the receipt.")
	})

	t.Run("issuing address not published by the issuer", func(t *testing.T) {
		f := certtestutil.NewV2(t)
		tx := f.Transaction()
		tx.IssuingAddress = "n2eMqTT929pb1RDNuqEnxdaLau1rxy3efi"

		s := newInitializedSuite(t, f, mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, tx),
			newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckIssuerSignature, failure.Code)
		require.EqualError(t, failure.Err, "Issuer identity mismatch - The identity document provided by the "+
			"issuer does not match the verification method")
	})

	t.Run("issuing key revoked before the transaction", func(t *testing.T) {
		f := certtestutil.NewV2(t)
		lookup := mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, f.Transaction())

		profile := certtestutil.Profile()
		profile.PublicKeys[0].Revoked = "2020-01-01T00:00:00Z"

		s := newInitializedSuite(t, f, lookup,
			mocks.NewProfileResolver().WithProfile(certtestutil.IssuerProfileURL, profile))

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckAuthenticity, failure.Code)
		require.EqualError(t, failure.Err,
			"Transaction occurred at time when issuing address was not considered valid.")
		require.ErrorIs(t, failure.Err, issuer.ErrKeyNotValid)
	})

	t.Run("revoked by spent output", func(t *testing.T) {
		f := certtestutil.NewV2(t)
		tx := f.Transaction()
		tx.RevokedAddresses = []string{certtestutil.RevocationAddress}

		s := newInitializedSuite(t, f, mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, tx),
			newProfileResolver())

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.Equal(t, steps.CheckAuthenticity, failure.Code)
		require.EqualError(t, failure.Err, "This certificate has been revoked by the issuer.")
	})

	t.Run("localized failure", func(t *testing.T) {
		f := certtestutil.NewV2(t, certtestutil.WithTamperedContent())
		lookup := mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, f.Transaction())

		sctx := newContext(f, lookup, newProfileResolver())
		sctx.Text = i18n.New("fr")

		s, err := New(sctx)
		require.NoError(t, err)
		require.NoError(t, s.Init(context.Background()))

		exec := suitetestutil.NewExecutor()
		s.VerifyProof(context.Background(), exec)

		failure := exec.Failure()
		require.NotNil(t, failure)
		require.EqualError(t, failure.Err, "L'empreinte calculée ne correspond pas à l'empreinte distante")
	})
}

func TestSuite_ProofVerificationSteps(t *testing.T) {
	t.Run("blockchain", func(t *testing.T) {
		s := newSuite(t, certtestutil.NewV2(t), mocks.NewTxLookup(), newProfileResolver())

		substeps := s.ProofVerificationSteps(steps.ProofVerification)
		require.Len(t, substeps, 8)

		for _, ss := range substeps {
			require.Equal(t, steps.ProofVerification, ss.ParentStep)
			require.NotEmpty(t, ss.Label)
		}

		require.Equal(t, steps.GetTransactionID, substeps[0].Code)
		require.Equal(t, "Get transaction ID", substeps[0].Label)
		require.Equal(t, steps.CheckAuthenticity, substeps[7].Code)
	})

	t.Run("mock chain", func(t *testing.T) {
		bc, err := chain.Get(chain.Mocknet)
		require.NoError(t, err)

		s := newSuite(t, certtestutil.NewV2(t, certtestutil.WithChain(bc)), mocks.NewTxLookup(), newProfileResolver())

		substeps := s.ProofVerificationSteps(steps.ProofVerification)
		require.Len(t, substeps, 4)

		for _, ss := range substeps {
			require.NotEqual(t, steps.FetchRemoteHash, ss.Code)
			require.NotEqual(t, steps.CheckIssuerSignature, ss.Code)
			require.NotEqual(t, steps.CheckAuthenticity, ss.Code)
		}
	})
}

func newProfileResolver() *mocks.ProfileResolver {
	return mocks.NewProfileResolver().WithProfile(certtestutil.IssuerProfileURL, certtestutil.Profile())
}

func newContext(f *certtestutil.Fixture, lookup *mocks.TxLookup, resolver *mocks.ProfileResolver) *suite.Context {
	return &suite.Context{
		Certificate:       f.Certificate,
		Proof:             f.Certificate.Proofs[0],
		Text:              i18n.New(i18n.DefaultLocale),
		Lookup:            lookup,
		IssuerResolver:    resolver,
		JSONCanonicalizer: mocks.NewCanonicalizer(),
		LDCanonicalizer:   mocks.NewCanonicalizer(),
		Clock: func() time.Time {
			return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		},
	}
}

func newSuite(t *testing.T, f *certtestutil.Fixture, lookup *mocks.TxLookup,
	resolver *mocks.ProfileResolver) suite.Suite {
	t.Helper()

	s, err := New(newContext(f, lookup, resolver))
	require.NoError(t, err)

	return s
}

func newInitializedSuite(t *testing.T, f *certtestutil.Fixture, lookup *mocks.TxLookup,
	resolver *mocks.ProfileResolver) suite.Suite {
	t.Helper()

	s := newSuite(t, f, lookup, resolver)
	require.NoError(t, s.Init(context.Background()))

	return s
}
