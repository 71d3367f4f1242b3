/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anchored

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/blockcerts-verifier/internal/pkg/testutil/certtestutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
	"github.com/trustbloc/blockcerts-verifier/pkg/internal/testutil/suitetestutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/mocks"
	"github.com/trustbloc/blockcerts-verifier/pkg/multihash"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
)

func TestNew(t *testing.T) {
	f := certtestutil.NewV2(t)

	t.Run("success", func(t *testing.T) {
		b, err := New(newContext(f), (&identityRecorder{}).run)
		require.NoError(t, err)
		require.Equal(t, "MerkleProof2017", b.Type())
		require.Equal(t, chain.Testnet, b.Chain().Code)
		require.Equal(t, certtestutil.TransactionID, b.TransactionID())
	})

	t.Run("no identity steps", func(t *testing.T) {
		_, err := New(newContext(f), nil)
		require.EqualError(t, err, "identity steps are required")
	})

	t.Run("no proof", func(t *testing.T) {
		sctx := newContext(f)
		sctx.Proof = nil

		_, err := New(sctx, (&identityRecorder{}).run)
		require.EqualError(t, err, "certificate and proof are required")
	})

	t.Run("unsupported hash algorithm", func(t *testing.T) {
		sctx := newContext(f)

		proof := *sctx.Proof
		proof.HashAlgorithm = "rot13"
		sctx.Proof = &proof

		_, err := New(sctx, (&identityRecorder{}).run)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported hash algorithm [rot13]")
	})
}

func TestBase_VerifyProof(t *testing.T) {
	t.Run("production chain", func(t *testing.T) {
		f := certtestutil.NewV2(t)

		sctx := newContext(f)
		sctx.Lookup = mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, f.Transaction())

		identity := &identityRecorder{}

		b, err := New(sctx, identity.run)
		require.NoError(t, err)

		exec := suitetestutil.NewExecutor()
		b.VerifyProof(context.Background(), exec)

		require.Nil(t, exec.Failure())
		require.Equal(t, 1, identity.calls)
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
		require.Equal(t, certtestutil.IssuingAddress, b.IssuingAddress())

		substeps := b.ProofVerificationSteps(steps.ProofVerification)
		require.Len(t, substeps, len(exec.Codes()))

		for i, s := range substeps {
			require.Equal(t, exec.Codes()[i], s.Code)
			require.Equal(t, steps.ProofVerification, s.ParentStep)
		}
	})

	t.Run("mock chain", func(t *testing.T) {
		bc, err := chain.Get(chain.Mocknet)
		require.NoError(t, err)

		f := certtestutil.NewV2(t, certtestutil.WithChain(bc))

		identity := &identityRecorder{}

		b, err := New(newContext(f), identity.run)
		require.NoError(t, err)

		exec := suitetestutil.NewExecutor()
		b.VerifyProof(context.Background(), exec)

		require.Nil(t, exec.Failure())
		require.Zero(t, identity.calls)
		require.Equal(t, []steps.Code{
			steps.ComputeLocalHash,
			steps.CompareHashes,
			steps.CheckMerkleRoot,
			steps.CheckReceipt,
		}, exec.Codes())
		require.Len(t, b.ProofVerificationSteps(steps.ProofVerification), 4)
	})

	t.Run("identity steps are not run after a failure", func(t *testing.T) {
		f := certtestutil.NewV2(t, certtestutil.WithTamperedContent())

		sctx := newContext(f)
		sctx.Lookup = mocks.NewTxLookup().WithTransaction(certtestutil.TransactionID, f.Transaction())

		identity := &identityRecorder{}

		b, err := New(sctx, identity.run)
		require.NoError(t, err)

		exec := suitetestutil.NewExecutor()
		b.VerifyProof(context.Background(), exec)

		require.NotNil(t, exec.Failure())
		require.Equal(t, steps.CompareHashes, exec.Failure().Code)
		require.Zero(t, identity.calls)
	})
}

func TestBase_ComputeLocalHash(t *testing.T) {
	// The members are not in key order so the literal form differs from any sorted serialization.
	const literal = `{"recipient":{"publicKey":"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},` +
		`"certificate":{"name":"Diploma","issuer":{"name":"Example University",` +
		`"id":"https://issuer.example.com/issuer.json"}},` +
		`"assertion":{"uid":"68656c6c6f","issuedOn":"2016-10-03"}}`

	targetHash, err := multihash.HexDigest(multihash.DefaultAlgorithm, []byte(literal))
	require.NoError(t, err)

	raw := fmt.Sprintf(`{
  "@context": "https://w3id.org/blockcerts/v1",
  "document": {
    "recipient": {"publicKey": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
    "certificate": {"name": "Diploma",
      "issuer": {"name": "Example University", "id": "https://issuer.example.com/issuer.json"}},
    "assertion": {"uid": "68656c6c6f", "issuedOn": "2016-10-03"},
    "signature": "H0osFKllW8LrBhNMc4gC0TbRU0OK9Qgpebji1PgmNsgt"
  },
  "receipt": {
    "type": "ChainpointSHA256v2",
    "targetHash": "%s",
    "merkleRoot": "%s",
    "proof": [{"right": "%s"}],
    "anchors": [{"sourceId": "%s", "type": "BTCOpReturn"}]
  }
}`, targetHash, certtestutil.Sibling, certtestutil.Sibling, certtestutil.TransactionID)

	cert, err := certificate.Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, certificate.V1_2, cert.Version)

	t.Run("literal form", func(t *testing.T) {
		sctx := &suite.Context{
			Certificate:       cert,
			Proof:             cert.Proofs[0],
			Text:              i18n.New(i18n.DefaultLocale),
			JSONCanonicalizer: mocks.NewCanonicalizer(),
		}

		b, err := New(sctx, (&identityRecorder{}).run)
		require.NoError(t, err)

		require.NoError(t, b.ComputeLocalHash(context.Background()))
		require.NoError(t, b.CompareHashes(context.Background()))
	})

	t.Run("sorted form does not match", func(t *testing.T) {
		sorted := *cert
		sorted.Literal = nil

		sctx := &suite.Context{
			Certificate:       &sorted,
			Proof:             cert.Proofs[0],
			Text:              i18n.New(i18n.DefaultLocale),
			JSONCanonicalizer: mocks.NewCanonicalizer(),
		}

		b, err := New(sctx, (&identityRecorder{}).run)
		require.NoError(t, err)

		require.NoError(t, b.ComputeLocalHash(context.Background()))
		require.Error(t, b.CompareHashes(context.Background()))
	})
}

type identityRecorder struct {
	calls int
}

func (r *identityRecorder) run(ctx context.Context, exec suite.Executor) {
	exec.ExecuteStep(ctx, steps.CheckIssuerSignature, "MerkleProof2017", func(context.Context) error {
		r.calls++

		return nil
	})

	exec.ExecuteStep(ctx, steps.CheckAuthenticity, "MerkleProof2017", func(context.Context) error {
		return nil
	})
}

func newContext(f *certtestutil.Fixture) *suite.Context {
	return &suite.Context{
		Certificate:       f.Certificate,
		Proof:             f.Certificate.Proofs[0],
		Text:              i18n.New(i18n.DefaultLocale),
		Lookup:            mocks.NewTxLookup(),
		JSONCanonicalizer: mocks.NewCanonicalizer(),
		LDCanonicalizer:   mocks.NewCanonicalizer(),
		Clock: func() time.Time {
			return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		},
	}
}
