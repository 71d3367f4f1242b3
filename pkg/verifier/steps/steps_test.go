/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package steps

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
)

func TestParentVerificationSteps(t *testing.T) {
	result := ParentVerificationSteps(i18n.New("en-US"))

	require.Len(t, result, 3)
	require.Equal(t, FormatValidation, result[0].Code)
	require.Equal(t, "Format validation", result[0].Label)
	require.Equal(t, "Validating format", result[0].LabelPending)
	require.Equal(t, ProofVerification, result[1].Code)
	require.Equal(t, StatusCheck, result[2].Code)

	for _, s := range result {
		require.True(t, s.IsEmpty())
	}
}

func TestVerificationMap(t *testing.T) {
	text := i18n.New("en-US")

	t.Run("default status checks", func(t *testing.T) {
		m := VerificationMap(text, DefaultStatusChecks)

		require.Equal(t, []Code{CheckRevokedStatus, CheckExpiresDate}, m.Process)
		require.Len(t, m.Steps, 3)
		require.Empty(t, m.Steps[0].Substeps)
		require.Empty(t, m.Steps[1].Substeps)

		status := m.Steps[2]
		require.Len(t, status.Substeps, 2)
		require.Equal(t, &Substep{
			Code:         CheckRevokedStatus,
			Label:        "Check Revoked Status",
			LabelPending: "Checking Revoked Status",
			ParentStep:   StatusCheck,
		}, status.Substeps[0])
		require.Equal(t, CheckExpiresDate, status.Substeps[1].Code)
	})

	t.Run("subset keeps candidate order", func(t *testing.T) {
		m := VerificationMap(text, []Code{CheckExpiresDate})

		require.Len(t, m.Steps[2].Substeps, 1)
		require.Equal(t, CheckExpiresDate, m.Steps[2].Substeps[0].Code)
	})

	t.Run("unknown code is kept in the process only", func(t *testing.T) {
		m := VerificationMap(text, []Code{CheckRevokedStatus, "checkSomethingElse"})

		require.Equal(t, []Code{CheckRevokedStatus, "checkSomethingElse"}, m.Process)
		require.Len(t, m.Steps[2].Substeps, 1)
	})

	t.Run("deterministic", func(t *testing.T) {
		require.Equal(t, VerificationMap(text, DefaultStatusChecks), VerificationMap(text, DefaultStatusChecks))
	})

	t.Run("localized", func(t *testing.T) {
		m := VerificationMap(i18n.New("fr"), DefaultStatusChecks)
		require.Equal(t, "Validation du format", m.Steps[0].Label)
	})
}

func TestNewSubstep(t *testing.T) {
	text := i18n.New("en-US")

	s := NewSubstep(ComputeLocalHash, text)
	require.Equal(t, FormatValidation, s.ParentStep)
	require.Equal(t, "Compute local hash", s.Label)

	require.Equal(t, ProofVerification, NewSubstep(CheckReceipt, text).ParentStep)
	require.Equal(t, StatusCheck, NewSubstep(CheckAuthenticity, text).ParentStep)
	require.Equal(t, Code(""), DictionaryParent("unknown"))

	s = ConvertToSubstep(ProofVerification, ComputeLocalHash, text)
	require.Equal(t, ProofVerification, s.ParentStep)
}

func TestFindSubstep(t *testing.T) {
	text := i18n.New("en-US")

	tree := VerificationMap(text, DefaultStatusChecks).Steps
	tree[1].Suites = []*SuiteSubsteps{
		{ProofType: "MerkleProof2017", Substeps: []*Substep{ConvertToSubstep(ProofVerification, CompareHashes, text)}},
		{ProofType: "MerkleProof2019", Substeps: []*Substep{ConvertToSubstep(ProofVerification, CheckReceipt, text)}},
	}

	require.NotNil(t, FindSubstep(CheckExpiresDate, tree, ""))
	require.NotNil(t, FindSubstep(CompareHashes, tree, "MerkleProof2017"))
	require.NotNil(t, FindSubstep(CompareHashes, tree, ""))
	require.Nil(t, FindSubstep(CompareHashes, tree, "MerkleProof2019"))
	require.Nil(t, FindSubstep(CheckMerkleRoot, tree, ""))
}

func TestClone(t *testing.T) {
	text := i18n.New("en-US")

	tree := VerificationMap(text, DefaultStatusChecks).Steps
	tree[1].Suites = []*SuiteSubsteps{
		{ProofType: "MerkleProof2017", Substeps: []*Substep{ConvertToSubstep(ProofVerification, CompareHashes, text)}},
	}

	c := Clone(tree)
	require.Equal(t, tree, c)

	c[2].Substeps[0].Label = "changed"
	c[1].Suites[0].Substeps[0].Code = "changed"

	require.Equal(t, "Check Revoked Status", tree[2].Substeps[0].Label)
	require.Equal(t, CompareHashes, tree[1].Suites[0].Substeps[0].Code)

	require.Nil(t, Clone(nil))
}
