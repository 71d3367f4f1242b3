/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anchored

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/explorer"
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/merkle"
	"github.com/trustbloc/blockcerts-verifier/pkg/multihash"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
)

var logger = log.New("anchored-suite")

// Localized error keys.
const (
	errGetTransactionID     = "getTransactionId"
	errComputeLocalHash     = "computeLocalHash"
	errLookForTx            = "lookForTx"
	errHashesNotEqual       = "ensureHashesEqual"
	errMerkleRootNotEqual   = "ensureMerkleRootEqual"
	errInvalidReceipt       = "ensureValidReceipt"
	errInvalidIssuingKey    = "ensureValidIssuingKey"
	errRevokedBySpentOutput = "ensureNotRevokedBySpentOutput"
	errGetIssuerProfile     = "getIssuerProfile"
	errParseIssuerKeys      = "parseIssuerKeys"

	// ErrIdentityMismatch is the localized error key reported when the issuer identity cannot be
	// matched with the anchoring transaction.
	ErrIdentityMismatch = "issuerIdentityMismatch"
)

// IdentitySteps runs the checkIssuerSignature and checkAuthenticity steps of a suite. They are
// only run for proofs anchored in a production chain.
type IdentitySteps func(ctx context.Context, exec suite.Executor)

// Base implements the steps shared by proofs anchored in a blockchain with a Merkle receipt.
type Base struct {
	sctx          *suite.Context
	proofType     string
	identity      IdentitySteps
	chain         *chain.Blockchain
	receipt       *merkle.Receipt
	hashAlgorithm string

	profile   *issuer.Profile
	keys      []*issuer.Key
	localHash string
	txData    *explorer.TransactionData
	signerKey *issuer.Key
}

// New returns the base for the proof in the given context. The identity steps are run after the
// receipt has been checked.
func New(sctx *suite.Context, identity IdentitySteps) (*Base, error) {
	if sctx == nil || sctx.Certificate == nil || sctx.Proof == nil {
		return nil, errors.New("certificate and proof are required")
	}

	if identity == nil {
		return nil, errors.New("identity steps are required")
	}

	proof := sctx.Proof

	if proof.Receipt == nil {
		return nil, fmt.Errorf("proof %d of type %s has no receipt", proof.Index, proof.Type)
	}

	if proof.Chain == nil {
		return nil, fmt.Errorf("proof %d of type %s is not anchored in a known chain", proof.Index, proof.Type)
	}

	alg := proof.HashAlgorithm
	if alg == "" {
		alg = multihash.DefaultAlgorithm
	}

	if _, err := multihash.Code(alg); err != nil {
		return nil, fmt.Errorf("proof %d: %w", proof.Index, err)
	}

	return &Base{
		sctx:          sctx,
		proofType:     proof.Type,
		identity:      identity,
		chain:         proof.Chain,
		receipt:       proof.Receipt,
		hashAlgorithm: alg,
	}, nil
}

// Type returns the proof type.
func (b *Base) Type() string {
	return b.proofType
}

// ProofVerificationSteps returns the substeps reported under the given parent.
func (b *Base) ProofVerificationSteps(parent steps.Code) []*steps.Substep {
	codes := b.stepCodes()

	substeps := make([]*steps.Substep, len(codes))

	for i, code := range codes {
		substeps[i] = steps.ConvertToSubstep(parent, code, b.sctx.Text)
	}

	return substeps
}

// Mock chains have no transaction so the steps that need it are not declared.
func (b *Base) stepCodes() []steps.Code {
	if b.IsMockChain() {
		return []steps.Code{
			steps.ComputeLocalHash,
			steps.CompareHashes,
			steps.CheckMerkleRoot,
			steps.CheckReceipt,
		}
	}

	return []steps.Code{
		steps.GetTransactionID,
		steps.ComputeLocalHash,
		steps.FetchRemoteHash,
		steps.CompareHashes,
		steps.CheckMerkleRoot,
		steps.CheckReceipt,
		steps.CheckIssuerSignature,
		steps.CheckAuthenticity,
	}
}

// VerifyProof runs the verification steps of the proof.
func (b *Base) VerifyProof(ctx context.Context, exec suite.Executor) {
	mock := b.IsMockChain()

	if !mock {
		exec.ExecuteStep(ctx, steps.GetTransactionID, b.proofType, b.GetTransactionID)
	}

	exec.ExecuteStep(ctx, steps.ComputeLocalHash, b.proofType, b.ComputeLocalHash)

	if !mock {
		exec.ExecuteStep(ctx, steps.FetchRemoteHash, b.proofType, b.FetchRemoteHash)
	}

	exec.ExecuteStep(ctx, steps.CompareHashes, b.proofType, b.CompareHashes)

	var root string

	rootErr := exec.ExecuteHelper(ctx, func(context.Context) error {
		var err error

		root, err = b.ComputeMerkleRoot()

		return err
	})

	exec.ExecuteStep(ctx, steps.CheckMerkleRoot, b.proofType, func(context.Context) error {
		if rootErr != nil {
			return rootErr
		}

		return b.CheckMerkleRoot(root)
	})

	exec.ExecuteStep(ctx, steps.CheckReceipt, b.proofType, b.CheckReceipt)

	if mock {
		return
	}

	b.identity(ctx, exec)
}

// SuiteContext returns the suite context.
func (b *Base) SuiteContext() *suite.Context {
	return b.sctx
}

// IsMockChain returns true if the proof is anchored in a mock chain.
func (b *Base) IsMockChain() bool {
	return b.chain.IsMockChain()
}

// Profile returns the resolved issuer profile or nil if the issuer has no hosted profile.
func (b *Base) Profile() *issuer.Profile {
	return b.profile
}

// Keys returns the keys published in the issuer profile.
func (b *Base) Keys() []*issuer.Key {
	return b.keys
}

// TransactionData returns the data of the anchoring transaction once it has been fetched.
func (b *Base) TransactionData() *explorer.TransactionData {
	return b.txData
}

// Failure returns a step failure with the localized text for the given key.
func (b *Base) Failure(key string, cause error) error {
	return suite.NewFailure(b.sctx.Text, key, cause)
}

// ResolveIssuer retrieves the issuer profile at the given URL and parses its keys. If requireKeys
// is false then a profile without keys is accepted.
func (b *Base) ResolveIssuer(ctx context.Context, profileURL string, requireKeys bool) error {
	if b.sctx.IssuerResolver == nil {
		return errors.New("issuer profile resolver is not configured")
	}

	profile, err := b.sctx.IssuerResolver.Resolve(ctx, profileURL)
	if err != nil {
		return fmt.Errorf("%s: %w", b.sctx.Text.Text(i18n.GroupErrors, errGetIssuerProfile), err)
	}

	keys, err := issuer.ParseKeys(profile)
	if err != nil && (requireKeys || !errors.Is(err, issuer.ErrNoKeys)) {
		return fmt.Errorf("%s: %w", b.sctx.Text.Text(i18n.GroupErrors, errParseIssuerKeys), err)
	}

	logger.Debug("Resolved issuer profile", logfields.WithIssuerID(profile.ID),
		logfields.WithRequestURL(profileURL), logfields.WithSize(len(keys)))

	b.profile = profile
	b.keys = keys

	return nil
}

// GetTransactionID ensures the receipt references an anchoring transaction.
func (b *Base) GetTransactionID(context.Context) error {
	if b.TransactionID() == "" {
		return b.Failure(errGetTransactionID, errors.New("receipt has no anchor source ID"))
	}

	return nil
}

// ComputeLocalHash hashes the canonical form of the unsigned certificate. v1 certificates are hashed
// in their literal form.
func (b *Base) ComputeLocalHash(context.Context) error {
	data, err := b.canonicalForm()
	if err != nil {
		return b.Failure(errComputeLocalHash, err)
	}

	hash, err := multihash.HexDigest(b.hashAlgorithm, data)
	if err != nil {
		return b.Failure(errComputeLocalHash, err)
	}

	logger.Debug("Computed local hash", logfields.WithHash(hash), logfields.WithCredentialID(b.sctx.Certificate.ID))

	b.localHash = hash

	return nil
}

func (b *Base) canonicalForm() ([]byte, error) {
	cert := b.sctx.Certificate

	if len(cert.Literal) > 0 {
		return cert.Literal, nil
	}

	canon := b.sctx.Canonicalizer()
	if canon == nil {
		return nil, fmt.Errorf("no canonicalizer for certificate version %s", cert.Version)
	}

	return canon.Canonicalize(cert.UnsignedDocument())
}

// FetchRemoteHash looks up the anchoring transaction.
func (b *Base) FetchRemoteHash(ctx context.Context) error {
	if b.sctx.Lookup == nil {
		return b.Failure(errLookForTx, errors.New("transaction lookup is not configured"))
	}

	txData, err := b.sctx.Lookup.LookForTx(ctx, b.TransactionID(), b.chain)
	if err != nil {
		return b.Failure(errLookForTx, err)
	}

	logger.Debug("Fetched remote hash", logfields.WithTransactionID(b.TransactionID()),
		logfields.WithChain(string(b.chain.Code)), logfields.WithHash(txData.RemoteHash))

	b.txData = txData

	return nil
}

// CompareHashes compares the local hash with the target hash of the receipt.
func (b *Base) CompareHashes(context.Context) error {
	if !merkle.EqualHex(b.localHash, b.receipt.TargetHash) {
		return b.Failure(errHashesNotEqual,
			fmt.Errorf("local hash [%s] does not match target hash [%s]", b.localHash, b.receipt.TargetHash))
	}

	return nil
}

// ComputeMerkleRoot folds the receipt path into a Merkle root.
func (b *Base) ComputeMerkleRoot() (string, error) {
	root, err := merkle.ComputeRootHex(b.hashAlgorithm, b.receipt.TargetHash, b.receipt.Proof)
	if err != nil {
		return "", b.Failure(errMerkleRootNotEqual, err)
	}

	return root, nil
}

// CheckMerkleRoot compares the given root with the hash anchored in the transaction. On mock
// chains there is no transaction and the root declared in the receipt is used instead.
func (b *Base) CheckMerkleRoot(root string) error {
	expected := b.receipt.MerkleRoot

	if !b.IsMockChain() {
		if b.txData == nil {
			return b.Failure(errMerkleRootNotEqual, errors.New("remote hash is not available"))
		}

		expected = b.txData.RemoteHash
	}

	if !merkle.EqualHex(root, expected) {
		return b.Failure(errMerkleRootNotEqual,
			fmt.Errorf("merkle root [%s] does not match expected hash [%s]", root, expected))
	}

	return nil
}

// CheckReceipt validates the structure of the receipt.
func (b *Base) CheckReceipt(context.Context) error {
	if err := merkle.Validate(b.hashAlgorithm, b.receipt); err != nil {
		return b.Failure(errInvalidReceipt, err)
	}

	return nil
}

// CheckIssuingKey ensures the issuing address belongs to a key that was valid at the signing date.
func (b *Base) CheckIssuingKey(address string, signingDate time.Time) error {
	key, err := issuer.SelectKey(b.keys, address, signingDate)
	if err != nil {
		return b.Failure(errInvalidIssuingKey, err)
	}

	b.signerKey = key

	return nil
}

// CheckNotRevokedBySpentOutput ensures no revocation address of the issuer or the certificate was
// spent by the anchoring transaction.
func (b *Base) CheckNotRevokedBySpentOutput() error {
	if b.txData == nil || len(b.txData.RevokedAddresses) == 0 {
		return nil
	}

	var revocationAddresses []string

	if cert := b.sctx.Certificate; cert.RevocationKey != "" {
		revocationAddresses = append(revocationAddresses, cert.RevocationKey)
	}

	if b.profile != nil {
		for _, k := range b.profile.RevocationKeys {
			revocationAddresses = append(revocationAddresses, strings.TrimPrefix(k.Key, issuer.PublicKeyPrefix))
		}
	}

	for _, spent := range b.txData.RevokedAddresses {
		for _, a := range revocationAddresses {
			if a == spent {
				return b.Failure(errRevokedBySpentOutput, fmt.Errorf("revocation address [%s] was spent", a))
			}
		}
	}

	return nil
}

// IssuingAddress returns the address which signed the anchoring transaction.
func (b *Base) IssuingAddress() string {
	if b.txData == nil {
		return ""
	}

	return b.txData.IssuingAddress
}

// Chain returns the chain in which the proof is anchored.
func (b *Base) Chain() *chain.Blockchain {
	return b.chain
}

// TransactionID returns the ID of the anchoring transaction.
func (b *Base) TransactionID() string {
	if len(b.receipt.Anchors) == 0 {
		return ""
	}

	return b.receipt.Anchors[0].SourceID
}

// TransactionLink returns the URL of the anchoring transaction in a block explorer.
func (b *Base) TransactionLink() string {
	return b.chain.TransactionLink(b.TransactionID())
}

// RawTransactionLink returns the URL of the raw anchoring transaction.
func (b *Base) RawTransactionLink() string {
	return b.chain.RawTransactionLink(b.TransactionID())
}

// IssuerPublicKey returns the issuer key that signed the transaction, falling back to the issuing address.
func (b *Base) IssuerPublicKey() string {
	if b.signerKey != nil {
		return b.signerKey.PublicKey
	}

	return b.IssuingAddress()
}

// IssuerName returns the name of the issuer.
func (b *Base) IssuerName() string {
	if b.profile != nil && b.profile.Name != "" {
		return b.profile.Name
	}

	if b.sctx.Certificate.Issuer != nil {
		return b.sctx.Certificate.Issuer.Name
	}

	return ""
}

// IssuerProfileDomain returns the domain of the issuer profile.
func (b *Base) IssuerProfileDomain() string {
	if b.profile == nil {
		return ""
	}

	return b.profile.Domain()
}

// IssuerProfileURL returns the URL of the issuer profile.
func (b *Base) IssuerProfileURL() string {
	if b.sctx.Certificate.Issuer == nil {
		return ""
	}

	return b.sctx.Certificate.Issuer.ProfileURL()
}

// FormatDate formats a signing date. The zero time yields an empty string.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}
