/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package certtestutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/blockcerts-verifier/pkg/canonicalizer"
	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/explorer"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/merkle"
	"github.com/trustbloc/blockcerts-verifier/pkg/multihash"
)

// Test fixture values.
const (
	CertificateID     = "urn:uuid:3bc1a96a-3501-46ed-8f75-49612bbac257"
	IssuerProfileURL  = "https://issuer.example.com/issuer.json"
	RevocationListURL = "https://issuer.example.com/revocation-list.json"
	IssuerName        = "Example University"
	IssuingAddress    = "mgdWjvq4RYAAP5goUNagTRMx7Xw534S5am"
	RevocationAddress = "mzAJ2vKXdRcPiDdfNgCQvmGfRxA7aCwKps"
	TransactionID     = "8623beadbc7877a9e20fb7f83eda6c1a1fc350171f0714ff6c6c4054018eb54d"
	Sibling           = "11174e220d5b2e8ea09bbc5e5c0e0e6a8a7a71a0bbd6d1f2d1e8c6f1bea4fb1e"
)

// Fixture is a signed test certificate along with the data a verifier needs to check it.
type Fixture struct {
	Raw         []byte
	Certificate *certificate.Certificate
	LocalHash   string
	MerkleRoot  string
}

// Option customizes the test certificate.
type Option func(opts *options)

type options struct {
	chain              *chain.Blockchain
	expires            string
	issuerID           string
	verificationMethod string
	created            string
	tamper             bool
	unmappedField      bool
	wrongRoot          bool
	canonicalizer      canonicalizer.Canonicalizer
}

// WithChain sets the chain in which the certificate is anchored.
func WithChain(bc *chain.Blockchain) Option {
	return func(opts *options) {
		opts.chain = bc
	}
}

// WithExpires sets the expiration date of the certificate.
func WithExpires(value string) Option {
	return func(opts *options) {
		opts.expires = value
	}
}

// WithIssuerID sets the issuer ID (profile URL or DID).
func WithIssuerID(value string) Option {
	return func(opts *options) {
		opts.issuerID = value
	}
}

// WithVerificationMethod sets the verification method of a MerkleProof2019 proof.
func WithVerificationMethod(value string) Option {
	return func(opts *options) {
		opts.verificationMethod = value
	}
}

// WithCreated sets the creation date of a MerkleProof2019 proof.
func WithCreated(value string) Option {
	return func(opts *options) {
		opts.created = value
	}
}

// WithTamperedContent modifies the certificate after it has been hashed.
func WithTamperedContent() Option {
	return func(opts *options) {
		opts.tamper = true
	}
}

// WithUnmappedField adds a field which is not defined by the certificate's contexts after the
// certificate has been hashed.
func WithUnmappedField() Option {
	return func(opts *options) {
		opts.unmappedField = true
	}
}

// WithCanonicalizer sets the canonicalizer whose output is hashed. Defaults to the serialization of the
// mock canonicalizer.
func WithCanonicalizer(c canonicalizer.Canonicalizer) Option {
	return func(opts *options) {
		opts.canonicalizer = c
	}
}

// WithWrongMerkleRoot declares a Merkle root in the receipt which does not match its path.
func WithWrongMerkleRoot() Option {
	return func(opts *options) {
		opts.wrongRoot = true
	}
}

func newOptions(t *testing.T, opts []Option) *options {
	t.Helper()

	bc, err := chain.Get(chain.Testnet)
	require.NoError(t, err)

	o := &options{
		chain:    bc,
		expires:  "2039-12-31T00:00:00Z",
		issuerID: IssuerProfileURL,
		created:  "2022-02-03T14:08:54Z",
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// NewV2 returns a v2 certificate with a MerkleProof2017 signature.
func NewV2(t *testing.T, opts ...Option) *Fixture {
	t.Helper()

	o := newOptions(t, opts)

	doc := map[string]interface{}{
		"@context": []interface{}{"https://w3id.org/openbadges/v2", "https://w3id.org/blockcerts/v2"},
		"type":     "Assertion",
		"id":       CertificateID,
		"issuedOn": "2022-02-03T14:00:00Z",
		"recipientProfile": map[string]interface{}{
			"type":      []interface{}{"RecipientProfile", "Extension"},
			"name":      "Alice",
			"publicKey": "ecdsa-koblitz-pubkey:" + IssuingAddress,
		},
		"badge": map[string]interface{}{
			"name":   "Diploma",
			"issuer": map[string]interface{}{"id": o.issuerID, "name": IssuerName},
		},
	}

	if o.expires != "" {
		doc["expires"] = o.expires
	}

	localHash := o.hashDocument(t, doc)
	root, declaredRoot := merkleRoot(t, localHash, o.wrongRoot)

	doc["signature"] = map[string]interface{}{
		"type":       []interface{}{certificate.MerkleProof2017, "Extension"},
		"targetHash": localHash,
		"merkleRoot": declaredRoot,
		"proof":      []interface{}{map[string]interface{}{"right": Sibling}},
		"anchors": []interface{}{map[string]interface{}{
			"sourceId": TransactionID,
			"type":     certificate.AnchorTypeBTC,
			"chain":    o.chain.SignatureValue,
		}},
	}

	if o.tamper {
		doc["badge"].(map[string]interface{})["name"] = "Forged diploma"
	}

	if o.unmappedField {
		doc["badge"].(map[string]interface{})["grade"] = "A+"
	}

	return newFixture(t, doc, localHash, root)
}

// NewV3 returns a v3 certificate with a MerkleProof2019 proof.
func NewV3(t *testing.T, opts ...Option) *Fixture {
	t.Helper()

	o := newOptions(t, opts)

	doc := map[string]interface{}{
		"@context":          []interface{}{"https://www.w3.org/2018/credentials/v1", "https://w3id.org/blockcerts/v3"},
		"id":                CertificateID,
		"type":              []interface{}{"VerifiableCredential", "BlockcertsCredential"},
		"issuer":            o.issuerID,
		"issuanceDate":      "2022-02-03T14:00:00Z",
		"credentialSubject": map[string]interface{}{"id": "did:example:recipient", "name": "Alice"},
	}

	if o.expires != "" {
		doc["expirationDate"] = o.expires
	}

	localHash := o.hashDocument(t, doc)
	root, declaredRoot := merkleRoot(t, localHash, o.wrongRoot)

	proofValue, err := certificate.EncodeProofValue(&certificate.ProofValue{
		Path:       []merkle.Sibling{{Right: Sibling}},
		MerkleRoot: declaredRoot,
		TargetHash: localHash,
		Anchors:    []string{certificate.Blink(o.chain, TransactionID)},
	})
	require.NoError(t, err)

	proof := map[string]interface{}{
		"type":         certificate.MerkleProof2019,
		"proofValue":   proofValue,
		"proofPurpose": "assertionMethod",
	}

	if o.created != "" {
		proof["created"] = o.created
	}

	if o.verificationMethod != "" {
		proof["verificationMethod"] = o.verificationMethod
	}

	doc["proof"] = proof

	if o.tamper {
		doc["credentialSubject"].(map[string]interface{})["name"] = "Mallory"
	}

	if o.unmappedField {
		doc["credentialSubject"].(map[string]interface{})["grade"] = "A+"
	}

	return newFixture(t, doc, localHash, root)
}

// Transaction returns the transaction data anchoring the given fixture.
func (f *Fixture) Transaction() *explorer.TransactionData {
	return &explorer.TransactionData{
		RemoteHash:     f.MerkleRoot,
		IssuingAddress: IssuingAddress,
		Time:           time.Date(2022, 2, 3, 14, 8, 54, 0, time.UTC),
	}
}

// Profile returns an issuer profile publishing the issuing address.
func Profile() *issuer.Profile {
	return &issuer.Profile{
		ID:             IssuerProfileURL,
		Type:           "Profile",
		Name:           IssuerName,
		URL:            "https://issuer.example.com",
		RevocationList: RevocationListURL,
		PublicKeys: []*issuer.PublicKey{
			{ID: issuer.PublicKeyPrefix + IssuingAddress, Created: "2017-06-29T14:48:03.814+00:00"},
		},
		RevocationKeys: []*issuer.LegacyKey{{Key: issuer.PublicKeyPrefix + RevocationAddress}},
	}
}

// hashDocument hashes the output of the configured canonicalizer, or the document the way the mock
// canonicalizer serializes it.
func (o *options) hashDocument(t *testing.T, doc map[string]interface{}) string {
	t.Helper()

	if o.canonicalizer != nil {
		b, err := o.canonicalizer.Canonicalize(doc)
		require.NoError(t, err)

		hash, err := multihash.HexDigest(multihash.DefaultAlgorithm, b)
		require.NoError(t, err)

		return hash
	}

	b, err := json.Marshal(doc)
	require.NoError(t, err)

	normalized := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(b, &normalized))

	b, err = json.Marshal(normalized)
	require.NoError(t, err)

	hash, err := multihash.HexDigest(multihash.DefaultAlgorithm, b)
	require.NoError(t, err)

	return hash
}

func merkleRoot(t *testing.T, localHash string, wrong bool) (root, declared string) {
	t.Helper()

	root, err := merkle.ComputeRootHex(multihash.DefaultAlgorithm, localHash, []merkle.Sibling{{Right: Sibling}})
	require.NoError(t, err)

	if wrong {
		return root, Sibling
	}

	return root, root
}

func newFixture(t *testing.T, doc map[string]interface{}, localHash, root string) *Fixture {
	t.Helper()

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	cert, err := certificate.Parse(raw)
	require.NoError(t, err)

	return &Fixture{
		Raw:         raw,
		Certificate: cert,
		LocalHash:   localHash,
		MerkleRoot:  root,
	}
}
