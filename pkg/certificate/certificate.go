/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package certificate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	bcerrors "github.com/trustbloc/blockcerts-verifier/pkg/errors"
	"github.com/trustbloc/blockcerts-verifier/pkg/internal/timeutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/merkle"
)

var logger = log.New("certificate")

// Version is a Blockcerts schema version.
type Version string

// Supported versions.
const (
	V1_1 Version = "1.1"
	V1_2 Version = "1.2"
	V2   Version = "2.0"
	V3   Version = "3.0"
)

// Proof types.
const (
	MerkleProof2017    = "MerkleProof2017"
	MerkleProof2019    = "MerkleProof2019"
	ChainpointSHA256v2 = "ChainpointSHA256v2"
)

// Fields holding the proof of a document. They are removed before the document is hashed.
const (
	FieldSignature = "signature"
	FieldReceipt   = "receipt"
	FieldProof     = "proof"
)

const (
	contextV1     = "https://w3id.org/blockcerts/v1"
	contextV2     = "https://w3id.org/blockcerts/v2"
	contextV3     = "https://w3id.org/blockcerts/v3"
	contextVCV1   = "https://www.w3.org/2018/credentials/v1"
	contextV2Alt  = "blockcerts/v2"
	contextV3Alt  = "blockcerts/v3"
	contextV1Alt  = "blockcerts/v1"
	fieldDocument = "document"
)

// ErrNoProof is returned when the document has no proof.
var ErrNoProof = errors.New("certificate has no proof")

// Issuer identifies the issuer of a certificate.
type Issuer struct {
	// ID is the issuer profile URL or the issuer DID.
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ProfileURL returns the issuer profile URL, or an empty string if the issuer is identified by a DID.
func (i *Issuer) ProfileURL() string {
	if strings.HasPrefix(i.ID, "http://") || strings.HasPrefix(i.ID, "https://") {
		return i.ID
	}

	return ""
}

// Proof is a signature or anchor attached to a certificate.
type Proof struct {
	Index              int                    `json:"index"`
	Type               string                 `json:"type"`
	Chain              *chain.Blockchain      `json:"chain,omitempty"`
	TransactionID      string                 `json:"transactionId,omitempty"`
	Receipt            *merkle.Receipt        `json:"receipt,omitempty"`
	Created            *time.Time             `json:"created,omitempty"`
	VerificationMethod string                 `json:"verificationMethod,omitempty"`
	HashAlgorithm      string                 `json:"hashAlgorithm,omitempty"`
	Raw                map[string]interface{} `json:"-"`
}

// Certificate is a parsed Blockcerts credential.
type Certificate struct {
	Version            Version                `json:"version"`
	ID                 string                 `json:"id"`
	Name               string                 `json:"name,omitempty"`
	Issuer             *Issuer                `json:"issuer"`
	IssuedOn           string                 `json:"issuedOn,omitempty"`
	Expires            string                 `json:"expires,omitempty"`
	RevocationKey      string                 `json:"revocationKey,omitempty"`
	RecipientPublicKey string                 `json:"recipientPublicKey,omitempty"`
	Chain              *chain.Blockchain      `json:"chain,omitempty"`
	Proofs             []*Proof               `json:"proofs"`
	Document           map[string]interface{} `json:"-"`

	// Literal is the unsigned document of a v1 certificate as it appears in the raw JSON, compacted
	// and with its members in their original order. v1 certificates are hashed in this form.
	Literal []byte `json:"-"`
}

// Parse parses a raw Blockcerts document. Errors are 'bad request' errors.
func Parse(raw []byte) (*Certificate, error) {
	doc := make(map[string]interface{})

	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, bcerrors.NewBadRequestf("invalid certificate JSON: %w", err)
	}

	cert, err := parseDocument(doc)
	if err != nil {
		return nil, bcerrors.NewBadRequest(err)
	}

	if cert.Version == V1_1 || cert.Version == V1_2 {
		cert.Literal, err = literalDocument(raw)
		if err != nil {
			return nil, bcerrors.NewBadRequestf("invalid certificate JSON: %w", err)
		}
	}

	logger.Debug("Parsed certificate", logfields.WithCredentialID(cert.ID), logfields.WithIssuerID(cert.Issuer.ID),
		logfields.WithProofTypes(cert.ProofTypes()...))

	return cert, nil
}

// ProofTypes returns the type of each proof in order.
func (c *Certificate) ProofTypes() []string {
	types := make([]string, len(c.Proofs))

	for i, p := range c.Proofs {
		types[i] = p.Type
	}

	return types
}

// UnsignedDocument returns a copy of the document without its proof fields.
func (c *Certificate) UnsignedDocument() map[string]interface{} {
	unsigned := make(map[string]interface{}, len(c.Document))

	for k, v := range c.Document {
		if k == FieldSignature || k == FieldReceipt || k == FieldProof {
			continue
		}

		unsigned[k] = v
	}

	return unsigned
}

// literalDocument returns the unsigned document of a v1 certificate in compact form. The members of the
// embedded document, or of the certificate itself if there is no embedded document, keep their order.
func literalDocument(raw []byte) ([]byte, error) {
	members, err := objectMembers(raw)
	if err != nil {
		return nil, err
	}

	for _, m := range members {
		if m.key == fieldDocument && len(m.value) > 0 && m.value[0] == '{' {
			if members, err = objectMembers(m.value); err != nil {
				return nil, fmt.Errorf("%s: %w", fieldDocument, err)
			}

			break
		}
	}

	var buf bytes.Buffer

	buf.WriteByte('{')

	first := true

	for _, m := range members {
		if m.key == FieldSignature || m.key == FieldReceipt || m.key == FieldProof {
			continue
		}

		if !first {
			buf.WriteByte(',')
		}

		first = false

		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')

		if err := json.Compact(&buf, m.value); err != nil {
			return nil, fmt.Errorf("compact member %s: %w", m.key, err)
		}
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

type member struct {
	key   string
	value json.RawMessage
}

// objectMembers returns the members of a JSON object in document order.
func objectMembers(raw []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expecting a JSON object")
	}

	var members []member

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		var value json.RawMessage

		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode member %s: %w", key, err)
		}

		members = append(members, member{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return members, nil
}

func parseDocument(doc map[string]interface{}) (*Certificate, error) {
	version, err := detectVersion(doc)
	if err != nil {
		return nil, err
	}

	var cert *Certificate

	switch version {
	case V1_1, V1_2:
		cert, err = parseV1(doc, version)
	case V2:
		cert, err = parseV2(doc)
	default:
		cert, err = parseV3(doc)
	}

	if err != nil {
		return nil, err
	}

	if len(cert.Proofs) == 0 {
		return nil, ErrNoProof
	}

	if cert.Issuer == nil || cert.Issuer.ID == "" {
		return nil, fmt.Errorf("certificate has no issuer")
	}

	cert.Chain = cert.Proofs[0].Chain

	return cert, nil
}

func detectVersion(doc map[string]interface{}) (Version, error) {
	contexts := stringValues(doc["@context"])

	for _, c := range contexts {
		switch {
		case c == contextV3 || strings.HasSuffix(c, contextV3Alt) || c == contextVCV1:
			return V3, nil
		case c == contextV2 || strings.HasSuffix(c, contextV2Alt):
			return V2, nil
		}
	}

	for _, c := range contexts {
		if c == contextV1 || strings.HasSuffix(c, contextV1Alt) {
			if _, ok := doc[FieldReceipt]; ok {
				return V1_2, nil
			}

			return V1_1, nil
		}
	}

	// v1.1 documents may carry no context at the top level.
	if _, ok := doc[fieldDocument]; ok {
		return V1_2, nil
	}

	return "", fmt.Errorf("unsupported certificate version (@context: %v)", contexts)
}

func parseV1(doc map[string]interface{}, version Version) (*Certificate, error) {
	document, ok := doc[fieldDocument].(map[string]interface{})
	if !ok {
		document = doc
	}

	certificate := object(document, "certificate")
	assertion := object(document, "assertion")
	recipient := object(document, "recipient")
	issuer := object(certificate, "issuer")

	cert := &Certificate{
		Version:            version,
		ID:                 firstString(assertion, "uid", "id"),
		Name:               str(certificate, "name"),
		Issuer:             &Issuer{ID: str(issuer, "id"), Name: str(issuer, "name")},
		IssuedOn:           str(assertion, "issuedOn"),
		Expires:            str(assertion, "expires"),
		RevocationKey:      str(recipient, "revocationKey"),
		RecipientPublicKey: str(recipient, "publicKey"),
		Document:           document,
	}

	if rawReceipt, ok := doc[FieldReceipt].(map[string]interface{}); ok {
		proof, err := parseReceiptProof(0, ChainpointSHA256v2, rawReceipt, cert.RecipientPublicKey)
		if err != nil {
			return nil, err
		}

		cert.Proofs = append(cert.Proofs, proof)
	}

	return cert, nil
}

func parseV2(doc map[string]interface{}) (*Certificate, error) {
	badge := object(doc, "badge")
	recipientProfile := object(doc, "recipientProfile")

	cert := &Certificate{
		Version:            V2,
		ID:                 str(doc, "id"),
		Name:               str(badge, "name"),
		Issuer:             parseIssuer(badge["issuer"]),
		IssuedOn:           str(doc, "issuedOn"),
		Expires:            str(doc, "expires"),
		RecipientPublicKey: strings.TrimPrefix(str(recipientProfile, "publicKey"), "ecdsa-koblitz-pubkey:"),
		Document:           doc,
	}

	if signature, ok := doc[FieldSignature].(map[string]interface{}); ok {
		proofType := MerkleProof2017

		for _, t := range stringValues(signature["type"]) {
			if t == MerkleProof2017 || t == ChainpointSHA256v2 {
				proofType = t

				break
			}
		}

		proof, err := parseReceiptProof(0, proofType, signature, cert.RecipientPublicKey)
		if err != nil {
			return nil, err
		}

		cert.Proofs = append(cert.Proofs, proof)
	}

	return cert, nil
}

func parseV3(doc map[string]interface{}) (*Certificate, error) {
	cert := &Certificate{
		Version:  V3,
		ID:       str(doc, "id"),
		Name:     str(doc, "name"),
		Issuer:   parseIssuer(doc["issuer"]),
		IssuedOn: firstString(doc, "issuanceDate", "validFrom"),
		Expires:  firstString(doc, "expirationDate", "validUntil"),
		Document: doc,
	}

	var rawProofs []map[string]interface{}

	switch p := doc[FieldProof].(type) {
	case map[string]interface{}:
		rawProofs = append(rawProofs, p)
	case []interface{}:
		for _, v := range p {
			if m, ok := v.(map[string]interface{}); ok {
				rawProofs = append(rawProofs, m)
			}
		}
	}

	for i, raw := range rawProofs {
		proof, err := parseV3Proof(i, raw)
		if err != nil {
			return nil, err
		}

		cert.Proofs = append(cert.Proofs, proof)
	}

	return cert, nil
}

func parseV3Proof(index int, raw map[string]interface{}) (*Proof, error) {
	proof := &Proof{
		Index:              index,
		Type:               str(raw, "type"),
		VerificationMethod: str(raw, "verificationMethod"),
		HashAlgorithm:      str(raw, "hashAlgorithm"),
		Raw:                raw,
	}

	created, err := timeutil.ParseOptional(str(raw, "created"))
	if err != nil {
		return nil, fmt.Errorf("proof %d: %w", index, err)
	}

	proof.Created = created

	if proof.Type != MerkleProof2019 {
		// Other proof types are rejected by the verifier.
		return proof, nil
	}

	pv, err := DecodeProofValue(str(raw, "proofValue"))
	if err != nil {
		return nil, fmt.Errorf("proof %d: %w", index, err)
	}

	receipt, err := pv.Receipt()
	if err != nil {
		return nil, fmt.Errorf("proof %d: %w", index, err)
	}

	proof.Receipt = receipt

	if err := setAnchor(proof, ""); err != nil {
		return nil, fmt.Errorf("proof %d: %w", index, err)
	}

	return proof, nil
}

func parseReceiptProof(index int, proofType string, raw map[string]interface{}, address string) (*Proof, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt: %w", err)
	}

	receipt := &merkle.Receipt{}

	if err := json.Unmarshal(b, receipt); err != nil {
		return nil, fmt.Errorf("invalid receipt: %w", err)
	}

	proof := &Proof{
		Index:         index,
		Type:          proofType,
		Receipt:       receipt,
		HashAlgorithm: str(raw, "hashAlgorithm"),
		Raw:           raw,
	}

	if err := setAnchor(proof, address); err != nil {
		return nil, err
	}

	return proof, nil
}

func setAnchor(proof *Proof, address string) error {
	var anchorChain string

	if len(proof.Receipt.Anchors) > 0 {
		anchor := proof.Receipt.Anchors[0]

		proof.TransactionID = anchor.SourceID
		anchorChain = anchor.Chain
	}

	bc, err := chain.Detect(anchorChain, address)
	if err != nil {
		return err
	}

	proof.Chain = bc

	return nil
}

func parseIssuer(v interface{}) *Issuer {
	switch i := v.(type) {
	case string:
		return &Issuer{ID: i}
	case map[string]interface{}:
		return &Issuer{ID: str(i, "id"), Name: str(i, "name")}
	default:
		return nil
	}
}

func object(m map[string]interface{}, key string) map[string]interface{} {
	if o, ok := m[key].(map[string]interface{}); ok {
		return o
	}

	return map[string]interface{}{}
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string) //nolint:errcheck

	return s
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := str(m, k); s != "" {
			return s
		}
	}

	return ""
}

func stringValues(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		var values []string

		for _, e := range t {
			if s, ok := e.(string); ok {
				values = append(values, s)
			}
		}

		return values
	default:
		return nil
	}
}
