/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package certificate

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/merkle"
	"github.com/trustbloc/blockcerts-verifier/pkg/multihash"
)

const blinkScheme = "blink"

// Anchor types by chain family.
const (
	AnchorTypeBTC = "BTCOpReturn"
	AnchorTypeETH = "ETHData"
)

// Keys of the compressed proof value layout.
const (
	keyPath       = 0
	keyMerkleRoot = 1
	keyTargetHash = 2
	keyAnchors    = 3

	keyLeft  = 0
	keyRight = 1
)

type blinkChain struct {
	family   chain.Family
	networks map[uint64]string
}

// Chain and network identifiers of compressed blink anchors.
var blinkChains = map[uint64]blinkChain{ //nolint:gochecknoglobals
	1: {family: chain.FamilyBitcoin, networks: map[uint64]string{1: "mainnet", 3: "testnet"}},
	2: {family: chain.FamilyEthereum, networks: map[uint64]string{
		1: "mainnet", 3: "ropsten", 4: "rinkeby", 5: "goerli", 11155111: "sepolia",
	}},
}

// ProofValue is the decoded proofValue of a MerkleProof2019 proof.
type ProofValue struct {
	Path       []merkle.Sibling `cbor:"path"`
	MerkleRoot string           `cbor:"merkleRoot"`
	TargetHash string           `cbor:"targetHash"`
	Anchors    []string         `cbor:"anchors"`
}

// DecodeProofValue decodes a multibase encoded CBOR proof value. Both the compressed layout, which
// uses integer keys and binary hashes, and the layout keyed by field name are accepted.
func DecodeProofValue(value string) (*ProofValue, error) {
	data, err := multihash.DecodeMultibase(value)
	if err != nil {
		return nil, err
	}

	var compressed map[uint64]cbor.RawMessage

	if err := cbor.Unmarshal(data, &compressed); err == nil {
		return decodeCompressed(compressed)
	}

	pv := &ProofValue{}

	if err := cbor.Unmarshal(data, pv); err != nil {
		return nil, fmt.Errorf("failed to cbor.unmarshal proof value: %w", err)
	}

	return pv, nil
}

func decodeCompressed(m map[uint64]cbor.RawMessage) (*ProofValue, error) {
	pv := &ProofValue{}

	var (
		path    [][]cbor.RawMessage
		root    []byte
		target  []byte
		anchors []cbor.RawMessage
	)

	fields := []struct {
		key   uint64
		value interface{}
	}{
		{keyPath, &path},
		{keyMerkleRoot, &root},
		{keyTargetHash, &target},
		{keyAnchors, &anchors},
	}

	for _, f := range fields {
		raw, ok := m[f.key]
		if !ok {
			continue
		}

		if err := cbor.Unmarshal(raw, f.value); err != nil {
			return nil, fmt.Errorf("failed to cbor.unmarshal proof value field %d: %w", f.key, err)
		}
	}

	pv.MerkleRoot = hex.EncodeToString(root)
	pv.TargetHash = hex.EncodeToString(target)

	for _, node := range path {
		sibling, err := decodeSibling(node)
		if err != nil {
			return nil, err
		}

		pv.Path = append(pv.Path, *sibling)
	}

	for _, raw := range anchors {
		anchor, err := decodeAnchor(raw)
		if err != nil {
			return nil, err
		}

		pv.Anchors = append(pv.Anchors, anchor)
	}

	return pv, nil
}

func decodeSibling(node []cbor.RawMessage) (*merkle.Sibling, error) {
	if len(node) != 2 { //nolint:gomnd
		return nil, fmt.Errorf("invalid proof value path node: expecting 2 elements but got %d", len(node))
	}

	var (
		position uint64
		hash     []byte
	)

	if err := cbor.Unmarshal(node[0], &position); err != nil {
		return nil, fmt.Errorf("invalid proof value path node position: %w", err)
	}

	if err := cbor.Unmarshal(node[1], &hash); err != nil {
		return nil, fmt.Errorf("invalid proof value path node hash: %w", err)
	}

	switch position {
	case keyLeft:
		return &merkle.Sibling{Left: hex.EncodeToString(hash)}, nil
	case keyRight:
		return &merkle.Sibling{Right: hex.EncodeToString(hash)}, nil
	default:
		return nil, fmt.Errorf("invalid proof value path node position: %d", position)
	}
}

// decodeAnchor returns the blink anchor of a compressed [chain, network, transaction] anchor. Anchors
// which are already blink strings are returned as is.
func decodeAnchor(raw cbor.RawMessage) (string, error) {
	var blink string

	if err := cbor.Unmarshal(raw, &blink); err == nil {
		return blink, nil
	}

	var parts []cbor.RawMessage

	if err := cbor.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("invalid proof value anchor: %w", err)
	}

	if len(parts) != 3 { //nolint:gomnd
		return "", fmt.Errorf("invalid proof value anchor: expecting 3 elements but got %d", len(parts))
	}

	var (
		chainID, networkID uint64
		txID               []byte
	)

	for i, v := range []interface{}{&chainID, &networkID, &txID} {
		if err := cbor.Unmarshal(parts[i], v); err != nil {
			return "", fmt.Errorf("invalid proof value anchor element %d: %w", i, err)
		}
	}

	bc, ok := blinkChains[chainID]
	if !ok {
		return "", fmt.Errorf("%w: blink chain ID %d", chain.ErrUnknownChain, chainID)
	}

	network, ok := bc.networks[networkID]
	if !ok {
		return "", fmt.Errorf("%w: blink network ID %d of chain %s", chain.ErrUnknownChain, networkID, bc.family)
	}

	if len(txID) == 0 {
		return "", errors.New("invalid proof value anchor: empty transaction ID")
	}

	tx := hex.EncodeToString(txID)
	if bc.family == chain.FamilyEthereum {
		tx = "0x" + tx
	}

	return strings.Join([]string{blinkScheme, string(bc.family), network, tx}, ":"), nil
}

// EncodeProofValue encodes the proof value as base58btc multibase CBOR.
func EncodeProofValue(pv *ProofValue) (string, error) {
	data, err := cbor.Marshal(pv)
	if err != nil {
		return "", fmt.Errorf("failed to cbor.marshal proof value: %w", err)
	}

	return multihash.EncodeMultibase(data)
}

// Receipt converts the proof value to a receipt. Blink anchors are resolved to their chain.
func (pv *ProofValue) Receipt() (*merkle.Receipt, error) {
	r := &merkle.Receipt{
		Type:       "MerkleProof2019",
		TargetHash: pv.TargetHash,
		MerkleRoot: pv.MerkleRoot,
		Proof:      pv.Path,
	}

	for _, a := range pv.Anchors {
		anchor, err := ParseBlink(a)
		if err != nil {
			return nil, err
		}

		r.Anchors = append(r.Anchors, *anchor)
	}

	return r, nil
}

// ParseBlink parses a blink anchor ("blink:<family>:<network>:<transaction ID>").
func ParseBlink(value string) (*merkle.Anchor, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 4 || parts[0] != blinkScheme || parts[3] == "" {
		return nil, fmt.Errorf("invalid blink anchor [%s]", value)
	}

	bc, err := chain.FromBlink(parts[1], parts[2])
	if err != nil {
		return nil, err
	}

	anchorType := AnchorTypeBTC
	if bc.Family == chain.FamilyEthereum {
		anchorType = AnchorTypeETH
	}

	return &merkle.Anchor{SourceID: parts[3], Type: anchorType, Chain: bc.SignatureValue}, nil
}

// Blink returns the blink anchor for the given chain and transaction.
func Blink(bc *chain.Blockchain, txID string) string {
	return strings.Join([]string{blinkScheme, string(bc.Family), bc.Network, txID}, ":")
}
