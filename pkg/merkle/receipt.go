/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package merkle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/trustbloc/blockcerts-verifier/pkg/multihash"
)

// ErrMalformedReceipt is returned when a receipt lacks required fields or cannot be navigated.
var ErrMalformedReceipt = errors.New("malformed receipt")

// Sibling is one node of a Merkle path. Exactly one of Left and Right is set and gives
// the position of the sibling relative to the running hash.
type Sibling struct {
	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`
}

// Anchor references the blockchain transaction that commits the Merkle root.
type Anchor struct {
	SourceID string `json:"sourceId"`
	Type     string `json:"type"`
	Chain    string `json:"chain,omitempty"`
}

// Receipt is a Chainpoint style Merkle receipt.
type Receipt struct {
	Context    interface{} `json:"@context,omitempty"`
	Type       interface{} `json:"type,omitempty"`
	TargetHash string      `json:"targetHash"`
	MerkleRoot string      `json:"merkleRoot"`
	Proof      []Sibling   `json:"proof"`
	Anchors    []Anchor    `json:"anchors"`
}

// HasPath returns true if the receipt carries a non-empty Merkle path.
func (r *Receipt) HasPath() bool {
	return r != nil && len(r.Proof) > 0
}

// ComputeRoot folds the path into a root, starting from the target hash. At each level the running
// hash is concatenated with the sibling on the declared side and hashed with the given algorithm.
func ComputeRoot(algorithm string, target []byte, path []Sibling) ([]byte, error) {
	current := target

	for i, s := range path {
		var (
			sibling string
			left    bool
		)

		switch {
		case s.Left != "" && s.Right == "":
			sibling, left = s.Left, true
		case s.Right != "" && s.Left == "":
			sibling = s.Right
		default:
			return nil, fmt.Errorf("%w: path node %d must have exactly one of left or right", ErrMalformedReceipt, i)
		}

		siblingBytes, err := hex.DecodeString(sibling)
		if err != nil {
			return nil, fmt.Errorf("%w: path node %d: %s", ErrMalformedReceipt, i, err)
		}

		var pair []byte

		if left {
			pair = append(append(pair, siblingBytes...), current...)
		} else {
			pair = append(append(pair, current...), siblingBytes...)
		}

		current, err = multihash.Digest(algorithm, pair)
		if err != nil {
			return nil, err
		}
	}

	return current, nil
}

// ComputeRootHex is ComputeRoot for a hex encoded target. The result is hex encoded.
func ComputeRootHex(algorithm, targetHash string, path []Sibling) (string, error) {
	target, err := hex.DecodeString(targetHash)
	if err != nil {
		return "", fmt.Errorf("%w: target hash: %s", ErrMalformedReceipt, err)
	}

	root, err := ComputeRoot(algorithm, target, path)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(root), nil
}

// Validate checks that the receipt carries the fields required for a Merkle receipt and that the
// declared root is the one obtained by folding the path.
func Validate(algorithm string, r *Receipt) error {
	if r == nil {
		return fmt.Errorf("%w: receipt is missing", ErrMalformedReceipt)
	}

	if r.TargetHash == "" {
		return fmt.Errorf("%w: targetHash is required", ErrMalformedReceipt)
	}

	if r.MerkleRoot == "" {
		return fmt.Errorf("%w: merkleRoot is required", ErrMalformedReceipt)
	}

	if r.Proof == nil {
		return fmt.Errorf("%w: proof is required", ErrMalformedReceipt)
	}

	if len(r.Anchors) == 0 {
		return fmt.Errorf("%w: at least one anchor is required", ErrMalformedReceipt)
	}

	for i, a := range r.Anchors {
		if a.SourceID == "" {
			return fmt.Errorf("%w: anchor %d has no sourceId", ErrMalformedReceipt, i)
		}
	}

	root, err := ComputeRootHex(algorithm, r.TargetHash, r.Proof)
	if err != nil {
		return err
	}

	if !EqualHex(root, r.MerkleRoot) {
		return fmt.Errorf("%w: computed root [%s] does not match declared root [%s]",
			ErrMalformedReceipt, root, r.MerkleRoot)
	}

	return nil
}

// EqualHex compares two hex encoded hashes, ignoring case.
func EqualHex(a, b string) bool {
	da, errA := hex.DecodeString(strings.ToLower(strings.TrimSpace(a)))
	db, errB := hex.DecodeString(strings.ToLower(strings.TrimSpace(b)))

	if errA != nil || errB != nil {
		return false
	}

	return bytes.Equal(da, db)
}
