/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package multihash computes digests for the hash algorithms that credential proofs may declare.
package multihash

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
)

// DefaultAlgorithm is used when a proof does not declare a hash algorithm.
const DefaultAlgorithm = "sha2-256"

//nolint:gochecknoglobals
var aliases = map[string]string{
	"sha256":   "sha2-256",
	"sha-256":  "sha2-256",
	"sha512":   "sha2-512",
	"sha-512":  "sha2-512",
	"sha3":     "sha3-256",
	"keccak":   "keccak-256",
	"blake2b":  "blake2b-256",
	"sha2_256": "sha2-256",
}

// Code returns the multihash code of the given algorithm name. Names are the multihash table names
// (e.g. "sha2-256") or common aliases (e.g. "SHA-256"). An empty name resolves to the default algorithm.
func Code(algorithm string) (uint64, error) {
	name := strings.ToLower(strings.TrimSpace(algorithm))
	if name == "" {
		name = DefaultAlgorithm
	}

	if alias, ok := aliases[name]; ok {
		name = alias
	}

	code, ok := mh.Names[name]
	if !ok {
		return 0, fmt.Errorf("unsupported hash algorithm [%s]", algorithm)
	}

	return code, nil
}

// Digest returns the raw digest of data using the given algorithm.
func Digest(algorithm string, data []byte) ([]byte, error) {
	code, err := Code(algorithm)
	if err != nil {
		return nil, err
	}

	sum, err := mh.Sum(data, code, -1)
	if err != nil {
		return nil, fmt.Errorf("compute %s digest: %w", algorithm, err)
	}

	decoded, err := mh.Decode(sum)
	if err != nil {
		return nil, fmt.Errorf("decode multihash: %w", err)
	}

	return decoded.Digest, nil
}

// HexDigest returns the lower-case hex encoded digest of data using the given algorithm.
func HexDigest(algorithm string, data []byte) (string, error) {
	d, err := Digest(algorithm, data)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(d), nil
}

// DecodeMultibase decodes a multibase-encoded value (e.g. a base58btc 'z' prefixed proof value).
func DecodeMultibase(value string) ([]byte, error) {
	_, data, err := multibase.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode multibase value: %w", err)
	}

	return data, nil
}

// EncodeMultibase encodes data as base58btc multibase.
func EncodeMultibase(data []byte) (string, error) {
	encoded, err := multibase.Encode(multibase.Base58BTC, data)
	if err != nil {
		return "", fmt.Errorf("failed to encode multibase value: %w", err)
	}

	return encoded, nil
}
