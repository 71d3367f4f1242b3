/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package multihash

import (
	"testing"

	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	for _, name := range []string{"", "sha2-256", "SHA-256", "sha256"} {
		code, err := Code(name)
		require.NoError(t, err, name)
		require.Equal(t, uint64(mh.SHA2_256), code, name)
	}

	code, err := Code("sha3-256")
	require.NoError(t, err)
	require.Equal(t, uint64(mh.SHA3_256), code)

	_, err = Code("md5-ish")
	require.EqualError(t, err, "unsupported hash algorithm [md5-ish]")
}

func TestHexDigest(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		d, err := HexDigest("", []byte("abc"))
		require.NoError(t, err)
		require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d)

		d, err = HexDigest(DefaultAlgorithm, nil)
		require.NoError(t, err)
		require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", d)
	})

	t.Run("Unsupported algorithm", func(t *testing.T) {
		d, err := HexDigest("unknown", []byte("abc"))
		require.Error(t, err)
		require.Empty(t, d)
	})

	t.Run("Other algorithm", func(t *testing.T) {
		d, err := Digest("sha2-512", []byte("abc"))
		require.NoError(t, err)
		require.Len(t, d, 64)
	})
}

func TestMultibase(t *testing.T) {
	encoded, err := EncodeMultibase([]byte("proof value"))
	require.NoError(t, err)
	require.Equal(t, byte('z'), encoded[0])

	decoded, err := DecodeMultibase(encoded)
	require.NoError(t, err)
	require.Equal(t, []byte("proof value"), decoded)

	_, err = DecodeMultibase("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode multibase value")
}
