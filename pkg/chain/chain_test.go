/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

const (
	mainnetAddress = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	testnetAddress = "mzBc4XEFSdzCDcTxAgf6EZXgsZWpztRhef"
)

func TestGet(t *testing.T) {
	bc, err := Get(Testnet)
	require.NoError(t, err)
	require.Equal(t, "bitcoinTestnet", bc.SignatureValue)
	require.Equal(t, "testnet", bc.String())
	require.Equal(t, &chaincfg.TestNet3Params, bc.AddressParams())

	_, err = Get("dogecoin")
	require.True(t, errors.Is(err, ErrUnknownChain))

	require.Len(t, All(), 9)
}

func TestFromSignatureValue(t *testing.T) {
	bc, err := FromSignatureValue("ethereumRopsten")
	require.NoError(t, err)
	require.Equal(t, Ethropst, bc.Code)

	_, err = FromSignatureValue("unknownChain")
	require.True(t, errors.Is(err, ErrUnknownChain))
}

func TestFromBlink(t *testing.T) {
	bc, err := FromBlink("btc", "testnet")
	require.NoError(t, err)
	require.Equal(t, Testnet, bc.Code)

	bc, err = FromBlink("eth", "mainnet")
	require.NoError(t, err)
	require.Equal(t, Ethmain, bc.Code)

	_, err = FromBlink("btc", "signet")
	require.Error(t, err)
}

func TestDetect(t *testing.T) {
	t.Run("anchor chain value", func(t *testing.T) {
		bc, err := Detect("mockchain", mainnetAddress)
		require.NoError(t, err)
		require.Equal(t, Mocknet, bc.Code)
	})

	t.Run("unknown anchor chain value", func(t *testing.T) {
		_, err := Detect("litecoin", "")
		require.True(t, errors.Is(err, ErrUnknownChain))
	})

	t.Run("legacy mainnet address", func(t *testing.T) {
		bc, err := Detect("", mainnetAddress)
		require.NoError(t, err)
		require.Equal(t, Bitcoin, bc.Code)
	})

	t.Run("legacy testnet address", func(t *testing.T) {
		bc, err := Detect("", testnetAddress)
		require.NoError(t, err)
		require.Equal(t, Testnet, bc.Code)
	})

	t.Run("no address", func(t *testing.T) {
		bc, err := Detect("", "")
		require.NoError(t, err)
		require.Equal(t, Testnet, bc.Code)
	})
}

func TestChainKinds(t *testing.T) {
	for _, bc := range All() {
		switch bc.Code {
		case Bitcoin, Ethmain:
			require.False(t, bc.IsTestChain(), bc.Code)
			require.False(t, bc.IsMockChain(), bc.Code)
		case Mocknet, Regtest:
			require.True(t, bc.IsTestChain(), bc.Code)
			require.True(t, bc.IsMockChain(), bc.Code)
		default:
			require.True(t, bc.IsTestChain(), bc.Code)
			require.False(t, bc.IsMockChain(), bc.Code)
		}
	}

	var bc *Blockchain
	require.False(t, bc.IsMockChain())
	require.False(t, bc.IsTestChain())
}

func TestLinks(t *testing.T) {
	bc, err := Get(Testnet)
	require.NoError(t, err)

	require.Equal(t, "https://testnet.blockchain.info/tx/abc", bc.TransactionLink("abc"))
	require.Equal(t, "https://testnet.blockchain.info/rawtx/abc", bc.RawTransactionLink("abc"))
	require.Empty(t, bc.TransactionLink(""))

	mock, err := Get(Mocknet)
	require.NoError(t, err)
	require.Empty(t, mock.TransactionLink("abc"))
}

func TestStripHashPrefix(t *testing.T) {
	btc, err := Get(Bitcoin)
	require.NoError(t, err)

	require.Equal(t, "abcd", btc.StripHashPrefix("6a20ABCD"))
	require.Equal(t, "abcd", btc.StripHashPrefix("OP_RETURN abcd"))
	require.Equal(t, "abcd", btc.StripHashPrefix(" abcd "))

	eth, err := Get(Ethmain)
	require.NoError(t, err)

	require.Equal(t, "abcd", eth.StripHashPrefix("0xabcd"))
}
