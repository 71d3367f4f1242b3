/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
)

// ErrUnknownChain is returned when an anchor references a chain that is not registered.
var ErrUnknownChain = errors.New("unknown chain")

// Code identifies a blockchain.
type Code string

// Supported chains.
const (
	Bitcoin    Code = "bitcoin"
	Testnet    Code = "testnet"
	Regtest    Code = "regtest"
	Mocknet    Code = "mocknet"
	Ethmain    Code = "ethmain"
	Ethropst   Code = "ethropst"
	Ethrinkeby Code = "ethrinkeby"
	Ethgoerli  Code = "ethgoerli"
	Ethsepolia Code = "ethsepolia"
)

// Family groups chains that share transaction formats.
type Family string

// Chain families.
const (
	FamilyBitcoin  Family = "btc"
	FamilyEthereum Family = "eth"
	FamilyMock     Family = "mock"
)

const transactionIDPlaceholder = "{transaction_id}"

// Blockchain describes a chain that credentials may be anchored to.
type Blockchain struct {
	Code           Code   `json:"code"`
	Name           string `json:"name"`
	Family         Family `json:"family"`
	SignatureValue string `json:"signatureValue"`

	// Network is the network name used in blink anchors (e.g. "mainnet", "testnet").
	Network string `json:"-"`

	// HashPrefixes are stripped from remote hashes before comparison.
	HashPrefixes  []string `json:"-"`
	TxTemplate    string   `json:"-"`
	RawTxTemplate string   `json:"-"`

	test          bool
	mock          bool
	addressParams *chaincfg.Params
}

//nolint:gochecknoglobals
var (
	btcPrefixes = []string{"6a20", "OP_RETURN "}
	ethPrefixes = []string{"0x"}
)

var registry = []*Blockchain{ //nolint:gochecknoglobals
	{
		Code:           Bitcoin,
		Name:           "Bitcoin",
		Family:         FamilyBitcoin,
		SignatureValue: "bitcoinMainnet",
		Network:        "mainnet",
		HashPrefixes:   btcPrefixes,
		TxTemplate:     "https://blockchain.info/tx/" + transactionIDPlaceholder,
		RawTxTemplate:  "https://blockchain.info/rawtx/" + transactionIDPlaceholder,
		addressParams:  &chaincfg.MainNetParams,
	},
	{
		Code:           Testnet,
		Name:           "Bitcoin Testnet",
		Family:         FamilyBitcoin,
		SignatureValue: "bitcoinTestnet",
		Network:        "testnet",
		HashPrefixes:   btcPrefixes,
		TxTemplate:     "https://testnet.blockchain.info/tx/" + transactionIDPlaceholder,
		RawTxTemplate:  "https://testnet.blockchain.info/rawtx/" + transactionIDPlaceholder,
		test:           true,
		addressParams:  &chaincfg.TestNet3Params,
	},
	{
		Code:           Regtest,
		Name:           "Bitcoin Regtest",
		Family:         FamilyBitcoin,
		SignatureValue: "bitcoinRegtest",
		Network:        "regtest",
		HashPrefixes:   btcPrefixes,
		test:           true,
		mock:           true,
		addressParams:  &chaincfg.RegressionNetParams,
	},
	{
		Code:           Mocknet,
		Name:           "Mocknet",
		Family:         FamilyMock,
		SignatureValue: "mockchain",
		Network:        "mocknet",
		test:           true,
		mock:           true,
	},
	{
		Code:           Ethmain,
		Name:           "Ethereum",
		Family:         FamilyEthereum,
		SignatureValue: "ethereumMainnet",
		Network:        "mainnet",
		HashPrefixes:   ethPrefixes,
		TxTemplate:     "https://etherscan.io/tx/" + transactionIDPlaceholder,
		RawTxTemplate:  "https://etherscan.io/getRawTx?tx=" + transactionIDPlaceholder,
	},
	{
		Code:           Ethropst,
		Name:           "Ethereum Testnet",
		Family:         FamilyEthereum,
		SignatureValue: "ethereumRopsten",
		Network:        "ropsten",
		HashPrefixes:   ethPrefixes,
		TxTemplate:     "https://ropsten.etherscan.io/tx/" + transactionIDPlaceholder,
		RawTxTemplate:  "https://ropsten.etherscan.io/getRawTx?tx=" + transactionIDPlaceholder,
		test:           true,
	},
	{
		Code:           Ethrinkeby,
		Name:           "Ethereum Testnet",
		Family:         FamilyEthereum,
		SignatureValue: "ethereumRinkeby",
		Network:        "rinkeby",
		HashPrefixes:   ethPrefixes,
		TxTemplate:     "https://rinkeby.etherscan.io/tx/" + transactionIDPlaceholder,
		RawTxTemplate:  "https://rinkeby.etherscan.io/getRawTx?tx=" + transactionIDPlaceholder,
		test:           true,
	},
	{
		Code:           Ethgoerli,
		Name:           "Ethereum Testnet",
		Family:         FamilyEthereum,
		SignatureValue: "ethereumGoerli",
		Network:        "goerli",
		HashPrefixes:   ethPrefixes,
		TxTemplate:     "https://goerli.etherscan.io/tx/" + transactionIDPlaceholder,
		RawTxTemplate:  "https://goerli.etherscan.io/getRawTx?tx=" + transactionIDPlaceholder,
		test:           true,
	},
	{
		Code:           Ethsepolia,
		Name:           "Ethereum Testnet",
		Family:         FamilyEthereum,
		SignatureValue: "ethereumSepolia",
		Network:        "sepolia",
		HashPrefixes:   ethPrefixes,
		TxTemplate:     "https://sepolia.etherscan.io/tx/" + transactionIDPlaceholder,
		RawTxTemplate:  "https://sepolia.etherscan.io/getRawTx?tx=" + transactionIDPlaceholder,
		test:           true,
	},
}

// All returns all registered chains.
func All() []*Blockchain {
	return append([]*Blockchain(nil), registry...)
}

// Get returns the chain for the given code.
func Get(code Code) (*Blockchain, error) {
	for _, bc := range registry {
		if bc.Code == code {
			return bc, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownChain, code)
}

// FromSignatureValue returns the chain whose anchor signature value (e.g. "bitcoinTestnet") matches.
func FromSignatureValue(value string) (*Blockchain, error) {
	for _, bc := range registry {
		if bc.SignatureValue == value {
			return bc, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownChain, value)
}

// FromBlink returns the chain for the family and network of a blink anchor (e.g. "btc" and "testnet").
func FromBlink(family, network string) (*Blockchain, error) {
	for _, bc := range registry {
		if string(bc.Family) == family && bc.Network == network {
			return bc, nil
		}
	}

	return nil, fmt.Errorf("%w: blink:%s:%s", ErrUnknownChain, family, network)
}

// Detect returns the chain declared by the anchor's chain value. Legacy anchors carry no chain value,
// in which case the chain is inferred from the issuing address: a mainnet address means bitcoin,
// anything else testnet.
func Detect(anchorChain, address string) (*Blockchain, error) {
	if anchorChain != "" {
		return FromSignatureValue(anchorChain)
	}

	if IsMainnetAddress(address) {
		return Get(Bitcoin)
	}

	return Get(Testnet)
}

// IsMainnetAddress returns true if the given address is a valid bitcoin mainnet address.
func IsMainnetAddress(address string) bool {
	if address == "" {
		return false
	}

	addr, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams)
	if err != nil {
		return false
	}

	return addr.IsForNet(&chaincfg.MainNetParams)
}

// IsTestChain returns true for non-production networks.
func (bc *Blockchain) IsTestChain() bool {
	return bc != nil && bc.test
}

// IsMockChain returns true for chains on which no transaction can be looked up.
func (bc *Blockchain) IsMockChain() bool {
	return bc != nil && bc.mock
}

// AddressParams returns the bitcoin network parameters used to encode addresses on this chain,
// or nil for non-bitcoin chains.
func (bc *Blockchain) AddressParams() *chaincfg.Params {
	return bc.addressParams
}

// TransactionLink returns the explorer link for the given transaction.
func (bc *Blockchain) TransactionLink(txID string) string {
	return fill(bc.TxTemplate, txID)
}

// RawTransactionLink returns the raw transaction link for the given transaction.
func (bc *Blockchain) RawTransactionLink(txID string) string {
	return fill(bc.RawTxTemplate, txID)
}

// StripHashPrefix removes a chain-specific prefix (e.g. the OP_RETURN marker) from a remote hash.
func (bc *Blockchain) StripHashPrefix(hash string) string {
	h := strings.TrimSpace(hash)

	for _, prefix := range bc.HashPrefixes {
		if strings.HasPrefix(h, prefix) {
			return strings.ToLower(strings.TrimPrefix(h, prefix))
		}
	}

	return strings.ToLower(h)
}

func (bc *Blockchain) String() string {
	return string(bc.Code)
}

func fill(template, txID string) string {
	if template == "" || txID == "" {
		return ""
	}

	return strings.ReplaceAll(template, transactionIDPlaceholder, txID)
}
