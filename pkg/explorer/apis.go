/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package explorer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
)

// Built-in explorer names.
const (
	Blockstream = "blockstream"
	BlockCypher = "blockcypher"
)

const (
	opReturnPrefix = "6a20"
	nullDataType   = "null-data"
	opReturnType   = "op_return"
)

// DefaultAPIs returns the built-in bitcoin explorer APIs.
func DefaultAPIs() []*API {
	return []*API{
		{
			Name: Blockstream,
			ServiceURLs: map[chain.Code]string{
				chain.Bitcoin: "https://blockstream.info/api/tx/" + TransactionIDPlaceholder,
				chain.Testnet: "https://blockstream.info/testnet/api/tx/" + TransactionIDPlaceholder,
			},
			Priority: 10,
			Parse:    ParseBlockstream,
		},
		{
			Name: BlockCypher,
			ServiceURLs: map[chain.Code]string{
				chain.Bitcoin: "https://api.blockcypher.com/v1/btc/main/txs/" + TransactionIDPlaceholder + "?limit=500",
				chain.Testnet: "https://api.blockcypher.com/v1/btc/test3/txs/" + TransactionIDPlaceholder + "?limit=500",
			},
			Priority: 20,
			Parse:    ParseBlockCypher,
		},
	}
}

type esploraTx struct {
	Vin []struct {
		Prevout struct {
			ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		} `json:"prevout"`
	} `json:"vin"`
	Vout []struct {
		ScriptPubKey        string `json:"scriptpubkey"`
		ScriptPubKeyType    string `json:"scriptpubkey_type"`
		ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		Spent               bool   `json:"spent"`
	} `json:"vout"`
	Status struct {
		Confirmed bool  `json:"confirmed"`
		BlockTime int64 `json:"block_time"`
	} `json:"status"`
}

// ParseBlockstream parses a transaction returned by an Esplora (Blockstream) API.
func ParseBlockstream(body []byte) (*TransactionData, error) {
	tx := &esploraTx{}

	if err := json.Unmarshal(body, tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	if !tx.Status.Confirmed {
		return nil, ErrNotConfirmed
	}

	data := &TransactionData{
		Time: time.Unix(tx.Status.BlockTime, 0).UTC(),
	}

	for _, out := range tx.Vout {
		if out.ScriptPubKeyType == opReturnType || strings.HasPrefix(out.ScriptPubKey, opReturnPrefix) {
			data.RemoteHash = out.ScriptPubKey

			continue
		}

		if out.Spent && out.ScriptPubKeyAddress != "" {
			data.RevokedAddresses = append(data.RevokedAddresses, out.ScriptPubKeyAddress)
		}
	}

	if data.RemoteHash == "" {
		return nil, fmt.Errorf("no OP_RETURN output in transaction")
	}

	if len(tx.Vin) > 0 {
		data.IssuingAddress = tx.Vin[0].Prevout.ScriptPubKeyAddress
	}

	return data, nil
}

type blockCypherTx struct {
	Confirmations int       `json:"confirmations"`
	Confirmed     time.Time `json:"confirmed"`
	Received      time.Time `json:"received"`
	Inputs        []struct {
		Addresses []string `json:"addresses"`
	} `json:"inputs"`
	Outputs []struct {
		Script     string   `json:"script"`
		ScriptType string   `json:"script_type"`
		DataHex    string   `json:"data_hex"`
		Addresses  []string `json:"addresses"`
		SpentBy    string   `json:"spent_by"`
	} `json:"outputs"`
}

// ParseBlockCypher parses a transaction returned by the BlockCypher API.
func ParseBlockCypher(body []byte) (*TransactionData, error) {
	tx := &blockCypherTx{}

	if err := json.Unmarshal(body, tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	if tx.Confirmations < 1 {
		return nil, ErrNotConfirmed
	}

	data := &TransactionData{Time: tx.Confirmed.UTC()}
	if tx.Confirmed.IsZero() {
		data.Time = tx.Received.UTC()
	}

	for _, out := range tx.Outputs {
		if out.ScriptType == nullDataType {
			data.RemoteHash = out.DataHex
			if data.RemoteHash == "" {
				data.RemoteHash = out.Script
			}

			continue
		}

		if out.SpentBy != "" {
			data.RevokedAddresses = append(data.RevokedAddresses, out.Addresses...)
		}
	}

	if data.RemoteHash == "" {
		return nil, fmt.Errorf("no null-data output in transaction")
	}

	if len(tx.Inputs) > 0 && len(tx.Inputs[0].Addresses) > 0 {
		data.IssuingAddress = tx.Inputs[0].Addresses[0]
	}

	return data, nil
}
