/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package explorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const blockCypherTxJSON = `{
  "confirmations": 12,
  "confirmed": "2018-02-28T12:21:38Z",
  "received": "2018-02-28T12:05:01Z",
  "inputs": [{"addresses": ["mgdWjvq4RYAAP5goUNagTRMx7Xw534S5am"]}],
  "outputs": [
    {"script": "6a2068f3ede17fdb67ffd4a5164b5687a71f9fbb68da803b803935720f2aa38f7728",
     "script_type": "null-data",
     "data_hex": "68f3ede17fdb67ffd4a5164b5687a71f9fbb68da803b803935720f2aa38f7728"},
    {"script_type": "pay-to-pubkey-hash", "addresses": ["n2eMqTT929pb1RDNuqEnxdaLau1rxy3efi"], "spent_by": "abc"}
  ]
}`

func TestParseBlockCypher(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		data, err := ParseBlockCypher([]byte(blockCypherTxJSON))
		require.NoError(t, err)
		require.Equal(t, remoteHash, data.RemoteHash)
		require.Equal(t, "mgdWjvq4RYAAP5goUNagTRMx7Xw534S5am", data.IssuingAddress)
		require.Equal(t, time.Date(2018, 2, 28, 12, 21, 38, 0, time.UTC), data.Time)
		require.Equal(t, []string{"n2eMqTT929pb1RDNuqEnxdaLau1rxy3efi"}, data.RevokedAddresses)
	})

	t.Run("unconfirmed", func(t *testing.T) {
		_, err := ParseBlockCypher([]byte(`{"confirmations": 0}`))
		require.ErrorIs(t, err, ErrNotConfirmed)
	})

	t.Run("no null-data output", func(t *testing.T) {
		_, err := ParseBlockCypher([]byte(`{"confirmations": 1, "outputs": [{"script_type": "pay-to-pubkey-hash"}]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no null-data output")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseBlockCypher([]byte(`{`))
		require.Error(t, err)
	})
}

func TestParseBlockstream(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		data, err := ParseBlockstream([]byte(blockstreamTx))
		require.NoError(t, err)
		require.Equal(t, "6a20"+remoteHash, data.RemoteHash)
	})

	t.Run("no OP_RETURN output", func(t *testing.T) {
		_, err := ParseBlockstream([]byte(`{"vout": [{"scriptpubkey_type": "p2pkh"}], "status": {"confirmed": true}}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no OP_RETURN output")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseBlockstream([]byte(`[]`))
		require.Error(t, err)
	})
}
