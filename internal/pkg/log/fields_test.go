/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/logutil-go/pkg/log"
)

func TestStandardFields(t *testing.T) {
	const module = "test_module"

	t.Run("json fields", func(t *testing.T) {
		stdOut := newMockWriter()

		logger := log.New(module, log.WithStdOut(stdOut), log.WithEncoding(log.JSON))

		cfg := &mockObject{Field1: "value1", Field2: 1234}

		logger.Info("Some message",
			WithServiceName("service1"), WithServiceEndpoint("/verify"), WithAddress(":8080"),
			WithConfig(cfg), WithRequestURL("https://example.com/issuer.json"),
			WithResponse([]byte("response")), WithHTTPStatus(404), WithHTTPMethod("POST"), WithParameter("locale"),
			WithExpiration(12*time.Second), WithStepCode("compareHashes"), WithParentStep("proofVerification"),
			WithStepStatus("failure"), WithSuite("MerkleProof2017"), WithProofTypes("A", "B"),
			WithTransactionID("tx1"), WithChain("testnet"), WithIssuerID("https://example.com/issuer.json"),
			WithCredentialID("urn:uuid:1234"), WithRunID("run1"), WithKeyID("key1"), WithDID("did:example:123"),
			WithLocale("fr"), WithHash("abcd"), WithExplorer("blockstream"), WithRetries(3),
			WithBackoff(time.Second), WithStoreName("issuer-profile"), WithTracingProvider("JAEGER"),
			WithSize(3), WithLogSpec("verifier=DEBUG:INFO"),
		)

		l := unmarshalLogData(t, stdOut.Bytes())

		require.Equal(t, `Some message`, l.Msg)
		require.Equal(t, `service1`, l.Service)
		require.Equal(t, `/verify`, l.ServiceEndpoint)
		require.Equal(t, `:8080`, l.Address)
		require.Equal(t, `{"Field1":"value1","Field2":1234}`, l.Config)
		require.Equal(t, `https://example.com/issuer.json`, l.RequestURL)
		require.Equal(t, `response`, l.Response)
		require.Equal(t, 404, l.HTTPStatus)
		require.Equal(t, `POST`, l.HTTPMethod)
		require.Equal(t, `locale`, l.Parameter)
		require.Equal(t, `12s`, l.Expiration)
		require.Equal(t, `compareHashes`, l.Step)
		require.Equal(t, `proofVerification`, l.ParentStep)
		require.Equal(t, `failure`, l.Status)
		require.Equal(t, `MerkleProof2017`, l.Suite)
		require.Equal(t, []string{"A", "B"}, l.ProofTypes)
		require.Equal(t, `tx1`, l.TransactionID)
		require.Equal(t, `testnet`, l.Chain)
		require.Equal(t, `https://example.com/issuer.json`, l.IssuerID)
		require.Equal(t, `urn:uuid:1234`, l.CredentialID)
		require.Equal(t, `run1`, l.RunID)
		require.Equal(t, `key1`, l.KeyID)
		require.Equal(t, `did:example:123`, l.DID)
		require.Equal(t, `fr`, l.Locale)
		require.Equal(t, `abcd`, l.Hash)
		require.Equal(t, `blockstream`, l.Explorer)
		require.Equal(t, 3, l.Retries)
		require.Equal(t, `1s`, l.Backoff)
		require.Equal(t, `issuer-profile`, l.StoreName)
		require.Equal(t, `JAEGER`, l.TracingProvider)
		require.Equal(t, 3, l.Size)
		require.Equal(t, `verifier=DEBUG:INFO`, l.LogSpec)
	})
}

type mockObject struct {
	Field1 string
	Field2 int
}

type logData struct {
	Level  string `json:"level"`
	Time   string `json:"time"`
	Logger string `json:"logger"`
	Caller string `json:"caller"`
	Msg    string `json:"msg"`
	Error  string `json:"error"`

	Service         string   `json:"service"`
	ServiceEndpoint string   `json:"service-endpoint"`
	Address         string   `json:"address"`
	Config          string   `json:"config"`
	RequestURL      string   `json:"request-url"`
	Response        string   `json:"response"`
	HTTPStatus      int      `json:"http-status"`
	HTTPMethod      string   `json:"http-method"`
	Parameter       string   `json:"parameter"`
	Expiration      string   `json:"expiration"`
	Step            string   `json:"step"`
	ParentStep      string   `json:"parent-step"`
	Status          string   `json:"status"`
	Suite           string   `json:"suite"`
	ProofTypes      []string `json:"proof-types"`
	TransactionID   string   `json:"transaction-id"`
	Chain           string   `json:"chain"`
	IssuerID        string   `json:"issuer-id"`
	CredentialID    string   `json:"credential-id"`
	RunID           string   `json:"run-id"`
	KeyID           string   `json:"key-id"`
	DID             string   `json:"did"`
	Locale          string   `json:"locale"`
	Hash            string   `json:"hash"`
	Explorer        string   `json:"explorer"`
	Retries         int      `json:"retries"`
	Backoff         string   `json:"backoff"`
	StoreName       string   `json:"store-name"`
	TracingProvider string   `json:"tracing-provider"`
	Size            int      `json:"size"`
	LogSpec         string   `json:"log-spec"`
}

func unmarshalLogData(t *testing.T, b []byte) *logData {
	t.Helper()

	l := &logData{}

	require.NoError(t, json.Unmarshal(b, l))

	return l
}

type mockWriter struct {
	*bytes.Buffer
}

func (m *mockWriter) Sync() error {
	return nil
}

func newMockWriter() *mockWriter {
	return &mockWriter{Buffer: bytes.NewBuffer(nil)}
}
