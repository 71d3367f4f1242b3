/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log Fields.
const (
	FieldServiceName     = "service"
	FieldServiceEndpoint = "service-endpoint"
	FieldAddress         = "address"
	FieldConfig          = "config"
	FieldRequestURL      = "request-url"
	FieldResponse        = "response"
	FieldHTTPStatus      = "http-status"
	FieldHTTPMethod      = "http-method"
	FieldParameter       = "parameter"
	FieldExpiration      = "expiration"
	FieldStepCode        = "step"
	FieldParentStep      = "parent-step"
	FieldStepStatus      = "status"
	FieldSuite           = "suite"
	FieldProofTypes      = "proof-types"
	FieldTransactionID   = "transaction-id"
	FieldChain           = "chain"
	FieldIssuerID        = "issuer-id"
	FieldCredentialID    = "credential-id"
	FieldRunID           = "run-id"
	FieldKeyID           = "key-id"
	FieldDID             = "did"
	FieldLocale          = "locale"
	FieldHash            = "hash"
	FieldExplorer        = "explorer"
	FieldRetries         = "retries"
	FieldBackoff         = "backoff"
	FieldStoreName       = "store-name"
	FieldTracingProvider = "tracing-provider"
	FieldSize            = "size"
	FieldLogSpec         = "log-spec"
)

// WithServiceName sets the service field.
func WithServiceName(value string) zap.Field {
	return zap.String(FieldServiceName, value)
}

// WithServiceEndpoint sets the service-endpoint field.
func WithServiceEndpoint(value string) zap.Field {
	return zap.String(FieldServiceEndpoint, value)
}

// WithAddress sets the address field.
func WithAddress(value string) zap.Field {
	return zap.String(FieldAddress, value)
}

// WithConfig sets the config field. The value of the field is
// encoded as JSON.
func WithConfig(value interface{}) zap.Field {
	return zap.Inline(newJSONMarshaller(FieldConfig, value))
}

// WithRequestURL sets the request-url field.
func WithRequestURL(value string) zap.Field {
	return zap.String(FieldRequestURL, value)
}

// WithResponse sets the response field.
func WithResponse(value []byte) zap.Field {
	return zap.String(FieldResponse, string(value))
}

// WithHTTPStatus sets the http-status field.
func WithHTTPStatus(value int) zap.Field {
	return zap.Int(FieldHTTPStatus, value)
}

// WithHTTPMethod sets the http-method field.
func WithHTTPMethod(value string) zap.Field {
	return zap.String(FieldHTTPMethod, value)
}

// WithParameter sets the parameter field.
func WithParameter(value string) zap.Field {
	return zap.String(FieldParameter, value)
}

// WithExpiration sets the expiration field.
func WithExpiration(value time.Duration) zap.Field {
	return zap.Duration(FieldExpiration, value)
}

// WithStepCode sets the step field.
func WithStepCode(value string) zap.Field {
	return zap.String(FieldStepCode, value)
}

// WithParentStep sets the parent-step field.
func WithParentStep(value string) zap.Field {
	return zap.String(FieldParentStep, value)
}

// WithStepStatus sets the status field.
func WithStepStatus(value string) zap.Field {
	return zap.String(FieldStepStatus, value)
}

// WithSuite sets the suite field.
func WithSuite(value string) zap.Field {
	return zap.String(FieldSuite, value)
}

// WithProofTypes sets the proof-types field.
func WithProofTypes(value ...string) zap.Field {
	return zap.Strings(FieldProofTypes, value)
}

// WithTransactionID sets the transaction-id field.
func WithTransactionID(value string) zap.Field {
	return zap.String(FieldTransactionID, value)
}

// WithChain sets the chain field.
func WithChain(value string) zap.Field {
	return zap.String(FieldChain, value)
}

// WithIssuerID sets the issuer-id field.
func WithIssuerID(value string) zap.Field {
	return zap.String(FieldIssuerID, value)
}

// WithCredentialID sets the credential-id field.
func WithCredentialID(value string) zap.Field {
	return zap.String(FieldCredentialID, value)
}

// WithRunID sets the run-id field.
func WithRunID(value string) zap.Field {
	return zap.String(FieldRunID, value)
}

// WithKeyID sets the key-id field.
func WithKeyID(value string) zap.Field {
	return zap.String(FieldKeyID, value)
}

// WithDID sets the did field.
func WithDID(value string) zap.Field {
	return zap.String(FieldDID, value)
}

// WithLocale sets the locale field.
func WithLocale(value string) zap.Field {
	return zap.String(FieldLocale, value)
}

// WithHash sets the hash field.
func WithHash(value string) zap.Field {
	return zap.String(FieldHash, value)
}

// WithExplorer sets the explorer field.
func WithExplorer(value string) zap.Field {
	return zap.String(FieldExplorer, value)
}

// WithRetries sets the retries field.
func WithRetries(value int) zap.Field {
	return zap.Int(FieldRetries, value)
}

// WithBackoff sets the backoff field.
func WithBackoff(value time.Duration) zap.Field {
	return zap.Duration(FieldBackoff, value)
}

// WithStoreName sets the store-name field.
func WithStoreName(value string) zap.Field {
	return zap.String(FieldStoreName, value)
}

// WithTracingProvider sets the tracing-provider field.
func WithTracingProvider(value string) zap.Field {
	return zap.String(FieldTracingProvider, value)
}

// WithSize sets the size field.
func WithSize(value int) zap.Field {
	return zap.Int(FieldSize, value)
}

// WithLogSpec sets the log-spec field.
func WithLogSpec(value string) zap.Field {
	return zap.String(FieldLogSpec, value)
}

type jsonMarshaller struct {
	key string
	obj interface{}
}

func newJSONMarshaller(key string, value interface{}) *jsonMarshaller {
	return &jsonMarshaller{key: key, obj: value}
}

func (m *jsonMarshaller) MarshalLogObject(e zapcore.ObjectEncoder) error {
	b, err := json.Marshal(m.obj)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	e.AddString(m.key, string(b))

	return nil
}

type stringArrayMarshaller struct {
	values []string
}

func newStringArrayMarshaller(values []string) *stringArrayMarshaller {
	return &stringArrayMarshaller{values: values}
}

func (m *stringArrayMarshaller) MarshalLogArray(e zapcore.ArrayEncoder) error {
	for _, v := range m.values {
		e.AppendString(v)
	}

	return nil
}
