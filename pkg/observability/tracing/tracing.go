/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"context"
	"fmt"
	"os"

	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

var logger = log.New("tracing")

const (
	instrumentationVersion = "1.0.0"
	tracerRootName         = "github.com/trustbloc/blockcerts-verifier"
)

// Subsystem identifies the package that creates spans.
type Subsystem string

// Subsystems.
const (
	SubsystemVerifier Subsystem = "verifier"
	SubsystemExplorer Subsystem = "explorer"
)

// Tracing attributes.
const (
	AttributeRunID         attribute.Key = "blockcerts.runID"
	AttributeCredentialID  attribute.Key = "blockcerts.credentialID"
	AttributeProofType     attribute.Key = "blockcerts.proofType"
	AttributeStepCode      attribute.Key = "blockcerts.stepCode"
	AttributeTransactionID attribute.Key = "blockcerts.transactionID"
	AttributeChain         attribute.Key = "blockcerts.chain"
	AttributeExplorer      attribute.Key = "blockcerts.explorer"
)

// ProviderType specifies the type of the tracer provider.
type ProviderType = string

const (
	// ProviderNone indicates that tracing is disabled.
	ProviderNone ProviderType = ""
	// ProviderJaeger indicates that tracing data should be in Jaeger format.
	ProviderJaeger ProviderType = "JAEGER"
)

// Provider creates tracers.
type Provider interface {
	trace.TracerProvider

	Start()
	Stop()
}

type tracerProvider struct {
	trace.TracerProvider

	shutdown func(ctx context.Context) error
}

func (tp *tracerProvider) Start() {}

// Stop flushes the exported spans.
func (tp *tracerProvider) Stop() {
	if tp.shutdown == nil {
		return
	}

	if err := tp.shutdown(context.Background()); err != nil {
		logger.Warn("Error shutting down tracer provider", log.WithError(err))
	}
}

// Initialize creates a tracer provider and registers it globally.
func Initialize(provider, serviceName, url string) (Provider, error) {
	var tp *tracerProvider

	switch provider {
	case ProviderNone:
		tp = &tracerProvider{TracerProvider: trace.NewNoopTracerProvider()}

		otel.SetTracerProvider(tp)

		return tp, nil
	case ProviderJaeger:
		sdkProvider, err := newJaegerTracerProvider(serviceName, url)
		if err != nil {
			return nil, fmt.Errorf("create new tracer provider: %w", err)
		}

		tp = &tracerProvider{TracerProvider: sdkProvider, shutdown: sdkProvider.Shutdown}
	default:
		return nil, fmt.Errorf("unsupported tracing provider: %s", provider)
	}

	otel.SetTextMapPropagator(propagation.TraceContext{})
	otel.SetTracerProvider(tp)

	logger.Info("Enabled tracing", logfields.WithTracingProvider(provider),
		logfields.WithServiceName(serviceName), log.WithURL(url))

	return tp, nil
}

// Tracer returns a tracer for the given subsystem from the global provider.
func Tracer(subsystem Subsystem) trace.Tracer {
	return otel.GetTracerProvider().Tracer(fmt.Sprintf("%s/pkg/%s", tracerRootName, subsystem),
		trace.WithInstrumentationVersion(instrumentationVersion))
}

// RunIDAttribute returns the blockcerts.runID tracing attribute.
func RunIDAttribute(value string) attribute.KeyValue {
	return AttributeRunID.String(value)
}

// CredentialIDAttribute returns the blockcerts.credentialID tracing attribute.
func CredentialIDAttribute(value string) attribute.KeyValue {
	return AttributeCredentialID.String(value)
}

// ProofTypeAttribute returns the blockcerts.proofType tracing attribute.
func ProofTypeAttribute(value string) attribute.KeyValue {
	return AttributeProofType.String(value)
}

// StepCodeAttribute returns the blockcerts.stepCode tracing attribute.
func StepCodeAttribute(value string) attribute.KeyValue {
	return AttributeStepCode.String(value)
}

// TransactionIDAttribute returns the blockcerts.transactionID tracing attribute.
func TransactionIDAttribute(value string) attribute.KeyValue {
	return AttributeTransactionID.String(value)
}

// ChainAttribute returns the blockcerts.chain tracing attribute.
func ChainAttribute(value string) attribute.KeyValue {
	return AttributeChain.String(value)
}

// ExplorerAttribute returns the blockcerts.explorer tracing attribute.
func ExplorerAttribute(value string) attribute.KeyValue {
	return AttributeExplorer.String(value)
}

func newJaegerTracerProvider(serviceName, url string) (*tracesdk.TracerProvider, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(url)))
	if err != nil {
		return nil, fmt.Errorf("create jaeger collector: %w", err)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ProcessPIDKey.Int(os.Getpid()),
		)),
	), nil
}
