/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/spf13/cobra"
	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/healthcheck"
	"github.com/trustbloc/blockcerts-verifier/pkg/httpserver"
	"github.com/trustbloc/blockcerts-verifier/pkg/httpserver/auth"
	"github.com/trustbloc/blockcerts-verifier/pkg/httpserver/maintenance"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/loglevels"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics/noop"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics/prometheus"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/tracing"
	"github.com/trustbloc/blockcerts-verifier/pkg/restapi"
	"github.com/trustbloc/blockcerts-verifier/pkg/store"
	"github.com/trustbloc/blockcerts-verifier/pkg/store/issuerstore"
	"github.com/trustbloc/blockcerts-verifier/pkg/store/wrapper"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier"
)

var logger = log.New("cert-verifier")

const (
	logLevelsEndpointExpression = "^/loglevels$"
	adminTokenID                = "admin"
	shutdownTimeout             = 10 * time.Second
)

type server interface {
	Start(srv *httpserver.Server) error
}

// HTTPServer represents an actual HTTP server implementation.
type HTTPServer struct{}

// Start starts the HTTP server and blocks until the process is interrupted.
func (s *HTTPServer) Start(srv *httpserver.Server) error {
	if err := srv.Start(); err != nil {
		return err
	}

	logger.Info("Started verifier REST service")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-interrupt

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Stop(ctx)
}

// GetStartCmd returns the Cobra start command.
func GetStartCmd() *cobra.Command {
	return newStartCmd(&HTTPServer{})
}

func newStartCmd(srv server) *cobra.Command {
	startCmd := createStartCmd(srv)

	createFlags(startCmd)

	return startCmd
}

func createStartCmd(srv server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the certificate verification server",
		Long:  "Start the certificate verification server",
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getVerifierServerParameters(cmd)
			if err != nil {
				return err
			}

			return startVerifierServices(parameters, srv)
		},
	}
}

//nolint:funlen
func startVerifierServices(parameters *verifierServerParameters, srv server) error {
	if parameters.logLevel != "" {
		setLogLevels(parameters.logLevel)
	}

	tracerProvider, err := tracing.Initialize(parameters.tracing.provider, parameters.tracing.serviceName,
		parameters.tracing.collectorURL)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}

	tracerProvider.Start()
	defer tracerProvider.Stop()

	metricsProvider, handlers := newMetricsProvider(parameters)

	if err := metricsProvider.Create(); err != nil {
		return fmt.Errorf("create metrics provider: %w", err)
	}

	defer func() {
		if e := metricsProvider.Destroy(); e != nil {
			logger.Warn("Error destroying metrics provider", log.WithError(e))
		}
	}()

	m := metricsProvider.Metrics()

	logger.Debug("Verifier parameters", logfields.WithConfig(parameters.verifier))

	storageProvider, err := store.NewProvider(parameters.dbParameters.databaseType,
		parameters.dbParameters.databaseURL, parameters.dbParameters.databasePrefix)
	if err != nil {
		return err
	}

	defer closeStorageProvider(storageProvider)

	dbProvider := wrapper.NewProvider(storageProvider, parameters.dbParameters.databaseType, m)

	httpClient, err := parameters.verifier.HTTPClient()
	if err != nil {
		return err
	}

	issuerStore, err := issuerstore.New(dbProvider,
		issuer.NewResolver(issuer.WithHTTPClient(httpClient), issuer.WithMetrics(m)),
		issuerstore.WithMaxAge(parameters.issuerProfileMaxAge),
	)
	if err != nil {
		return fmt.Errorf("create issuer profile store: %w", err)
	}

	verifierOpts, err := parameters.verifier.VerifierOptions(httpClient, m, dbProvider,
		verifier.WithIssuerResolver(issuerStore))
	if err != nil {
		return err
	}

	ops := restapi.New(&restapi.Config{
		VerifierOptions:    verifierOpts,
		MaxCertificateSize: int64(parameters.maxCertificateSize),
	})

	for _, h := range ops.GetRESTHandlers() {
		if parameters.maintenanceMode {
			h = maintenance.NewMaintenanceWrapper(h)
		}

		handlers = append(handlers, h)
	}

	logLevelHandlers, err := newLogLevelHandlers(parameters.authToken)
	if err != nil {
		return err
	}

	handlers = append(handlers, logLevelHandlers...)
	handlers = append(handlers, healthcheck.NewHandler(dbProvider, parameters.maintenanceMode))

	httpServer := httpserver.New(
		httpserver.Config{
			URL:               parameters.hostURL,
			CertFile:          parameters.tlsCertificate,
			KeyFile:           parameters.tlsKey,
			IdleTimeout:       parameters.serverIdleTimeout,
			ReadHeaderTimeout: parameters.serverReadHeaderTimeout,
			ServiceName:       parameters.tracing.serviceName,
		},
		handlers...,
	)

	logger.Info("Starting verifier REST service", logfields.WithAddress(parameters.hostURL),
		logfields.WithStoreName(parameters.dbParameters.databaseType))

	return srv.Start(httpServer)
}

// newMetricsProvider returns the metrics provider along with the handlers that the main server must serve.
func newMetricsProvider(parameters *verifierServerParameters) (metrics.Provider, []common.HTTPHandler) {
	if parameters.metrics.providerName != metricsProviderPrometheus {
		return noop.NewProvider(), nil
	}

	if parameters.metrics.promHTTPURL == "" {
		return prometheus.NewPrometheusProvider(nil), []common.HTTPHandler{prometheus.NewHandler()}
	}

	metricsServer := httpserver.New(
		httpserver.Config{
			URL:         parameters.metrics.promHTTPURL,
			ServiceName: parameters.tracing.serviceName,
		},
		prometheus.NewHandler(),
	)

	return prometheus.NewPrometheusProvider(metricsServer), nil
}

func newLogLevelHandlers(authToken string) ([]common.HTTPHandler, error) {
	handlers := []common.HTTPHandler{loglevels.NewWriteHandler(), loglevels.NewReadHandler()}

	if authToken == "" {
		return handlers, nil
	}

	cfg := auth.Config{
		AuthTokensDef: []*auth.TokenDef{
			{
				EndpointExpression: logLevelsEndpointExpression,
				ReadTokens:         []string{adminTokenID},
				WriteTokens:        []string{adminTokenID},
			},
		},
		AuthTokens: map[string]string{adminTokenID: authToken},
	}

	wrapped := make([]common.HTTPHandler, len(handlers))

	for i, h := range handlers {
		w, err := auth.NewHandlerWrapper(cfg, h)
		if err != nil {
			return nil, fmt.Errorf("create auth wrapper for %s: %w", h.Path(), err)
		}

		wrapped[i] = w
	}

	return wrapped, nil
}

func closeStorageProvider(p storage.Provider) {
	if err := p.Close(); err != nil {
		logger.Warn("Error closing storage provider", log.WithError(err))
	}
}

func setLogLevels(logSpec string) {
	if err := log.SetSpec(logSpec); err != nil {
		logger.Warn("Invalid log spec. Setting the default log level to INFO.", log.WithError(err),
			logfields.WithLogSpec(logSpec))

		log.SetDefaultLevel(log.INFO)

		return
	}

	logger.Info("Successfully set log levels", logfields.WithLogSpec(log.GetSpec()))
}
