/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trustbloc/blockcerts-verifier/cmd/cert-verifier/verifieropts"
	"github.com/trustbloc/blockcerts-verifier/internal/pkg/cmdutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/tracing"
	"github.com/trustbloc/blockcerts-verifier/pkg/store"
)

const (
	commonEnvVarUsageText = verifieropts.CommonEnvVarUsageText

	hostURLFlagName      = "host-url"
	hostURLFlagShorthand = "u"
	hostURLFlagUsage     = "URL to run the verifier instance on. Format: HostName:Port. " +
		commonEnvVarUsageText + hostURLEnvKey
	hostURLEnvKey = "BLOCKCERTS_HOST_URL"

	tlsCertificateFlagName  = "tls-certificate"
	tlsCertificateFlagUsage = "TLS certificate for the verifier server. " + commonEnvVarUsageText + tlsCertificateEnvKey
	tlsCertificateEnvKey    = "BLOCKCERTS_TLS_CERTIFICATE"

	tlsKeyFlagName  = "tls-key"
	tlsKeyFlagUsage = "TLS key for the verifier server. " + commonEnvVarUsageText + tlsKeyEnvKey
	tlsKeyEnvKey    = "BLOCKCERTS_TLS_KEY"

	databaseTypeFlagName      = "database-type"
	databaseTypeFlagShorthand = "t"
	databaseTypeFlagUsage     = "The type of database to use for the issuer profile store. " +
		"Supported options: mem, mongodb. Defaults to mem. " + commonEnvVarUsageText + databaseTypeEnvKey
	databaseTypeEnvKey = "BLOCKCERTS_DATABASE_TYPE"

	databaseURLFlagName      = "database-url"
	databaseURLFlagShorthand = "v"
	databaseURLFlagUsage     = "The URL of the database. Not needed if using memstore. " +
		"For MongoDB, include the full connection string. " + commonEnvVarUsageText + databaseURLEnvKey
	databaseURLEnvKey = "BLOCKCERTS_DATABASE_URL"

	databasePrefixFlagName  = "database-prefix"
	databasePrefixFlagUsage = "An optional prefix to be used when creating and retrieving underlying databases. " +
		commonEnvVarUsageText + databasePrefixEnvKey
	databasePrefixEnvKey = "BLOCKCERTS_DATABASE_PREFIX"

	issuerProfileMaxAgeFlagName  = "issuer-profile-max-age"
	issuerProfileMaxAgeFlagUsage = "The age after which a stored issuer profile is refreshed from the issuer. " +
		"Defaults to 1h. " + commonEnvVarUsageText + issuerProfileMaxAgeEnvKey
	issuerProfileMaxAgeEnvKey = "BLOCKCERTS_ISSUER_PROFILE_MAX_AGE"

	maxCertificateSizeFlagName  = "max-certificate-size"
	maxCertificateSizeFlagUsage = "The maximum size (in bytes) of a posted certificate. Defaults to 1048576. " +
		commonEnvVarUsageText + maxCertificateSizeEnvKey
	maxCertificateSizeEnvKey = "BLOCKCERTS_MAX_CERTIFICATE_SIZE"

	maintenanceModeFlagName  = "maintenance-mode"
	maintenanceModeFlagUsage = "If set to true then the verification endpoints return 503 (Service Unavailable). " +
		commonEnvVarUsageText + maintenanceModeEnvKey
	maintenanceModeEnvKey = "BLOCKCERTS_MAINTENANCE_MODE"

	authTokenFlagName  = "auth-token"
	authTokenFlagUsage = "The token required to read and update log levels. If not set then the log level " +
		"endpoints are open. " + commonEnvVarUsageText + authTokenEnvKey
	authTokenEnvKey = "BLOCKCERTS_AUTH_TOKEN" //nolint:gosec

	metricsProviderFlagName  = "metrics-provider-name"
	metricsProviderFlagUsage = "The metrics provider name (for example: 'prometheus'). If not set then " +
		"metrics are disabled. " + commonEnvVarUsageText + metricsProviderEnvKey
	metricsProviderEnvKey = "BLOCKCERTS_METRICS_PROVIDER_NAME"

	promHTTPURLFlagName  = "prom-http-url"
	promHTTPURLFlagUsage = "URL that exposes the Prometheus metrics endpoint. If not set then the metrics " +
		"endpoint is served by the verifier server. " + commonEnvVarUsageText + promHTTPURLEnvKey
	promHTTPURLEnvKey = "BLOCKCERTS_PROM_HTTP_URL"

	tracingProviderFlagName  = "tracing-provider"
	tracingProviderFlagUsage = "The tracing provider (for example: JAEGER). If not set then tracing is disabled. " +
		commonEnvVarUsageText + tracingProviderEnvKey
	tracingProviderEnvKey = "BLOCKCERTS_TRACING_PROVIDER"

	tracingCollectorURLFlagName  = "tracing-collector-url"
	tracingCollectorURLFlagUsage = "The URL of the tracing collector. " + commonEnvVarUsageText +
		tracingCollectorURLEnvKey
	tracingCollectorURLEnvKey = "BLOCKCERTS_TRACING_COLLECTOR_URL"

	tracingServiceNameFlagName  = "tracing-service-name"
	tracingServiceNameFlagUsage = "The name of the service reported to the tracing collector. " +
		"Defaults to blockcerts-verifier. " + commonEnvVarUsageText + tracingServiceNameEnvKey
	tracingServiceNameEnvKey = "BLOCKCERTS_TRACING_SERVICE_NAME"

	logLevelFlagName      = "log-level"
	logLevelFlagShorthand = "l"
	logLevelFlagUsage     = "Sets the logging level. " +
		"Possible values are [DEBUG, INFO, WARNING, ERROR, PANIC, FATAL] (default is INFO). " +
		"Module levels may be set using the format module1=level1:module2=level2:defaultLevel. " +
		commonEnvVarUsageText + logLevelEnvKey
	logLevelEnvKey = "BLOCKCERTS_LOG_LEVEL"

	serverIdleTimeoutFlagName  = "server-idle-timeout"
	serverIdleTimeoutFlagUsage = "The idle timeout of the HTTP server. Defaults to 20s. " +
		commonEnvVarUsageText + serverIdleTimeoutEnvKey
	serverIdleTimeoutEnvKey = "BLOCKCERTS_SERVER_IDLE_TIMEOUT"

	serverReadHeaderTimeoutFlagName  = "server-read-header-timeout"
	serverReadHeaderTimeoutFlagUsage = "The read header timeout of the HTTP server. Defaults to 20s. " +
		commonEnvVarUsageText + serverReadHeaderTimeoutEnvKey
	serverReadHeaderTimeoutEnvKey = "BLOCKCERTS_SERVER_READ_HEADER_TIMEOUT"
)

const (
	metricsProviderPrometheus = "prometheus"

	defaultServiceName             = "blockcerts-verifier"
	defaultIssuerProfileMaxAge     = time.Hour
	defaultServerIdleTimeout       = 20 * time.Second
	defaultServerReadHeaderTimeout = 20 * time.Second
)

type dbParameters struct {
	databaseType   string
	databaseURL    string
	databasePrefix string
}

type tracingParameters struct {
	provider     string
	collectorURL string
	serviceName  string
}

type metricsParameters struct {
	providerName string
	promHTTPURL  string
}

type verifierServerParameters struct {
	hostURL                 string
	tlsCertificate          string
	tlsKey                  string
	dbParameters            *dbParameters
	issuerProfileMaxAge     time.Duration
	maxCertificateSize      int
	maintenanceMode         bool
	authToken               string
	metrics                 *metricsParameters
	tracing                 *tracingParameters
	logLevel                string
	serverIdleTimeout       time.Duration
	serverReadHeaderTimeout time.Duration
	verifier                *verifieropts.Parameters
}

//nolint:funlen
func getVerifierServerParameters(cmd *cobra.Command) (*verifierServerParameters, error) {
	hostURL, err := cmdutil.GetUserSetVarFromString(cmd, hostURLFlagName, hostURLEnvKey, false)
	if err != nil {
		return nil, err
	}

	tlsCertificate := cmdutil.GetUserSetOptionalVarFromString(cmd, tlsCertificateFlagName, tlsCertificateEnvKey)
	tlsKey := cmdutil.GetUserSetOptionalVarFromString(cmd, tlsKeyFlagName, tlsKeyEnvKey)

	if (tlsCertificate == "") != (tlsKey == "") {
		return nil, fmt.Errorf("both %s and %s must be set to enable TLS", tlsCertificateFlagName, tlsKeyFlagName)
	}

	dbParams, err := getDBParameters(cmd)
	if err != nil {
		return nil, err
	}

	issuerProfileMaxAge, err := cmdutil.GetDuration(cmd, issuerProfileMaxAgeFlagName, issuerProfileMaxAgeEnvKey,
		defaultIssuerProfileMaxAge)
	if err != nil {
		return nil, err
	}

	maxCertificateSize, err := cmdutil.GetInt(cmd, maxCertificateSizeFlagName, maxCertificateSizeEnvKey, 0)
	if err != nil {
		return nil, err
	}

	maintenanceMode, err := cmdutil.GetBool(cmd, maintenanceModeFlagName, maintenanceModeEnvKey, false)
	if err != nil {
		return nil, err
	}

	metricsParams, err := getMetricsParameters(cmd)
	if err != nil {
		return nil, err
	}

	tracingParams, err := getTracingParameters(cmd)
	if err != nil {
		return nil, err
	}

	idleTimeout, err := cmdutil.GetDuration(cmd, serverIdleTimeoutFlagName, serverIdleTimeoutEnvKey,
		defaultServerIdleTimeout)
	if err != nil {
		return nil, err
	}

	readHeaderTimeout, err := cmdutil.GetDuration(cmd, serverReadHeaderTimeoutFlagName,
		serverReadHeaderTimeoutEnvKey, defaultServerReadHeaderTimeout)
	if err != nil {
		return nil, err
	}

	verifierParams, err := verifieropts.GetParameters(cmd)
	if err != nil {
		return nil, err
	}

	return &verifierServerParameters{
		hostURL:                 hostURL,
		tlsCertificate:          tlsCertificate,
		tlsKey:                  tlsKey,
		dbParameters:            dbParams,
		issuerProfileMaxAge:     issuerProfileMaxAge,
		maxCertificateSize:      maxCertificateSize,
		maintenanceMode:         maintenanceMode,
		authToken:               cmdutil.GetUserSetOptionalVarFromString(cmd, authTokenFlagName, authTokenEnvKey),
		metrics:                 metricsParams,
		tracing:                 tracingParams,
		logLevel:                cmdutil.GetUserSetOptionalVarFromString(cmd, logLevelFlagName, logLevelEnvKey),
		serverIdleTimeout:       idleTimeout,
		serverReadHeaderTimeout: readHeaderTimeout,
		verifier:                verifierParams,
	}, nil
}

func getDBParameters(cmd *cobra.Command) (*dbParameters, error) {
	databaseType := cmdutil.GetUserSetOptionalVarFromString(cmd, databaseTypeFlagName, databaseTypeEnvKey)
	if databaseType == "" {
		databaseType = store.DatabaseTypeMem
	}

	databaseURL := cmdutil.GetUserSetOptionalVarFromString(cmd, databaseURLFlagName, databaseURLEnvKey)

	if strings.EqualFold(databaseType, store.DatabaseTypeMongoDB) && databaseURL == "" {
		return nil, fmt.Errorf("%s is required for database type [%s]", databaseURLFlagName, databaseType)
	}

	return &dbParameters{
		databaseType:   databaseType,
		databaseURL:    databaseURL,
		databasePrefix: cmdutil.GetUserSetOptionalVarFromString(cmd, databasePrefixFlagName, databasePrefixEnvKey),
	}, nil
}

func getMetricsParameters(cmd *cobra.Command) (*metricsParameters, error) {
	providerName := cmdutil.GetUserSetOptionalVarFromString(cmd, metricsProviderFlagName, metricsProviderEnvKey)

	if providerName != "" && !strings.EqualFold(providerName, metricsProviderPrometheus) {
		return nil, fmt.Errorf("unsupported metrics provider [%s]", providerName)
	}

	return &metricsParameters{
		providerName: strings.ToLower(providerName),
		promHTTPURL:  cmdutil.GetUserSetOptionalVarFromString(cmd, promHTTPURLFlagName, promHTTPURLEnvKey),
	}, nil
}

func getTracingParameters(cmd *cobra.Command) (*tracingParameters, error) {
	provider := cmdutil.GetUserSetOptionalVarFromString(cmd, tracingProviderFlagName, tracingProviderEnvKey)

	switch provider {
	case tracing.ProviderNone, tracing.ProviderJaeger:
	default:
		return nil, fmt.Errorf("unsupported tracing provider [%s]", provider)
	}

	serviceName := cmdutil.GetUserSetOptionalVarFromString(cmd, tracingServiceNameFlagName, tracingServiceNameEnvKey)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	return &tracingParameters{
		provider:     provider,
		collectorURL: cmdutil.GetUserSetOptionalVarFromString(cmd, tracingCollectorURLFlagName, tracingCollectorURLEnvKey),
		serviceName:  serviceName,
	}, nil
}

func createFlags(startCmd *cobra.Command) {
	startCmd.Flags().StringP(hostURLFlagName, hostURLFlagShorthand, "", hostURLFlagUsage)
	startCmd.Flags().String(tlsCertificateFlagName, "", tlsCertificateFlagUsage)
	startCmd.Flags().String(tlsKeyFlagName, "", tlsKeyFlagUsage)
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)
	startCmd.Flags().StringP(databaseURLFlagName, databaseURLFlagShorthand, "", databaseURLFlagUsage)
	startCmd.Flags().String(databasePrefixFlagName, "", databasePrefixFlagUsage)
	startCmd.Flags().String(issuerProfileMaxAgeFlagName, "", issuerProfileMaxAgeFlagUsage)
	startCmd.Flags().String(maxCertificateSizeFlagName, "", maxCertificateSizeFlagUsage)
	startCmd.Flags().String(maintenanceModeFlagName, "", maintenanceModeFlagUsage)
	startCmd.Flags().String(authTokenFlagName, "", authTokenFlagUsage)
	startCmd.Flags().String(metricsProviderFlagName, "", metricsProviderFlagUsage)
	startCmd.Flags().String(promHTTPURLFlagName, "", promHTTPURLFlagUsage)
	startCmd.Flags().String(tracingProviderFlagName, "", tracingProviderFlagUsage)
	startCmd.Flags().String(tracingCollectorURLFlagName, "", tracingCollectorURLFlagUsage)
	startCmd.Flags().String(tracingServiceNameFlagName, "", tracingServiceNameFlagUsage)
	startCmd.Flags().StringP(logLevelFlagName, logLevelFlagShorthand, "", logLevelFlagUsage)
	startCmd.Flags().String(serverIdleTimeoutFlagName, "", serverIdleTimeoutFlagUsage)
	startCmd.Flags().String(serverReadHeaderTimeoutFlagName, "", serverReadHeaderTimeoutFlagUsage)

	verifieropts.CreateFlags(startCmd)
}
