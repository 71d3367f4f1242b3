/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
	bcerrors "github.com/trustbloc/blockcerts-verifier/pkg/errors"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
)

const (
	verifyEndpoint = "/verify"
	stepsEndpoint  = "/steps"

	localeParam = "locale"

	defaultMaxCertificateSize = 1 << 20

	contentTypeJSON = "application/json"
)

var logger = log.New("restapi")

// Operation implements the verification REST endpoints. A new verification engine is created for each request.
type Operation struct {
	options            []verifier.Option
	maxCertificateSize int64
}

// Config defines the configuration of the verification endpoints.
type Config struct {
	// VerifierOptions are applied to every verification engine. The request locale is appended to them.
	VerifierOptions []verifier.Option
	// MaxCertificateSize is the maximum size (in bytes) of a posted certificate.
	MaxCertificateSize int64
}

// New returns the verification REST operations.
func New(cfg *Config) *Operation {
	maxSize := cfg.MaxCertificateSize
	if maxSize <= 0 {
		maxSize = defaultMaxCertificateSize
	}

	return &Operation{
		options:            cfg.VerifierOptions,
		maxCertificateSize: maxSize,
	}
}

// GetRESTHandlers returns the verification REST handlers.
func (o *Operation) GetRESTHandlers() []common.HTTPHandler {
	return []common.HTTPHandler{
		newHTTPHandler(verifyEndpoint, http.MethodPost, o.verifyHandler),
		newHTTPHandler(stepsEndpoint, http.MethodPost, o.stepsHandler),
	}
}

// VerifyResponse is the result of POST /verify.
type VerifyResponse struct {
	Locale  string                 `json:"locale"`
	Final   *verifier.FinalStep    `json:"final"`
	Updates []*verifier.StepUpdate `json:"updates"`
	Records []*verifier.StepRecord `json:"records"`
	Signers []*verifier.Signer     `json:"signers"`
}

// StepsResponse is the result of POST /steps.
type StepsResponse struct {
	Locale string        `json:"locale"`
	Steps  []*steps.Step `json:"steps"`
}

func (o *Operation) verifyHandler(rw http.ResponseWriter, req *http.Request) {
	engine, ok := o.initEngine(rw, req, verifyEndpoint)
	if !ok {
		return
	}

	var (
		mutex   sync.Mutex
		updates []*verifier.StepUpdate
	)

	final, err := engine.Verify(req.Context(), func(u *verifier.StepUpdate) {
		mutex.Lock()
		defer mutex.Unlock()

		updates = append(updates, u)
	})
	if err != nil {
		logger.Error("Error verifying certificate", log.WithError(err))

		writeErrorResponse(rw, http.StatusInternalServerError, fmt.Sprintf("verify certificate: %s", err))

		return
	}

	logger.Debug("Verified certificate", logfields.WithStepStatus(string(final.Status)),
		logfields.WithLocale(engine.Locale()))

	writeJSONResponse(rw, &VerifyResponse{
		Locale:  engine.Locale(),
		Final:   final,
		Updates: updates,
		Records: engine.Records(),
		Signers: engine.SignersData(),
	})
}

func (o *Operation) stepsHandler(rw http.ResponseWriter, req *http.Request) {
	engine, ok := o.initEngine(rw, req, stepsEndpoint)
	if !ok {
		return
	}

	writeJSONResponse(rw, &StepsResponse{
		Locale: engine.Locale(),
		Steps:  engine.VerificationSteps(),
	})
}

// initEngine parses the posted certificate and initializes an engine for it. If false is returned then
// the error response has already been written.
func (o *Operation) initEngine(rw http.ResponseWriter, req *http.Request, endpoint string) (*verifier.Engine, bool) {
	raw, err := io.ReadAll(io.LimitReader(req.Body, o.maxCertificateSize+1))
	if err != nil {
		logfields.ReadRequestBodyError(logger, err)

		writeErrorResponse(rw, http.StatusInternalServerError, "unable to read request body")

		return nil, false
	}

	if int64(len(raw)) > o.maxCertificateSize {
		logger.Debug("Certificate too large", logfields.WithServiceEndpoint(endpoint), logfields.WithSize(len(raw)))

		writeErrorResponse(rw, http.StatusRequestEntityTooLarge, "certificate is too large")

		return nil, false
	}

	cert, err := certificate.Parse(raw)
	if err != nil {
		logfields.InvalidParameterValue(logger, "certificate", err)

		writeErrorResponse(rw, statusFromError(err), err.Error())

		return nil, false
	}

	opts := append(append([]verifier.Option(nil), o.options...), verifier.WithLocale(req.URL.Query().Get(localeParam)))

	engine := verifier.New(cert, opts...)

	if err := engine.Init(req.Context()); err != nil {
		logger.Debug("Error initializing verifier", log.WithError(err), logfields.WithServiceEndpoint(endpoint),
			logfields.WithCredentialID(cert.ID))

		writeErrorResponse(rw, statusFromError(err), err.Error())

		return nil, false
	}

	return engine, true
}

func statusFromError(err error) int {
	switch {
	case bcerrors.IsBadRequest(err),
		errors.Is(err, verifier.ErrNoProof),
		errors.Is(err, verifier.ErrUnsupportedProofType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONResponse(rw http.ResponseWriter, value interface{}) {
	b, err := json.Marshal(value)
	if err != nil {
		logger.Error("Error marshalling response", log.WithError(err))

		writeErrorResponse(rw, http.StatusInternalServerError, "unable to marshal response")

		return
	}

	rw.Header().Set("Content-Type", contentTypeJSON)
	rw.WriteHeader(http.StatusOK)

	if _, err := rw.Write(b); err != nil {
		logfields.WriteResponseBodyError(logger, err)
	}
}

func writeErrorResponse(rw http.ResponseWriter, status int, msg string) {
	rw.Header().Set("Content-Type", "text/plain")
	rw.WriteHeader(status)

	if _, err := rw.Write([]byte(msg)); err != nil {
		logfields.WriteResponseBodyError(logger, err)
	}
}

func newHTTPHandler(path, method string, handle common.HTTPRequestHandler) common.HTTPHandler {
	return &httpHandler{path: path, method: method, handle: handle}
}

type httpHandler struct {
	path   string
	method string
	handle common.HTTPRequestHandler
}

// Path returns http request path.
func (h *httpHandler) Path() string {
	return h.path
}

// Method returns http request method type.
func (h *httpHandler) Method() string {
	return h.method
}

// Handler returns http request handle func.
func (h *httpHandler) Handler() common.HTTPRequestHandler {
	return h.handle
}
