/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package loglevels

import (
	"io"
	"net/http"

	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

var logger = log.New("loglevels")

const (
	logLevelsPath = "/loglevels"

	// A logging spec is a short "module=LEVEL:...:LEVEL" string.
	maxSpecSize = 4096

	internalServerErrorResponse = "Internal Server Error.\n"
	badRequestResponse          = "Bad Request.\n"
)

// Handler is a REST handler that reads or updates the logging spec. The spec has
// the format "module1=level1:module2=level2:defaultLevel".
type Handler struct {
	method  string
	handler common.HTTPRequestHandler
	logger  *log.Log
	readAll func(r io.Reader) ([]byte, error)
}

// NewWriteHandler returns a handler that updates the default log level and/or the levels of named modules.
func NewWriteHandler() *Handler {
	h := newHandler(http.MethodPost)
	h.handler = h.handlePost

	return h
}

// NewReadHandler returns a handler that returns the current logging spec.
func NewReadHandler() *Handler {
	h := newHandler(http.MethodGet)
	h.handler = h.handleGet

	return h
}

func newHandler(method string) *Handler {
	return &Handler{
		method:  method,
		logger:  logger.With(logfields.WithServiceEndpoint(logLevelsPath)),
		readAll: io.ReadAll,
	}
}

// Method returns the HTTP method.
func (h *Handler) Method() string {
	return h.method
}

// Path returns the HTTP path.
func (h *Handler) Path() string {
	return logLevelsPath
}

// Handler returns the HTTP handler.
func (h *Handler) Handler() common.HTTPRequestHandler {
	return h.handler
}

func (h *Handler) handlePost(w http.ResponseWriter, req *http.Request) {
	reqBytes, err := h.readAll(io.LimitReader(req.Body, maxSpecSize+1))
	if err != nil {
		logfields.ReadRequestBodyError(h.logger, err)

		h.writeResponse(w, http.StatusInternalServerError, []byte(internalServerErrorResponse))

		return
	}

	if len(reqBytes) > maxSpecSize {
		h.logger.Warn("Logging spec is too large", logfields.WithSize(len(reqBytes)))

		h.writeResponse(w, http.StatusBadRequest, []byte(badRequestResponse))

		return
	}

	spec := string(reqBytes)

	if err := log.SetSpec(spec); err != nil {
		h.logger.Warn("Invalid logging spec", logfields.WithLogSpec(spec), log.WithError(err))

		h.writeResponse(w, http.StatusBadRequest, []byte(badRequestResponse))

		return
	}

	h.logger.Info("Updated log levels", logfields.WithLogSpec(log.GetSpec()))

	h.writeResponse(w, http.StatusOK, nil)
}

func (h *Handler) handleGet(w http.ResponseWriter, _ *http.Request) {
	h.writeResponse(w, http.StatusOK, []byte(log.GetSpec()))
}

func (h *Handler) writeResponse(w http.ResponseWriter, status int, body []byte) {
	w.WriteHeader(status)

	if len(body) == 0 {
		return
	}

	if _, err := w.Write(body); err != nil {
		logfields.WriteResponseBodyError(h.logger, err)
	}
}
