/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package maintenance

import (
	"net/http"

	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

const serviceUnavailableResponse = "Service Unavailable.\n"

var logger = log.New("maintenance")

// HandlerWrapper replaces the wrapped handler with one that always responds with 503 (Service Unavailable).
type HandlerWrapper struct {
	common.HTTPHandler
}

// NewMaintenanceWrapper returns a wrapper that takes the given handler out of service.
func NewMaintenanceWrapper(handler common.HTTPHandler) *HandlerWrapper {
	return &HandlerWrapper{HTTPHandler: handler}
}

// Handler returns the 'wrapper' handler.
func (h *HandlerWrapper) Handler() common.HTTPRequestHandler {
	return func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)

		if _, err := w.Write([]byte(serviceUnavailableResponse)); err != nil {
			logfields.WriteResponseBodyError(logger.With(logfields.WithServiceEndpoint(h.Path())), err)
		}
	}
}
