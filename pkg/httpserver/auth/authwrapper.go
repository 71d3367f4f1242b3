/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package auth

import (
	"net/http"

	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

const unauthorizedResponse = "Unauthorized.\n"

// HandlerWrapper wraps an existing HTTP handler and performs bearer token authorization.
// If authorized then the wrapped handler is invoked.
type HandlerWrapper struct {
	common.HTTPHandler

	verifier *TokenVerifier
}

// NewHandlerWrapper returns a handler that authorizes the request before invoking the wrapped handler.
func NewHandlerWrapper(cfg Config, handler common.HTTPHandler) (*HandlerWrapper, error) {
	v, err := NewTokenVerifier(cfg, handler.Path(), handler.Method())
	if err != nil {
		return nil, err
	}

	return &HandlerWrapper{
		HTTPHandler: handler,
		verifier:    v,
	}, nil
}

// Handler returns the 'wrapper' handler.
func (h *HandlerWrapper) Handler() common.HTTPRequestHandler {
	handle := h.HTTPHandler.Handler()

	return func(w http.ResponseWriter, req *http.Request) {
		if !h.verifier.Verify(req) {
			w.WriteHeader(http.StatusUnauthorized)

			if _, err := w.Write([]byte(unauthorizedResponse)); err != nil {
				logfields.WriteResponseBodyError(h.verifier.logger, err)
			}

			return
		}

		handle(w, req)
	}
}
