/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"
)

func TestHandlerWrapper(t *testing.T) {
	w, err := NewHandlerWrapper(testConfig(), &mockHTTPHandler{
		path:   "/loglevels",
		method: http.MethodPost,
	})
	require.NoError(t, err)
	require.Equal(t, "/loglevels", w.Path())
	require.Equal(t, http.MethodPost, w.Method())

	t.Run("Success", func(t *testing.T) {
		rw := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/loglevels", nil)
		req.Header[authHeader] = []string{tokenPrefix + "ADMIN_TOKEN"}

		w.Handler()(rw, req)

		result := rw.Result()
		require.Equal(t, http.StatusOK, result.StatusCode)
		require.NoError(t, result.Body.Close())
	})

	t.Run("Unauthorized", func(t *testing.T) {
		rw := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/loglevels", nil)

		w.Handler()(rw, req)

		result := rw.Result()
		require.Equal(t, http.StatusUnauthorized, result.StatusCode)
		require.Equal(t, unauthorizedResponse, rw.Body.String())
		require.NoError(t, result.Body.Close())
	})

	t.Run("Token not found", func(t *testing.T) {
		cfg := testConfig()
		cfg.AuthTokens = map[string]string{"read": "READ_TOKEN"}

		_, err := NewHandlerWrapper(cfg, &mockHTTPHandler{path: "/loglevels", method: http.MethodPost})
		require.Error(t, err)
		require.Contains(t, err.Error(), "token not found: admin")
	})
}

type mockHTTPHandler struct {
	path   string
	method string
}

func (m *mockHTTPHandler) Path() string {
	return m.path
}

func (m *mockHTTPHandler) Method() string {
	return m.method
}

func (m *mockHTTPHandler) Handler() common.HTTPRequestHandler {
	return func(writer http.ResponseWriter, request *http.Request) {}
}
