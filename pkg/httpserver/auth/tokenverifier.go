/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"regexp"

	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

var logger = log.New("auth")

const (
	authHeader  = "Authorization"
	tokenPrefix = "Bearer "
)

// TokenDef maps the endpoints matching EndpointExpression to the IDs of the tokens that may read (GET)
// and write (POST) them.
type TokenDef struct {
	EndpointExpression string
	ReadTokens         []string
	WriteTokens        []string
}

// Config contains the authorization token configuration. AuthTokens maps token IDs to token values.
type Config struct {
	AuthTokensDef []*TokenDef
	AuthTokens    map[string]string
}

// TokenVerifier authorizes requests with bearer tokens.
type TokenVerifier struct {
	endpoint   string
	authTokens []string
	logger     *log.Log
}

// NewTokenVerifier returns a verifier of the bearer tokens required for the given endpoint and method.
func NewTokenVerifier(cfg Config, endpoint, method string) (*TokenVerifier, error) {
	authTokens, err := resolveAuthTokens(endpoint, method, cfg.AuthTokensDef, cfg.AuthTokens)
	if err != nil {
		return nil, fmt.Errorf("resolve authorization tokens for %s: %w", endpoint, err)
	}

	return &TokenVerifier{
		endpoint:   endpoint,
		authTokens: authTokens,
		logger:     logger.With(logfields.WithServiceEndpoint(endpoint)),
	}, nil
}

// Verify returns true if no token is required or if the request carries one of the required tokens.
func (v *TokenVerifier) Verify(req *http.Request) bool {
	if len(v.authTokens) == 0 {
		return true
	}

	actHdr := req.Header.Get(authHeader)
	if actHdr == "" {
		v.logger.Debug("Bearer token not found in header")

		return false
	}

	for _, token := range v.authTokens {
		if subtle.ConstantTimeCompare([]byte(actHdr), []byte(tokenPrefix+token)) == 1 {
			return true
		}
	}

	v.logger.Debug("Bearer token does not match any of the required tokens")

	return false
}

func resolveAuthTokens(endpoint, method string, defs []*TokenDef, tokenMap map[string]string) ([]string, error) {
	for _, def := range defs {
		ok, err := regexp.MatchString(def.EndpointExpression, endpoint)
		if err != nil {
			return nil, fmt.Errorf("match endpoint pattern %s: %w", def.EndpointExpression, err)
		}

		if !ok {
			continue
		}

		tokenIDs := def.ReadTokens
		if method == http.MethodPost {
			tokenIDs = def.WriteTokens
		}

		authTokens := make([]string, 0, len(tokenIDs))

		for _, id := range tokenIDs {
			token, ok := tokenMap[id]
			if !ok {
				return nil, fmt.Errorf("token not found: %s", id)
			}

			authTokens = append(authTokens, token)
		}

		return authTokens, nil
	}

	return nil, nil
}
