/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

const defaultServiceName = "blockcerts-verifier"

var (
	logger = log.New("httpserver")

	// BuildVersion contains the version of the verifier build.
	BuildVersion string
)

// Config holds the listener settings of the server.
type Config struct {
	URL               string
	CertFile          string
	KeyFile           string
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	// ServiceName is the name reported in the spans of incoming requests.
	ServiceName string
}

// Server implements an HTTP server.
type Server struct {
	httpServer *http.Server
	started    atomic.Bool
	certFile   string
	keyFile    string
}

// New returns a new HTTP server which serves the given handlers.
func New(cfg Config, handlers ...common.HTTPHandler) *Server {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	router := mux.NewRouter()
	router.Use(otelmux.Middleware(serviceName))

	for _, handler := range handlers {
		logger.Info("Registering handler", logfields.WithServiceEndpoint(handler.Path()),
			logfields.WithHTTPMethod(handler.Method()))

		router.HandleFunc(handler.Path(), handler.Handler()).
			Methods(handler.Method()).
			Queries(params(handler)...)
	}

	corsHandler := cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		},
	).Handler(router)

	http2Server := &http2.Server{
		IdleTimeout: cfg.IdleTimeout,
		CountError: func(errType string) {
			logger.Error("HTTP2 server error", log.WithError(errors.New(errType)))
		},
	}

	return &Server{
		certFile: cfg.CertFile,
		keyFile:  cfg.KeyFile,
		httpServer: &http.Server{
			Addr:              cfg.URL,
			Handler:           h2c.NewHandler(corsHandler, http2Server),
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
	}
}

// Start starts the HTTP server in a separate Go routine.
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("server already started")
	}

	go func() {
		logger.Info("Listening for requests", logfields.WithAddress(s.httpServer.Addr))

		var err error
		if s.keyFile != "" && s.certFile != "" {
			err = s.httpServer.ListenAndServeTLS(s.certFile, s.keyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("Failed to start server on [%s]: %s", s.httpServer.Addr, err))
		}

		s.started.Store(false)

		logger.Info("Server has stopped")
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.started.CompareAndSwap(true, false) {
		return fmt.Errorf("cannot stop HTTP server since it hasn't been started")
	}

	return s.httpServer.Shutdown(ctx)
}

type paramHolder interface {
	Params() map[string]string
}

func params(handler common.HTTPHandler) []string {
	p, ok := handler.(paramHolder)
	if !ok {
		return nil
	}

	var queries []string

	for name, value := range p.Params() {
		queries = append(queries, name, value)
	}

	return queries
}
