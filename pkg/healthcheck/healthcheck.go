/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package healthcheck

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/trustbloc/sidetree-svc-go/pkg/restapi/common"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/httpserver"
)

var logger = log.New("healthcheck")

const (
	healthCheckEndpoint = "/healthcheck"

	success = "success"
	unknown = "unknown error"
)

type db interface {
	Ping() error
}

// Handler implements a health check HTTP handler.
type Handler struct {
	db              db
	maintenanceMode bool
	now             func() time.Time
}

// NewHandler returns a new health check handler. The database check is skipped if db is nil.
func NewHandler(db db, maintenanceMode bool) *Handler {
	return &Handler{
		db:              db,
		maintenanceMode: maintenanceMode,
		now:             time.Now,
	}
}

// Method returns the HTTP method, which is always GET.
func (h *Handler) Method() string {
	return http.MethodGet
}

// Path returns the base path of the target URL for this handler.
func (h *Handler) Path() string {
	return healthCheckEndpoint
}

// Handler returns the handler that should be invoked when an HTTP GET is requested to the target endpoint.
func (h *Handler) Handler() common.HTTPRequestHandler {
	return h.checkHealth
}

type response struct {
	DBStatus    string    `json:"dbStatus,omitempty"`
	Status      string    `json:"status,omitempty"`
	CurrentTime time.Time `json:"currentTime,omitempty"`
	Version     string    `json:"version,omitempty"`
}

func (h *Handler) checkHealth(rw http.ResponseWriter, _ *http.Request) {
	unavailable, dbStatus := h.dbHealthCheck()

	status := http.StatusOK
	if unavailable {
		status = http.StatusServiceUnavailable
	}

	hc := &response{
		DBStatus:    dbStatus,
		CurrentTime: h.now(),
		Status:      "OK",
		Version:     httpserver.BuildVersion,
	}

	if h.maintenanceMode {
		// A failing check doesn't take the node down while it's in maintenance.
		status = http.StatusOK
		hc.Status = "Maintenance"
	}

	hcBytes, err := json.Marshal(hc)
	if err != nil {
		logger.Error("Health check marshal error", log.WithError(err))

		rw.WriteHeader(http.StatusInternalServerError)

		return
	}

	logger.Debug("Health check returning response", logfields.WithHTTPStatus(status),
		logfields.WithResponse(hcBytes))

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if _, err := rw.Write(hcBytes); err != nil {
		logfields.WriteResponseBodyError(logger, err)
	}
}

func (h *Handler) dbHealthCheck() (bool, string) {
	if h.db == nil {
		return false, ""
	}

	err := h.db.Ping()
	if err == nil {
		return false, success
	}

	logger.Warn("Database health check failed", log.WithError(err))

	if err.Error() != "" {
		return true, err.Error()
	}

	return true, unknown
}
