package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cardbridge/backend/services/serial-bridge/internal/bridge"
	"cardbridge/backend/services/serial-bridge/internal/serialport"
)

// PortLister enumerates available serial ports.
type PortLister func() ([]serialport.PortInfo, error)

// PortOpener attaches the bridge to a port.
type PortOpener interface {
	Open(ctx context.Context, name string) error
}

// NewListPortsHandler handles GET /api/ports.
func NewListPortsHandler(list PortLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ports, err := list()
		if err != nil {
			logger.Error("failed to enumerate ports", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to enumerate ports")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ports": ports})
	}
}

// NewSelectPortHandler handles POST /api/ports/select.
func NewSelectPortHandler(opener PortOpener) http.HandlerFunc {
	type request struct {
		Port string `json:"port"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		name := serialport.NormalizeName(req.Port)
		if name == "" {
			writeError(w, http.StatusBadRequest, "port is required")
			return
		}

		if err := opener.Open(r.Context(), name); err != nil {
			if errors.Is(err, bridge.ErrOpenFailed) {
				writeError(w, http.StatusBadGateway, strings.TrimPrefix(err.Error(), "bridge: "))
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to open port")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"port": name, "status": "open"})
	}
}
