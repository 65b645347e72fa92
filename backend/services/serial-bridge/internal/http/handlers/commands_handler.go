package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"cardbridge/backend/services/serial-bridge/internal/bridge"
	"cardbridge/backend/services/serial-bridge/internal/http/middleware"
)

// CommandSender writes an operator line to the device.
type CommandSender interface {
	Send(ctx context.Context, line string) error
}

// NewCommandsHandler handles POST /api/commands.
func NewCommandsHandler(sender CommandSender, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		Line string `json:"line"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		operator, ok := middleware.SubjectFromContext(r.Context())
		if !ok {
			operator = "anonymous"
		}

		if err := sender.Send(r.Context(), req.Line); err != nil {
			if errors.Is(err, bridge.ErrNotOpen) {
				writeError(w, http.StatusConflict, "serial port is not open")
				return
			}
			logger.Error("failed to send command", zap.String("operator", operator), zap.Error(err))
			writeError(w, http.StatusBadGateway, "failed to write to serial port")
			return
		}
		logger.Info("manual command sent", zap.String("operator", operator), zap.String("line", req.Line))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	}
}
