package api

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured error response on the /api/v1 routes.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnsupported = "unsupported_action"
	ErrCodeUnavailable = "unavailable"
)

// Driver endpoint error codes.
const (
	BridgeErrUnauthorized        = "unauthorized"
	BridgeErrUnknownBridge       = "unknown_bridge"
	BridgeErrUnsupportedProtocol = "unsupported_protocol"
	BridgeErrInvalidDevices      = "invalid_devices"
	BridgeErrInvalidAcks         = "invalid_acks"
	BridgeErrInvalidJSON         = "invalid_json"
)

// bridgeError is the error body the Control4 driver understands.
type bridgeError struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeBridgeError writes {"ok":false,"error":code}.
func writeBridgeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, bridgeError{OK: false, Error: code})
}
