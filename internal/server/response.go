package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/filiksyos/linkedin-search-app/internal/stream"
)

const maxRequestBodyBytes = 4 << 20

const (
	errorCodeInvalidRequest = "INVALID_REQUEST"
	errorCodeRateLimited    = stream.RateLimitMarker
)

const (
	msgChatFailed       = "Failed to process chat request"
	msgMessagesRequired = "messages are required"
	msgRateLimited      = stream.RateLimitMarker + ": too many requests, please wait and try again"
)

var errBodyRequired = errors.New("request body is required")

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBodyRequired
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBodyRequired
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain exactly one JSON object")
	}
	return nil
}
