package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/stream"
)

// Streamer runs one assistant turn, writing fragments to sink.
type Streamer interface {
	Stream(ctx context.Context, messages []models.Message, sink stream.Sink) error
}

type handlers struct {
	streamer Streamer
	limiter  *userLimiter
	logger   *slog.Logger
	status   StatusInfo
}

// StatusInfo is reported by GET /api/status.
type StatusInfo struct {
	Model            string `json:"model"`
	SearchConfigured bool   `json:"search_configured"`
}

type statusResponse struct {
	Status   string `json:"status"`
	Protocol string `json:"protocol"`
	StatusInfo
}

func newRouter(h *handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("GET /api/status", h.handleStatus)
	return mux
}

func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		h.logger.Warn("chat request rejected", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "", msgChatFailed)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, errorCodeInvalidRequest, msgMessagesRequired)
		return
	}

	key := callerKey(r, req.UserID)
	if !h.limiter.Allow(key) {
		h.logger.Warn("chat request rate limited", slog.String("caller", key))
		writeError(w, http.StatusTooManyRequests, errorCodeRateLimited, msgRateLimited)
		return
	}

	stream.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	sw := stream.NewWriter(w)

	if err := h.streamer.Stream(r.Context(), req.Messages, sw); err != nil {
		// The terminal error fragment is already out; the missing [DONE]
		// tells the client the turn did not complete.
		h.logger.Error("chat stream failed", slog.String("caller", key), slog.Any("error", err))
		return
	}
	if err := sw.Done(); err != nil {
		h.logger.Warn("failed to close chat stream", slog.Any("error", err))
	}
}

func (h *handlers) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:     "ok",
		Protocol:   stream.ProtocolVersion,
		StatusInfo: h.status,
	})
}

// callerKey prefers the caller-supplied user id and falls back to the remote
// host.
func callerKey(r *http.Request, userID string) string {
	if userID != "" {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
