package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/middleware"
	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/service"
	"github.com/sahwira-ai/sahwira/pkg/logger"
	"github.com/sahwira-ai/sahwira/pkg/metrics"
)

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	assistant *service.AssistantService
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(assistant *service.AssistantService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		assistant: assistant,
		logger:    log,
	}
}

// ChatStream handles POST /api/v1/ai/chat/stream
// Tokens are sent as "token" events, then a single "done" or "error" event.
func (h *StreamHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageContent(req.UserMessage); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	resp, err := h.assistant.ChatStream(ctx, req, func(token string, index int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return sendSSEEvent(w, flusher, "token", &model.TokenEvent{Token: token, Index: index})
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("SSE client disconnected")
			return
		}
		h.logger.Error("chat stream failed", zap.Error(err))
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "generation_error",
			Message: "Failed to generate response",
		})
		return
	}

	sendSSEEvent(w, flusher, "done", &model.DoneEvent{Content: resp.Content, Model: resp.Model})
}

// sendSSEEvent writes one Server-Sent Event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
