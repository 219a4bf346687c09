package handler

import (
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/middleware"
	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/service"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

// AIHandler handles the AI gateway passthrough endpoints.
type AIHandler struct {
	assistant *service.AssistantService
	logger    *logger.Logger
}

// NewAIHandler creates a new AI handler.
func NewAIHandler(assistant *service.AssistantService, log *logger.Logger) *AIHandler {
	return &AIHandler{
		assistant: assistant,
		logger:    log,
	}
}

// Transcribe handles POST /api/v1/ai/transcribe. It accepts either a
// multipart "audio" upload or a JSON body with audioUrl.
func (h *AIHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var (
		text string
		err  error
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, MaxAudioBytes+1<<20)
		if err := r.ParseMultipartForm(MaxAudioBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, header, ferr := r.FormFile("audio")
		if ferr != nil {
			writeError(w, http.StatusBadRequest, "audio file is required")
			return
		}
		defer file.Close()
		text, err = h.assistant.Transcribe(r.Context(), file, header.Filename)
	} else {
		var req model.TranscribeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		text, err = h.assistant.TranscribeURL(r.Context(), req.AudioURL)
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err, "not found")
		return
	}

	writeJSON(w, http.StatusOK, model.TranscribeResponse{Text: text, Status: "completed"})
}

// Chat handles POST /api/v1/ai/chat
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageContent(req.UserMessage); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.assistant.Chat(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "not found")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Speak handles POST /api/v1/ai/tts and streams WAV audio back.
func (h *AIHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req model.SpeakRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	audio, err := h.assistant.Speak(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "not found")
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio); err != nil {
		h.logger.Warn("failed to stream speech", zap.Error(err))
	}
}
