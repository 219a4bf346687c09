// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sahwira-ai/sahwira/internal/middleware"
	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/service"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

const conversationNotFound = "conversation not found"

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req.Messages)
	if err != nil {
		writeServiceError(w, r, h.logger, err, conversationNotFound)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err, conversationNotFound)
		return
	}

	writeJSON(w, http.StatusOK, model.ListConversationsResponse{Conversations: convs})
}

// Replace handles PUT /api/v1/conversations/{id}
func (h *ConversationHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, conversationNotFound) {
		return
	}

	var req model.ReplaceMessagesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.service.ReplaceMessages(r.Context(), middleware.GetUserID(r.Context()), id, req.Messages)
	if err != nil {
		writeServiceError(w, r, h.logger, err, conversationNotFound)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Rename handles PATCH /api/v1/conversations/{id}
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, conversationNotFound) {
		return
	}

	var req model.RenameConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Rename(r.Context(), middleware.GetUserID(r.Context()), id, req.Title)
	if err != nil {
		writeServiceError(w, r, h.logger, err, conversationNotFound)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, conversationNotFound) {
		return
	}

	if err := h.service.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeServiceError(w, r, h.logger, err, conversationNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
