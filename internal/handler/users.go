package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/sahwira-ai/sahwira/internal/middleware"
	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/service"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

const userNotFound = "user not found"

// UserHandler handles the current-user endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: svc,
		logger:  log,
	}
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), middleware.GetEmail(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err, userNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Sync handles PUT /api/v1/me. The body is optional.
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req model.SyncUserRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		if err := decodeOptional(r.Body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ctx := r.Context()
	user, err := h.service.Sync(ctx, service.Identity{
		UserID:  middleware.GetUserID(ctx),
		Email:   middleware.GetEmail(ctx),
		Name:    middleware.GetName(ctx),
		Picture: middleware.GetPicture(ctx),
	}, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, userNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func decodeOptional(body io.Reader, v interface{}) error {
	err := jsonDecode(body, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
