package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sahwira-ai/sahwira/internal/middleware"
	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/service"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

const taskNotFound = "task not found"

// MaxAudioBytes bounds uploaded audio.
const MaxAudioBytes = 25 << 20

// TaskHandler handles task endpoints.
type TaskHandler struct {
	tasks      *service.TaskService
	extraction *service.ExtractionService
	logger     *logger.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(tasks *service.TaskService, extraction *service.ExtractionService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:      tasks,
		extraction: extraction,
		logger:     log,
	}
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sort, err := service.ParseTaskSort(q.Get("sort"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, taskNotFound)
		return
	}

	tasks, err := h.tasks.List(r.Context(), middleware.GetEmail(r.Context()), model.TaskFilter{
		Status:   model.TaskStatus(q.Get("status")),
		Priority: model.Priority(q.Get("priority")),
		Sort:     sort,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, taskNotFound)
		return
	}

	writeJSON(w, http.StatusOK, model.ListTasksResponse{Tasks: tasks})
}

// Create handles POST /api/v1/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTasksRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tasks, err := h.tasks.CreateBatch(r.Context(), middleware.GetEmail(r.Context()), req.Tasks)
	if err != nil {
		writeServiceError(w, r, h.logger, err, taskNotFound)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateTasksResponse{Tasks: tasks})
}

// Update handles PATCH /api/v1/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, taskNotFound) {
		return
	}

	var patch model.TaskPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	task, err := h.tasks.Update(r.Context(), middleware.GetEmail(r.Context()), id, patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err, taskNotFound)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Extract handles POST /api/v1/tasks/extract
func (h *TaskHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req model.ExtractTasksRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.extraction.ExtractAndSave(r.Context(), middleware.GetEmail(r.Context()), req.Transcript, req.Save)
	if err != nil {
		writeServiceError(w, r, h.logger, err, taskNotFound)
		return
	}

	writeJSON(w, extractStatus(resp), resp)
}

// ExtractAudio handles POST /api/v1/tasks/extract/audio
func (h *TaskHandler) ExtractAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxAudioBytes+1<<20)
	if err := r.ParseMultipartForm(MaxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	save := false
	if v := r.FormValue("save"); v != "" {
		if save, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "save must be a boolean")
			return
		}
	}

	resp, err := h.extraction.ExtractFromAudio(r.Context(), middleware.GetEmail(r.Context()), file, header.Filename, save)
	if err != nil {
		writeServiceError(w, r, h.logger, err, taskNotFound)
		return
	}

	writeJSON(w, extractStatus(resp), resp)
}

func extractStatus(resp *model.ExtractTasksResponse) int {
	if len(resp.Saved) > 0 {
		return http.StatusCreated
	}
	return http.StatusOK
}
