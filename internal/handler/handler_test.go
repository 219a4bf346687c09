package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahwira-ai/sahwira/internal/llm"
	"github.com/sahwira-ai/sahwira/internal/middleware"
	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/service"
	"github.com/sahwira-ai/sahwira/internal/store/memory"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

const (
	testSecret = "handler-test-secret"
	adminEmail = "admin@x.io"
)

type fakeLLM struct {
	content string
	err     error
}

func (f *fakeLLM) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content, Model: "fake-model"}, nil
}

func (f *fakeLLM) CompleteStream(_ context.Context, _ *llm.CompletionRequest, cb llm.StreamCallback) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i, tok := range strings.SplitAfter(f.content, " ") {
		if err := cb(tok, i); err != nil {
			return nil, err
		}
	}
	return &llm.CompletionResponse{Content: f.content, Model: "fake-model"}, nil
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return []string{"fake-model"} }

type fakeVoice struct{}

func (fakeVoice) Transcribe(_ context.Context, audio io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	return "heard " + string(b), nil
}

func (fakeVoice) Synthesize(_ context.Context, text string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("RIFF" + text)), nil
}

func (fakeVoice) Name() string { return "fake-voice" }

type testServer struct {
	handler http.Handler
	llm     *fakeLLM
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

func newTestServerWith(t *testing.T, configure func(*RouterConfig)) *testServer {
	t.Helper()
	log := logger.NewNop()

	tasks := memory.NewTaskStore()
	convs := memory.NewConversationStore()
	users := memory.NewUserStore()
	events := service.NopPublisher{}

	fake := &fakeLLM{content: `[{"task":"Ship release","priority":"High"}]`}
	assistant := service.NewAssistantService(fake, fakeVoice{}, fakeVoice{}, "fake-model", log)
	taskSvc := service.NewTaskService(tasks, events, log)

	cfg := RouterConfig{
		JWTSecret:           testSecret,
		AdminEmail:          adminEmail,
		AllowedOrigins:      []string{"https://*"},
		RateLimitRequests:   1000,
		RateLimitWindow:     time.Minute,
		AIRateLimitRequests: 1000,
		AIRateLimitWindow:   time.Minute,
		Health:              NewHealthHandler(map[string]Pinger{"tasks": tasks}),
		Users:               NewUserHandler(service.NewUserService(users, events, log), log),
		Tasks:               NewTaskHandler(taskSvc, service.NewExtractionService(assistant, taskSvc, log), log),
		Conversations:       NewConversationHandler(service.NewConversationService(convs, events, log), log),
		Stats:               NewStatsHandler(service.NewStatsService(users, tasks, convs, adminEmail, log), log),
		AI:                  NewAIHandler(assistant, log),
		Stream:              NewStreamHandler(assistant, log),
		Logger:              log,
	}
	if configure != nil {
		configure(&cfg)
	}
	return &testServer{handler: NewRouter(cfg), llm: fake}
}

func token(t *testing.T, sub, email string) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, sub, email, "Test User", "", time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/ready", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/tasks", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/tasks", "garbage", nil).Code)
}

func TestPublicRoutesRateLimitedByIP(t *testing.T) {
	s := newTestServerWith(t, func(cfg *RouterConfig) {
		cfg.RateLimitRequests = 2
	})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", nil).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/ready", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTaskEndpoints(t *testing.T) {
	s := newTestServer(t)
	ann := token(t, "u-ann", "ann@x.io")
	bob := token(t, "u-bob", "bob@x.io")

	rec := s.do(t, http.MethodPost, "/api/v1/tasks", ann, model.CreateTasksRequest{Tasks: []model.NewTask{
		{UserID: "ann@x.io", Task: "Write tests", Priority: model.PriorityHigh, Status: model.TaskStatusPending},
		{UserID: "ann@x.io", Task: "Deploy", Priority: model.PriorityLow, Status: model.TaskStatusPending},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.CreateTasksResponse](t, rec)
	require.Len(t, created.Tasks, 2)

	rec = s.do(t, http.MethodPost, "/api/v1/tasks", ann, model.CreateTasksRequest{Tasks: []model.NewTask{
		{UserID: "ann@x.io", Task: "Fine", Priority: model.PriorityHigh, Status: model.TaskStatusPending},
		{UserID: "ann@x.io", Task: "Bad", Priority: "Urgent", Status: model.TaskStatusPending},
	}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Contains(t, errResp.Details, "tasks[1].priority")

	rec = s.do(t, http.MethodGet, "/api/v1/tasks?sort=task&status=bogus", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[model.ListTasksResponse](t, rec)
	require.Len(t, list.Tasks, 2)
	assert.Equal(t, "Deploy", list.Tasks[0].Task)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/tasks?sort=owner", ann, nil).Code)

	id := created.Tasks[0].ID
	patch := map[string]string{"status": "completed"}
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/v1/tasks/"+id, bob, patch).Code)
	rec = s.do(t, http.MethodPatch, "/api/v1/tasks/nope", ann, patch)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task not found", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPatch, "/api/v1/tasks/"+id, ann, patch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.TaskStatusCompleted, decode[model.Task](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/v1/users/me/stats", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[model.UserStats](t, rec)
	assert.Equal(t, int64(1), stats.CompletedTasks)
	assert.Equal(t, int64(10), stats.Points)
}

func TestExtractEndpoints(t *testing.T) {
	s := newTestServer(t)
	ann := token(t, "u-ann", "ann@x.io")

	rec := s.do(t, http.MethodPost, "/api/v1/tasks/extract", ann, model.ExtractTasksRequest{Transcript: "ship it", Save: true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[model.ExtractTasksResponse](t, rec)
	require.Len(t, resp.Saved, 1)
	assert.Equal(t, "ann@x.io", resp.Saved[0].UserID)
	assert.Equal(t, model.TaskStatusPending, resp.Saved[0].Status)

	s.llm.err = errors.New("upstream down")
	rec = s.do(t, http.MethodPost, "/api/v1/tasks/extract", ann, model.ExtractTasksRequest{Transcript: "ship it"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, "/api/v1/tasks/extract", ann, model.ExtractTasksRequest{}).Code)
}

func TestExtractAudioEndpoint(t *testing.T) {
	s := newTestServer(t)
	ann := token(t, "u-ann", "ann@x.io")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "memo.webm")
	require.NoError(t, err)
	part.Write([]byte("audio-bytes"))
	require.NoError(t, mw.WriteField("save", "false"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/extract/audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ann)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[model.ExtractTasksResponse](t, rec)
	assert.Equal(t, "heard audio-bytes", resp.Transcript)
	assert.Equal(t, "Ship release", resp.Tasks[0].Task)
}

func TestConversationEndpoints(t *testing.T) {
	s := newTestServer(t)
	ann := token(t, "u-ann", "ann@x.io")
	bob := token(t, "u-bob", "bob@x.io")

	rec := s.do(t, http.MethodPost, "/api/v1/conversations", ann, model.CreateConversationRequest{
		Messages: []model.Message{{Role: model.RoleUser, Content: "Plan my week"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conv := decode[model.Conversation](t, rec)
	assert.Equal(t, "Plan my week", conv.Title)

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, "/api/v1/conversations", ann, model.CreateConversationRequest{}).Code)

	path := "/api/v1/conversations/" + conv.ID
	rename := model.RenameConversationRequest{Title: "Week"}
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, path, bob, rename).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPatch, path, ann, rename).Code)

	rec = s.do(t, http.MethodPut, path, ann, model.ReplaceMessagesRequest{Messages: []model.Message{
		{Role: model.RoleUser, Content: "Plan my week"},
		{Role: model.RoleAssistant, Content: "Sure"},
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[model.Conversation](t, rec).Messages, 2)

	rec = s.do(t, http.MethodGet, "/api/v1/conversations", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[model.ListConversationsResponse](t, rec)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "Week", list.Conversations[0].Title)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, bob, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, ann, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, ann, nil).Code)

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.Equal(t, http.StatusNotFound,
			s.do(t, method, "/api/v1/conversations/not-an-id", ann, rename).Code, method)
	}
}

func TestUserAndStatsEndpoints(t *testing.T) {
	s := newTestServer(t)
	ann := token(t, "u-ann", "ann@x.io")
	admin := token(t, "u-admin", adminEmail)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/me", ann, nil).Code)

	rec := s.do(t, http.MethodPut, "/api/v1/me", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Test User", decode[model.User](t, rec).Name)

	rec = s.do(t, http.MethodPut, "/api/v1/me", ann, model.SyncUserRequest{Name: "Ann"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ann", decode[model.User](t, rec).Name)

	rec = s.do(t, http.MethodGet, "/api/v1/leaderboard", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[[]model.LeaderboardEntry](t, rec)
	require.Len(t, board, 1)
	assert.Equal(t, "ann@x.io", board[0].Email)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/admin/stats", ann, nil).Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[model.AdminStats](t, rec).Stats.Users)
}

func TestAIEndpoints(t *testing.T) {
	s := newTestServer(t)
	ann := token(t, "u-ann", "ann@x.io")
	s.llm.content = "Hello there friend"

	rec := s.do(t, http.MethodPost, "/api/v1/ai/chat", ann, model.ChatRequest{UserMessage: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello there friend", decode[model.ChatResponse](t, rec).Content)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/ai/chat", ann, model.ChatRequest{}).Code)

	rec = s.do(t, http.MethodPost, "/api/v1/ai/chat", ann, model.ChatRequest{UserMessage: "hi", Model: "unknown-model"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "model")

	rec = s.do(t, http.MethodPost, "/api/v1/ai/chat/stream", ann, model.ChatRequest{UserMessage: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event: token\n"))
	assert.Contains(t, body, `event: done`+"\n"+`data: {"content":"Hello there friend","model":"fake-model"}`)

	rec = s.do(t, http.MethodPost, "/api/v1/ai/tts", ann, model.SpeakRequest{Text: "read"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFFread", rec.Body.String())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	require.NoError(t, err)
	part.Write([]byte("xyz"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ann)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.TranscribeResponse{Text: "heard xyz", Status: "completed"}, decode[model.TranscribeResponse](t, rec))

	rec = s.do(t, http.MethodPost, "/api/v1/ai/transcribe", ann, model.TranscribeRequest{AudioURL: "file:///etc/passwd"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
