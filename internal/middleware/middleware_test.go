package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahwira-ai/sahwira/pkg/logger"
)

const testSecret = "test-secret"

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(GetUserID(r.Context()) + "|" + GetEmail(r.Context()) + "|" + GetName(r.Context())))
}

func TestAuth(t *testing.T) {
	valid, err := IssueToken(testSecret, "user-1", "ann@x.io", "Ann", "", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "user-1", "ann@x.io", "Ann", "", -time.Hour)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other", "user-1", "ann@x.io", "Ann", "", time.Hour)
	require.NoError(t, err)
	noEmail, err := IssueToken(testSecret, "user-1", "", "Ann", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "valid", header: "Bearer " + valid, status: http.StatusOK, body: "user-1|ann@x.io|Ann"},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "bad scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, status: http.StatusUnauthorized},
		{name: "no email", header: "Bearer " + noEmail, status: http.StatusUnauthorized},
	}

	handler := Auth(testSecret)(http.HandlerFunc(echoIdentity))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	adminToken, _ := IssueToken(testSecret, "a", "Admin@x.io", "", "", time.Hour)
	userToken, _ := IssueToken(testSecret, "u", "user@x.io", "", "", time.Hour)

	handler := Auth(testSecret)(RequireAdmin("admin@x.io")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	for token, want := range map[string]int{adminToken: http.StatusNoContent, userToken: http.StatusUnauthorized} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}
}

func TestLoggingCorrelationID(t *testing.T) {
	var seen string
	handler := Logging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestLoggingWriterFlushes(t *testing.T) {
	handler := Logging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestValidateObjectID(t *testing.T) {
	assert.NoError(t, ValidateObjectID("65f1a2b3c4d5e6f708192a3b"))
	assert.Error(t, ValidateObjectID("65f1a2b3"))
	assert.Error(t, ValidateObjectID("zzzzzzzzzzzzzzzzzzzzzzzz"))
}

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("hello"))
	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent(string([]byte{0xff, 0xfe})))
}

func TestCORSCredentialsOnlyForExplicitOrigins(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	preflight := func(origins []string, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		CORS(origins)(ok).ServeHTTP(rec, req)
		return rec
	}

	rec := preflight([]string{"https://app.example.com"}, "https://app.example.com")
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight([]string{"https://*", "http://*"}, "https://evil.example.net")
	assert.Equal(t, "https://evil.example.net", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight([]string{"https://app.example.com"}, "https://evil.example.net")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
