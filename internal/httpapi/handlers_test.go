package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist-platform/internal/assistant"
	"receptionist-platform/internal/auth"
	"receptionist-platform/internal/calllog"
	"receptionist-platform/internal/config"
	"receptionist-platform/internal/demo"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	authSvc := auth.NewService(auth.NewMemoryUserRepository(), auth.NewMemorySessionStore(), tokens)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := Handlers{
		Auth:       authSvc,
		Assistants: assistant.NewService(assistant.NewMemoryRepository()),
		CallLogs:   calllog.NewService(calllog.NewMemoryRepository()),
		Demo:       demo.NewService(demo.NewMemoryRepository(), config.DemoConfig{ForwardTimeout: time.Second}, logger),
	}

	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/api/health", h.Health)
	r.POST("/api/demo-requests", h.CreateDemoRequest)
	r.POST("/v1/auth/signup", h.SignUp)
	r.POST("/v1/auth/signin", h.SignIn)

	protected := r.Group("/v1")
	protected.Use(auth.RequireAccessToken(tokens))
	protected.GET("/me", h.Me)
	protected.GET("/assistant", h.GetAssistant)
	protected.GET("/call-logs", h.ListCallLogs)
	return r
}

func doJSON(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Server is running", body["message"])
}

func TestCORSHeaders(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSignUpAndAuthenticatedRequests(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/auth/signup",
		`{"email":"dana@example.com","password":"correct horse"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var signup struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))
	require.NotEmpty(t, signup.Tokens.AccessToken)

	w = doJSON(r, http.MethodGet, "/v1/me", "", signup.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "dana@example.com", me["email"])

	// No token, no access.
	w = doJSON(r, http.MethodGet, "/v1/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// No assistant yet: 404 for the assistant, empty history for logs.
	w = doJSON(r, http.MethodGet, "/v1/assistant", "", signup.Tokens.AccessToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(r, http.MethodGet, "/v1/call-logs", "", signup.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		CallLogs []calllog.CallLog `json:"call_logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	assert.Empty(t, logs.CallLogs)
}

func TestDemoRequestEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/demo-requests",
		`{"name":"Dana","email":"dana@example.com","company":"Riverside","message":"hi","demo_date":"2024-06-15"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/api/demo-requests",
		`{"name":"","email":"nope","company":"","message":"","demo_date":"soon"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignInWrongPassword(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/auth/signup",
		`{"email":"dana@example.com","password":"correct horse"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/auth/signin",
		`{"email":"dana@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
