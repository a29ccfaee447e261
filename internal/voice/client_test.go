package voice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist-platform/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.VoiceConfig{
		APIURL:         srv.URL,
		APIKey:         "test-key",
		RequestTimeout: 2 * time.Second,
	})
}

func TestCreateAssistantSendsSignedRequest(t *testing.T) {
	var gotAuth, gotSig string
	var gotBody []byte

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assistant", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(map[string]string{"id": "asst-platform-1"})
	})

	req := NewAssistantRequest(AssistantParams{
		Name:         "Front Desk",
		FirstMessage: "Hello!",
		SystemPrompt: "You are a receptionist.",
		Language:     "en-US",
		VoiceID:      "jennifer",
		Temperature:  0.5,
	})
	created, err := client.CreateAssistant(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "asst-platform-1", created.ID)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, Sign(gotBody, "test-key"), gotSig)

	var decoded AssistantRequest
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "openai", decoded.Model.Provider)
	assert.Equal(t, "gpt-3.5-turbo", decoded.Model.Model)
	assert.Equal(t, "deepgram", decoded.Transcriber.Provider)
	assert.Equal(t, "nova-2", decoded.Transcriber.Model)
	assert.Equal(t, "playht", decoded.Voice.Provider)
	require.Len(t, decoded.Model.Messages, 1)
	assert.Equal(t, "system", decoded.Model.Messages[0].Role)
}

func TestCreateAssistantErrorMessagePriority(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field wins", 400, `{"message":"bad prompt","error":"ignored"}`, "bad prompt"},
		{"error field second", 400, `{"error":"invalid key"}`, "invalid key"},
		{"fallback on empty body", 500, ``, "API Error: 500"},
		{"fallback on junk body", 502, `<html>`, "API Error: 502"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})
			_, err := client.CreateAssistant(context.Background(), DefaultInlineConfig())

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestCreateAssistantRespectsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels r.Context(); otherwise srv.Close deadlocks in Cleanup.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.VoiceConfig{
		APIURL:         srv.URL,
		APIKey:         "test-key",
		RequestTimeout: 50 * time.Millisecond,
	})
	_, err := client.CreateAssistant(context.Background(), DefaultInlineConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignVector(t *testing.T) {
	// Stable vector so a signing change is caught explicitly.
	got := Sign([]byte(`{"name":"AI Assistant"}`), "secret")
	assert.Equal(t, "514e09311706b86265b3260da5efcb7eb7e2a95092122c8ca137af59e9c84c6b", got)
}

func TestDefaultInlineConfig(t *testing.T) {
	cfg := DefaultInlineConfig()
	assert.Equal(t, "AI Assistant", cfg.Name)
	assert.Equal(t, "jennifer", cfg.Voice.VoiceID)
	require.Len(t, cfg.Model.Messages, 1)
	assert.Equal(t, "You are a helpful and friendly AI assistant.", cfg.Model.Messages[0].Content)
}
