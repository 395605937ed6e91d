package internal

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
)

// fakeChatServer answers /chat/completions with a fixed status and body, recording the request
func fakeChatServer(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(data, &received))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func chatCompletionBody(content string) string {
	encoded, _ := json.Marshal(content)
	return `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o-mini",
		"choices": [{
			"index": 0,
			"finish_reason": "stop",
			"message": {"role": "assistant", "content": ` + string(encoded) + `}
		}]
	}`
}

func TestOpenAIClientSendsJSONSchemaRequest(t *testing.T) {
	srv, received := fakeChatServer(t, http.StatusOK, chatCompletionBody(`{"ok":true}`))
	client := NewOpenAIClient("test-key", srv.URL+"/", 0)

	text, err := client.CreateStructuredCompletion(context.Background(), CompletionRequest{
		Model:             "gpt-4o-mini",
		SystemInstruction: "be an analyst",
		Prompt:            "analyze this",
		SchemaName:        "transcript_analysis",
		Schema:            AnalysisSchema(),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)

	req := *received
	assert.Equal(t, "gpt-4o-mini", req["model"])

	messages, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])

	format, ok := req["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "transcript_analysis", schema["name"])
	assert.Equal(t, true, schema["strict"])
}

func TestOpenAIClientNoChoicesIsEmpty(t *testing.T) {
	srv, _ := fakeChatServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	client := NewOpenAIClient("test-key", srv.URL+"/", 0)

	text, err := client.CreateStructuredCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestOpenAIClientClassifiesErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    error
	}{
		{"unauthorized", http.StatusUnauthorized, "Incorrect API key provided", ErrAuthFailed},
		{"rate limited", http.StatusTooManyRequests, "Rate limit reached", ErrRateLimit},
		{"payment required", http.StatusPaymentRequired, "Billing hard limit reached", ErrQuotaExceeded},
		{"bad request", http.StatusBadRequest, "Invalid schema", ErrBadRequest},
		{"unavailable", http.StatusServiceUnavailable, "overloaded", ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"error":{"message":"` + tt.message + `","type":"error","code":null,"param":null}}`
			srv, _ := fakeChatServer(t, tt.status, body)
			client := NewOpenAIClient("test-key", srv.URL+"/", 0)

			_, err := client.CreateStructuredCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAIClientDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	client := NewOpenAIClient("test-key", srv.URL+"/", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.CreateStructuredCompletion(ctx, CompletionRequest{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSchemasAreStrictObjects(t *testing.T) {
	data, err := json.Marshal(AnalysisSchema())
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t,
		[]any{"hookStrategy", "pacing", "tone", "structure", "viralFactors", "audienceTrigger", "suggestedTopics"},
		schema["required"])

	properties := schema["properties"].(map[string]any)
	structure := properties["structure"].(map[string]any)
	assert.Equal(t, "array", structure["type"])
	items := structure["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])

	data, err = json.Marshal(ScriptSchema())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.ElementsMatch(t, []any{"titleCandidates", "thumbnailIdeas", "scriptContent"}, schema["required"])
}
