package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clinic-assistant/internal/config"
)

func testConfig(endpoint string) config.AIConfig {
	return config.AIConfig{
		APIKey:      "gsk-test",
		Endpoint:    endpoint,
		Model:       "llama3-70b-8192",
		MaxTokens:   400,
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	}
}

func TestCompleteNoCredential(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.APIKey = ""
	client := NewGroqClient(cfg)

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Try resting and hydration."}},
			},
		})
	}))
	defer ts.Close()

	client := NewGroqClient(testConfig(ts.URL))
	reply, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "be safe"},
		{Role: "user", Content: "I have a headache"},
	})
	require.NoError(t, err)
	require.Equal(t, "Try resting and hydration.", reply)

	require.Equal(t, "Bearer gsk-test", gotAuth)
	require.Equal(t, "llama3-70b-8192", gotBody["model"])
	require.EqualValues(t, 400, gotBody["max_tokens"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
}

func TestCompleteFallsBackToTextField(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"text": "plain text reply"},
			},
		})
	}))
	defer ts.Close()

	client := NewGroqClient(testConfig(ts.URL))
	reply, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "plain text reply", reply)
}

func TestCompleteEmptyResponse(t *testing.T) {
	for name, body := range map[string]string{
		"no choices":    `{"choices": []}`,
		"empty content": `{"choices": [{"message": {"content": ""}, "text": ""}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer ts.Close()

			client := NewGroqClient(testConfig(ts.URL))
			_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
			require.ErrorIs(t, err, ErrEmptyCompletion)
		})
	}
}

func TestCompleteUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := NewGroqClient(testConfig(ts.URL))
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestCompleteMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	client := NewGroqClient(testConfig(ts.URL))
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
}

func TestCompleteUnknownRoleCoercedToUser(t *testing.T) {
	var gotBody struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "ok"}},
			},
		})
	}))
	defer ts.Close()

	client := NewGroqClient(testConfig(ts.URL))
	_, err := client.Complete(context.Background(), []Message{{Role: "bot", Content: "hi"}})
	require.NoError(t, err)
	require.Len(t, gotBody.Messages, 1)
	require.Equal(t, "user", gotBody.Messages[0].Role)
}
