package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"clinic-assistant/internal/config"
)

// Message is a minimal chat message used by the conversation assembler.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Client defines the completion call the chat service depends on. Complete
// accepts the full message context (system + prior turns + latest user).
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Sentinel errors the chat service maps to fixed advisory replies.
var (
	// ErrNoCredential reports that no API key is configured. This path is
	// deterministic and never touches the network.
	ErrNoCredential = errors.New("completion credential not configured")

	// ErrEmptyCompletion reports that the endpoint answered but neither the
	// message content nor the legacy text field carried anything.
	ErrEmptyCompletion = errors.New("completion response contained no content")
)

// GroqClient calls an OpenAI-compatible chat-completion endpoint (Groq by
// default). The request body reuses go-openai's payload types; the response
// is parsed into a local struct because some compatible endpoints put the
// reply in a legacy "text" field instead of message.content.
type GroqClient struct {
	cfg        config.AIConfig
	httpClient *http.Client
}

// NewGroqClient constructs a completion client from the explicit AI
// configuration. A missing API key is allowed; Complete then returns
// ErrNoCredential without issuing a request.
func NewGroqClient(cfg config.AIConfig) *GroqClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GroqClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// completionResponse is the subset of the chat-completion reply we read.
// Fallback order: choices[0].message.content, then choices[0].text.
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete sends the assembled messages to the endpoint and returns the
// reply text. One attempt, no retries; the HTTP client enforces the bounded
// timeout.
func (c *GroqClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoCredential
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	payload, err := json.Marshal(openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    oaMsgs,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion endpoint returned %s", resp.Status)
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	reply := parsed.Choices[0].Message.Content
	if reply == "" {
		reply = parsed.Choices[0].Text
	}
	if reply == "" {
		return "", ErrEmptyCompletion
	}
	return reply, nil
}
