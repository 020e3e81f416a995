package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"docminer/internal/corpus"
	"docminer/internal/pipeline"
	"docminer/pkg/types"
)

const chatSystemPrompt = "You are a careful extraction engine. Respond with a single JSON object and nothing else."

// ChatInvoker calls an OpenAI-compatible chat completion endpoint, one
// request per document. It is the non-agentic alternative to the Claude CLI
// invoker for services that only expose an HTTP API.
type ChatInvoker struct {
	BaseURL string
	APIKey  string
	Model   string

	Prompts fs.FS
	Form    *types.Form

	HTTPClient *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke performs one chat completion call for doc and returns the raw
// assistant message. HTTP 429 and 5xx responses are reported as transient
// inference errors; other failures are permanent for this document.
func (c *ChatInvoker) Invoke(ctx context.Context, doc types.Document) ([]byte, error) {
	if c.BaseURL == "" || c.Model == "" {
		return nil, fmt.Errorf("chat invoker: base URL and model required")
	}

	text, err := corpus.LoadText(doc)
	if err != nil {
		return nil, err
	}

	prompt, err := renderPrompt(c.Prompts, c.Form, doc, text)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &pipeline.InferenceError{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &pipeline.InferenceError{Transient: true, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &pipeline.InferenceError{Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &pipeline.InferenceError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	if payload.Error != nil {
		return nil, &pipeline.InferenceError{Err: fmt.Errorf("service error: %s", payload.Error.Message)}
	}
	if len(payload.Choices) == 0 {
		return nil, &pipeline.InferenceError{Err: fmt.Errorf("empty response")}
	}

	return []byte(payload.Choices[0].Message.Content), nil
}

func (c *ChatInvoker) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 120 * time.Second}
}
