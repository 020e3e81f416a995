package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"docminer/internal/pipeline"
	"docminer/pkg/types"
)

// roundTrip lets tests stand in for the chat service without a listener.
type roundTrip func(*http.Request) (*http.Response, error)

func (f roundTrip) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func chatFixture(t *testing.T, rt roundTrip) (*ChatInvoker, types.Document) {
	t.Helper()

	dir := t.TempDir()
	src := filepath.Join(dir, "inv-001.txt")
	if err := os.WriteFile(src, []byte("Invoice from Acme Corp. Total: $41.50."), 0644); err != nil {
		t.Fatal(err)
	}

	prompts := fstest.MapFS{
		"extract.md": &fstest.MapFile{
			Data: []byte("Extract {{.FormTitle}} from document {{.DocumentID}}:\n\n{{.DocumentText}}"),
		},
	}

	inv := &ChatInvoker{
		BaseURL:    "http://chat.test/v1/chat/completions",
		APIKey:     "test-key",
		Model:      "test-model",
		Prompts:    prompts,
		Form:       testForm(),
		HTTPClient: &http.Client{Transport: rt},
	}
	return inv, types.Document{ID: "inv-001", Source: src}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestChatInvoke(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	inv, doc := chatFixture(t, func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		if err := json.NewDecoder(req.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		return jsonResponse(200, `{"choices":[{"message":{"role":"assistant","content":"{\"entries\":[]}"}}]}`), nil
	})

	payload, err := inv.Invoke(context.Background(), doc)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(payload) != `{"entries":[]}` {
		t.Errorf("payload = %q", payload)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
	user := gotReq.Messages[1].Content
	if !strings.Contains(user, "inv-001") || !strings.Contains(user, "Acme Corp") {
		t.Errorf("user prompt missing document content: %q", user)
	}
}

func TestChatInvokeStatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{404, false},
	}

	for _, tt := range tests {
		inv, doc := chatFixture(t, func(*http.Request) (*http.Response, error) {
			return jsonResponse(tt.status, `{}`), nil
		})

		_, err := inv.Invoke(context.Background(), doc)
		var ierr *pipeline.InferenceError
		if !errors.As(err, &ierr) {
			t.Fatalf("status %d: Invoke = %v, want InferenceError", tt.status, err)
		}
		if ierr.Transient != tt.transient {
			t.Errorf("status %d: transient = %v, want %v", tt.status, ierr.Transient, tt.transient)
		}
	}
}

func TestChatInvokeTransportError(t *testing.T) {
	inv, doc := chatFixture(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := inv.Invoke(context.Background(), doc)
	var ierr *pipeline.InferenceError
	if !errors.As(err, &ierr) {
		t.Fatalf("Invoke = %v, want InferenceError", err)
	}
	if !ierr.Transient {
		t.Error("transport error not marked transient")
	}
}

func TestChatInvokeCancelled(t *testing.T) {
	inv, doc := chatFixture(t, func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := inv.Invoke(ctx, doc)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Invoke = %v, want context.Canceled", err)
	}
}

func TestChatInvokeServiceError(t *testing.T) {
	inv, doc := chatFixture(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"error":{"message":"model overloaded, try later"}}`), nil
	})

	_, err := inv.Invoke(context.Background(), doc)
	var ierr *pipeline.InferenceError
	if !errors.As(err, &ierr) {
		t.Fatalf("Invoke = %v, want InferenceError", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error does not carry service message: %v", err)
	}
}

func TestChatInvokeEmptyChoices(t *testing.T) {
	inv, doc := chatFixture(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"choices":[]}`), nil
	})

	_, err := inv.Invoke(context.Background(), doc)
	var ierr *pipeline.InferenceError
	if !errors.As(err, &ierr) {
		t.Fatalf("Invoke = %v, want InferenceError", err)
	}
	if ierr.Transient {
		t.Error("empty response marked transient")
	}
}

func TestChatInvokeMissingConfig(t *testing.T) {
	inv := &ChatInvoker{}
	if _, err := inv.Invoke(context.Background(), types.Document{ID: "d"}); err == nil {
		t.Fatal("expected error for unconfigured invoker")
	}
}
