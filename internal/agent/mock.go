package agent

import (
	"context"
	"sync"

	"docminer/pkg/types"
)

// MockInvoker implements pipeline.Invoker for testing
type MockInvoker struct {
	Responses map[string][]byte // document ID → payload
	Errs      map[string]error  // document ID → injected failure
	Default   []byte

	mu    sync.Mutex
	calls map[string]int
}

// NewMockInvoker creates a new mock invoker
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		Responses: make(map[string][]byte),
		Errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

// Invoke returns the canned payload or error for doc and counts the call
func (m *MockInvoker) Invoke(ctx context.Context, doc types.Document) ([]byte, error) {
	m.mu.Lock()
	m.calls[doc.ID]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errs[doc.ID]; ok {
		return nil, err
	}
	if resp, ok := m.Responses[doc.ID]; ok {
		return resp, nil
	}
	return m.Default, nil
}

// Calls returns how many times doc was submitted
func (m *MockInvoker) Calls(documentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[documentID]
}
