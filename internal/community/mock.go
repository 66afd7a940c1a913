package community

import (
	"context"
	"sync"
)

// MockClient is a configurable community client for testing.
// Safe for concurrent use.
type MockClient struct {
	AskResponse string
	AskError    error

	mu    sync.Mutex
	calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		AskResponse: "Mock community answer",
	}
}

func (c *MockClient) Ask(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, question)
	c.mu.Unlock()

	if c.AskError != nil {
		return "", c.AskError
	}
	return c.AskResponse, nil
}

// Calls returns a copy of the questions Ask has received.
func (c *MockClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}
