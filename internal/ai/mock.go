package ai

import (
	"context"
	"sync"
)

// MockClient is a configurable AI client for testing and for deployments
// without a configured provider. Set the response fields to control what
// Generate returns. Safe for concurrent use.
type MockClient struct {
	GenerateResponse string
	GenerateError    error

	mu    sync.Mutex
	calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		GenerateResponse: "Mock answer",
	}
}

func (c *MockClient) Generate(ctx context.Context, message string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, message)
	c.mu.Unlock()

	if c.GenerateError != nil {
		return "", c.GenerateError
	}
	return c.GenerateResponse, nil
}

// Calls returns a copy of the messages Generate has received.
func (c *MockClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}
