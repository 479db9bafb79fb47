package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface.
// It can also be used for dry-run mode.
type MockClient struct {
	mu       sync.Mutex
	Response *Response
	Err      error
	Calls    []Request // records requests sent

	// Respond, when set, overrides Response and Err per request.
	Respond func(Request) (*Response, error)
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	respond, resp, err := m.Respond, m.Response, m.Err
	m.mu.Unlock()
	if respond != nil {
		return respond(req)
	}
	return resp, err
}

// CallCount returns the number of requests received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
