package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the model collaborator.
type MockClient struct {
	mu        sync.Mutex
	responses []Response
	errs      []error
	Prompts   []string
	calls     int
}

// NewMockClient creates a mock that replays the given responses in order,
// repeating the last one once exhausted.
func NewMockClient(responses ...Response) *MockClient {
	return &MockClient{responses: responses}
}

// QueueError makes the next call fail with err before any queued responses
// are consumed again.
func (m *MockClient) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// Classify implements Client.
func (m *MockClient) Classify(_ context.Context, prompt string, _ float64) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	m.calls++

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return Response{}, err
	}

	if len(m.responses) == 0 {
		return Response{Category: "miscellaneous", Confidence: 0.2}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

// Calls returns how many times Classify was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
