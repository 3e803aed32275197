package llm

import "context"

// MockGenerator returns canned responses for tests and offline development.
// Responses are consumed in order; the last one repeats once the list is
// exhausted.
type MockGenerator struct {
	Responses []string
	Err       error
	calls     int

	// LastSystem and LastUser record the most recent prompts for assertions.
	LastSystem string
	LastUser   string
}

func (m *MockGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	m.LastSystem = system
	m.LastUser = user
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[idx], nil
}

func (m *MockGenerator) Close() error {
	return nil
}
