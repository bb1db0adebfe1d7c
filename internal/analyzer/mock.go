package analyzer

import "context"

// Mock is a test double for the analyzer Client interface.
type Mock struct {
	Analyses map[string]Analysis // keyed by exact input text
	Default  Analysis            // returned when no keyed entry matches
	Err      error
	Calls    []string // records texts sent
}

// Analyze records the call and returns the configured analysis.
func (m *Mock) Analyze(ctx context.Context, text string) (Analysis, error) {
	m.Calls = append(m.Calls, text)
	if m.Err != nil {
		return Analysis{}, m.Err
	}
	if a, ok := m.Analyses[text]; ok {
		return a, nil
	}
	return m.Default, nil
}
