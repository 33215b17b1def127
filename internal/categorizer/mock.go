package categorizer

import (
	"sync"
	"time"
)

// MockModel is a scripted classifier for tests. Labels maps lower-cased descriptions to
// encoded labels; unknown descriptions get Fallback.
type MockModel struct {
	mu       sync.Mutex
	Labels   map[string]int
	Fallback int
	Err      error
	Panic    bool
	Delay    time.Duration
	calls    []Features
}

// Predict implements Model.
func (m *MockModel) Predict(f Features) (int, error) {
	m.mu.Lock()
	m.calls = append(m.calls, f)
	m.mu.Unlock()

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.Panic {
		panic("mock classifier failure")
	}
	if m.Err != nil {
		return 0, m.Err
	}
	if label, ok := m.Labels[f.Description]; ok {
		return label, nil
	}
	return m.Fallback, nil
}

// Calls returns the features passed to Predict so far.
func (m *MockModel) Calls() []Features {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Features, len(m.calls))
	copy(out, m.calls)
	return out
}
