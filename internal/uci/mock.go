package uci

import (
	"context"
	"sync"
)

// MockSearcher is a scripted Searcher for tests. Results are keyed by FEN;
// positions without a script entry resolve with Default.
type MockSearcher struct {
	mu      sync.Mutex
	Results map[string]SearchResult
	Default SearchResult

	ReadyErr  error
	SearchErr error

	readyCalls   int
	newGameCalls int
	searchCalls  int
	stopCalls    int
	closed       bool
}

// NewMockSearcher creates a mock with an empty script.
func NewMockSearcher() *MockSearcher {
	return &MockSearcher{Results: make(map[string]SearchResult)}
}

// Script sets the result returned for a FEN.
func (m *MockSearcher) Script(fen string, res SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[fen] = res
}

// EnsureReady implements Searcher.
func (m *MockSearcher) EnsureReady(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyCalls++
	if m.closed {
		return ErrTerminated
	}
	return m.ReadyErr
}

// NewGame implements Searcher.
func (m *MockSearcher) NewGame(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newGameCalls++
	if m.closed {
		return ErrTerminated
	}
	return m.ReadyErr
}

// Search implements Searcher.
func (m *MockSearcher) Search(ctx context.Context, fen string, depth int) (*SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	if m.closed {
		return nil, ErrTerminated
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if res, ok := m.Results[fen]; ok {
		out := res
		return &out, nil
	}
	out := m.Default
	return &out, nil
}

// StopSearch implements Searcher.
func (m *MockSearcher) StopSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
}

// Close implements Searcher.
func (m *MockSearcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SearchCalls returns the number of Search invocations.
func (m *MockSearcher) SearchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}

// NewGameCalls returns the number of NewGame invocations.
func (m *MockSearcher) NewGameCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newGameCalls
}

// StopCalls returns the number of StopSearch invocations.
func (m *MockSearcher) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

var _ Searcher = (*MockSearcher)(nil)
