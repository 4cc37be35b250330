package stats

import "github.com/stretchr/testify/mock"

// MockStatsUpdater is the test double for StatsProvider, used to assert
// which counters a code path touches.
type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Run() {
	m.Called()
}
