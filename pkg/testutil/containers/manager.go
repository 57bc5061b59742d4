//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager shares containers across test suites in one process so each suite
// does not pay the startup cost.
type Manager struct {
	mu    sync.Mutex
	redis *RedisContainer
}

var manager = &Manager{}

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	return manager
}

// GetRedis returns the shared Redis container, starting it on first use.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redis == nil {
		m.redis = NewRedisContainer(t)
	}
	return m.redis
}
