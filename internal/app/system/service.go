package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// Service represents a lifecycle-managed component. Background modules
// implement it so the manager can start and stop them deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts services in registration order and stops them in reverse.
type Manager struct {
	log *logger.Logger

	mu       sync.Mutex
	services []Service
	started  []Service
}

// NewManager creates an empty manager.
func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault("system")
	}
	return &Manager{log: log}
}

// Register appends services. Registering after Start has no effect on the
// running set until the next Start.
func (m *Manager) Register(services ...Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, svc := range services {
		if svc != nil {
			m.services = append(m.services, svc)
		}
	}
}

// Start starts every registered service. On failure the services already
// started are stopped again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			m.stopLocked(ctx)
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
		m.log.WithField("service", svc.Name()).Debug("service started")
		m.started = append(m.started, svc)
	}
	return nil
}

// Stop stops started services in reverse order and returns the first error.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var first error
	for i := len(m.started) - 1; i >= 0; i-- {
		svc := m.started[i]
		if err := svc.Stop(ctx); err != nil {
			m.log.WithError(err).WithField("service", svc.Name()).Warn("service stop failed")
			if first == nil {
				first = fmt.Errorf("stop %s: %w", svc.Name(), err)
			}
		}
	}
	m.started = nil
	return first
}
