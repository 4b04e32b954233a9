package system

import (
	"context"
	"fmt"
	"sync"
)

// Manager owns the ordered set of registered services. Start brings them up
// in registration order; Stop takes them down in reverse, so later services
// may depend on earlier ones.
type Manager struct {
	mu       sync.Mutex
	services []Service
	names    map[string]struct{}
	started  bool
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{names: make(map[string]struct{})}
}

// Register adds a service. Nil services, empty names and duplicate names are
// rejected. Call before Start.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("service is nil")
	}
	name := svc.Name()
	if name == "" {
		return fmt.Errorf("service name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("manager already started")
	}
	if _, exists := m.names[name]; exists {
		return fmt.Errorf("service %q already registered", name)
	}
	m.names[name] = struct{}{}
	m.services = append(m.services, svc)
	return nil
}

// Start starts all registered services in registration order. On the first
// failure the services already started are stopped in reverse order and the
// failure is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	services := make([]Service, len(m.services))
	copy(services, m.services)
	m.mu.Unlock()

	for i, svc := range services {
		if err := svc.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = services[j].Stop(ctx)
			}
			m.mu.Lock()
			m.started = false
			m.mu.Unlock()
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// Stop stops all services in reverse registration order. All services are
// stopped regardless of individual failures; the first error is returned.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	services := make([]Service, len(m.services))
	copy(services, m.services)
	m.mu.Unlock()

	var firstErr error
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", services[i].Name(), err)
		}
	}
	return firstErr
}

// NoopService satisfies Service for modules that expose operations but run
// no background work of their own.
type NoopService struct {
	ServiceName string
}

// Name returns the configured service name.
func (s NoopService) Name() string { return s.ServiceName }

// Start is a no-op.
func (s NoopService) Start(context.Context) error { return nil }

// Stop is a no-op.
func (s NoopService) Stop(context.Context) error { return nil }
