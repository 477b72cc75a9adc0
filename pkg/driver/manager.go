package driver

import (
	"fmt"
	"sync"

	"github.com/camsync/camsync/internal/logging"
	"github.com/camsync/camsync/pkg/driver/availability"
)

var logger = logging.NewLogger("camsync/driver")

// FilterFn is being used to decide if a driver should be included in the
// query result.
type FilterFn func(Driver) bool

// FilterDeviceType returns a filter function to query specific device type.
func FilterDeviceType(t DeviceType) FilterFn {
	return func(d Driver) bool {
		return d.Info().DeviceType == t
	}
}

// FilterIdentity returns a filter function to query the device bound to id.
func FilterIdentity(id Identity) FilterFn {
	return func(d Driver) bool {
		return id.Matches(d.Info().Identity)
	}
}

// FilterID returns a filter function to query by driver ID.
func FilterID(id string) FilterFn {
	return func(d Driver) bool {
		return d.ID() == id
	}
}

// FilterAnd returns a filter function to take logical conjunction of given filters.
func FilterAnd(filters ...FilterFn) FilterFn {
	return func(d Driver) bool {
		for _, f := range filters {
			if !f(d) {
				return false
			}
		}
		return true
	}
}

// FilterNot returns a filter function to take logical inverse of the given filter.
func FilterNot(filter FilterFn) FilterFn {
	return func(d Driver) bool {
		return !filter(d)
	}
}

// Manager is a registry of drivers. It hands each device to at most one
// owner at a time.
type Manager struct {
	mu      sync.Mutex
	drivers map[string]Driver
	order   []string
	leased  map[string]bool
}

// NewManager creates an empty manager. Most programs use the shared one
// returned by GetManager; tests build their own.
func NewManager() *Manager {
	return &Manager{
		drivers: make(map[string]Driver),
		leased:  make(map[string]bool),
	}
}

var manager = NewManager()

// GetManager gets manager singleton instance.
func GetManager() *Manager {
	return manager
}

// Register wraps a into a Driver and registers it. Two devices cannot share
// an identity.
func (m *Manager) Register(a Adapter, info Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.drivers {
		if d.Info().Identity == info.Identity {
			return fmt.Errorf("driver: identity %s is already registered", info.Identity)
		}
	}

	d := wrapAdapter(a, info)
	m.drivers[d.ID()] = d
	m.order = append(m.order, d.ID())
	return nil
}

// Query queries by using f to filter drivers, and simply return the
// filtered results in registration order.
func (m *Manager) Query(f FilterFn) []Driver {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]Driver, 0)
	for _, id := range m.order {
		d := m.drivers[id]
		if f(d) {
			results = append(results, d)
		}
	}

	return results
}

// Lookup returns the driver bound to id.
func (m *Manager) Lookup(id Identity) (Driver, error) {
	drivers := m.Query(FilterIdentity(id))
	if len(drivers) == 0 {
		return nil, fmt.Errorf("%s: %w", id, availability.ErrNoDevice)
	}
	return drivers[0], nil
}

// Acquire takes exclusive ownership of the device bound to id. The returned
// release function closes the driver and gives the device back; it is
// safe to call more than once.
func (m *Manager) Acquire(id Identity) (Driver, func(), error) {
	d, err := m.Lookup(id)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	if m.leased[d.ID()] {
		m.mu.Unlock()
		return nil, nil, fmt.Errorf("%s: %w", id, availability.ErrBusy)
	}
	m.leased[d.ID()] = true
	m.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := d.Close(); err != nil {
				logger.Warnf("%s: close on release: %v", id, err)
			}
			m.mu.Lock()
			delete(m.leased, d.ID())
			m.mu.Unlock()
		})
	}
	return d, release, nil
}

// Unregister removes the driver bound to id. A leased device cannot be
// removed.
func (m *Manager) Unregister(id Identity) error {
	d, err := m.Lookup(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.leased[d.ID()] {
		return fmt.Errorf("%s: %w", id, availability.ErrBusy)
	}
	delete(m.drivers, d.ID())
	for i, did := range m.order {
		if did == d.ID() {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
