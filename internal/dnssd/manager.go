package dnssd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/herald-dns/herald/internal/dns"
)

// Publisher is the slice of the scope the manager publishes through.
type Publisher interface {
	Publish(rr *dns.ResourceRecord, probe bool) error
	Withdraw(rr *dns.ResourceRecord)
}

// Manager keeps the registry of service definitions and drives their records
// in and out of the zone.
type Manager struct {
	mu       sync.Mutex
	logger   *slog.Logger
	services map[string]*Service
}

// NewManager creates an empty service registry.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger, services: make(map[string]*Service)}
}

// LoadDirs loads every *.dnssd file from the given directories. When the
// same basename appears in several directories, the earlier directory wins,
// mirroring the usual /etc over /run over /usr/lib precedence.
func (m *Manager) LoadDirs(dirs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to enumerate service files in %s: %w", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".dnssd") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}

			svc, err := loadServiceFile(filepath.Join(dir, name))
			if err != nil {
				m.logger.Error("failed to load service file",
					"file", filepath.Join(dir, name), "err", err)
				return err
			}
			m.services[svc.Name] = svc
			m.logger.Debug("loaded service definition", "service", svc.Name, "type", svc.Type)
		}
	}
	return nil
}

// loadServiceFile parses one .dnssd file (YAML).
func loadServiceFile(path string) (*Service, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	svc := &Service{}
	if err := v.Unmarshal(svc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	svc.Name = strings.TrimSuffix(filepath.Base(path), ".dnssd")

	if err := svc.Validate(); err != nil {
		return nil, err
	}
	return svc, nil
}

// Add registers a service at runtime. The name must be unused.
func (m *Manager) Add(svc *Service) error {
	if err := svc.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.services[svc.Name]; exists {
		return fmt.Errorf("%w: service %q already exists", ErrInvalidService, svc.Name)
	}
	m.services[svc.Name] = svc
	return nil
}

// Remove drops a service from the registry, withdrawing its records when a
// publisher is given.
func (m *Manager) Remove(name string, pub Publisher) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc, ok := m.services[name]
	if !ok {
		return false
	}
	if pub != nil {
		for _, rr := range svc.Records() {
			pub.Withdraw(rr)
		}
	}
	delete(m.services, name)
	return true
}

// Get returns a service by name.
func (m *Manager) Get(name string) (*Service, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[name]
	return svc, ok
}

// List returns all services sorted by name.
func (m *Manager) List() []*Service {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Service, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// RegisterAll synthesizes records against the hostname and publishes every
// service with probing enabled. Errors are logged per service; the first one
// is returned after all services were attempted.
func (m *Manager) RegisterAll(pub Publisher, hostname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, svc := range m.sorted() {
		if err := m.registerLocked(svc, pub, hostname); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Register synthesizes and publishes one service's records.
func (m *Manager) Register(svc *Service, pub Publisher, hostname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerLocked(svc, pub, hostname)
}

func (m *Manager) registerLocked(svc *Service, pub Publisher, hostname string) error {
	if err := svc.UpdateRRs(hostname); err != nil {
		m.logger.Error("failed to synthesize records", "service", svc.Name, "err", err)
		return err
	}
	for _, rr := range svc.Records() {
		if err := pub.Publish(rr, true); err != nil {
			m.logger.Error("failed to publish record",
				"service", svc.Name, "rr", rr.String(), "err", err)
			return err
		}
	}
	m.logger.Info("registered service", "service", svc.Name, "instance", svc.InstancePath())
	return nil
}

// UpdateHostname withdraws every service's records, re-synthesizes them
// against the new hostname and publishes again. Wired to host.OnChange so a
// lost hostname tie-break re-targets all SRV records.
func (m *Manager) UpdateHostname(pub Publisher, hostname string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, svc := range m.sorted() {
		for _, rr := range svc.Records() {
			pub.Withdraw(rr)
		}
		if err := m.registerLocked(svc, pub, hostname); err != nil {
			m.logger.Error("failed to re-register service after hostname change",
				"service", svc.Name, "err", err)
		}
	}
}

// sorted returns services ordered by name; callers hold the lock.
func (m *Manager) sorted() []*Service {
	out := make([]*Service, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}
