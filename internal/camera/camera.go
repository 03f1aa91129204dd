// Package camera manages video input devices: enumeration, selection and
// acquisition with a one-shot fallback when the preferred device fails.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/susatyo441/shop-vision/internal/domain"
)

var (
	ErrNoCamera      = errors.New("no camera device available")
	ErrSessionActive = errors.New("camera selection is frozen during an active session")
	ErrNotAcquired   = errors.New("camera is not acquired")
)

// Source delivers frames from an opened device. Grab blocks until the next
// frame is available or the context is cancelled.
type Source interface {
	Grab(ctx context.Context) (image.Image, error)
	Close() error
}

// Provider abstracts the host's video subsystem.
// Consumers define this interface, not the concrete capture backend.
type Provider interface {
	Devices(ctx context.Context) ([]domain.CameraDevice, error)
	Open(ctx context.Context, deviceID string) (Source, error)
}

// Manager owns the selected device and the open source for one page
// instance. Selection may be reassigned between sessions but never while a
// session holds the device.
type Manager struct {
	provider Provider

	mu       sync.Mutex
	devices  []domain.CameraDevice
	selected string
	source   Source
	active   bool
}

func NewManager(provider Provider) *Manager {
	return &Manager{provider: provider}
}

// Refresh re-enumerates devices and auto-selects a rear-facing one when
// present, otherwise the first device.
func (m *Manager) Refresh(ctx context.Context) error {
	devices, err := m.provider.Devices(ctx)
	if err != nil {
		return fmt.Errorf("enumerate camera devices failed: %w", err)
	}
	if len(devices) == 0 {
		return ErrNoCamera
	}

	selected := devices[0].ID
	for _, d := range devices {
		if d.IsRearFacing() {
			selected = d.ID
			break
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = devices
	if !m.active {
		m.selected = selected
	}
	return nil
}

func (m *Manager) Devices() []domain.CameraDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CameraDevice, len(m.devices))
	copy(out, m.devices)
	return out
}

func (m *Manager) Selected() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Select reassigns the device used by the next session.
func (m *Manager) Select(deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return ErrSessionActive
	}
	for _, d := range m.devices {
		if d.ID == deviceID {
			m.selected = deviceID
			return nil
		}
	}
	return fmt.Errorf("unknown camera device %q: %w", deviceID, ErrNoCamera)
}

// Acquire opens the selected device. If that fails (permission denial,
// device gone), every other known device is tried once before giving up.
func (m *Manager) Acquire(ctx context.Context) (Source, error) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	selected := m.selected
	devices := make([]domain.CameraDevice, len(m.devices))
	copy(devices, m.devices)
	m.mu.Unlock()

	if selected == "" && len(devices) == 0 {
		return nil, ErrNoCamera
	}

	source, err := m.provider.Open(ctx, selected)
	if err != nil {
		for _, d := range devices {
			if d.ID == selected {
				continue
			}
			fallback, errOpen := m.provider.Open(ctx, d.ID)
			if errOpen != nil {
				continue
			}
			source = fallback
			selected = d.ID
			err = nil
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("acquire camera failed: %w", errors.Join(err, ErrNoCamera))
	}

	m.mu.Lock()
	m.source = source
	m.selected = selected
	m.active = true
	m.mu.Unlock()
	return source, nil
}

// Release closes the open device. Safe to call in any state; teardown must
// release the camera no matter where the session stopped.
func (m *Manager) Release() {
	m.mu.Lock()
	source := m.source
	m.source = nil
	m.active = false
	m.mu.Unlock()

	if source != nil {
		if err := source.Close(); err != nil {
			slog.Warn("camera release failed", "error", err)
		}
	}
}
