package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Module is one long-running piece of the bot (Discord gateway, status server).
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

var (
	ErrManagerStarted = errors.New("actions: manager already started")
)

// Manager starts modules in registration order and stops the running ones in
// reverse.
type Manager struct {
	mu      sync.Mutex
	pending []Module
	running []Module
	started bool
}

// NewManager registers mods; nil entries are ignored.
func NewManager(mods ...Module) *Manager {
	m := &Manager{}
	for _, mod := range mods {
		if mod != nil {
			m.pending = append(m.pending, mod)
		}
	}
	return m
}

// Add registers a module. It fails once Start has been called.
func (m *Manager) Add(mod Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("add %s: %w", nameOf(mod), ErrManagerStarted)
	}
	if mod != nil {
		m.pending = append(m.pending, mod)
	}
	return nil
}

// Start brings every module up. On the first failure the modules already
// running are stopped and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrManagerStarted
	}
	m.started = true

	for _, mod := range m.pending {
		if err := mod.Start(ctx); err != nil {
			m.stopRunning(ctx)
			return fmt.Errorf("module %s failed: %w", mod.Name(), err)
		}
		log.Printf("actions: module %s started", mod.Name())
		m.running = append(m.running, mod)
	}
	return nil
}

// Stop shuts the running modules down. Calling it again is a no-op.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRunning(ctx)
}

// Run waits for ctx to end, then stops everything within grace.
func (m *Manager) Run(ctx context.Context, grace time.Duration) {
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	m.Stop(stopCtx)
}

func (m *Manager) stopRunning(ctx context.Context) {
	for i := len(m.running) - 1; i >= 0; i-- {
		mod := m.running[i]
		began := time.Now()
		mod.Stop(ctx)
		log.Printf("actions: module %s stopped in %s", mod.Name(), time.Since(began).Round(time.Millisecond))
	}
	m.running = nil
}

func nameOf(mod Module) string {
	if mod == nil {
		return "<nil>"
	}
	return mod.Name()
}
