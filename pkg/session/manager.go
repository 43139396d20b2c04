package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onrampd/onramp/internal/logging"
	"github.com/onrampd/onramp/pkg/domain"
	"github.com/onrampd/onramp/pkg/ports"
)

// lockEntry holds the mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring no two in-flight
// operations for the same subject interleave their store round trips.
// Unused locks are garbage collected via reference counting.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across engine replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger sets a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session Manager over the given store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must Lock entry.mu and call release(subjectID) after unlocking.
func (m *Manager) acquire(subjectID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[subjectID]
	if !exists {
		entry = &lockEntry{}
		m.locks[subjectID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and drops the entry at zero.
func (m *Manager) release(subjectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[subjectID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, subjectID)
	}
}

// WithLock executes fn while holding the per-subject lock (and the
// distributed lock, when configured).
func (m *Manager) WithLock(ctx context.Context, subjectID string, fn func(context.Context) error) error {
	entry := m.acquire(subjectID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(subjectID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, subjectID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"subject", subjectID,
					"err", err)
			}
		}()
	}

	return fn(ctx)
}

// Load retrieves an existing session.
func (m *Manager) Load(ctx context.Context, subjectID string) (*domain.ExecutionState, error) {
	var state *domain.ExecutionState
	err := m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, subjectID)
		return err
	})
	return state, err
}

// Initialize creates the session record for a subject positioned at the
// process's initial step. Initialization is explicit and idempotent: if a
// record already exists it is returned untouched — collected inputs are
// never silently reset.
func (m *Manager) Initialize(ctx context.Context, subjectID, processID, initialStepID string) (*domain.ExecutionState, error) {
	var state *domain.ExecutionState
	err := m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		existing, err := m.store.Load(ctx, subjectID)
		if err == nil {
			state = existing
			return nil
		}
		if err != domain.ErrSessionNotFound {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		state = domain.NewExecutionState(subjectID, processID, initialStepID)
		if err := m.store.Save(ctx, subjectID, state); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return state, err
}

// Update runs a load-mutate-save cycle under the per-subject lock. The
// session must already exist; initialization is never implicit here.
func (m *Manager) Update(ctx context.Context, subjectID string, mutate func(*domain.ExecutionState) error) (*domain.ExecutionState, error) {
	var state *domain.ExecutionState
	err := m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, subjectID)
		if err != nil {
			return err
		}
		if err := mutate(state); err != nil {
			return err
		}
		return m.store.Save(ctx, subjectID, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Save persists the session state.
func (m *Manager) Save(ctx context.Context, subjectID string, state *domain.ExecutionState) error {
	return m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		return m.store.Save(ctx, subjectID, state)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, subjectID string) error {
	return m.WithLock(ctx, subjectID, func(ctx context.Context) error {
		return m.store.Delete(ctx, subjectID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}
