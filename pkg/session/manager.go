package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a distributed lock.
const DefaultLockTTL = 30 * time.Second

// Manager serializes access to store keys. Within a process a per-key mutex
// orders callers; across replicas an optional DistributedLocker does.
type Manager struct {
	store ports.KeyValueStore
	locks *keyedMutex

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.KeyValueStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   newKeyedMutex(),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads key under its lock.
func (m *Manager) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		value, err = m.store.Get(ctx, key)
		return err
	})
	return value, err
}

// Save writes key under its lock.
func (m *Manager) Save(ctx context.Context, key string, value []byte) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Set(ctx, key, value)
	})
}

// Delete removes key under its lock.
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
}

// Update runs a read-modify-write cycle on key.
// fn receives nil when the key does not exist yet. Returning a nil slice skips the write.
func (m *Manager) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		current, err := m.store.Get(ctx, key)
		if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
			return fmt.Errorf("failed to read %q: %w", key, err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return m.store.Set(ctx, key, next)
	})
}

// Keys delegates to the store.
func (m *Manager) Keys(ctx context.Context) ([]string, error) {
	return m.store.Keys(ctx)
}

// Store returns the underlying store.
func (m *Manager) Store() ports.KeyValueStore {
	return m.store
}

// WithLock executes fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	unlock := m.locks.lock(key)
	defer unlock()

	if m.locker != nil {
		release, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := release(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
