package session_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Get(ctx context.Context, key string) ([]byte, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Get(ctx, key)
}

func (s SlowStore) Set(ctx context.Context, key string, value []byte) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Set(ctx, key, value)
}

func TestManager_UpdateSerializesWriters(t *testing.T) {
	manager := session.NewManager(SlowStore{memory.NewStore()})
	ctx := context.Background()
	key := "counter"

	var wg sync.WaitGroup
	writers := 20
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Update(ctx, key, func(current []byte) ([]byte, error) {
				n := 0
				if current != nil {
					n, _ = strconv.Atoi(string(current))
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	value, err := manager.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(writers), string(value), "no update may be lost")
}

func TestManager_UpdateSkipsNilAndPropagatesErrors(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, manager.Update(ctx, "k", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return nil, nil
	}))
	_, err := manager.Load(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	boom := errors.New("boom")
	err = manager.Update(ctx, "k", func([]byte) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

type countingLocker struct {
	mu       sync.Mutex
	locks    []string
	unlocked int
	fail     error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	l.locks = append(l.locks, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "processes", []byte(`[]`)))
	_, err := manager.Load(ctx, "processes")
	require.NoError(t, err)

	assert.Equal(t, []string{"processes", "processes"}, locker.locks)
	assert.Equal(t, 2, locker.unlocked)

	locker.fail = errors.New("redis down")
	err = manager.Save(ctx, "processes", []byte(`[1]`))
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
