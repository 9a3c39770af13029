package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKeyValueStoreContract runs a suite of tests to verify that a KeyValueStore implementation
// adheres to the defined interface contract. The store must start empty.
func RunKeyValueStoreContract(t *testing.T, store KeyValueStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		key := prefix + "-processes"
		value := []byte(`[{"id":"p1","name":"Onboarding"}]`)

		require.NoError(t, store.Set(ctx, key, value), "Set should not return error")

		loaded, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.JSONEq(t, string(value), string(loaded))
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		key := prefix + "-overwrite"
		require.NoError(t, store.Set(ctx, key, []byte(`[1]`)))
		require.NoError(t, store.Set(ctx, key, []byte(`[2]`)))

		loaded, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `[2]`, string(loaded))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Returned Value Is a Copy", func(t *testing.T) {
		key := prefix + "-copy"
		require.NoError(t, store.Set(ctx, key, []byte(`"abc"`)))

		loaded, err := store.Get(ctx, key)
		require.NoError(t, err)
		loaded[1] = 'z'

		again, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `"abc"`, string(again))
	})

	t.Run("Delete", func(t *testing.T) {
		key := prefix + "-delete"
		require.NoError(t, store.Set(ctx, key, []byte(`[]`)))

		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound, "Get after Delete should return ErrKeyNotFound")

		assert.NoError(t, store.Delete(ctx, key), "Delete of a missing key is a no-op")
	})

	t.Run("Keys", func(t *testing.T) {
		k1 := prefix + "-keys-a"
		k2 := prefix + "-keys-b"
		require.NoError(t, store.Set(ctx, k2, []byte(`[]`)))
		require.NoError(t, store.Set(ctx, k1, []byte(`[]`)))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
		assert.IsNonDecreasing(t, keys)
	})

	t.Run("Concurrent Writers", func(t *testing.T) {
		key := prefix + "-concurrent"
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.Set(ctx, key, []byte(fmt.Sprintf(`[%d]`, i))))
			}(i)
		}
		wg.Wait()

		loaded, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Regexp(t, `^\[\d\]$`, string(loaded), "last write wins without corrupting the value")
	})
}
