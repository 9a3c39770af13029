package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func encrypted(t *testing.T, next ports.KeyValueStore, active []byte, fallback ...[]byte) ports.KeyValueStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallback,
	})
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunKeyValueStoreContract(t, encrypted(t, memory.NewStore(), generateKey(t)))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, generateKey(t))
	ctx := context.Background()

	plain := []byte(`[{"id":"u1","name":"Dana","email":"dana@example.com"}]`)
	require.NoError(t, secure.Set(ctx, "users", plain))

	// The wrapped store only ever sees the envelope.
	raw, err := underlying.Get(ctx, "users")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dana@example.com")
	assert.True(t, strings.HasPrefix(string(raw), `{"__encrypted__":`))

	loaded, err := secure.Get(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, plain, loaded)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	storeOld := encrypted(t, underlying, oldKey)
	require.NoError(t, storeOld.Set(ctx, "processes", []byte(`"old"`)))

	storeNew := encrypted(t, underlying, newKey, oldKey)
	loaded, err := storeNew.Get(ctx, "processes")
	require.NoError(t, err, "fallback key decrypts data written before rotation")
	assert.Equal(t, `"old"`, string(loaded))

	require.NoError(t, storeNew.Set(ctx, "processes", []byte(`"new"`)))

	_, err = storeOld.Get(ctx, "processes")
	assert.ErrorIs(t, err, middleware.ErrNoMatchingKey, "old key alone cannot read data written after rotation")
}

func TestEncryptionMiddleware_RejectsPlainValues(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Set(ctx, "legacy", []byte(`[]`)))

	_, err := encrypted(t, underlying, generateKey(t)).Get(ctx, "legacy")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short-key")},
	})
	assert.ErrorContains(t, err, "fallback key 0")
}

func TestEncryptionMiddleware_ValueBoundToKey(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, generateKey(t))
	ctx := context.Background()

	require.NoError(t, secure.Set(ctx, "processes", []byte(`"p"`)))
	raw, err := underlying.Get(ctx, "processes")
	require.NoError(t, err)
	require.NoError(t, underlying.Set(ctx, "templates", raw))

	_, err = secure.Get(ctx, "templates")
	assert.ErrorIs(t, err, middleware.ErrNoMatchingKey)
}
