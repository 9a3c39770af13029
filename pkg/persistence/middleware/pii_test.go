package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"(?i)password", "(?i)ssn"})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	input := []byte(`[{"id":"u1","name":"jdoe","userPassword":"secret123","details":{"address":"123 St","ssn_number":"999-99-9999"}}]`)
	require.NoError(t, store.Set(ctx, "users", input))

	stored, err := underlying.Get(ctx, "users")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"u1","name":"jdoe","userPassword":"***","details":{"address":"123 St","ssn_number":"***"}}]`, string(stored))

	// The caller's buffer is not modified.
	assert.Contains(t, string(input), "secret123")
}

func TestPIIMiddleware_PassThrough(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password"})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "blob", []byte("not json")))
	raw, err := underlying.Get(ctx, "blob")
	require.NoError(t, err)
	assert.Equal(t, "not json", string(raw))

	// Untouched documents keep their exact bytes.
	require.NoError(t, store.Set(ctx, "doc", []byte(`{ "b": 1,  "a": 2 }`)))
	raw, err = underlying.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, `{ "b": 1,  "a": 2 }`, string(raw))
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}
