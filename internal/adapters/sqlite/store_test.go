package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/lattice/internal/adapters/sqlite"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ports.RunKeyValueStoreContract(t, store)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lattice.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "templates", []byte(`[{"id":"t1"}]`)))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, "templates")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(value))
}
