package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/unichat/internal/config"
)

// exerciseBackend runs the behaviour every Backend must share.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Set(ctx, "chat_sessions_v1", `[]`))
	v, err := b.Get(ctx, "chat_sessions_v1")
	require.NoError(t, err)
	require.Equal(t, `[]`, v)

	require.NoError(t, b.Set(ctx, "chat_sessions_v1", `[{"id":"1"}]`))
	v, err = b.Get(ctx, "chat_sessions_v1")
	require.NoError(t, err)
	require.Equal(t, `[{"id":"1"}]`, v, "second Set overwrites")

	require.NoError(t, b.Delete(ctx, "chat_sessions_v1"))
	_, err = b.Get(ctx, "chat_sessions_v1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Delete(ctx, "never-set"), "deleting an absent key is not an error")
}

func TestMemory(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	db, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	exerciseBackend(t, db)

	require.NoError(t, db.Set(ctx, "current_session_id_v1", "abc"))
	require.NoError(t, db.Close())

	reopened, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	v, err := reopened.Get(ctx, "current_session_id_v1")
	require.NoError(t, err)
	require.Equal(t, "abc", v, "entries survive reopening the file")
}

func TestRedis(t *testing.T) {
	url := os.Getenv("UNICHAT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("UNICHAT_TEST_REDIS_URL not set")
	}
	r, err := NewRedis(context.Background(), url, "unichat-test:")
	require.NoError(t, err)
	defer r.Close()
	exerciseBackend(t, r)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, config.StorageConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, b)

	b, err = Open(ctx, config.StorageConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLite{}, b)
	require.NoError(t, b.Close())

	_, err = Open(ctx, config.StorageConfig{Driver: "floppy"})
	require.Error(t, err)
}
