package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
)

func setupStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)

	return NewSQLiteStore(db, logging.Nop()), db
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	want := models.User{ID: "u1", Username: "alice", Email: "alice@example.com"}
	s.Set(ctx, KeyUser, want)

	var got models.User
	require.True(t, s.Get(ctx, KeyUser, &got))
	require.Equal(t, want, got)

	s.Remove(ctx, KeyUser)
	var after models.User
	require.False(t, s.Get(ctx, KeyUser, &after))
	require.Zero(t, after)
}

func TestSQLiteStore_StringConveniences(t *testing.T) {
	s, db := setupStore(t)
	ctx := context.Background()

	require.Empty(t, s.GetString(ctx, KeySession))

	s.SetString(ctx, KeySession, "tok-1")
	require.Equal(t, "tok-1", s.GetString(ctx, KeySession))

	// Malformed stored value degrades to "" like Get does.
	_, err := db.Exec(`UPDATE kv SET value = ? WHERE key = ?`, []byte(`{"not json`), KeySession)
	require.NoError(t, err)
	require.Empty(t, s.GetString(ctx, KeySession))
}

func TestSQLiteStore_MissingKeyReturnsDefault(t *testing.T) {
	s, _ := setupStore(t)

	token := "fallback"
	require.False(t, s.Get(context.Background(), KeySession, &token))
	require.Equal(t, "fallback", token, "out must stay untouched")
}

func TestSQLiteStore_CorruptValueReturnsDefault(t *testing.T) {
	s, db := setupStore(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`, KeySession, []byte(`{"not json`))
	require.NoError(t, err)

	token := "fallback"
	require.False(t, s.Get(ctx, KeySession, &token))
	require.Equal(t, "fallback", token)
}

func TestSQLiteStore_SetUnserializableIsSwallowed(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	s.Set(ctx, "bad", make(chan int)) // must not panic

	var v any
	require.False(t, s.Get(ctx, "bad", &v))
}

func TestSQLiteStore_ClearCredentials(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	s.Set(ctx, KeyUser, models.User{ID: "u1", Username: "alice"})
	s.Set(ctx, KeySession, "token-1")
	s.Set(ctx, "unrelated", "keep")

	s.ClearCredentials(ctx)

	var u models.User
	var tok, keep string
	require.False(t, s.Get(ctx, KeyUser, &u))
	require.False(t, s.Get(ctx, KeySession, &tok))
	require.True(t, s.Get(ctx, "unrelated", &keep))
	require.Equal(t, "keep", keep)
}

func TestOpen_RunsMigrations(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "runmate.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	s.Set(ctx, KeySession, "token-1")
	var tok string
	require.True(t, s.Get(ctx, KeySession, &tok))
	require.Equal(t, "token-1", tok)
}
