package sessions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a second pool connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE sessions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  session_token TEXT NOT NULL UNIQUE,
  expires_at TIMESTAMP NOT NULL,
  ip_address TEXT NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)

	return db
}

func TestCreateAndFind(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, 1, "tok1", time.Hour, "10.0.0.1"))

	s, err := r.Find(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.UserID)
	assert.Equal(t, "tok1", s.Token)
	assert.Equal(t, "10.0.0.1", s.IPAddress)
	assert.True(t, s.ExpiresAt.After(time.Now().UTC()))
}

func TestFind_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Find(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, 1, "tok1", time.Hour, ""))
	require.NoError(t, r.Delete(ctx, "tok1"))

	_, err := r.Find(ctx, "tok1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteExpired(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, 1, "old", -time.Hour, ""))
	require.NoError(t, r.Create(ctx, 1, "fresh", time.Hour, ""))

	require.NoError(t, r.DeleteExpired(ctx))

	_, err := r.Find(ctx, "old")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = r.Find(ctx, "fresh")
	require.NoError(t, err)
}
