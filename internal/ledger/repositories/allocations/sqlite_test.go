package allocations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) (*sql.DB, int64) {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	// a second pool connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL
);
CREATE TABLE resource_allocations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL UNIQUE REFERENCES users (id),
  cpu_limit REAL NOT NULL,
  mem_limit TEXT NOT NULL,
  disk_quota TEXT NOT NULL,
  gpu_access INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
	require.NoError(t, err)

	var userID int64
	require.NoError(t, db.QueryRow(
		`INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id`,
		"alice", "digest").Scan(&userID))

	return db, userID
}

func TestCreateAndGet(t *testing.T) {
	db, userID := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	alloc := &models.ResourceAllocation{
		CPULimit:  2.0,
		MemLimit:  "4096M",
		DiskQuota: "10240M",
		GPUAccess: true,
	}
	require.NoError(t, r.Create(ctx, userID, alloc))
	assert.Equal(t, userID, alloc.UserID)

	got, err := r.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.CPULimit)
	assert.Equal(t, "4096M", got.MemLimit)
	assert.Equal(t, "10240M", got.DiskQuota)
	assert.True(t, got.GPUAccess)
}

func TestCreate_UnknownUser(t *testing.T) {
	db, userID := setupDB(t)
	r := NewSQLiteRepository(db)

	err := r.Create(context.Background(), userID+100, &models.ResourceAllocation{
		CPULimit:  1.0,
		MemLimit:  "2048M",
		DiskQuota: "5120M",
	})
	require.ErrorIs(t, err, common.ErrUnknownUser)
}

func TestGetByUserID_NotFound(t *testing.T) {
	db, userID := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByUserID(context.Background(), userID)
	require.ErrorIs(t, err, common.ErrNotFound)
}
