package users

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

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a second pool connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'user',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_login TIMESTAMP
);
`)
	require.NoError(t, err)

	return db
}

func newUser(name string) *models.User {
	return &models.User{
		Username:     name,
		PasswordHash: "$argon2id$digest",
		Email:        name + "@example.com",
		Role:         common.RoleUser,
		IsActive:     true,
	}
}

func TestCreate_AssignsID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Create(ctx, newUser("alice"))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, common.RoleUser, got.Role)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.LastLogin)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := r.Create(ctx, newUser("alice"))
	require.NoError(t, err)

	_, err = r.Create(ctx, newUser("alice"))
	require.ErrorIs(t, err, common.ErrDuplicateUsername)

	// only the first row exists
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users WHERE username = ?`, "alice").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetByUsername_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Create(ctx, newUser("alice"))
	require.NoError(t, err)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = r.GetByID(ctx, id+100)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetIDByUsername(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Create(ctx, newUser("alice"))
	require.NoError(t, err)

	gotID, found, err := r.GetIDByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, gotID)

	_, found, err = r.GetIDByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetPassword(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := r.Create(ctx, newUser("alice"))
	require.NoError(t, err)

	require.NoError(t, r.SetPassword(ctx, "alice", "$argon2id$new"))

	got, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$new", got.PasswordHash)

	err = r.SetPassword(ctx, "ghost", "$argon2id$new")
	require.ErrorIs(t, err, common.ErrUnknownUser)
}

func TestUpdateLastLogin(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Create(ctx, newUser("alice"))
	require.NoError(t, err)

	require.NoError(t, r.UpdateLastLogin(ctx, id))

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
}

func TestListAndUsernames(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := r.Create(ctx, newUser(name))
		require.NoError(t, err)
	}

	admin := newUser("admin")
	admin.Role = common.RoleAdmin
	_, err := r.Create(ctx, admin)
	require.NoError(t, err)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// admin-role rows are excluded from the reconciliation name list
	names, err := r.Usernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, names)
}
