// Package users provides the repository for tenant account rows in the
// entitlement ledger.
package users

import (
	"context"

	"github.com/dmitrijs2005/diycloud/internal/ledger/models"
)

type Repository interface {
	// Create inserts a user row and returns the store-assigned id.
	// Returns common.ErrDuplicateUsername when the username is taken.
	Create(ctx context.Context, user *models.User) (int64, error)

	// GetByUsername returns the user row or common.ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID returns the user row or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetIDByUsername resolves a username to its id. found is false when the
	// username is absent; that is not an error.
	GetIDByUsername(ctx context.Context, username string) (id int64, found bool, err error)

	// SetPassword replaces the stored digest for username.
	// Returns common.ErrUnknownUser when the username is absent.
	SetPassword(ctx context.Context, username string, digest string) error

	// UpdateLastLogin stamps the user's last successful login time.
	UpdateLastLogin(ctx context.Context, id int64) error

	// List returns all user rows ordered by id.
	List(ctx context.Context) ([]models.User, error)

	// Usernames returns the tenant usernames (admin-role rows excluded),
	// for reconciliation against the OS account list.
	Usernames(ctx context.Context) ([]string, error)
}
