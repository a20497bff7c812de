// Package sessions provides a repository for DB-backed API session tokens,
// mirroring the sessions table of the admin API.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/ledger/models"
)

type Repository interface {
	// Create inserts a session token for userID expiring at now+validity.
	Create(ctx context.Context, userID int64, token string, validity time.Duration, ip string) error

	// Find returns the session row for token or common.ErrNotFound.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Delete removes a session by its token.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes all sessions whose expiry has passed.
	DeleteExpired(ctx context.Context) error
}
