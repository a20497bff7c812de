// Package allocations provides the repository for resource entitlement rows
// in the ledger.
package allocations

import (
	"context"

	"github.com/dmitrijs2005/diycloud/internal/ledger/models"
)

type Repository interface {
	// Create inserts the allocation row for userID. Returns
	// common.ErrUnknownUser when userID does not reference an existing user,
	// enforced by the store's foreign key.
	Create(ctx context.Context, userID int64, alloc *models.ResourceAllocation) error

	// GetByUserID returns the allocation for userID or common.ErrNotFound.
	GetByUserID(ctx context.Context, userID int64) (*models.ResourceAllocation, error)
}
