package allocations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/dbx"
	"github.com/dmitrijs2005/diycloud/internal/ledger/models"
)

// SQLiteRepository implements Repository over dbx.DBTX so allocation inserts
// can share a transaction with the user insert.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, userID int64, alloc *models.ResourceAllocation) error {
	query := `
		INSERT INTO resource_allocations (user_id, cpu_limit, mem_limit, disk_quota, gpu_access)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		userID, alloc.CPULimit, alloc.MemLimit, alloc.DiskQuota, alloc.GPUAccess)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return common.ErrUnknownUser
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	alloc.UserID = userID
	return nil
}

func (r *SQLiteRepository) GetByUserID(ctx context.Context, userID int64) (*models.ResourceAllocation, error) {
	query := `
		SELECT user_id, cpu_limit, mem_limit, disk_quota, gpu_access
		FROM resource_allocations
		WHERE user_id = ?
	`
	alloc := &models.ResourceAllocation{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&alloc.UserID, &alloc.CPULimit, &alloc.MemLimit, &alloc.DiskQuota, &alloc.GPUAccess)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return alloc, nil
}
