package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/cryptox"
	"github.com/dmitrijs2005/diycloud/internal/filex"
	"github.com/dmitrijs2005/diycloud/internal/ledger/models"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/users"
)

// backupTimestampLayout names backup files down to the second; bootstrap is a
// single-operator operation, so collisions are not a concern.
const backupTimestampLayout = "20060102-150405"

// Backup copies an existing store file to a timestamped sibling path and
// returns that path. When no store exists yet it returns an empty path and
// no error: nothing to protect is not a failure.
func Backup(path string) (string, error) {
	exists, err := filex.Exists(path)
	if err != nil {
		return "", fmt.Errorf("checking store file: %w", err)
	}
	if !exists {
		return "", nil
	}

	dst := fmt.Sprintf("%s.%s.bak", path, time.Now().Format(backupTimestampLayout))
	if err := filex.CopyFile(path, dst, 0o600); err != nil {
		return "", fmt.Errorf("backing up store: %w", err)
	}
	return dst, nil
}

// InitResult describes what Initialize did.
type InitResult struct {
	// BackupPath is the backup file created before reinitialization,
	// empty when no prior store existed.
	BackupPath string

	// AdminPassword is the admin secret in effect after the run. It is the
	// caller's responsibility to show it exactly once and never log it.
	AdminPassword string

	// PasswordGenerated is true when AdminPassword was generated rather
	// than supplied by the operator.
	PasswordGenerated bool
}

// Initialize (re)creates the ledger: it ensures the containing directory with
// owner-only access, backs up any existing store, applies the schema,
// restricts the store file to owner-read/write, and sets or rotates the admin
// credential. When adminPassword is empty a random one of passwordLength
// characters is generated.
func Initialize(ctx context.Context, path string, adminPassword string, passwordLength int) (*InitResult, error) {
	if err := filex.EnsureDir(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	backupPath, err := Backup(path)
	if err != nil {
		return nil, err
	}

	store, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := store.RunMigrations(ctx); err != nil {
		return nil, err
	}

	if err := filex.Restrict(path); err != nil {
		return nil, err
	}

	result := &InitResult{BackupPath: backupPath, AdminPassword: adminPassword}
	if result.AdminPassword == "" {
		generated, err := cryptox.GeneratePassword(passwordLength)
		if err != nil {
			return nil, err
		}
		result.AdminPassword = generated
		result.PasswordGenerated = true
	}

	digest, err := cryptox.HashPassword(result.AdminPassword)
	if err != nil {
		return nil, err
	}

	repo := users.NewSQLiteRepository(store.DB())
	_, found, err := repo.GetIDByUsername(ctx, common.AdminUsername)
	if err != nil {
		return nil, err
	}
	if found {
		if err := repo.SetPassword(ctx, common.AdminUsername, digest); err != nil {
			return nil, err
		}
	} else {
		_, err := repo.Create(ctx, &models.User{
			Username:     common.AdminUsername,
			PasswordHash: digest,
			Role:         common.RoleAdmin,
			IsActive:     true,
		})
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}
