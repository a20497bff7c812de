// Package provision orchestrates tenant provisioning: OS account creation,
// the atomic user+allocation ledger insert, and entitlement enforcement
// through the external limiter.
package provision

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/config"
	"github.com/dmitrijs2005/diycloud/internal/cryptox"
	"github.com/dmitrijs2005/diycloud/internal/dbx"
	"github.com/dmitrijs2005/diycloud/internal/ledger/models"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/allocations"
	"github.com/dmitrijs2005/diycloud/internal/ledger/repositories/users"
	"github.com/dmitrijs2005/diycloud/internal/limiter"
	"github.com/dmitrijs2005/diycloud/internal/logging"
	"github.com/dmitrijs2005/diycloud/internal/sysuser"
	"github.com/google/uuid"
)

// usernameRe matches portable POSIX account names.
var usernameRe = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

// workspaceDirs are created under each tenant home, owned by the tenant,
// group-accessible only.
var workspaceDirs = []string{"notebooks", "data"}

const workspaceDirMode = 0o750

// Service runs the provisioning workflow. One invocation is expected to run
// to completion before another begins; the store serializes writes.
type Service struct {
	db       *sql.DB
	accounts sysuser.Manager
	limiter  limiter.Limiter
	cfg      *config.Config
	logger   logging.Logger

	// repository constructors, replaceable in tests to inject store faults
	newUsersRepo       func(dbx.DBTX) users.Repository
	newAllocationsRepo func(dbx.DBTX) allocations.Repository
}

func NewService(db *sql.DB, accounts sysuser.Manager, lim limiter.Limiter, cfg *config.Config, logger logging.Logger) *Service {
	return &Service{
		db:       db,
		accounts: accounts,
		limiter:  lim,
		cfg:      cfg,
		logger:   logger,
		newUsersRepo: func(tx dbx.DBTX) users.Repository {
			return users.NewSQLiteRepository(tx)
		},
		newAllocationsRepo: func(tx dbx.DBTX) allocations.Repository {
			return allocations.NewSQLiteRepository(tx)
		},
	}
}

// applyDefaults fills zero-valued request fields from the configuration.
func (s *Service) applyDefaults(req *Request) {
	if req.CPU == 0 {
		req.CPU = s.cfg.DefaultCPU
	}
	if req.MemoryMB == 0 {
		req.MemoryMB = s.cfg.DefaultMemoryMB
	}
	if req.DiskMB == 0 {
		req.DiskMB = s.cfg.DefaultDiskMB
	}
	if req.Role == "" {
		req.Role = common.RoleUser
	}
}

func (s *Service) validate(req *Request) error {
	if req.Username == "" {
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if !usernameRe.MatchString(req.Username) {
		return fmt.Errorf("%w: invalid username %q", common.ErrValidation, req.Username)
	}
	if req.Role != common.RoleUser && req.Role != common.RoleAdmin {
		return fmt.Errorf("%w: invalid role %q", common.ErrValidation, req.Role)
	}
	if req.CPU <= 0 {
		return fmt.Errorf("%w: cpu limit must be positive", common.ErrValidation)
	}
	if req.MemoryMB <= 0 {
		return fmt.Errorf("%w: memory limit must be positive", common.ErrValidation)
	}
	if req.DiskMB <= 0 {
		return fmt.Errorf("%w: disk quota must be positive", common.ErrValidation)
	}
	return nil
}

// Provision runs the full workflow for one tenant. On success the returned
// Report carries the resolved password and Outcome Applied. When the ledger
// rows were recorded but enforcement failed, the error matches
// common.ErrPartiallyApplied and the rows are kept. Validation and collision
// errors leave both the OS and the ledger untouched.
func (s *Service) Provision(ctx context.Context, req Request) (*Report, error) {
	report := &Report{
		OpID:     uuid.NewString(),
		Username: req.Username,
		State:    StateStart,
	}
	log := s.logger.With("op", report.OpID, "username", req.Username)

	s.applyDefaults(&req)
	if err := s.validate(&req); err != nil {
		report.State = StateFailed
		return report, err
	}

	// both sides must be checked: either can exist alone after a prior
	// partial failure
	userRepo := s.newUsersRepo(s.db)
	_, found, err := userRepo.GetIDByUsername(ctx, req.Username)
	if err != nil {
		report.State = StateFailed
		return report, err
	}
	if found {
		report.State = StateFailed
		return report, fmt.Errorf("%w: %s", common.ErrDuplicateUsername, req.Username)
	}

	exists, err := s.accounts.AccountExists(ctx, req.Username)
	if err != nil {
		report.State = StateFailed
		return report, err
	}
	if exists {
		report.State = StateFailed
		return report, fmt.Errorf("%w: %s", common.ErrUserAlreadyExists, req.Username)
	}

	if req.Password == "" {
		generated, err := cryptox.GeneratePassword(s.cfg.GeneratedPasswordLength)
		if err != nil {
			report.State = StateFailed
			return report, err
		}
		req.Password = generated
		report.PasswordGenerated = true
	}
	report.Password = req.Password

	digest, err := cryptox.HashPassword(req.Password)
	if err != nil {
		report.State = StateFailed
		return report, err
	}

	log.Info(ctx, "creating system account")
	if err := s.accounts.CreateAccount(ctx, req.Username); err != nil {
		report.State = StateFailed
		return report, err
	}
	if err := s.accounts.SetAccountPassword(ctx, req.Username, req.Password); err != nil {
		// the OS account now exists without a ledger row; Reconcile surfaces it
		report.State = StateFailed
		return report, err
	}
	for _, dir := range workspaceDirs {
		if err := s.accounts.EnsureUserDir(ctx, req.Username, dir, workspaceDirMode); err != nil {
			report.State = StateFailed
			return report, err
		}
	}
	report.State = StateSystemAccountCreated

	// user row and allocation row are one unit of work: if the second
	// insert fails the transaction rolls back and no orphan remains
	alloc := &models.ResourceAllocation{
		CPULimit:  req.CPU,
		MemLimit:  fmt.Sprintf("%dM", req.MemoryMB),
		DiskQuota: fmt.Sprintf("%dM", req.DiskMB),
		GPUAccess: req.GPU,
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := s.newUsersRepo(tx).Create(ctx, &models.User{
			Username:     req.Username,
			PasswordHash: digest,
			Email:        req.Email,
			Role:         req.Role,
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		report.UserID = id
		return s.newAllocationsRepo(tx).Create(ctx, id, alloc)
	})
	if err != nil {
		report.State = StateRolledBack
		report.UserID = 0
		log.Error(ctx, "ledger insert failed, rolled back", "error", err.Error())
		return report, err
	}
	report.State = StateLedgerRecorded
	log.Info(ctx, "ledger recorded", "user_id", report.UserID)

	if err := s.limiter.ApplyEntitlements(ctx, req.Username, req.CPU, req.MemoryMB, req.DiskMB, req.GPU); err != nil {
		// the entitlement record is durable; only enforcement is missing
		report.Outcome = OutcomePartiallyApplied
		log.Warn(ctx, "entitlements not applied", "error", err.Error())
		return report, fmt.Errorf("%w: %v", common.ErrPartiallyApplied, err)
	}
	report.State = StateEntitlementsApplied

	report.State = StateDone
	report.Outcome = OutcomeApplied
	log.Info(ctx, "provisioning complete", "user_id", report.UserID)
	return report, nil
}

// Reconcile cross-lists OS accounts against ledger usernames and reports the
// drift left behind by partial failures. Admin-role ledger rows exist without
// OS accounts by design and are excluded by the repository.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	ledgerNames, err := s.newUsersRepo(s.db).Usernames(ctx)
	if err != nil {
		return nil, err
	}

	osAccounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	inLedger := make(map[string]struct{}, len(ledgerNames))
	for _, name := range ledgerNames {
		inLedger[name] = struct{}{}
	}

	report := &ReconcileReport{}

	inOS := make(map[string]struct{}, len(osAccounts))
	for _, name := range osAccounts {
		inOS[name] = struct{}{}
		if _, ok := inLedger[name]; !ok {
			report.OSOnly = append(report.OSOnly, name)
		}
	}
	for _, name := range ledgerNames {
		if _, ok := inOS[name]; !ok {
			report.LedgerOnly = append(report.LedgerOnly, name)
		}
	}

	return report, nil
}
