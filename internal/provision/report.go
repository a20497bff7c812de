package provision

// State tracks how far a provisioning request got. The workflow moves
// Start → SystemAccountCreated → LedgerRecorded → EntitlementsApplied → Done,
// with failure transitions to RolledBack or Failed.
type State string

const (
	StateStart                State = "start"
	StateSystemAccountCreated State = "system_account_created"
	StateLedgerRecorded       State = "ledger_recorded"
	StateEntitlementsApplied  State = "entitlements_applied"
	StateDone                 State = "done"
	StateRolledBack           State = "rolled_back"
	StateFailed               State = "failed"
)

// Outcome distinguishes full success from the ledger-recorded-but-unenforced
// case, so an operator can retry just the enforcement step.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomePartiallyApplied Outcome = "partially_applied"
)

// Request is one provisioning request. Zero-valued limits fall back to the
// configured defaults; an empty password is generated.
type Request struct {
	Username string
	Password string
	Email    string
	CPU      float64
	MemoryMB int
	DiskMB   int
	Role     string
	GPU      bool
}

// Report describes the terminal state of one provisioning request.
//
// Password carries the resolved (possibly generated) secret so the caller can
// show it to the operator exactly once; it must never be logged.
type Report struct {
	OpID              string
	Username          string
	UserID            int64
	Password          string
	PasswordGenerated bool
	State             State
	Outcome           Outcome
}

// ReconcileReport lists drift between OS accounts and ledger entries left by
// prior partial failures. OSOnly accounts have no ledger row; LedgerOnly rows
// have no OS account. Neither side is deleted automatically: removing an OS
// account can destroy tenant data, so the fix is left to the operator.
type ReconcileReport struct {
	OSOnly     []string
	LedgerOnly []string
}
