package models

// ResourceAllocation is one tenant's entitlement: the CPU/memory/disk/GPU
// quad the limiter enforces. It references exactly one User and is created
// in the same transaction as the user row.
type ResourceAllocation struct {
	// UserID references the owning User row.
	UserID int64

	// CPULimit is a positive number of cores.
	CPULimit float64

	// MemLimit is a positive quantity with unit suffix, e.g. "2048M".
	MemLimit string

	// DiskQuota is a positive quantity with unit suffix, e.g. "5120M".
	DiskQuota string

	// GPUAccess grants access to the host GPUs.
	GPUAccess bool
}
