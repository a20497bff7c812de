package common

// Role values stored in the users table.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AdminUsername is the account created and rotated by the bootstrap tool.
const AdminUsername = "admin"
