package models

import "time"

// Session is a DB-backed API session token with an expiry time.
type Session struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
	IPAddress string
}
