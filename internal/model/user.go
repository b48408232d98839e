package model

import (
	"fmt"
	"time"
)

// User represents an authentication user.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	AccessBlock  string     `json:"accessBlock"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
	RoleMonitor     = "monitor"
	RoleNone        = "none"
)

// User access blocks. A user with AccessAll reaches every inventory block.
const (
	AccessAll  = "all"
	AccessNone = "none"
)

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCoordinator, RoleMonitor, RoleNone:
		return true
	}
	return false
}

// ValidAccessBlock reports whether b is a valid user access block.
func ValidAccessBlock(b string) bool {
	return ValidBlock(b) || b == AccessAll || b == AccessNone
}

// MinPasswordLength is the shortest password accepted.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
