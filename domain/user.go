// Package domain contains core concepts of the messaging system.
// This file defines User identity records and their soft-delete rules.
// No storage, network, or UI logic should be added here.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// User is an identity record. Users are never physically removed;
// DeletedAt marks them inactive and every lookup must filter them out.
type User struct {
	ID        uuid.UUID
	Email     string // stored lowercase, unique among active users
	FirstName string
	LastName  string
	Phone     string
	Role      Role
	CreatedAt time.Time
	DeletedAt *time.Time
}

func (u User) Active() bool {
	return u.DeletedAt == nil
}

// FullName is the derived display string cached by the projection layer.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
// Email matching is case-insensitive everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
