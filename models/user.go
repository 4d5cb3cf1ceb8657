package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a marketplace account keyed by the identity provider email.
// Rows are merged lazily the first time an authenticated caller writes.
type User struct {
	UUID      uuid.UUID `json:"uuid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Grant roles connecting users to listings. "created" is implicit ownership;
// the others are delegated permissions.
const (
	GrantCreated   = "created"
	GrantCanEdit   = "can_edit"
	GrantCanDelete = "can_delete"
	GrantCanAdmin  = "can_admin"
)
