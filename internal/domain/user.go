package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity collaborator's view of a person in the platform.
type User struct {
	ID        uuid.UUID
	Name      string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}
