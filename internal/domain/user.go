package domain

import (
	"context"

	"github.com/google/uuid"
)

// User is the owner of budgets and transactions
type User struct {
	ID      uuid.UUID `json:"id"`
	Auth0ID string    `json:"auth0Id"`
	Email   string    `json:"email"`
}

// UserRepository resolves identity-provider subjects to users
type UserRepository interface {
	GetByAuth0ID(ctx context.Context, auth0ID string) (*User, error)
}
