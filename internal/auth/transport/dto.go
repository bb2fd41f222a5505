package transport

import (
	"time"

	"github.com/google/uuid"
)

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	User        UserResponse `json:"user"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Signature *string `json:"signature,omitempty" validate:"omitempty,max=5000"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type ListUsersRequest struct {
	Search string `form:"search" validate:"omitempty,max=100"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Name     string   `json:"name" validate:"required,max=120"`
	Roles    []string `json:"roles,omitempty" validate:"omitempty,dive,oneof=admin sales accounts marketing"`
}

type SetUserRolesRequest struct {
	Roles []string `json:"roles" validate:"dive,oneof=admin sales accounts marketing"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Signature string    `json:"signature,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserOption feeds the salesperson typeahead.
type UserOption struct {
	Value uuid.UUID `json:"value"`
	Label string    `json:"label"`
	Email string    `json:"email"`
}
