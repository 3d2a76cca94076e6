package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Profile is the public view of an account. The password hash never leaves
// this package.
type Profile struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Role        enums.UserRole `json:"role"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func ProfileOf(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        enums.RoleFor(u.IsAdmin),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// NewUser is a registration that has already been validated and hashed.
type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	IsAdmin      bool
}

// NormalizeEmail is the canonical form used for the unique index and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (n NewUser) model() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(n.Email),
		PasswordHash: n.PasswordHash,
		Name:         strings.TrimSpace(n.Name),
		IsAdmin:      n.IsAdmin,
	}
}
