// Package users persists marketplace accounts. Emails are stored lower-cased
// and are unique.
package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
)

// Profile is the public view of an account. It never carries the password hash.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Phone       *string    `json:"phone,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewUser is what registration hands to the repository.
type NewUser struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        *string
}

func ProfileOf(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	p := Profile{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Phone:       u.Phone,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	return &p
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
