package auth

import (
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/internal/users"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	FullName string  `json:"full_name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
// GuestCartToken is filled from the X-Guest-Cart header, not the body.
type LoginRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	GuestCartToken string `json:"-"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is an access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResponse contains the tokens and user produced by a successful login.
// Cart is set when a guest cart was merged.
type LoginResponse struct {
	TokenPair
	User *users.Profile `json:"user"`
	Cart *cart.View     `json:"cart,omitempty"`
}
