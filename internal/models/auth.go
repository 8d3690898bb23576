package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and account summary.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	User      UserInfo  `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
}

// RegisterRequest enrolls a new account. Role defaults to REPORTER.
type RegisterRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required"`
	FirstName string   `json:"first_name" validate:"omitempty,min=2"`
	LastName  string   `json:"last_name" validate:"omitempty,min=2"`
	Phone     string   `json:"phone" validate:"omitempty,numeric,len=10"`
	Role      UserRole `json:"role" validate:"omitempty,oneof=ADMIN SUPERVISOR REPORTER"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// RecoveryRequest starts the password recovery flow. The caller must match
// all identity attributes exactly.
type RecoveryRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RecoveryCompleteRequest finishes the recovery flow with the one-time code
// issued by the request step.
type RecoveryCompleteRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required"`
	IP          string `json:"-"`
	UserAgent   string `json:"-"`
}

// UserInfo describes the authenticated account in responses.
type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Role      UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for session tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
