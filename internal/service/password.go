package service

import (
	"strings"
	"unicode"

	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
)

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// ValidatePasswordStrength checks the password policy. Checks run in a fixed
// order and the first failure is reported, so callers get one actionable
// message at a time.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return appErrors.Clone(appErrors.ErrWeakPassword, "password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		return appErrors.Clone(appErrors.ErrWeakPassword, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		return appErrors.Clone(appErrors.ErrWeakPassword, "password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return appErrors.Clone(appErrors.ErrWeakPassword, "password must contain at least one digit")
	}
	if !hasSymbol {
		return appErrors.Clone(appErrors.ErrWeakPassword, "password must contain at least one special character")
	}

	return nil
}
