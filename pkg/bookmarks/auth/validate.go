package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	minPasswordLength = 6
	minUsernameLength = 3
)

var validate = validator.New()

// isAlnum reports whether s is non-empty and made only of letters and digits.
func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func validatePassword(password string) string {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return "Password is too short"
	}
	// Requires at least one symbol.
	if isAlnum(password) {
		return "Password must contain letters"
	}
	return ""
}

func validateUsername(username string) string {
	if utf8.RuneCountInString(username) < minUsernameLength {
		return "User is too short"
	}
	if !isAlnum(username) || strings.Contains(username, " ") {
		return "User must be alphanumeric, there must also be no spaces"
	}
	return ""
}

// ValidEmail reports whether email is a syntactically valid address.
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
