// utils/validator.go - Input validation
package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}
	return validate.Var(email, "email") == nil
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}
