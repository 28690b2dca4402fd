package engine

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLen = 24

var (
	errEmptyCredentials = errors.New("username and password are required")
	errUsernameTooLong  = errors.New("username must be at most 24 chars")
	errUsernameCharset  = errors.New("username: letters, numbers, underscore only")
	errPasswordTooLong  = errors.New("password must be at most 72 bytes")
)

// normalizeUsername trims whitespace; usernames are otherwise case-sensitive.
func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateCredentials enforces the registration rules.
func validateCredentials(u, p string) error {
	if u == "" || p == "" {
		return errEmptyCredentials
	}
	if len(u) > maxUsernameLen {
		return errUsernameTooLong
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errUsernameCharset
		}
	}
	// bcrypt ignores (newer x/crypto rejects) input beyond 72 bytes.
	if len(p) > 72 {
		return errPasswordTooLong
	}
	return nil
}

func hashPassword(pw string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
