package utils

import (
	"crypto/rand"
	"encoding/hex"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/forPelevin/gomoji"
)

const (
	// IDLength is the length of user and device identifiers
	IDLength = 8

	MinPasswordLength = 8
	MaxPasswordLength = 256
	MaxEmailLength    = 254
	MaxUserNameLength = 64
	MaxDeviceNameLen  = 32
	EmojiLength       = 2
)

const passwordSpecials = "@$!%*?&"

// NewID returns a random 8-character hex identifier
func NewID() (string, error) {
	b := make([]byte, IDLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsValidID reports whether s has the fixed identifier length
func IsValidID(s string) bool {
	return len(s) == IDLength
}

// TextLength counts UTF-16 code units, which is how the clients measure string length
func TextLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// IsEmoji reports whether s is a two-unit string containing an emoji
func IsEmoji(s string) bool {
	return TextLength(s) == EmojiLength && gomoji.ContainsEmoji(s)
}

// IsValidEmail checks the address shape without resolving the domain
func IsValidEmail(email string) bool {
	if email == "" || len(email) > MaxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email, "@")
}

// IsStrongPassword requires one lowercase letter, one uppercase letter, one digit
// and one of @$!%*?&, and nothing outside those classes
func IsStrongPassword(password string) bool {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}
