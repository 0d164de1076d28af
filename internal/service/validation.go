package service

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 100
	maxEmailLength    = 255
)

func validateCredentials(username, email, password string) error {
	if username == "" {
		return core.NewError(core.KindValidation, "username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return core.NewError(core.KindValidation, "username must be at most 100 characters")
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(password)
}

func validateEmail(email string) error {
	if email == "" {
		return core.NewError(core.KindValidation, "email is required")
	}
	if len(email) > maxEmailLength {
		return core.NewError(core.KindValidation, "email must be at most 255 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return core.NewError(core.KindValidation, "invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return core.NewError(core.KindValidation, "password is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return core.NewError(core.KindValidation, "password must contain at least 8 characters")
	}
	if strings.IndexFunc(password, unicode.IsSpace) >= 0 {
		return core.NewError(core.KindValidation, "password must not contain whitespace")
	}
	return nil
}
