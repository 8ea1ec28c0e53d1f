package validator

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
)

const (
	usernameMin = 3
	usernameMax = 150
	passwordMin = 8
	// bcryptは72バイトより後ろを無視する
	passwordMax = 72
)

// 英数字と @ . + - _
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+\-_]+$`)

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() auth.CredentialValidator {
	return &authValidator{}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(username string, password string) error {
	n := utf8.RuneCountInString(username)
	if n < usernameMin || n > usernameMax {
		return invalid("username must be %d-%d characters", usernameMin, usernameMax)
	}
	if !usernamePattern.MatchString(username) {
		return invalid("username may contain only letters, digits and @.+-_")
	}

	if len(password) < passwordMin {
		return invalid("password must be at least %d characters", passwordMin)
	}
	if len(password) > passwordMax {
		return invalid("password must be at most %d bytes", passwordMax)
	}
	return nil
}

// ログインの入力を検証（必須チェックだけ）
func (v *authValidator) ValidateLogin(username string, password string) error {
	if username == "" || password == "" {
		return invalid("username and password required")
	}
	if len(password) > passwordMax {
		return invalid("password too long")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", usecase.ErrValidation, fmt.Sprintf(format, args...))
}
