package validator

import (
	"strings"
	"testing"

	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	v := NewAuthValidator()

	tests := []struct {
		name     string
		username string
		password string
		ok       bool
	}{
		{"ok", "alice", "password1", true},
		{"email like username", "bob@example.com", "password1", true},
		{"too short username", "al", "password1", false},
		{"too long username", strings.Repeat("a", 151), "password1", false},
		{"space in username", "al ice", "password1", false},
		{"short password", "alice", "short", false},
		{"too long password", "alice", strings.Repeat("p", 73), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateRegister(tc.username, tc.password)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, usecase.ErrValidation)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	v := NewAuthValidator()

	assert.NoError(t, v.ValidateLogin("alice", "x"))
	assert.ErrorIs(t, v.ValidateLogin("", "x"), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateLogin("alice", ""), usecase.ErrValidation)
}
