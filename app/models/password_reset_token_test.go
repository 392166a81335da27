package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGeneratePasswordResetToken(t *testing.T) {
	first, err := GeneratePasswordResetToken()
	assert.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := GeneratePasswordResetToken()
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHashPasswordResetToken(t *testing.T) {
	token, err := GeneratePasswordResetToken()
	assert.NoError(t, err)

	hash := HashPasswordResetToken(token)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, token, hash)
	assert.Equal(t, hash, HashPasswordResetToken(token))
}

func TestPasswordResetTokenIsValid(t *testing.T) {
	now := time.Now().UTC()

	fresh := &PasswordResetToken{ExpiresAt: now.Add(PasswordResetTokenTTL)}
	assert.True(t, fresh.IsValid())

	expired := &PasswordResetToken{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.IsValid())

	used := &PasswordResetToken{Used: true, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, used.IsValid())
}
