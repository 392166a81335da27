package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"
)

const (
	// PasswordResetTokenTTL bounds how long a reset link stays usable.
	PasswordResetTokenTTL = 30 * time.Minute
	// PasswordResetMaxRequests caps requests per email per window.
	PasswordResetMaxRequests = 3
	// PasswordResetRateWindow is the rate-limit window.
	PasswordResetRateWindow = 15 * time.Minute
)

// PasswordResetToken is single-use and stored hashed; the plaintext token
// only ever appears in the reset email.
type PasswordResetToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Email     string     `gorm:"type:varchar(200);not null;index" json:"email"`
	TokenHash string     `gorm:"type:varchar(64);not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	Used      bool       `gorm:"default:false" json:"used"`
	UsedAt    *time.Time `gorm:"type:timestamp;default:null" json:"used_at,omitempty"`
	IPAddress string     `gorm:"type:varchar(45)" json:"-"`
	UserAgent string     `gorm:"type:varchar(255)" json:"-"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

// GeneratePasswordResetToken returns a url-safe random token.
func GeneratePasswordResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashPasswordResetToken returns the sha256 hex digest stored in the DB.
func HashPasswordResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsValid reports whether the token is unused and unexpired.
func (t *PasswordResetToken) IsValid() bool {
	return !t.Used && t.ExpiresAt.After(time.Now().UTC())
}
