package repository

import (
	"time"

	"github.com/tlcshift/ShiftMarket/app/models"
	"gorm.io/gorm"
)

// passwordResetRepository implements the PasswordResetRepository interface
type passwordResetRepository struct {
	db *gorm.DB
}

// NewPasswordResetRepository creates a new password reset repository instance
func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(token *models.PasswordResetToken) error {
	return r.db.Create(token).Error
}

// GetValidByHash returns the token only when unused and unexpired.
func (r *passwordResetRepository) GetValidByHash(tokenHash string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	err := r.db.Where("token_hash = ? AND used = ? AND expires_at > ?",
		tokenHash, false, time.Now().UTC()).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *passwordResetRepository) MarkUsed(id uint) error {
	now := time.Now().UTC()
	return r.db.Model(&models.PasswordResetToken{}).Where("id = ?", id).
		Updates(map[string]any{"used": true, "used_at": now}).Error
}

// InvalidateUserTokens marks every outstanding token for the user as used.
// Called on new reset requests and after a successful reset.
func (r *passwordResetRepository) InvalidateUserTokens(userID uint) error {
	now := time.Now().UTC()
	return r.db.Model(&models.PasswordResetToken{}).
		Where("user_id = ? AND used = ?", userID, false).
		Updates(map[string]any{"used": true, "used_at": now}).Error
}

// CountRecentByEmail supports the per-email rate limit.
func (r *passwordResetRepository) CountRecentByEmail(email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.PasswordResetToken{}).
		Where("email = ? AND created_at > ?", email, since).
		Count(&count).Error
	return count, err
}

// DeleteExpired removes stale tokens; intended for a periodic cleanup call.
func (r *passwordResetRepository) DeleteExpired() (int64, error) {
	res := r.db.Where("expires_at < ?", time.Now().UTC()).
		Delete(&models.PasswordResetToken{})
	return res.RowsAffected, res.Error
}
