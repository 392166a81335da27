package repository

import (
	"github.com/tlcshift/ShiftMarket/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// waitlistRepository implements the WaitlistRepository interface
type waitlistRepository struct {
	db *gorm.DB
}

// NewWaitlistRepository creates a new waitlist repository instance
func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

// Upsert inserts the email or refreshes updated_at when it already exists.
func (r *waitlistRepository) Upsert(email string) (*models.WaitlistEntry, error) {
	entry := &models.WaitlistEntry{Email: email}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.Where("email = ?", email).First(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *waitlistRepository) List(offset, limit int) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *waitlistRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.WaitlistEntry{}).Count(&count).Error
	return count, err
}
