package repository

import (
	"github.com/tlcshift/ShiftMarket/app/models"
	"gorm.io/gorm"
)

// feedbackRepository implements the FeedbackRepository interface
type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new feedback repository instance
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(entry *models.Feedback) error {
	return r.db.Create(entry).Error
}

func (r *feedbackRepository) List(offset, limit int) ([]models.Feedback, error) {
	var entries []models.Feedback
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *feedbackRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Feedback{}).Count(&count).Error
	return count, err
}
