package repository

import (
	"github.com/tlcshift/ShiftMarket/app/models"
	"gorm.io/gorm"
)

// emailLogRepository implements the EmailLogRepository interface
type emailLogRepository struct {
	db *gorm.DB
}

// NewEmailLogRepository creates a new email log repository instance
func NewEmailLogRepository(db *gorm.DB) EmailLogRepository {
	return &emailLogRepository{db: db}
}

func (r *emailLogRepository) Create(entry *models.EmailLog) error {
	return r.db.Create(entry).Error
}

// ExistsByInvoiceID reports whether an invoice audit row was already
// recorded, making repeated invoice.sent deliveries no-ops.
func (r *emailLogRepository) ExistsByInvoiceID(invoiceID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.EmailLog{}).
		Where("stripe_invoice_id = ?", invoiceID).
		Count(&count).Error
	return count > 0, err
}
