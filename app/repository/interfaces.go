package repository

import (
	"time"

	"github.com/tlcshift/ShiftMarket/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByGoogleID(googleID string) (*models.User, error)
	Update(user *models.User) error
	UpdateStripeCustomerID(id uint, customerID string) error
	UpdateGoogleID(id uint, googleID string) error
}

// ListingSearchParams carries the optional search filters for listings.
// A nil bound means the filter is not applied.
type ListingSearchParams struct {
	Query      string // case-insensitive substring on make/model
	YearMin    *int
	YearMax    *int
	MileageMin *float64
	MileageMax *float64
	Category   string
	ActiveOnly bool
}

// ListingRepository defines the interface for listing-related operations
type ListingRepository interface {
	Create(listing *models.Listing) error
	GetByID(id uint) (*models.Listing, error)
	GetBySubscriptionID(subscriptionID string) (*models.Listing, error)
	Update(listing *models.Listing) error
	SetActive(id uint, active bool, subscriptionID string) error
	CountActiveByUser(userID uint) (int64, error)
	List(offset, limit int, params ListingSearchParams) ([]models.Listing, int64, error)

	CreateVehicle(v *models.Vehicle) error
	UpdateVehicle(v *models.Vehicle) error
	CreatePlate(p *models.Plate) error
	UpdatePlate(p *models.Plate) error

	AddImages(listingID uint, images []models.ListingImage) error
	RemoveImagesByPublicIDs(listingID uint, publicIDs []string) error
	GetImages(listingID uint) ([]models.ListingImage, error)
}

// PaymentRepository defines the interface for payment ledger operations
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetBySessionID(sessionID string) (*models.Payment, error)
	GetByPaymentIntentID(paymentIntentID string) (*models.Payment, error)
	Update(payment *models.Payment) error
	ListByUser(userID uint, offset, limit int) ([]models.Payment, int64, error)
}

// PasswordResetRepository defines the interface for reset-token operations
type PasswordResetRepository interface {
	Create(token *models.PasswordResetToken) error
	GetValidByHash(tokenHash string) (*models.PasswordResetToken, error)
	MarkUsed(id uint) error
	InvalidateUserTokens(userID uint) error
	CountRecentByEmail(email string, since time.Time) (int64, error)
	DeleteExpired() (int64, error)
}

// EmailLogRepository records outbound email and provider-sent invoices
type EmailLogRepository interface {
	Create(entry *models.EmailLog) error
	ExistsByInvoiceID(invoiceID string) (bool, error)
}

// WaitlistRepository defines the interface for waitlist operations
type WaitlistRepository interface {
	Upsert(email string) (*models.WaitlistEntry, error)
	List(offset, limit int) ([]models.WaitlistEntry, error)
	Count() (int64, error)
}

// FeedbackRepository defines the interface for feedback operations
type FeedbackRepository interface {
	Create(entry *models.Feedback) error
	List(offset, limit int) ([]models.Feedback, error)
	Count() (int64, error)
}
