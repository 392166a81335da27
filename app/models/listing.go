package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	CategoryVehicle = "vehicle"
	CategoryPlate   = "plate"

	TransactionRental = "rental"
	TransactionSale   = "sale"
)

// Listing is a marketplace post for exactly one Vehicle or Plate. The
// Category column is the tag of the item union: a vehicle listing has
// VehicleID set and PlateID null, a plate listing the reverse.
// Soft delete flips Active to false; rows are never removed while Payment
// records reference them.
type Listing struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	UserID          uint   `gorm:"not null;index" json:"user_id"`
	Title           string `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=3,max=255"`
	Description     string `gorm:"type:text" json:"description" validate:"required,min=3,max=2000"`
	TransactionType string `gorm:"type:varchar(20);not null" json:"transaction_type" validate:"oneof=rental sale"`
	Category        string `gorm:"type:varchar(20);not null;index" json:"category" validate:"oneof=vehicle plate"`
	VehicleID       *uint  `gorm:"default:null;index" json:"-"`
	Vehicle         *Vehicle
	PlateID         *uint `gorm:"default:null;index" json:"-"`
	Plate           *Plate
	ListingCode     string         `gorm:"type:varchar(36);uniqueIndex" json:"listing_code"`
	Price           float64        `gorm:"not null" json:"price" validate:"gt=0"`
	LocationCounty  string         `gorm:"type:varchar(100)" json:"location_county"`
	LocationCity    string         `gorm:"type:varchar(100)" json:"location_city" validate:"required"`
	LocationState   string         `gorm:"type:varchar(50)" json:"location_state" validate:"required"`
	ContactName     string         `gorm:"type:varchar(150)" json:"contact_name"`
	ContactPhone    string         `gorm:"type:varchar(30)" json:"contact_phone"`
	ContactEmail    string         `gorm:"type:varchar(200)" json:"contact_email"`
	Active          bool           `gorm:"default:false;index" json:"active"`
	SubscriptionID  string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	Images          []ListingImage `gorm:"foreignKey:ListingID" json:"images"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrItemMismatch = errors.New("listing item must match the declared category, exactly one of vehicle or plate")

func (l *Listing) Validate() error {
	v := validator.New()

	if err := v.Struct(l); err != nil {
		return err
	}
	return l.validateItem()
}

// validateItem enforces the tagged union: exactly one item reference set and
// it must match Category.
func (l *Listing) validateItem() error {
	switch l.Category {
	case CategoryVehicle:
		if l.VehicleID == nil || l.PlateID != nil {
			return ErrItemMismatch
		}
	case CategoryPlate:
		if l.PlateID == nil || l.VehicleID != nil {
			return ErrItemMismatch
		}
	default:
		return ErrItemMismatch
	}
	return nil
}

// SetVehicle tags the listing as a vehicle listing.
func (l *Listing) SetVehicle(v *Vehicle) {
	l.Category = CategoryVehicle
	l.VehicleID = &v.ID
	l.Vehicle = v
	l.PlateID = nil
	l.Plate = nil
}

// SetPlate tags the listing as a plate listing.
func (l *Listing) SetPlate(p *Plate) {
	l.Category = CategoryPlate
	l.PlateID = &p.ID
	l.Plate = p
	l.VehicleID = nil
	l.Vehicle = nil
}

// Vehicle is the item detail for a vehicle listing, created before the
// Listing that references it.
type Vehicle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Make      string    `gorm:"type:varchar(100);not null" json:"make" validate:"required"`
	Model     string    `gorm:"type:varchar(100);not null" json:"model" validate:"required"`
	Year      int       `gorm:"not null" json:"year" validate:"gte=1900"`
	Mileage   float64   `json:"mileage" validate:"gte=0"`
	Color     string    `gorm:"type:varchar(50)" json:"color"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Plate is the item detail for a medallion plate listing.
type Plate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlateNumber string    `gorm:"type:varchar(20);not null" json:"plate_number" validate:"required"`
	BaseNumber  string    `gorm:"type:varchar(20)" json:"base_number"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ListingImage is a remote storage reference owned by exactly one Listing.
// Raw bytes are never stored locally; SecureURL/PublicID point at the
// storage provider.
type ListingImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ListingID  uint      `gorm:"not null;index" json:"listing_id"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	SecureURL  string    `gorm:"type:varchar(500);not null" json:"src"`
	PublicID   string    `gorm:"type:varchar(255);not null;index" json:"cld_public_id"`
	FileType   string    `gorm:"type:varchar(20)" json:"file_type"`
	FileSizeKB float64   `json:"file_size"`
	Position   int       `gorm:"default:0" json:"position"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
