package repository

import (
	"github.com/tlcshift/ShiftMarket/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// listingRepository implements the ListingRepository interface
type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository instance
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(listing *models.Listing) error {
	return r.db.Create(listing).Error
}

func (r *listingRepository) GetByID(id uint) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.Preload("Images").Preload("Vehicle").Preload("Plate").
		First(&listing, id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) GetBySubscriptionID(subscriptionID string) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.Where("subscription_id = ?", subscriptionID).First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Update persists the listing's own columns only. Images, Vehicle and Plate
// have dedicated methods; letting Save upsert the associations would
// re-insert image rows the edit diff already removed.
func (r *listingRepository) Update(listing *models.Listing) error {
	return r.db.Omit(clause.Associations).Save(listing).Error
}

// SetActive writes the target activation state directly so redelivered
// webhook events converge instead of toggling. An empty subscriptionID
// leaves the stored linkage untouched.
func (r *listingRepository) SetActive(id uint, active bool, subscriptionID string) error {
	updates := map[string]any{"active": active}
	if subscriptionID != "" {
		updates["subscription_id"] = subscriptionID
	}
	return r.db.Model(&models.Listing{}).Where("id = ?", id).Updates(updates).Error
}

func (r *listingRepository) CountActiveByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Listing{}).
		Where("user_id = ? AND active = ?", userID, true).
		Count(&count).Error
	return count, err
}

// List returns a page of listings plus the total match count. Filters are
// combined with AND; the mileage filter applies only to vehicle listings.
func (r *listingRepository) List(offset, limit int, params ListingSearchParams) ([]models.Listing, int64, error) {
	query := r.db.Model(&models.Listing{})

	if params.ActiveOnly {
		query = query.Where("listings.active = ?", true)
	}
	if params.Category != "" {
		query = query.Where("listings.category = ?", params.Category)
	}

	needsVehicle := params.Query != "" || params.YearMin != nil || params.YearMax != nil ||
		params.MileageMin != nil || params.MileageMax != nil
	if needsVehicle {
		query = query.Joins("LEFT JOIN vehicles ON vehicles.id = listings.vehicle_id")
	}
	if params.Query != "" {
		like := "%" + params.Query + "%"
		query = query.Where("LOWER(vehicles.make) LIKE LOWER(?) OR LOWER(vehicles.model) LIKE LOWER(?)", like, like)
	}
	if params.YearMin != nil {
		query = query.Where("vehicles.year >= ?", *params.YearMin)
	}
	if params.YearMax != nil {
		query = query.Where("vehicles.year <= ?", *params.YearMax)
	}
	if params.MileageMin != nil {
		query = query.Where("vehicles.mileage >= ?", *params.MileageMin)
	}
	if params.MileageMax != nil {
		query = query.Where("vehicles.mileage <= ?", *params.MileageMax)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []models.Listing
	err := query.Preload("Images").Preload("Vehicle").Preload("Plate").
		Order("listings.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *listingRepository) CreateVehicle(v *models.Vehicle) error {
	return r.db.Create(v).Error
}

func (r *listingRepository) UpdateVehicle(v *models.Vehicle) error {
	return r.db.Save(v).Error
}

func (r *listingRepository) CreatePlate(p *models.Plate) error {
	return r.db.Create(p).Error
}

func (r *listingRepository) UpdatePlate(p *models.Plate) error {
	return r.db.Save(p).Error
}

func (r *listingRepository) AddImages(listingID uint, images []models.ListingImage) error {
	if len(images) == 0 {
		return nil
	}
	for i := range images {
		images[i].ListingID = listingID
	}
	return r.db.Create(&images).Error
}

func (r *listingRepository) RemoveImagesByPublicIDs(listingID uint, publicIDs []string) error {
	if len(publicIDs) == 0 {
		return nil
	}
	return r.db.Where("listing_id = ? AND public_id IN ?", listingID, publicIDs).
		Delete(&models.ListingImage{}).Error
}

func (r *listingRepository) GetImages(listingID uint) ([]models.ListingImage, error) {
	var images []models.ListingImage
	err := r.db.Where("listing_id = ?", listingID).
		Order("position ASC, id ASC").
		Find(&images).Error
	return images, err
}
