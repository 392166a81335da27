package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tlcshift/ShiftMarket/app/models"
	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/billing"
	"github.com/tlcshift/ShiftMarket/internal/pkg/middleware"
	"github.com/tlcshift/ShiftMarket/internal/pkg/storage"
)

// ListingController owns the listing CRUD surface. New listings start active
// only while the owner is within the free quota; beyond that they are
// created inactive and activated by the checkout webhook.
type ListingController struct {
	listings repository.ListingRepository
	billing  *billing.Service
	store    storage.ImageStore
}

func NewListingController(repos *repository.Repositories, billingSvc *billing.Service, store storage.ImageStore) *ListingController {
	return &ListingController{
		listings: repos.Listing,
		billing:  billingSvc,
		store:    store,
	}
}

type listingItemRequest struct {
	// vehicle fields
	Make    string  `json:"make"`
	Model   string  `json:"model"`
	Year    int     `json:"year"`
	Mileage float64 `json:"mileage"`
	Color   string  `json:"color"`
	Details string  `json:"details"`
	// plate fields
	PlateNumber string `json:"plate_number"`
	BaseNumber  string `json:"base_number"`
}

type listingImageRequest struct {
	Name       string  `json:"name"`
	SecureURL  string  `json:"src"`
	PublicID   string  `json:"cld_public_id"`
	FileType   string  `json:"file_type"`
	FileSizeKB float64 `json:"file_size"`
	Position   int     `json:"position"`
}

type listingRequest struct {
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	TransactionType string                `json:"transaction_type"`
	Category        string                `json:"category"`
	Item            listingItemRequest    `json:"item"`
	Price           float64               `json:"price"`
	LocationCounty  string                `json:"location_county"`
	LocationCity    string                `json:"location_city"`
	LocationState   string                `json:"location_state"`
	ContactName     string                `json:"contact_name"`
	ContactPhone    string                `json:"contact_phone"`
	ContactEmail    string                `json:"contact_email"`
	Images          []listingImageRequest `json:"images"`
}

func (req *listingRequest) images(listingID uint) []models.ListingImage {
	out := make([]models.ListingImage, 0, len(req.Images))
	for _, img := range req.Images {
		out = append(out, models.ListingImage{
			ListingID:  listingID,
			Name:       img.Name,
			SecureURL:  img.SecureURL,
			PublicID:   img.PublicID,
			FileType:   img.FileType,
			FileSizeKB: img.FileSizeKB,
			Position:   img.Position,
		})
	}
	return out
}

// HandleCreateListing creates the item sub-entity first, then the listing
// referencing it.
func (ctl *ListingController) HandleCreateListing(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}

	var req listingRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	listing := &models.Listing{
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		TransactionType: req.TransactionType,
		ListingCode:     uuid.New().String(),
		Price:           req.Price,
		LocationCounty:  req.LocationCounty,
		LocationCity:    req.LocationCity,
		LocationState:   req.LocationState,
		ContactName:     req.ContactName,
		ContactPhone:    req.ContactPhone,
		ContactEmail:    req.ContactEmail,
	}

	switch req.Category {
	case models.CategoryVehicle:
		vehicle := &models.Vehicle{
			Make:    req.Item.Make,
			Model:   req.Item.Model,
			Year:    req.Item.Year,
			Mileage: req.Item.Mileage,
			Color:   req.Item.Color,
			Details: req.Item.Details,
		}
		if err := ctl.listings.CreateVehicle(vehicle); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create listing item")
		}
		listing.SetVehicle(vehicle)
	case models.CategoryPlate:
		plate := &models.Plate{
			PlateNumber: req.Item.PlateNumber,
			BaseNumber:  req.Item.BaseNumber,
		}
		if err := ctl.listings.CreatePlate(plate); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create listing item")
		}
		listing.SetPlate(plate)
	default:
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", models.ErrItemMismatch.Error())
	}

	if err := listing.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	requirement, err := ctl.billing.CheckPaymentRequirement(userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check listing quota")
	}
	listing.Active = !requirement.PaymentRequired

	if err := ctl.listings.Create(listing); err != nil {
		log.Printf("listings: create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create listing")
	}

	if len(req.Images) > 0 {
		if err := ctl.listings.AddImages(listing.ID, req.images(listing.ID)); err != nil {
			log.Printf("listings: attaching images to %d failed: %v", listing.ID, err)
		}
	}

	created, err := ctl.listings.GetByID(listing.ID)
	if err != nil {
		return c.Status(fiber.StatusCreated).JSON(listing)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"listing":          created,
		"payment_required": requirement.PaymentRequired,
	})
}

// HandleListListings returns a paginated, filtered page of listings.
func (ctl *ListingController) HandleListListings(c *fiber.Ctx) error {
	offset, limit := pagination(c)

	mileageMin, mileageMax := parseMileageRange(c.Query("mileage"))
	params := repository.ListingSearchParams{
		Query:      c.Query("query"),
		Category:   c.Query("category"),
		MileageMin: mileageMin,
		MileageMax: mileageMax,
		ActiveOnly: c.QueryBool("active_only", true),
	}
	if y := c.QueryInt("year_min", 0); y > 0 {
		params.YearMin = &y
	}
	if y := c.QueryInt("year_max", 0); y > 0 {
		params.YearMax = &y
	}

	listings, total, err := ctl.listings.List(offset, limit, params)
	if err != nil {
		log.Printf("listings: list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listings")
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
	})
}

// HandleGetListing returns one listing with its item and images.
func (ctl *ListingController) HandleGetListing(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid listing id")
	}

	listing, err := ctl.listings.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
	}
	return c.JSON(listing)
}

// HandleUpdateListing applies field changes, patches the item in place and
// diffs the image set: removed images are purged from remote storage before
// the database rows go away, added ones are appended.
func (ctl *ListingController) HandleUpdateListing(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid listing id")
	}

	listing, err := ctl.listings.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
	}
	if listing.UserID != userID {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "You do not own this listing")
	}

	var req listingRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.Category != "" && req.Category != listing.Category {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Listing category cannot be changed")
	}

	listing.Title = req.Title
	listing.Description = req.Description
	listing.TransactionType = req.TransactionType
	listing.Price = req.Price
	listing.LocationCounty = req.LocationCounty
	listing.LocationCity = req.LocationCity
	listing.LocationState = req.LocationState
	listing.ContactName = req.ContactName
	listing.ContactPhone = req.ContactPhone
	listing.ContactEmail = req.ContactEmail

	switch listing.Category {
	case models.CategoryVehicle:
		if listing.Vehicle != nil {
			listing.Vehicle.Make = req.Item.Make
			listing.Vehicle.Model = req.Item.Model
			listing.Vehicle.Year = req.Item.Year
			listing.Vehicle.Mileage = req.Item.Mileage
			listing.Vehicle.Color = req.Item.Color
			listing.Vehicle.Details = req.Item.Details
			if err := ctl.listings.UpdateVehicle(listing.Vehicle); err != nil {
				return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update listing item")
			}
		}
	case models.CategoryPlate:
		if listing.Plate != nil {
			listing.Plate.PlateNumber = req.Item.PlateNumber
			listing.Plate.BaseNumber = req.Item.BaseNumber
			if err := ctl.listings.UpdatePlate(listing.Plate); err != nil {
				return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update listing item")
			}
		}
	}

	if err := listing.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := ctl.applyImageDiff(c, listing, req.Images); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update listing images")
	}

	if err := ctl.listings.Update(listing); err != nil {
		log.Printf("listings: update %d failed: %v", listing.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update listing")
	}

	updated, err := ctl.listings.GetByID(listing.ID)
	if err != nil {
		return c.JSON(listing)
	}
	return c.JSON(updated)
}

// applyImageDiff reconciles stored images with the desired set. Remote
// deletes run before database mutations so a storage failure never leaves a
// dangling DB row pointing at a purged asset.
func (ctl *ListingController) applyImageDiff(c *fiber.Ctx, listing *models.Listing, desired []listingImageRequest) error {
	current, err := ctl.listings.GetImages(listing.ID)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(desired))
	for _, img := range desired {
		keep[img.PublicID] = true
	}

	var removed []string
	for _, img := range current {
		if !keep[img.PublicID] {
			removed = append(removed, img.PublicID)
		}
	}
	if len(removed) > 0 {
		if _, err := ctl.store.DeleteImages(c.Context(), removed); err != nil {
			return err
		}
		if err := ctl.listings.RemoveImagesByPublicIDs(listing.ID, removed); err != nil {
			return err
		}
	}

	existing := make(map[string]bool, len(current))
	for _, img := range current {
		existing[img.PublicID] = true
	}
	var added []models.ListingImage
	for _, img := range desired {
		if img.PublicID == "" || existing[img.PublicID] {
			continue
		}
		added = append(added, models.ListingImage{
			ListingID:  listing.ID,
			Name:       img.Name,
			SecureURL:  img.SecureURL,
			PublicID:   img.PublicID,
			FileType:   img.FileType,
			FileSizeKB: img.FileSizeKB,
			Position:   img.Position,
		})
	}
	if len(added) > 0 {
		if err := ctl.listings.AddImages(listing.ID, added); err != nil {
			return err
		}
	}

	// The loaded Images slice still holds the removed rows; refresh it so
	// the subsequent save and the response reflect the reconciled set.
	refreshed, err := ctl.listings.GetImages(listing.ID)
	if err != nil {
		return err
	}
	listing.Images = refreshed
	return nil
}

// HandleDeleteListing purges remote images and deactivates the listing.
// Rows stay behind the Active flag because payments reference them.
func (ctl *ListingController) HandleDeleteListing(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid listing id")
	}

	listing, err := ctl.listings.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
	}
	if listing.UserID != userID {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "You do not own this listing")
	}

	if len(listing.Images) > 0 {
		publicIDs := make([]string, 0, len(listing.Images))
		for _, img := range listing.Images {
			publicIDs = append(publicIDs, img.PublicID)
		}
		if _, err := ctl.store.DeleteImages(c.Context(), publicIDs); err != nil {
			log.Printf("listings: purging images for %d failed: %v", listing.ID, err)
		}
		if err := ctl.listings.RemoveImagesByPublicIDs(listing.ID, publicIDs); err != nil {
			log.Printf("listings: removing image rows for %d failed: %v", listing.ID, err)
		}
	}

	if err := ctl.listings.SetActive(listing.ID, false, ""); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete listing")
	}
	return c.JSON(fiber.Map{"message": "Listing deleted"})
}
