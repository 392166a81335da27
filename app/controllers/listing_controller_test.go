package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlcshift/ShiftMarket/app/models"
	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/billing"
	"github.com/tlcshift/ShiftMarket/internal/pkg/middleware"
	"github.com/tlcshift/ShiftMarket/internal/pkg/storage"
)

type fakeListingRepo struct {
	repository.ListingRepository
	listings    map[uint]*models.Listing
	images      map[uint][]models.ListingImage
	activeCount int64
	nextID      uint
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{
		listings: map[uint]*models.Listing{},
		images:   map[uint][]models.ListingImage{},
	}
}

func (f *fakeListingRepo) Create(listing *models.Listing) error {
	f.nextID++
	listing.ID = f.nextID
	f.listings[listing.ID] = listing
	return nil
}

func (f *fakeListingRepo) GetByID(id uint) (*models.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, errors.New("listing not found")
	}
	l.Images = f.images[id]
	return l, nil
}

// Update mirrors gorm's Save association upsert: any image rows still on the
// struct that are missing from the store get re-inserted. Catches stale
// Images slices surviving past the edit diff.
func (f *fakeListingRepo) Update(listing *models.Listing) error {
	f.listings[listing.ID] = listing
	stored := make(map[string]bool, len(f.images[listing.ID]))
	for _, img := range f.images[listing.ID] {
		stored[img.PublicID] = true
	}
	for _, img := range listing.Images {
		if !stored[img.PublicID] {
			f.images[listing.ID] = append(f.images[listing.ID], img)
		}
	}
	return nil
}

func (f *fakeListingRepo) SetActive(id uint, active bool, subscriptionID string) error {
	if l, ok := f.listings[id]; ok {
		l.Active = active
	}
	return nil
}

func (f *fakeListingRepo) CountActiveByUser(userID uint) (int64, error) {
	return f.activeCount, nil
}

func (f *fakeListingRepo) CreateVehicle(v *models.Vehicle) error {
	v.ID = 1
	return nil
}

func (f *fakeListingRepo) UpdateVehicle(v *models.Vehicle) error { return nil }

func (f *fakeListingRepo) CreatePlate(p *models.Plate) error {
	p.ID = 1
	return nil
}

func (f *fakeListingRepo) UpdatePlate(p *models.Plate) error { return nil }

func (f *fakeListingRepo) AddImages(listingID uint, images []models.ListingImage) error {
	f.images[listingID] = append(f.images[listingID], images...)
	return nil
}

func (f *fakeListingRepo) RemoveImagesByPublicIDs(listingID uint, publicIDs []string) error {
	remove := make(map[string]bool, len(publicIDs))
	for _, id := range publicIDs {
		remove[id] = true
	}
	var kept []models.ListingImage
	for _, img := range f.images[listingID] {
		if !remove[img.PublicID] {
			kept = append(kept, img)
		}
	}
	f.images[listingID] = kept
	return nil
}

func (f *fakeListingRepo) GetImages(listingID uint) ([]models.ListingImage, error) {
	return f.images[listingID], nil
}

type fakeImageStore struct {
	deleted  [][]string
	uploaded int
}

func (f *fakeImageStore) UploadImages(ctx context.Context, userID, listingID uint, files []storage.UploadInput) ([]storage.UploadedImage, error) {
	f.uploaded += len(files)
	out := make([]storage.UploadedImage, len(files))
	return out, nil
}

func (f *fakeImageStore) DeleteImage(ctx context.Context, publicID string) error { return nil }

func (f *fakeImageStore) DeleteImages(ctx context.Context, publicIDs []string) ([]storage.DeleteResult, error) {
	f.deleted = append(f.deleted, publicIDs)
	results := make([]storage.DeleteResult, len(publicIDs))
	for i, id := range publicIDs {
		results[i] = storage.DeleteResult{PublicID: id, Deleted: true}
	}
	return results, nil
}

func newListingTestApp(listings *fakeListingRepo, store *fakeImageStore, userID uint) *fiber.App {
	settings := testSettings()
	repos := &repository.Repositories{
		Listing:  listings,
		EmailLog: &fakeEmailRepo{},
	}
	svc := billing.NewService(nil, settings, repos)
	ctl := NewListingController(repos, svc, store)

	app := fiber.New()
	withUser := func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals(middleware.LocalUserID, userID)
		}
		return c.Next()
	}
	app.Post("/listings", withUser, ctl.HandleCreateListing)
	app.Get("/listings/:id", ctl.HandleGetListing)
	app.Put("/listings/:id", withUser, ctl.HandleUpdateListing)
	app.Delete("/listings/:id", withUser, ctl.HandleDeleteListing)
	return app
}

func vehicleListingPayload() map[string]any {
	return map[string]any{
		"title":            "2019 Toyota Camry with medallion",
		"description":      "Well maintained, TLC ready, one owner.",
		"transaction_type": "sale",
		"category":         "vehicle",
		"item": map[string]any{
			"make":    "Toyota",
			"model":   "Camry",
			"year":    2019,
			"mileage": 42000.0,
		},
		"price":          25000.0,
		"location_city":  "Queens",
		"location_state": "NY",
	}
}

func TestCreateListingActiveWithinFreeQuota(t *testing.T) {
	listings := newFakeListingRepo()
	listings.activeCount = 1
	app := newListingTestApp(listings, &fakeImageStore{}, 1)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/listings", vehicleListingPayload()), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Len(t, listings.listings, 1)
	for _, l := range listings.listings {
		assert.True(t, l.Active)
		assert.Equal(t, models.CategoryVehicle, l.Category)
		assert.NotNil(t, l.VehicleID)
		assert.Nil(t, l.PlateID)
		assert.NotEmpty(t, l.ListingCode)
	}
}

func TestCreateListingInactiveBeyondFreeQuota(t *testing.T) {
	listings := newFakeListingRepo()
	listings.activeCount = billing.FreeListingsLimit
	app := newListingTestApp(listings, &fakeImageStore{}, 1)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/listings", vehicleListingPayload()), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["payment_required"])
	for _, l := range listings.listings {
		assert.False(t, l.Active)
	}
}

func TestCreateListingRejectsUnknownCategory(t *testing.T) {
	listings := newFakeListingRepo()
	app := newListingTestApp(listings, &fakeImageStore{}, 1)

	payload := vehicleListingPayload()
	payload["category"] = "boat"
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/listings", payload), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, listings.listings)
}

func TestCreateListingRequiresAuth(t *testing.T) {
	app := newListingTestApp(newFakeListingRepo(), &fakeImageStore{}, 0)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/listings", vehicleListingPayload()), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateListingRejectsForeignOwner(t *testing.T) {
	listings := newFakeListingRepo()
	listings.nextID = 1
	listings.listings[1] = &models.Listing{ID: 1, UserID: 99, Category: models.CategoryVehicle}
	app := newListingTestApp(listings, &fakeImageStore{}, 1)

	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/listings/1", vehicleListingPayload()), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodDelete, "/listings/1", map[string]any{}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateListingImageDiff(t *testing.T) {
	vehicleID := uint(1)
	listings := newFakeListingRepo()
	listings.nextID = 1
	listings.listings[1] = &models.Listing{
		ID:        1,
		UserID:    1,
		Category:  models.CategoryVehicle,
		VehicleID: &vehicleID,
		Vehicle:   &models.Vehicle{ID: vehicleID, Make: "Toyota", Model: "Camry", Year: 2019},
	}
	listings.images[1] = []models.ListingImage{
		{ListingID: 1, PublicID: "keep-1", SecureURL: "https://cdn/keep-1"},
		{ListingID: 1, PublicID: "drop-1", SecureURL: "https://cdn/drop-1"},
	}
	store := &fakeImageStore{}
	app := newListingTestApp(listings, store, 1)

	payload := vehicleListingPayload()
	payload["images"] = []map[string]any{
		{"cld_public_id": "keep-1", "src": "https://cdn/keep-1"},
		{"cld_public_id": "new-1", "src": "https://cdn/new-1"},
	}

	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/listings/1", payload), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Removed image purged from storage, kept and added images in the DB.
	require.Len(t, store.deleted, 1)
	assert.Equal(t, []string{"drop-1"}, store.deleted[0])

	remaining, err := listings.GetImages(1)
	require.NoError(t, err)
	ids := make([]string, 0, len(remaining))
	for _, img := range remaining {
		ids = append(ids, img.PublicID)
	}
	assert.ElementsMatch(t, []string{"keep-1", "new-1"}, ids)
}

func TestDeleteListingPurgesImagesAndDeactivates(t *testing.T) {
	vehicleID := uint(1)
	listings := newFakeListingRepo()
	listings.nextID = 1
	listings.listings[1] = &models.Listing{
		ID:        1,
		UserID:    1,
		Active:    true,
		Category:  models.CategoryVehicle,
		VehicleID: &vehicleID,
	}
	listings.images[1] = []models.ListingImage{
		{ListingID: 1, PublicID: "img-1"},
		{ListingID: 1, PublicID: "img-2"},
	}
	store := &fakeImageStore{}
	app := newListingTestApp(listings, store, 1)

	req := jsonRequest(t, http.MethodDelete, "/listings/1", map[string]any{})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, store.deleted, 1)
	assert.ElementsMatch(t, []string{"img-1", "img-2"}, store.deleted[0])
	assert.False(t, listings.listings[1].Active)
	assert.Empty(t, listings.images[1])
}
