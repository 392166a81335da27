package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validListing() *Listing {
	return &Listing{
		UserID:          1,
		Title:           "2019 Toyota Camry",
		Description:     "Clean title, TLC ready.",
		TransactionType: TransactionSale,
		Price:           25000,
		LocationCity:    "Queens",
		LocationState:   "NY",
	}
}

func TestListingItemUnionVehicle(t *testing.T) {
	l := validListing()
	l.SetVehicle(&Vehicle{ID: 1, Make: "Toyota", Model: "Camry", Year: 2019})

	assert.NoError(t, l.Validate())
	assert.Equal(t, CategoryVehicle, l.Category)
	assert.NotNil(t, l.VehicleID)
	assert.Nil(t, l.PlateID)
}

func TestListingItemUnionPlate(t *testing.T) {
	l := validListing()
	l.SetPlate(&Plate{ID: 1, PlateNumber: "T123456C"})

	assert.NoError(t, l.Validate())
	assert.Equal(t, CategoryPlate, l.Category)
	assert.NotNil(t, l.PlateID)
	assert.Nil(t, l.VehicleID)
}

func TestListingItemUnionRejectsBothOrNeither(t *testing.T) {
	vehicleID := uint(1)
	plateID := uint(2)

	both := validListing()
	both.Category = CategoryVehicle
	both.VehicleID = &vehicleID
	both.PlateID = &plateID
	assert.ErrorIs(t, both.Validate(), ErrItemMismatch)

	neither := validListing()
	neither.Category = CategoryPlate
	assert.ErrorIs(t, neither.Validate(), ErrItemMismatch)
}

func TestListingItemUnionRejectsMismatchedTag(t *testing.T) {
	plateID := uint(2)
	l := validListing()
	l.Category = CategoryVehicle
	l.PlateID = &plateID
	assert.ErrorIs(t, l.Validate(), ErrItemMismatch)
}

func TestSetVehicleClearsPlate(t *testing.T) {
	l := validListing()
	l.SetPlate(&Plate{ID: 2, PlateNumber: "T1C"})
	l.SetVehicle(&Vehicle{ID: 1, Make: "Toyota", Model: "Camry", Year: 2019})

	assert.Nil(t, l.PlateID)
	assert.Nil(t, l.Plate)
	assert.NotNil(t, l.VehicleID)
}
