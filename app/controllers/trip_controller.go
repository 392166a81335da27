package controllers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tlcshift/ShiftMarket/internal/pkg/opendata"
)

// TripController serves NYC Open Data trip aggregates for the market
// analytics views.
type TripController struct {
	client *opendata.Client
}

func NewTripController(client *opendata.Client) *TripController {
	return &TripController{client: client}
}

// HandleDensity returns trip counts per pickup zone for a date range and an
// hour-of-day window.
func (ctl *TripController) HandleDensity(c *fiber.Ctx) error {
	startDate, err := parseDateTime(c.Query("startDate"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid or missing startDate")
	}
	endDate, err := parseDateTime(c.Query("endDate"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid or missing endDate")
	}

	startHour := c.QueryInt("startTime", startDate.Hour())
	endHour := c.QueryInt("endTime", endDate.Hour())
	if startHour < 0 || startHour > 23 || endHour < 0 || endHour > 23 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "startTime and endTime must be hours 0-23")
	}

	from := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), startHour, 0, 0, 0, time.UTC)
	to := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), endHour, 0, 0, 0, time.UTC)

	density, err := ctl.client.DensityBetween(c.Context(), from, to)
	if err != nil {
		log.Printf("trips: density query failed: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "upstream_error", "Trip data provider request failed")
	}
	return c.JSON(density)
}

// HandleEarnings returns driver pay aggregated by pickup date and hour.
func (ctl *TripController) HandleEarnings(c *fiber.Ctx) error {
	startDate, err := parseDateTime(c.Query("startDate"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid or missing startDate")
	}
	endDate, err := parseDateTime(c.Query("endDate"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid or missing endDate")
	}
	if !endDate.After(startDate) {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "endDate must be after startDate")
	}

	earnings, err := ctl.client.EarningsBetween(c.Context(), startDate, endDate)
	if err != nil {
		log.Printf("trips: earnings query failed: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "upstream_error", "Trip data provider request failed")
	}
	return c.JSON(earnings)
}
