package opendata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tlcshift/ShiftMarket/internal/pkg/cache"
)

// High Volume FHV trip records dataset.
const datasetURL = "https://data.cityofnewyork.us/resource/u253-aew4.json"

const (
	requestTimeout = 30 * time.Second
	cacheTTL       = 15 * time.Minute
)

// TripDensity is the trip count for one TLC pickup zone.
type TripDensity struct {
	LocationID int `json:"location_id"`
	Density    int `json:"density"`
}

// TripEarning aggregates driver pay for one pickup date and hour.
type TripEarning struct {
	PickupDate     time.Time `json:"pickup_date"`
	PickupHour     int       `json:"pickup_hour"`
	TotalDriverPay float64   `json:"total_driver_pay"`
	TripCount      int       `json:"trip_count"`
}

// Client queries the NYC Open Data SoQL API. Responses for identical query
// windows are cached in redis so repeated dashboard loads skip the upstream
// round trip.
type Client struct {
	httpClient *http.Client
	appToken   string
}

func NewClient(appToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		appToken:   appToken,
	}
}

type densityRow struct {
	PULocationID    string `json:"pulocationid"`
	CountPULocation string `json:"count_pulocationid"`
}

type earningRow struct {
	PickupDate     string `json:"pickup_date"`
	PickupHour     string `json:"pickup_hour"`
	TotalDriverPay string `json:"total_driver_pay"`
	TripCount      string `json:"trip_count"`
}

// DensityBetween returns trip counts per pickup zone for the date range,
// restricted to the hour-of-day window spanned by from and to.
func (c *Client) DensityBetween(ctx context.Context, from, to time.Time) ([]TripDensity, error) {
	cacheKey := fmt.Sprintf("opendata:density:%s:%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		var out []TripDensity
		if json.Unmarshal([]byte(cached), &out) == nil {
			return out, nil
		}
	}

	where := fmt.Sprintf(
		"date_trunc_ymd(request_datetime) between '%s' and '%s' and date_extract_hh(request_datetime) between %d and %d",
		from.Format("2006-01-02"), to.Format("2006-01-02"), from.Hour(), to.Hour(),
	)
	query := url.Values{}
	query.Set("$select", "count(pulocationid), pulocationid")
	query.Set("$where", where)
	query.Set("$group", "pulocationid")

	var rows []densityRow
	if err := c.get(ctx, query, &rows); err != nil {
		return nil, err
	}

	out := make([]TripDensity, 0, len(rows))
	for _, row := range rows {
		locationID, err := strconv.Atoi(row.PULocationID)
		if err != nil {
			continue
		}
		density, err := strconv.Atoi(row.CountPULocation)
		if err != nil {
			continue
		}
		out = append(out, TripDensity{LocationID: locationID, Density: density})
	}

	if encoded, err := json.Marshal(out); err == nil {
		_ = cache.Set(cacheKey, string(encoded), cacheTTL)
	}
	return out, nil
}

// EarningsBetween returns driver pay aggregated by pickup date and hour.
func (c *Client) EarningsBetween(ctx context.Context, from, to time.Time) ([]TripEarning, error) {
	cacheKey := fmt.Sprintf("opendata:earnings:%s:%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		var out []TripEarning
		if json.Unmarshal([]byte(cached), &out) == nil {
			return out, nil
		}
	}

	soql := fmt.Sprintf(
		"SELECT date_trunc_ymd(pickup_datetime) AS pickup_date, date_extract_hh(pickup_datetime) AS pickup_hour, SUM(driver_pay) AS total_driver_pay, COUNT(*) AS trip_count WHERE pickup_datetime >= '%s' AND pickup_datetime < '%s' GROUP BY pickup_date, pickup_hour",
		from.Format("2006-01-02T15:04:05"), to.Format("2006-01-02T15:04:05"),
	)
	query := url.Values{}
	query.Set("$query", soql)

	var rows []earningRow
	if err := c.get(ctx, query, &rows); err != nil {
		return nil, err
	}

	out := make([]TripEarning, 0, len(rows))
	for _, row := range rows {
		earning, err := parseEarningRow(row)
		if err != nil {
			continue
		}
		out = append(out, earning)
	}

	if encoded, err := json.Marshal(out); err == nil {
		_ = cache.Set(cacheKey, string(encoded), cacheTTL)
	}
	return out, nil
}

func parseEarningRow(row earningRow) (TripEarning, error) {
	pickupDate, err := parseSocrataTimestamp(row.PickupDate)
	if err != nil {
		return TripEarning{}, err
	}
	hour, err := strconv.Atoi(row.PickupHour)
	if err != nil {
		return TripEarning{}, err
	}
	pay, err := strconv.ParseFloat(row.TotalDriverPay, 64)
	if err != nil {
		return TripEarning{}, err
	}
	count, err := strconv.Atoi(row.TripCount)
	if err != nil {
		return TripEarning{}, err
	}
	return TripEarning{
		PickupDate:     pickupDate,
		PickupHour:     hour,
		TotalDriverPay: pay,
		TripCount:      count,
	}, nil
}

// Socrata returns floating timestamps with or without fractional seconds.
func parseSocrataTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05.000", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func (c *Client) get(ctx context.Context, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, datasetURL+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open data request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open data request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
