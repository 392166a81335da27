package opendata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSocrataTimestamp(t *testing.T) {
	withFraction, err := parseSocrataTimestamp("2024-11-04T00:00:00.000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC), withFraction)

	withoutFraction, err := parseSocrataTimestamp("2024-11-04T15:30:00")
	require.NoError(t, err)
	assert.Equal(t, 15, withoutFraction.Hour())

	_, err = parseSocrataTimestamp("11/04/2024")
	assert.Error(t, err)
}

func TestParseEarningRow(t *testing.T) {
	earning, err := parseEarningRow(earningRow{
		PickupDate:     "2024-11-04T00:00:00.000",
		PickupHour:     "15",
		TotalDriverPay: "12345.67",
		TripCount:      "420",
	})
	require.NoError(t, err)
	assert.Equal(t, 15, earning.PickupHour)
	assert.Equal(t, 12345.67, earning.TotalDriverPay)
	assert.Equal(t, 420, earning.TripCount)
}

func TestParseEarningRowBadValues(t *testing.T) {
	_, err := parseEarningRow(earningRow{PickupDate: "bad", PickupHour: "15", TotalDriverPay: "1", TripCount: "1"})
	assert.Error(t, err)

	_, err = parseEarningRow(earningRow{PickupDate: "2024-11-04T00:00:00", PickupHour: "x", TotalDriverPay: "1", TripCount: "1"})
	assert.Error(t, err)
}
