package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reachmap/reachmap_core/internal/models"
)

// Stops roughly 111m apart per 0.001 degrees of latitude.
func testStops() []models.Stop {
	return []models.Stop{
		{ID: "center", Name: "Center", Lat: 45.5000, Lon: -122.6000},
		{ID: "near", Name: "Near", Lat: 45.5005, Lon: -122.6000},   // ~56m north
		{ID: "mid", Name: "Mid", Lat: 45.5020, Lon: -122.6000},     // ~222m north
		{ID: "far", Name: "Far", Lat: 45.5500, Lon: -122.6000},     // ~5.5km north
	}
}

func TestStopsWithinDistance(t *testing.T) {
	ix := NewIndex(testStops())

	result, err := ix.StopsWithinDistance("center", 300)
	require.NoError(t, err)
	require.Len(t, result, 2)

	// Ordered by distance, the query stop itself excluded
	assert.Equal(t, "near", result[0].StopID)
	assert.Equal(t, "mid", result[1].StopID)
	assert.InDelta(t, 56, result[0].Meters, 10)
	assert.InDelta(t, 222, result[1].Meters, 20)
}

func TestStopsWithinDistanceUnknownStop(t *testing.T) {
	ix := NewIndex(testStops())

	_, err := ix.StopsWithinDistance("missing", 300)
	assert.Error(t, err)
}

func TestStopsWithinDistanceZeroRadius(t *testing.T) {
	ix := NewIndex(testStops())

	result, err := ix.StopsWithinDistance("center", 0)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestStopsNearPoint(t *testing.T) {
	ix := NewIndex(testStops())

	result := ix.StopsNearPoint(45.5000, -122.6000, 100)
	require.Len(t, result, 2, "a point query does not exclude any stop")
	assert.Equal(t, "center", result[0].StopID)
	assert.Equal(t, 0.0, result[0].Meters)
	assert.Equal(t, "near", result[1].StopID)
}

func TestLocation(t *testing.T) {
	ix := NewIndex(testStops())

	lat, lon, err := ix.Location("center")
	require.NoError(t, err)
	assert.Equal(t, 45.5000, lat)
	assert.Equal(t, -122.6000, lon)

	_, _, err = ix.Location("missing")
	assert.Error(t, err)
}

func TestHaversineDistanceKnownValue(t *testing.T) {
	// One degree of latitude is about 111.2km
	d := HaversineDistance(45.0, -122.6, 46.0, -122.6)
	assert.InDelta(t, 111200, d, 1000)
}
