package gtfs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reachmap/reachmap_core/internal/models"
)

func TestModeForRouteType(t *testing.T) {
	tests := []struct {
		name      string
		routeType int
		expected  models.TransitMode
	}{
		{
			name:      "Light rail",
			routeType: 0,
			expected:  models.ModeLightRail,
		},
		{
			name:      "Metro",
			routeType: 1,
			expected:  models.ModeMetro,
		},
		{
			name:      "Rail",
			routeType: 2,
			expected:  models.ModeRail,
		},
		{
			name:      "Bus",
			routeType: 3,
			expected:  models.ModeBus,
		},
		{
			name:      "Ferry",
			routeType: 4,
			expected:  models.ModeFerry,
		},
		{
			name:      "Funicular",
			routeType: 7,
			expected:  models.ModeFunicular,
		},
		{
			name:      "Unknown type defaults to bus",
			routeType: 999,
			expected:  models.ModeBus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ModeForRouteType(tt.routeType)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.TransitMode
		hasError bool
	}{
		{
			name:     "Exact name",
			input:    "LIGHT_RAIL",
			expected: models.ModeLightRail,
		},
		{
			name:     "Case insensitive",
			input:    "bus",
			expected: models.ModeBus,
		},
		{
			name:     "Surrounding whitespace",
			input:    " ferry ",
			expected: models.ModeFerry,
		},
		{
			name:     "Unknown mode",
			input:    "TELEPORT",
			hasError: true,
		},
		{
			name:     "Empty string",
			input:    "",
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseMode(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{
			name:     "Zero distance",
			lat1:     45.5231,
			lon1:     -122.6765,
			lat2:     45.5231,
			lon2:     -122.6765,
			expected: 0,
			delta:    1,
		},
		{
			name:     "Approximately 1km",
			lat1:     45.5231,
			lon1:     -122.6765,
			lat2:     45.5321,
			lon2:     -122.6765,
			expected: 1000,
			delta:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := haversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, result, tt.delta)
		})
	}
}

func TestParseTimeToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		timeStr  string
		expected int
		hasError bool
	}{
		{
			name:     "Valid time",
			timeStr:  "12:30:00",
			expected: 12*3600 + 30*60,
			hasError: false,
		},
		{
			name:     "Midnight",
			timeStr:  "00:00:00",
			expected: 0,
			hasError: false,
		},
		{
			name:     "Next day service",
			timeStr:  "25:30:00",
			expected: 25*3600 + 30*60,
			hasError: false,
		},
		{
			name:     "Invalid format",
			timeStr:  "12:30",
			expected: 0,
			hasError: true,
		},
		{
			name:     "Empty string",
			timeStr:  "",
			expected: 0,
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimeToSeconds(tt.timeStr)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatSeconds(0))
	assert.Equal(t, "09:05:07", FormatSeconds(9*3600+5*60+7))
	assert.Equal(t, "25:30:00", FormatSeconds(25*3600+30*60))
}

func TestFormatDurationSeconds(t *testing.T) {
	assert.Equal(t, "0m00s", FormatDurationSeconds(0))
	assert.Equal(t, "3m07s", FormatDurationSeconds(187))
	assert.Equal(t, "90m00s", FormatDurationSeconds(5400))
}

func TestValidateAndCleanStops(t *testing.T) {
	tests := []struct {
		name     string
		stops    []models.GTFSStop
		expected int
	}{
		{
			name: "All valid stops",
			stops: []models.GTFSStop{
				{StopID: "1", Lat: 45.5, Lon: -122.6},
				{StopID: "2", Lat: 45.6, Lon: -122.7},
			},
			expected: 2,
		},
		{
			name: "Filter invalid latitude",
			stops: []models.GTFSStop{
				{StopID: "1", Lat: 45.5, Lon: -122.6},
				{StopID: "2", Lat: 95.0, Lon: -122.7},
			},
			expected: 1,
		},
		{
			name: "Filter null island",
			stops: []models.GTFSStop{
				{StopID: "1", Lat: 45.5, Lon: -122.6},
				{StopID: "2", Lat: 0.0, Lon: 0.0},
			},
			expected: 1,
		},
		{
			name: "Filter invalid longitude",
			stops: []models.GTFSStop{
				{StopID: "1", Lat: 45.5, Lon: -122.6},
				{StopID: "2", Lat: 45.6, Lon: 200.0},
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndCleanStops(tt.stops)
			assert.Equal(t, tt.expected, len(result))
		})
	}
}

func TestDeduplicateStops(t *testing.T) {
	stops := []models.GTFSStop{
		{StopID: "A", StopName: "Main St", Lat: 45.5000, Lon: -122.6000},
		{StopID: "B", StopName: "Main St (dup)", Lat: 45.50001, Lon: -122.60001},
		{StopID: "C", StopName: "Far away", Lat: 45.6000, Lon: -122.7000},
	}

	deduped, mapping := DeduplicateStops(stops, 30.0)

	assert.Len(t, deduped, 2)
	assert.Equal(t, "A", deduped[0].StopID)
	assert.Equal(t, "C", deduped[1].StopID)

	assert.Equal(t, "A", mapping["A"])
	assert.Equal(t, "A", mapping["B"])
	assert.Equal(t, "C", mapping["C"])
}

func TestDeduplicateStopsEmpty(t *testing.T) {
	deduped, mapping := DeduplicateStops(nil, 30.0)
	assert.Empty(t, deduped)
	assert.Empty(t, mapping)
}
