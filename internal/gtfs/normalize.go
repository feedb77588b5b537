package gtfs

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/reachmap/reachmap_core/internal/models"
)

// ModeForRouteType maps a GTFS route_type to a transit mode.
// https://developers.google.com/transit/gtfs/reference#routestxt
func ModeForRouteType(routeType int) models.TransitMode {
	switch routeType {
	case 0: // Tram, Streetcar, Light rail
		return models.ModeLightRail
	case 1: // Subway, Metro
		return models.ModeMetro
	case 2: // Rail
		return models.ModeRail
	case 3: // Bus
		return models.ModeBus
	case 4: // Ferry
		return models.ModeFerry
	case 5: // Cable tram
		return models.ModeCableTram
	case 6: // Aerial lift, suspended cable car
		return models.ModeAerialLift
	case 7: // Funicular
		return models.ModeFunicular
	}

	// Default to bus
	return models.ModeBus
}

// ParseMode converts a mode name back into a TransitMode, matching
// case-insensitively. Used for query parameters and env configuration.
func ParseMode(name string) (models.TransitMode, error) {
	upper := models.TransitMode(strings.ToUpper(strings.TrimSpace(name)))
	for _, m := range models.AllModes() {
		if m == upper {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown transit mode: %s", name)
}

// ParseTimeToSeconds converts GTFS time format (HH:MM:SS) to seconds since
// service-day start. Handles times >= 24:00:00 (next day service).
func ParseTimeToSeconds(timeStr string) (int, error) {
	if timeStr == "" {
		return 0, fmt.Errorf("empty time string")
	}

	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time format: %s", timeStr)
	}

	var hours, minutes, seconds int
	fmt.Sscanf(parts[0], "%d", &hours)
	fmt.Sscanf(parts[1], "%d", &minutes)
	fmt.Sscanf(parts[2], "%d", &seconds)

	return hours*3600 + minutes*60 + seconds, nil
}

// FormatSeconds renders a seconds-since-midnight offset as HH:MM:SS.
func FormatSeconds(sec int) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

// FormatDurationSeconds renders an elapsed duration as "3m07s".
func FormatDurationSeconds(sec int) string {
	return fmt.Sprintf("%dm%02ds", sec/60, sec%60)
}

// ValidateAndCleanStops removes stops with invalid coordinates
func ValidateAndCleanStops(stops []models.GTFSStop) []models.GTFSStop {
	cleaned := []models.GTFSStop{}

	for _, stop := range stops {
		if stop.Lat < -90 || stop.Lat > 90 {
			log.Printf("Warning: invalid latitude for stop %s: %f", stop.StopID, stop.Lat)
			continue
		}
		if stop.Lon < -180 || stop.Lon > 180 {
			log.Printf("Warning: invalid longitude for stop %s: %f", stop.StopID, stop.Lon)
			continue
		}
		if stop.Lat == 0 && stop.Lon == 0 {
			log.Printf("Warning: stop %s has null island coordinates, skipping", stop.StopID)
			continue
		}

		cleaned = append(cleaned, stop)
	}

	if len(cleaned) < len(stops) {
		log.Printf("Cleaned stops: removed %d invalid stops", len(stops)-len(cleaned))
	}

	return cleaned
}

// DeduplicateStops removes duplicate stops within a threshold distance.
// Returns deduplicated stops and a mapping from old stop IDs to kept stop IDs.
func DeduplicateStops(stops []models.GTFSStop, thresholdMeters float64) ([]models.GTFSStop, map[string]string) {
	if len(stops) == 0 {
		return stops, make(map[string]string)
	}

	deduplicated := []models.GTFSStop{}
	skipIndices := make(map[int]bool)
	stopMapping := make(map[string]string) // old_id -> kept_id

	for i := 0; i < len(stops); i++ {
		if skipIndices[i] {
			continue
		}

		currentStop := stops[i]
		deduplicated = append(deduplicated, currentStop)
		stopMapping[currentStop.StopID] = currentStop.StopID // map to itself

		for j := i + 1; j < len(stops); j++ {
			if skipIndices[j] {
				continue
			}

			distance := haversineDistance(
				currentStop.Lat, currentStop.Lon,
				stops[j].Lat, stops[j].Lon,
			)

			if distance < thresholdMeters {
				skipIndices[j] = true
				stopMapping[stops[j].StopID] = currentStop.StopID
			}
		}
	}

	if removed := len(stops) - len(deduplicated); removed > 0 {
		log.Printf("Deduplicated %d stops to %d (removed %d duplicates)",
			len(stops), len(deduplicated), removed)
	}

	return deduplicated, stopMapping
}

// haversineDistance calculates the distance between two points in meters
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
