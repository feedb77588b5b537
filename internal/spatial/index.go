package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/reachmap/reachmap_core/internal/models"
)

const metersPerDegreeLat = 111320.0

// StopDistance is a stop within range of a query stop and the straight-line
// distance to it in meters.
type StopDistance struct {
	StopID string
	Meters float64
}

// Index answers walk-radius queries over stop locations using an R-tree.
// Stops are points, so each entry's min and max corners coincide.
type Index struct {
	tree  rtree.RTree
	stops map[string]models.Stop
}

// NewIndex builds the spatial index from the given stops.
func NewIndex(stops []models.Stop) *Index {
	ix := &Index{stops: make(map[string]models.Stop, len(stops))}
	for _, stop := range stops {
		ix.stops[stop.ID] = stop
		point := [2]float64{stop.Lat, stop.Lon}
		ix.tree.Insert(point, point, stop.ID)
	}
	return ix
}

// Location returns the coordinates of a stop.
func (ix *Index) Location(stopID string) (lat, lon float64, err error) {
	stop, ok := ix.stops[stopID]
	if !ok {
		return 0, 0, fmt.Errorf("unknown stop id: %s", stopID)
	}
	return stop.Lat, stop.Lon, nil
}

// StopsWithinDistance returns every other stop within the given straight-line
// distance of a stop, ordered by distance then stop id. The R-tree narrows
// the candidates to a bounding box; exact haversine filtering happens after.
func (ix *Index) StopsWithinDistance(stopID string, meters float64) ([]StopDistance, error) {
	origin, ok := ix.stops[stopID]
	if !ok {
		return nil, fmt.Errorf("unknown stop id: %s", stopID)
	}
	return ix.searchAround(origin.Lat, origin.Lon, meters, stopID), nil
}

// StopsNearPoint returns every stop within the given distance of a
// coordinate, ordered by distance then stop id.
func (ix *Index) StopsNearPoint(lat, lon, meters float64) []StopDistance {
	return ix.searchAround(lat, lon, meters, "")
}

func (ix *Index) searchAround(lat, lon, meters float64, exclude string) []StopDistance {
	if meters <= 0 {
		return nil
	}

	dLat := meters / metersPerDegreeLat
	// Longitude degrees shrink with latitude; guard the cos against the poles
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := meters / (metersPerDegreeLat * cosLat)

	var result []StopDistance
	ix.tree.Search(
		[2]float64{lat - dLat, lon - dLon},
		[2]float64{lat + dLat, lon + dLon},
		func(min, max [2]float64, data interface{}) bool {
			id, ok := data.(string)
			if !ok || id == exclude {
				return true
			}
			candidate := ix.stops[id]
			d := HaversineDistance(lat, lon, candidate.Lat, candidate.Lon)
			if d <= meters {
				result = append(result, StopDistance{StopID: id, Meters: d})
			}
			return true
		},
	)

	sort.Slice(result, func(i, j int) bool {
		if result[i].Meters != result[j].Meters {
			return result[i].Meters < result[j].Meters
		}
		return result[i].StopID < result[j].StopID
	})

	return result
}

// HaversineDistance calculates the distance between two coordinates in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
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
