package api

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/reachmap/reachmap_core/internal/gtfs"
)

// DepartureInfo represents a single upcoming departure at a stop
type DepartureInfo struct {
	RouteID       string `json:"route_id"`
	RouteName     string `json:"route_name"`
	TripID        string `json:"trip_id"`
	Mode          string `json:"mode"`
	DepartureTime string `json:"departure_time"`
	DepartureSecs int    `json:"departure_seconds"`
	ArrivalSecs   int    `json:"arrival_seconds"`
}

// DeparturesResponse is the response for the departures endpoint
type DeparturesResponse struct {
	Stop       StopBasic       `json:"stop"`
	Date       string          `json:"date"`
	Departures []DepartureInfo `json:"departures"`
	Total      int             `json:"total"`
}

// StopBasic represents minimal stop info
type StopBasic struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	Modes []string `json:"modes,omitempty"`
}

// NearbyStop is one stop in a nearby search result
type NearbyStop struct {
	StopBasic
	DistanceMeters float64 `json:"distance_meters"`
}

// NearbyResponse is the response for the nearby stops endpoint
type NearbyResponse struct {
	Lat    float64      `json:"lat"`
	Lon    float64      `json:"lon"`
	Radius float64      `json:"radius_meters"`
	Stops  []NearbyStop `json:"stops"`
	Total  int          `json:"total"`
}

// StopDepartures handles GET /v1/stops/:id/departures
func (s *Server) StopDepartures(c *fiber.Ctx) error {
	stopID := c.Params("id")
	stop, ok := s.Timetable.Stop(stopID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "stop not found: " + stopID})
	}

	from, err := gtfs.ParseTimeToSeconds(c.Query("from", "00:00:00"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid from time, want HH:MM:SS"})
	}
	until, err := gtfs.ParseTimeToSeconds(c.Query("until", "48:00:00"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid until time, want HH:MM:SS"})
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	departures, err := s.Timetable.StopDepartures(stopID, from, until)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if len(departures) > limit {
		departures = departures[:limit]
	}

	response := DeparturesResponse{
		Stop:       s.stopBasic(stopID, stop.Name, stop.Lat, stop.Lon),
		Date:       s.Timetable.ServiceDate(),
		Departures: make([]DepartureInfo, 0, len(departures)),
	}
	for _, d := range departures {
		mode, err := s.Timetable.TripMode(d.TripID)
		if err != nil {
			continue
		}
		response.Departures = append(response.Departures, DepartureInfo{
			RouteID:       d.RouteID,
			RouteName:     d.RouteLabel,
			TripID:        d.TripID,
			Mode:          string(mode),
			DepartureTime: gtfs.FormatSeconds(d.Departure),
			DepartureSecs: d.Departure,
			ArrivalSecs:   d.Arrival,
		})
	}
	response.Total = len(response.Departures)

	return c.JSON(response)
}

// StopsNearby handles GET /v1/stops/nearby
func (s *Server) StopsNearby(c *fiber.Ctx) error {
	if c.Query("lat") == "" || c.Query("lon") == "" {
		return c.Status(400).JSON(fiber.Map{"error": "missing required parameters: lat, lon"})
	}
	lat := c.QueryFloat("lat")
	lon := c.QueryFloat("lon")
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return c.Status(400).JSON(fiber.Map{"error": "lat/lon out of range"})
	}

	radius := c.QueryFloat("radius", 500)
	if radius <= 0 || radius > 10000 {
		return c.Status(400).JSON(fiber.Map{"error": "radius must be between 0 and 10000 meters"})
	}

	nearby := s.Spatial.StopsNearPoint(lat, lon, radius)

	response := NearbyResponse{
		Lat:    lat,
		Lon:    lon,
		Radius: radius,
		Stops:  make([]NearbyStop, 0, len(nearby)),
	}
	for _, n := range nearby {
		stop, ok := s.Timetable.Stop(n.StopID)
		if !ok {
			continue
		}
		response.Stops = append(response.Stops, NearbyStop{
			StopBasic:      s.stopBasic(n.StopID, stop.Name, stop.Lat, stop.Lon),
			DistanceMeters: n.Meters,
		})
	}
	response.Total = len(response.Stops)

	return c.JSON(response)
}

func (s *Server) stopBasic(id, name string, lat, lon float64) StopBasic {
	basic := StopBasic{ID: id, Name: name, Lat: lat, Lon: lon}
	for mode := range s.Timetable.StopModes(id) {
		basic.Modes = append(basic.Modes, string(mode))
	}
	sort.Strings(basic.Modes)
	return basic
}
