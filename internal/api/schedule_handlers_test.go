package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reachmap/reachmap_core/internal/gtfs"
	"github.com/reachmap/reachmap_core/internal/models"
	"github.com/reachmap/reachmap_core/internal/spatial"
	"github.com/reachmap/reachmap_core/internal/timetable"
)

// testServer builds a Server over a two-stop feed, one of them sitting
// exactly on the (0, 0) equator/prime-meridian intersection.
func testServer(t *testing.T) *Server {
	t.Helper()

	feed := &gtfs.Feed{
		Stops: []models.GTFSStop{
			{StopID: "NULL", StopName: "Null Island Pier", Lat: 0, Lon: 0},
			{StopID: "S1", StopName: "First & Main", Lat: 45.50, Lon: -122.60},
		},
		Calendars: []models.GTFSCalendar{
			{
				ServiceID: "ALL",
				Weekday:   [7]bool{true, true, true, true, true, true, true},
				StartDate: "20240101",
				EndDate:   "20241231",
			},
		},
	}

	ix := timetable.NewIndex("20240108")
	require.NoError(t, ix.BuildFromFeed(feed))

	return &Server{
		Timetable: ix,
		Spatial:   spatial.NewIndex(ix.Stops()),
	}
}

func nearbyApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/v1/stops/nearby", testServer(t).StopsNearby)
	return app
}

func TestStopsNearbyMissingParams(t *testing.T) {
	app := nearbyApp(t)

	for _, target := range []string{
		"/v1/stops/nearby",
		"/v1/stops/nearby?lat=45.5",
		"/v1/stops/nearby?lon=-122.6",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, target)
	}
}

func TestStopsNearbyZeroCoordinates(t *testing.T) {
	app := nearbyApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/stops/nearby?lat=0&lon=0", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode, "(0, 0) is a valid coordinate, not a missing parameter")

	var body NearbyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "NULL", body.Stops[0].ID)
	assert.InDelta(t, 0, body.Stops[0].DistanceMeters, 0.01)
}

func TestStopsNearbyOutOfRange(t *testing.T) {
	app := nearbyApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/stops/nearby?lat=91&lon=0", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
