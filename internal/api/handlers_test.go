package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reachmap/reachmap_core/internal/models"
)

func TestStats(t *testing.T) {
	app := fiber.New()
	app.Get("/stats", testServer(t).Stats)

	resp, err := app.Test(httptest.NewRequest("GET", "/stats", nil), 10000)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "20240108", body["service_date"])
	assert.EqualValues(t, 2, body["stop_count"])
	// Present whether Redis is reachable or not
	assert.Contains(t, body, "cache")
}

func TestParseModesParam(t *testing.T) {
	set, err := parseModesParam("")
	require.NoError(t, err)
	assert.Nil(t, set, "empty parameter means all modes")

	set, err = parseModesParam("BUS,LIGHT_RAIL")
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.True(t, set[models.ModeBus])
	assert.True(t, set[models.ModeLightRail])

	set, err = parseModesParam(" rail , ferry ")
	require.NoError(t, err)
	assert.True(t, set[models.ModeRail])
	assert.True(t, set[models.ModeFerry])

	_, err = parseModesParam("BUS,WARP_DRIVE")
	assert.Error(t, err)
}

func TestModeSetString(t *testing.T) {
	assert.Equal(t, "all", modeSetString(nil))
	assert.Equal(t, "BUS", modeSetString(models.NewModeSet(models.ModeBus)))
	// Deterministic regardless of map iteration order
	assert.Equal(t, "BUS,LIGHT_RAIL",
		modeSetString(models.NewModeSet(models.ModeLightRail, models.ModeBus)))
}
