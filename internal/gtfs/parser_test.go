package gtfs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStopsFromReader(t *testing.T) {
	input := "stop_id,stop_name,stop_lat,stop_lon\n" +
		"S1,First & Main,45.5021,-122.6100\n" +
		"S2,No coordinates,,\n" +
		"S3,Bad latitude,abc,-122.6\n" +
		"S4,Second & Oak,45.5100,-122.6200\n"

	stops, err := parseStopsFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stops, 2, "rows missing or mangling coordinates are skipped")

	assert.Equal(t, "S1", stops[0].StopID)
	assert.Equal(t, "First & Main", stops[0].StopName)
	assert.Equal(t, 45.5021, stops[0].Lat)
	assert.Equal(t, -122.6100, stops[0].Lon)
	assert.Equal(t, "S4", stops[1].StopID)
}

func TestParseStopsHandlesBOM(t *testing.T) {
	input := "\ufeffstop_id,stop_name,stop_lat,stop_lon\n" +
		"S1,Main,45.5,-122.6\n"

	stops, err := parseStopsFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "S1", stops[0].StopID)
}

func TestParseRoutesFromReader(t *testing.T) {
	input := "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
		"R1,AG,10,Main Street,3\n" +
		"R2,AG,,Airport Express,0\n" +
		",AG,99,No ID,3\n"

	routes, err := parseRoutesFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.Equal(t, "R1", routes[0].RouteID)
	assert.Equal(t, "10", routes[0].ShortName)
	assert.Equal(t, 3, routes[0].RouteType)
	assert.Equal(t, 0, routes[1].RouteType)
}

func TestParseTripsFromReader(t *testing.T) {
	input := "route_id,service_id,trip_id,trip_headsign,direction_id\n" +
		"R1,WEEKDAY,T1,Downtown,0\n" +
		"R1,WEEKDAY,T2,Uptown,1\n" +
		"R1,WEEKDAY,,Broken,0\n"

	trips, err := parseTripsFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, trips, 2)

	assert.Equal(t, "T1", trips[0].TripID)
	assert.Equal(t, "Downtown", trips[0].Headsign)
	assert.Equal(t, 1, trips[1].Direction)
}

func TestParseStopTimesFromReader(t *testing.T) {
	input := "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"T1,08:00:00,08:00:00,S1,1\n" +
		"T1,,,S2,2\n" +
		"T1,25:01:00,25:02:00,S3,3\n"

	stopTimes, err := parseStopTimesFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stopTimes, 3, "untimed rows are kept; filtering happens downstream")

	assert.Equal(t, "S1", stopTimes[0].StopID)
	assert.Equal(t, 1, stopTimes[0].StopSequence)
	assert.Equal(t, "", stopTimes[1].ArrivalTime)
	assert.Equal(t, "25:01:00", stopTimes[2].ArrivalTime)
}

func TestParseCalendarsFromReader(t *testing.T) {
	input := "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"WEEKDAY,1,1,1,1,1,0,0,20240101,20241231\n" +
		"WEEKEND,0,0,0,0,0,1,1,20240101,20241231\n"

	calendars, err := parseCalendarsFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, calendars, 2)

	weekday := calendars[0]
	assert.Equal(t, "WEEKDAY", weekday.ServiceID)
	assert.True(t, weekday.Weekday[time.Monday])
	assert.True(t, weekday.Weekday[time.Friday])
	assert.False(t, weekday.Weekday[time.Saturday])
	assert.False(t, weekday.Weekday[time.Sunday])
	assert.Equal(t, "20240101", weekday.StartDate)

	weekend := calendars[1]
	assert.False(t, weekend.Weekday[time.Monday])
	assert.True(t, weekend.Weekday[time.Saturday])
	assert.True(t, weekend.Weekday[time.Sunday])
}

func TestParseCalendarDatesFromReader(t *testing.T) {
	input := "service_id,date,exception_type\n" +
		"WEEKDAY,20240101,2\n" +
		"HOLIDAY,20240101,1\n"

	dates, err := parseCalendarDatesFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, dates, 2)

	assert.Equal(t, "WEEKDAY", dates[0].ServiceID)
	assert.Equal(t, 2, dates[0].ExceptionType)
	assert.Equal(t, 1, dates[1].ExceptionType)
}

func TestParseFeedInfoFromReader(t *testing.T) {
	input := "feed_publisher_name,feed_start_date,feed_end_date,feed_version\n" +
		"Metro,20240101,20241231,2024.1\n"

	info, err := parseFeedInfoFromReader(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Metro", info.PublisherName)
	assert.Equal(t, "20240101", info.StartDate)
	assert.Equal(t, "20241231", info.EndDate)
	assert.Equal(t, "2024.1", info.Version)
}

func TestParseFeedInfoEmpty(t *testing.T) {
	_, err := parseFeedInfoFromReader(strings.NewReader("feed_publisher_name\n"))
	assert.Error(t, err)
}
