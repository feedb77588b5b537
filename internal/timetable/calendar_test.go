package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reachmap/reachmap_core/internal/models"
)

func weekdayCalendar(serviceID string, days ...time.Weekday) models.GTFSCalendar {
	cal := models.GTFSCalendar{
		ServiceID: serviceID,
		StartDate: "20240101",
		EndDate:   "20241231",
	}
	for _, d := range days {
		cal.Weekday[d] = true
	}
	return cal
}

func TestActiveServices(t *testing.T) {
	calendars := []models.GTFSCalendar{
		weekdayCalendar("WEEKDAY", time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday),
		weekdayCalendar("WEEKEND", time.Saturday, time.Sunday),
	}

	// 2024-01-08 is a Monday
	active, err := ActiveServices(calendars, nil, "20240108")
	require.NoError(t, err)
	assert.True(t, active["WEEKDAY"])
	assert.False(t, active["WEEKEND"])

	// 2024-01-13 is a Saturday
	active, err = ActiveServices(calendars, nil, "20240113")
	require.NoError(t, err)
	assert.False(t, active["WEEKDAY"])
	assert.True(t, active["WEEKEND"])
}

func TestActiveServicesDateRange(t *testing.T) {
	cal := weekdayCalendar("SUMMER", time.Monday)
	cal.StartDate = "20240601"
	cal.EndDate = "20240831"

	// A Monday before the range starts
	active, err := ActiveServices([]models.GTFSCalendar{cal}, nil, "20240108")
	require.NoError(t, err)
	assert.False(t, active["SUMMER"])

	// A Monday inside the range (2024-06-03)
	active, err = ActiveServices([]models.GTFSCalendar{cal}, nil, "20240603")
	require.NoError(t, err)
	assert.True(t, active["SUMMER"])

	// A Monday after the range ends (2024-09-02)
	active, err = ActiveServices([]models.GTFSCalendar{cal}, nil, "20240902")
	require.NoError(t, err)
	assert.False(t, active["SUMMER"])
}

func TestActiveServicesExceptions(t *testing.T) {
	calendars := []models.GTFSCalendar{
		weekdayCalendar("WEEKDAY", time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday),
	}
	exceptions := []models.GTFSCalendarDate{
		{ServiceID: "WEEKDAY", Date: "20240108", ExceptionType: 2}, // holiday
		{ServiceID: "HOLIDAY", Date: "20240108", ExceptionType: 1},
		{ServiceID: "HOLIDAY", Date: "20240109", ExceptionType: 2}, // other date, ignored on the 8th
	}

	active, err := ActiveServices(calendars, exceptions, "20240108")
	require.NoError(t, err)
	assert.False(t, active["WEEKDAY"], "removed by exception")
	assert.True(t, active["HOLIDAY"], "added by exception")
}

func TestActiveServicesCalendarDatesOnly(t *testing.T) {
	// Feeds with no calendar.txt define service purely through exceptions
	exceptions := []models.GTFSCalendarDate{
		{ServiceID: "SPECIAL", Date: "20240108", ExceptionType: 1},
	}

	active, err := ActiveServices(nil, exceptions, "20240108")
	require.NoError(t, err)
	assert.True(t, active["SPECIAL"])
	assert.Len(t, active, 1)
}

func TestActiveServicesInvalidDate(t *testing.T) {
	_, err := ActiveServices(nil, nil, "not-a-date")
	assert.Error(t, err)
}
