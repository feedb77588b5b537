package timetable

import (
	"fmt"
	"time"

	"github.com/reachmap/reachmap_core/internal/models"
)

const dateLayout = "20060102"

// ActiveServices resolves which service ids run on the given date (YYYYMMDD):
// the calendar.txt weekday/range rules first, then calendar_dates.txt
// exceptions applied on top.
func ActiveServices(calendars []models.GTFSCalendar, exceptions []models.GTFSCalendarDate, date string) (map[string]bool, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid service date %q: %w", date, err)
	}
	weekday := day.Weekday()

	active := make(map[string]bool)
	for _, cal := range calendars {
		if !cal.Weekday[weekday] {
			continue
		}
		if cal.StartDate != "" && date < cal.StartDate {
			continue
		}
		if cal.EndDate != "" && date > cal.EndDate {
			continue
		}
		active[cal.ServiceID] = true
	}

	for _, ex := range exceptions {
		if ex.Date != date {
			continue
		}
		switch ex.ExceptionType {
		case 1:
			active[ex.ServiceID] = true
		case 2:
			delete(active, ex.ServiceID)
		}
	}

	return active, nil
}
