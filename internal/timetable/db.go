package timetable

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reachmap/reachmap_core/internal/gtfs"
	"github.com/reachmap/reachmap_core/internal/models"
)

// LoadFromDB builds the index from the imported GTFS tables in PostgreSQL.
// The rows are read back into feed form and indexed through the same
// BuildFromFeed path the CLI uses.
func (ix *Index) LoadFromDB(ctx context.Context, pool *pgxpool.Pool) error {
	startTime := time.Now()
	log.Println("Loading timetable from database...")

	feed := &gtfs.Feed{}

	stopRows, err := pool.Query(ctx, `SELECT id, name, lat, lon FROM stop`)
	if err != nil {
		return fmt.Errorf("failed to load stops: %w", err)
	}
	defer stopRows.Close()
	for stopRows.Next() {
		var s models.GTFSStop
		if err := stopRows.Scan(&s.StopID, &s.StopName, &s.Lat, &s.Lon); err != nil {
			log.Printf("Warning: failed to scan stop: %v", err)
			continue
		}
		feed.Stops = append(feed.Stops, s)
	}
	log.Printf("  Loaded %d stops", len(feed.Stops))

	routeRows, err := pool.Query(ctx, `
		SELECT id, agency_id, short_name, long_name, route_type FROM route
	`)
	if err != nil {
		return fmt.Errorf("failed to load routes: %w", err)
	}
	defer routeRows.Close()
	for routeRows.Next() {
		var r models.GTFSRoute
		if err := routeRows.Scan(&r.RouteID, &r.AgencyID, &r.ShortName, &r.LongName, &r.RouteType); err != nil {
			log.Printf("Warning: failed to scan route: %v", err)
			continue
		}
		feed.Routes = append(feed.Routes, r)
	}
	log.Printf("  Loaded %d routes", len(feed.Routes))

	tripRows, err := pool.Query(ctx, `
		SELECT trip_id, route_id, service_id, headsign, direction FROM trip
	`)
	if err != nil {
		return fmt.Errorf("failed to load trips: %w", err)
	}
	defer tripRows.Close()
	for tripRows.Next() {
		var t models.GTFSTrip
		if err := tripRows.Scan(&t.TripID, &t.RouteID, &t.ServiceID, &t.Headsign, &t.Direction); err != nil {
			log.Printf("Warning: failed to scan trip: %v", err)
			continue
		}
		feed.Trips = append(feed.Trips, t)
	}
	log.Printf("  Loaded %d trips", len(feed.Trips))

	stRows, err := pool.Query(ctx, `
		SELECT trip_id, stop_id, stop_sequence, arrival_time, departure_time
		FROM stop_time
	`)
	if err != nil {
		return fmt.Errorf("failed to load stop_times: %w", err)
	}
	defer stRows.Close()
	for stRows.Next() {
		var st models.GTFSStopTime
		if err := stRows.Scan(&st.TripID, &st.StopID, &st.StopSequence, &st.ArrivalTime, &st.DepartureTime); err != nil {
			log.Printf("Warning: failed to scan stop_time: %v", err)
			continue
		}
		feed.StopTimes = append(feed.StopTimes, st)
	}
	log.Printf("  Loaded %d stop_times", len(feed.StopTimes))

	calRows, err := pool.Query(ctx, `
		SELECT service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
		       to_char(start_date, 'YYYYMMDD'), to_char(end_date, 'YYYYMMDD')
		FROM calendar
	`)
	if err != nil {
		return fmt.Errorf("failed to load calendar: %w", err)
	}
	defer calRows.Close()
	for calRows.Next() {
		var cal models.GTFSCalendar
		// Weekday is indexed by time.Weekday (Sunday = 0)
		if err := calRows.Scan(&cal.ServiceID,
			&cal.Weekday[time.Monday], &cal.Weekday[time.Tuesday], &cal.Weekday[time.Wednesday],
			&cal.Weekday[time.Thursday], &cal.Weekday[time.Friday], &cal.Weekday[time.Saturday],
			&cal.Weekday[time.Sunday], &cal.StartDate, &cal.EndDate); err != nil {
			log.Printf("Warning: failed to scan calendar: %v", err)
			continue
		}
		feed.Calendars = append(feed.Calendars, cal)
	}

	cdRows, err := pool.Query(ctx, `
		SELECT service_id, to_char(date, 'YYYYMMDD'), exception_type FROM calendar_date
	`)
	if err != nil {
		return fmt.Errorf("failed to load calendar_dates: %w", err)
	}
	defer cdRows.Close()
	for cdRows.Next() {
		var cd models.GTFSCalendarDate
		if err := cdRows.Scan(&cd.ServiceID, &cd.Date, &cd.ExceptionType); err != nil {
			log.Printf("Warning: failed to scan calendar_date: %v", err)
			continue
		}
		feed.CalendarDates = append(feed.CalendarDates, cd)
	}

	if err := ix.BuildFromFeed(feed); err != nil {
		return err
	}

	log.Printf("Timetable loaded from database in %v", time.Since(startTime).Round(time.Millisecond))
	return nil
}
