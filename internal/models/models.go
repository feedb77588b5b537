package models

import "time"

// TransitMode represents the type of transit service, following the GTFS
// route_type vocabulary.
type TransitMode string

const (
	ModeLightRail  TransitMode = "LIGHT_RAIL"
	ModeMetro      TransitMode = "METRO"
	ModeRail       TransitMode = "RAIL"
	ModeBus        TransitMode = "BUS"
	ModeFerry      TransitMode = "FERRY"
	ModeCableTram  TransitMode = "CABLE_TRAM"
	ModeAerialLift TransitMode = "AERIAL_LIFT"
	ModeFunicular  TransitMode = "FUNICULAR"
)

// AllModes returns every transit mode, in a fixed order.
func AllModes() []TransitMode {
	return []TransitMode{
		ModeLightRail, ModeMetro, ModeRail, ModeBus,
		ModeFerry, ModeCableTram, ModeAerialLift, ModeFunicular,
	}
}

// ModeSet is a set of transit modes keyed by mode name.
type ModeSet map[TransitMode]bool

// NewModeSet builds a set from the given modes.
func NewModeSet(modes ...TransitMode) ModeSet {
	s := make(ModeSet, len(modes))
	for _, m := range modes {
		s[m] = true
	}
	return s
}

// Stop represents a physical transit stop location
type Stop struct {
	ID        string
	Name      string
	Lat       float64
	Lon       float64
	CreatedAt time.Time
}

// Route represents a transit route (line)
type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Mode      TransitMode
	CreatedAt time.Time
}

// Label returns the name used for a route in itineraries:
// short name if present, else long name, else the route id.
func (r Route) Label() string {
	if r.ShortName != "" {
		return r.ShortName
	}
	if r.LongName != "" {
		return r.LongName
	}
	return r.ID
}

// GTFS data structures for import

// GTFSAgency represents an agency from agency.txt
type GTFSAgency struct {
	AgencyID   string
	AgencyName string
	AgencyURL  string
	Timezone   string
}

// GTFSStop represents a stop from stops.txt
type GTFSStop struct {
	StopID   string
	StopName string
	Lat      float64
	Lon      float64
}

// GTFSRoute represents a route from routes.txt
type GTFSRoute struct {
	RouteID    string
	AgencyID   string
	ShortName  string
	LongName   string
	RouteType  int
	RouteColor string
}

// GTFSTrip represents a trip from trips.txt
type GTFSTrip struct {
	RouteID   string
	ServiceID string
	TripID    string
	Headsign  string
	Direction int
}

// GTFSStopTime represents a stop time from stop_times.txt.
// Arrival and departure stay as raw GTFS HH:MM:SS strings until normalized;
// either may be empty for untimed stops.
type GTFSStopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
}

// GTFSCalendar represents a service pattern from calendar.txt.
// Weekday holds the monday..sunday flags indexed by time.Weekday.
type GTFSCalendar struct {
	ServiceID string
	Weekday   [7]bool
	StartDate string // YYYYMMDD
	EndDate   string // YYYYMMDD
}

// GTFSCalendarDate represents a service exception from calendar_dates.txt
type GTFSCalendarDate struct {
	ServiceID     string
	Date          string // YYYYMMDD
	ExceptionType int    // 1 = added, 2 = removed
}

// GTFSFeedInfo represents feed_info.txt, used to decide whether a cached
// feed still covers the requested service date.
type GTFSFeedInfo struct {
	PublisherName string
	StartDate     string // YYYYMMDD
	EndDate       string // YYYYMMDD
	Version       string
}

// ImportLog represents a GTFS import operation log
type ImportLog struct {
	ID             int64
	AgencyID       string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Status         string
	StopsCount     int
	RoutesCount    int
	TripsCount     int
	StopTimesCount int
	ErrorMsg       string
}
