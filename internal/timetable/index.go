package timetable

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/reachmap/reachmap_core/internal/gtfs"
	"github.com/reachmap/reachmap_core/internal/models"
)

// Departure is one scheduled departure from a stop: the trip leaving, its
// position on that trip, and the offsets (seconds since service-day start).
type Departure struct {
	TripID       string
	StopSequence int
	RouteID      string
	RouteLabel   string
	Departure    int
	Arrival      int
}

// TripStop is one stop-visit on a trip, used to fan a boarding out to every
// downstream stop.
type TripStop struct {
	StopID   string
	Arrival  int
	Sequence int
}

// Index holds the entire schedule for one service date in memory for fast
// timetable lookups. Rows missing an arrival or departure time are dropped
// at build time, so every Departure and TripStop carries usable offsets.
type Index struct {
	mu          sync.RWMutex
	serviceDate string // YYYYMMDD

	stops          map[string]models.Stop
	stopDepartures map[string][]Departure // stopID -> departures, ordered
	tripStops      map[string][]TripStop  // tripID -> visits, by sequence
	tripMode       map[string]models.TransitMode
	stopModes      map[string]models.ModeSet
	loaded         bool
}

// NewIndex returns an empty index for the given service date.
func NewIndex(serviceDate string) *Index {
	return &Index{
		serviceDate:    serviceDate,
		stops:          make(map[string]models.Stop),
		stopDepartures: make(map[string][]Departure),
		tripStops:      make(map[string][]TripStop),
		tripMode:       make(map[string]models.TransitMode),
		stopModes:      make(map[string]models.ModeSet),
	}
}

// ServiceDate returns the date the index was built for.
func (ix *Index) ServiceDate() string {
	return ix.serviceDate
}

// IsLoaded returns true if the index has been built.
func (ix *Index) IsLoaded() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.loaded
}

// BuildFromFeed indexes a parsed GTFS feed, keeping only trips whose service
// runs on the index's date.
func (ix *Index) BuildFromFeed(feed *gtfs.Feed) error {
	startTime := time.Now()
	log.Printf("Building timetable index for %s...", ix.serviceDate)

	activeServices, err := ActiveServices(feed.Calendars, feed.CalendarDates, ix.serviceDate)
	if err != nil {
		return fmt.Errorf("failed to resolve active services: %w", err)
	}

	stops := make(map[string]models.Stop, len(feed.Stops))
	for _, s := range feed.Stops {
		stops[s.StopID] = models.Stop{
			ID:   s.StopID,
			Name: s.StopName,
			Lat:  s.Lat,
			Lon:  s.Lon,
		}
	}

	routes := make(map[string]models.Route, len(feed.Routes))
	for _, r := range feed.Routes {
		routes[r.RouteID] = models.Route{
			ID:        r.RouteID,
			AgencyID:  r.AgencyID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Mode:      gtfs.ModeForRouteType(r.RouteType),
		}
	}

	type tripInfo struct {
		routeID  string
		headsign string
	}
	trips := make(map[string]tripInfo)
	tripMode := make(map[string]models.TransitMode)
	for _, t := range feed.Trips {
		if !activeServices[t.ServiceID] {
			continue
		}
		route, ok := routes[t.RouteID]
		if !ok {
			log.Printf("Warning: trip %s references unknown route %s, skipping", t.TripID, t.RouteID)
			continue
		}
		trips[t.TripID] = tripInfo{routeID: t.RouteID, headsign: t.Headsign}
		tripMode[t.TripID] = route.Mode
	}

	stopDepartures := make(map[string][]Departure)
	tripStops := make(map[string][]TripStop)
	stopModes := make(map[string]models.ModeSet)
	skippedUntimed := 0

	for _, st := range feed.StopTimes {
		info, ok := trips[st.TripID]
		if !ok {
			continue // trip not active on this date
		}
		if _, ok := stops[st.StopID]; !ok {
			log.Printf("Warning: stop_time references unknown stop %s, skipping", st.StopID)
			continue
		}

		// Untimed rows are filtered out here rather than treated as errors
		if st.ArrivalTime == "" || st.DepartureTime == "" {
			skippedUntimed++
			continue
		}
		arrival, err := gtfs.ParseTimeToSeconds(st.ArrivalTime)
		if err != nil {
			skippedUntimed++
			continue
		}
		departure, err := gtfs.ParseTimeToSeconds(st.DepartureTime)
		if err != nil {
			skippedUntimed++
			continue
		}

		route := routes[info.routeID]
		label := info.headsign
		if label == "" {
			label = route.Label()
		}

		stopDepartures[st.StopID] = append(stopDepartures[st.StopID], Departure{
			TripID:       st.TripID,
			StopSequence: st.StopSequence,
			RouteID:      info.routeID,
			RouteLabel:   label,
			Departure:    departure,
			Arrival:      arrival,
		})
		tripStops[st.TripID] = append(tripStops[st.TripID], TripStop{
			StopID:   st.StopID,
			Arrival:  arrival,
			Sequence: st.StopSequence,
		})

		if stopModes[st.StopID] == nil {
			stopModes[st.StopID] = make(models.ModeSet)
		}
		stopModes[st.StopID][route.Mode] = true
	}

	// Departures sorted by time with route id as the tie-break, so
	// identical-departure candidates resolve the same way on every run
	for stopID := range stopDepartures {
		deps := stopDepartures[stopID]
		sort.Slice(deps, func(i, j int) bool {
			if deps[i].Departure != deps[j].Departure {
				return deps[i].Departure < deps[j].Departure
			}
			if deps[i].RouteID != deps[j].RouteID {
				return deps[i].RouteID < deps[j].RouteID
			}
			return deps[i].TripID < deps[j].TripID
		})
	}
	for tripID := range tripStops {
		visits := tripStops[tripID]
		sort.Slice(visits, func(i, j int) bool {
			return visits[i].Sequence < visits[j].Sequence
		})
	}

	ix.mu.Lock()
	ix.stops = stops
	ix.stopDepartures = stopDepartures
	ix.tripStops = tripStops
	ix.tripMode = tripMode
	ix.stopModes = stopModes
	ix.loaded = true
	ix.mu.Unlock()

	if skippedUntimed > 0 {
		log.Printf("  Skipped %d untimed stop_time rows", skippedUntimed)
	}
	log.Printf("Timetable index built in %v (%d stops, %d active trips)",
		time.Since(startTime).Round(time.Millisecond), len(stops), len(tripStops))

	return nil
}

// Stop returns a stop by id.
func (ix *Index) Stop(stopID string) (models.Stop, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s, ok := ix.stops[stopID]
	return s, ok
}

// Stops returns every indexed stop.
func (ix *Index) Stops() []models.Stop {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]models.Stop, 0, len(ix.stops))
	for _, s := range ix.stops {
		out = append(out, s)
	}
	return out
}

// StopDepartures returns the departures from a stop with lower <= departure
// <= upper, in departure order. A stop with no service yields an empty slice,
// not an error.
func (ix *Index) StopDepartures(stopID string, lower, upper int) ([]Departure, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	all := ix.stopDepartures[stopID]
	// First departure >= lower; the slice is already departure-ordered
	start := sort.Search(len(all), func(i int) bool {
		return all[i].Departure >= lower
	})

	var out []Departure
	for _, d := range all[start:] {
		if d.Departure > upper {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

// StopsAfter returns the stop-visits of a trip strictly after the given
// sequence number, in sequence order. Unknown trips are an error: a trip id
// handed out by StopDepartures must always resolve here.
func (ix *Index) StopsAfter(tripID string, afterSequence int) ([]TripStop, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	visits, ok := ix.tripStops[tripID]
	if !ok {
		return nil, fmt.Errorf("unknown trip id: %s", tripID)
	}

	var out []TripStop
	for _, v := range visits {
		if v.Sequence > afterSequence {
			out = append(out, v)
		}
	}
	return out, nil
}

// TripMode returns the transit mode of a trip.
func (ix *Index) TripMode(tripID string) (models.TransitMode, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	mode, ok := ix.tripMode[tripID]
	if !ok {
		return "", fmt.Errorf("unknown trip id: %s", tripID)
	}
	return mode, nil
}

// StopModes returns the set of modes with scheduled service at a stop on the
// index's date. Stops without service yield an empty set.
func (ix *Index) StopModes(stopID string) models.ModeSet {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.stopModes[stopID]
}
