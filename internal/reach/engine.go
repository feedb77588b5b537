package reach

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/reachmap/reachmap_core/internal/models"
	"github.com/reachmap/reachmap_core/internal/spatial"
	"github.com/reachmap/reachmap_core/internal/timetable"
)

// Timetable answers the schedule queries the engine needs. Implementations
// must be internally consistent: a trip id returned by StopDepartures must
// resolve in StopsAfter and TripMode.
type Timetable interface {
	StopDepartures(stopID string, lower, upper int) ([]timetable.Departure, error)
	StopsAfter(tripID string, afterSequence int) ([]timetable.TripStop, error)
	TripMode(tripID string) (models.TransitMode, error)
	StopModes(stopID string) models.ModeSet
}

// Spatial answers the walk-radius queries the engine needs.
type Spatial interface {
	StopsWithinDistance(stopID string, meters float64) ([]spatial.StopDistance, error)
	Location(stopID string) (lat, lon float64, err error)
}

// Options is the configuration surface of one reachability search.
type Options struct {
	OriginStopID string
	StartOffset  int           // seconds since service-day start
	Horizon      time.Duration // time budget from the start offset
	WalkSpeed    float64       // meters per second; <= 0 disables walking

	// AllowedModes restricts which transit services may be boarded;
	// nil allows every mode.
	AllowedModes models.ModeSet

	// QualifyingModes marks which reachable stops qualify in the result;
	// nil marks none.
	QualifyingModes models.ModeSet
}

// Result is the finalized reachability set: for every stop reachable within
// the horizon, the earliest-arrival Path that first reached it.
type Result struct {
	Origin         string
	StartOffset    int
	HorizonOffset  int
	Reachable      map[string]*Path
	Qualifying     map[string]bool
	TripsEvaluated int
}

// Engine runs label-setting earliest-arrival searches over a schedule and a
// spatial index. Both collaborators are read-only; an Engine may be shared.
type Engine struct {
	tt Timetable
	sp Spatial
}

// NewEngine creates an engine over the given schedule and spatial access.
func NewEngine(tt Timetable, sp Spatial) *Engine {
	return &Engine{tt: tt, sp: sp}
}

// Run executes one search to completion. The loop is strictly sequential:
// each finalize decision must observe every previously finalized stop, so
// there is exactly one phase, draining the frontier. The context is only
// checked between iterations; when it is cancelled the whole search fails.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.OriginStopID == "" {
		return nil, fmt.Errorf("origin stop id is required")
	}
	if opts.Horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive")
	}
	if _, _, err := e.sp.Location(opts.OriginStopID); err != nil {
		return nil, fmt.Errorf("unknown origin stop: %w", err)
	}

	horizon := opts.StartOffset + int(opts.Horizon/time.Second)

	finalized := make(map[string]*Path)
	boardedTrips := make(map[string]bool)

	f := newFrontier()
	f.Push(Starting(opts.OriginStopID, opts.StartOffset))

	for f.Len() > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("search cancelled: %w", ctx.Err())
		default:
		}

		path := f.Pop()
		last := path.Last()
		stopID, t := last.StopID, last.Arrival

		// A finalized stop already holds its earliest arrival; anything
		// popped for it later is a stale duplicate
		if _, done := finalized[stopID]; done {
			continue
		}
		if t > horizon {
			continue
		}

		finalized[stopID] = path

		if err := e.expandTransit(path, stopID, t, horizon, opts, boardedTrips, f); err != nil {
			return nil, err
		}

		// Walking straight after walking cannot reach anything the single
		// combined walk would not, so only expand walks off non-walk segments
		if last.Kind == SegmentWalk || opts.WalkSpeed <= 0 {
			continue
		}
		if err := e.expandWalking(path, stopID, t, horizon, opts.WalkSpeed, f); err != nil {
			return nil, err
		}
	}

	qualifying := make(map[string]bool, len(finalized))
	for stopID := range finalized {
		qualifying[stopID] = stopQualifies(e.tt.StopModes(stopID), opts.QualifyingModes)
	}

	return &Result{
		Origin:         opts.OriginStopID,
		StartOffset:    opts.StartOffset,
		HorizonOffset:  horizon,
		Reachable:      finalized,
		Qualifying:     qualifying,
		TripsEvaluated: len(boardedTrips),
	}, nil
}

// expandTransit generates successor Paths by boarding scheduled trips at
// (stopID, t). Departures come back in departure order with a deterministic
// tie-break, so keeping the first trip seen per route selects the earliest
// departure on that route: any later trip on the same route from this stop
// is dominated.
func (e *Engine) expandTransit(path *Path, stopID string, t, horizon int, opts Options, boardedTrips map[string]bool, f *frontier) error {
	departures, err := e.tt.StopDepartures(stopID, t, horizon)
	if err != nil {
		return fmt.Errorf("timetable lookup failed for stop %s: %w", stopID, err)
	}

	seenRoutes := make(map[string]bool)
	for _, dep := range departures {
		if seenRoutes[dep.RouteID] {
			continue
		}
		seenRoutes[dep.RouteID] = true

		mode, err := e.tt.TripMode(dep.TripID)
		if err != nil {
			return fmt.Errorf("inconsistent schedule data: %w", err)
		}
		if opts.AllowedModes != nil && !opts.AllowedModes[mode] {
			continue
		}

		// Boarding is deduplicated globally: an earlier-arriving Path has
		// either boarded this trip already or never will, and boarding
		// earlier on a trip dominates boarding it further along
		if boardedTrips[dep.TripID] {
			continue
		}
		boardedTrips[dep.TripID] = true

		futureStops, err := e.tt.StopsAfter(dep.TripID, dep.StopSequence)
		if err != nil {
			return fmt.Errorf("inconsistent schedule data: %w", err)
		}

		// One boarding fans out to every downstream stop within the horizon
		for _, fs := range futureStops {
			if fs.Arrival > horizon {
				continue
			}
			next, err := path.Append(Segment{
				Kind:      SegmentRide,
				Departure: dep.Departure,
				Arrival:   fs.Arrival,
				Route:     dep.RouteLabel,
				StopID:    fs.StopID,
			})
			if err != nil {
				return fmt.Errorf("inconsistent schedule data for trip %s: %w", dep.TripID, err)
			}
			f.Push(next)
		}
	}

	return nil
}

// expandWalking generates successor Paths to every stop inside the walk
// radius the remaining budget allows.
func (e *Engine) expandWalking(path *Path, stopID string, t, horizon int, speed float64, f *frontier) error {
	remaining := horizon - t
	maxWalkMeters := speed * float64(remaining)

	neighbors, err := e.sp.StopsWithinDistance(stopID, maxWalkMeters)
	if err != nil {
		return fmt.Errorf("spatial lookup failed for stop %s: %w", stopID, err)
	}

	for _, n := range neighbors {
		arrival := t + int(math.Ceil(n.Meters/speed))
		if arrival > horizon {
			continue
		}
		next, err := path.Append(Segment{
			Kind:       SegmentWalk,
			Departure:  t,
			Arrival:    arrival,
			WalkMeters: n.Meters,
			StopID:     n.StopID,
		})
		if err != nil {
			return fmt.Errorf("walk segment construction failed: %w", err)
		}
		f.Push(next)
	}

	return nil
}

func stopQualifies(served models.ModeSet, qualifying models.ModeSet) bool {
	for mode := range served {
		if qualifying[mode] {
			return true
		}
	}
	return false
}
