package render

import (
	"fmt"
	"strings"

	"github.com/reachmap/reachmap_core/internal/gtfs"
	"github.com/reachmap/reachmap_core/internal/models"
	"github.com/reachmap/reachmap_core/internal/reach"
)

// StopSource resolves stop ids to display data.
type StopSource interface {
	Stop(stopID string) (models.Stop, bool)
}

// SegmentLabel returns the display label of a segment: the route for rides,
// a distance for walks, a fixed label for waits.
func SegmentLabel(seg reach.Segment) string {
	switch seg.Kind {
	case reach.SegmentRide:
		return "Take " + seg.Route
	case reach.SegmentWalk:
		return fmt.Sprintf("Walk %.0f meters", seg.WalkMeters)
	case reach.SegmentWait:
		return "Wait at stop"
	default:
		return "Start"
	}
}

// ItineraryLines renders a Path as human-readable step lines, one itinerary
// header followed by the step-by-step legs.
func ItineraryLines(path *reach.Path, stops StopSource) []string {
	segs := path.Segments()
	dest := segs[len(segs)-1]

	lines := []string{
		stopName(stops, dest.StopID),
		"Arrival time: " + gtfs.FormatSeconds(dest.Arrival),
		"",
		"Steps:",
	}

	for _, seg := range segs {
		name := stopName(stops, seg.StopID)
		if seg.Kind == reach.SegmentStart {
			lines = append(lines, fmt.Sprintf("%s Start at %s", gtfs.FormatSeconds(seg.Departure), name))
			continue
		}
		elapsed := gtfs.FormatDurationSeconds(seg.Arrival - seg.Departure)
		lines = append(lines, fmt.Sprintf(" - (%s) %s", elapsed, SegmentLabel(seg)))
		lines = append(lines, fmt.Sprintf("%s %s", gtfs.FormatSeconds(seg.Arrival), name))
	}

	return lines
}

// ItineraryText joins the itinerary lines with the given separator.
func ItineraryText(path *reach.Path, stops StopSource, sep string) string {
	return strings.Join(ItineraryLines(path, stops), sep)
}

func stopName(stops StopSource, stopID string) string {
	if s, ok := stops.Stop(stopID); ok && s.Name != "" {
		return s.Name
	}
	return stopID
}
