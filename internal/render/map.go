package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/reachmap/reachmap_core/internal/reach"
)

// Qualifying stops get a half-mile circle; the rest a small dot.
const (
	qualifyingRadiusMeters = 804.672
	otherRadiusMeters      = 20
	qualifyingFill         = "#00f"
	otherFill              = "#f00"
)

// marker is one rendered stop on the map.
type marker struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Name   string  `json:"name"`
	Popup  string  `json:"popup"`
	Fill   string  `json:"fill"`
	Radius float64 `json:"radius"`
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Reachability map</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], 10);
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
var markers = {{.MarkersJSON}};
markers.forEach(function (m) {
  L.circle([m.lat, m.lon], {
    radius: m.radius,
    color: 'black',
    weight: 1,
    fillColor: m.fill,
    fillOpacity: 0.2
  }).bindTooltip(m.name).bindPopup(m.popup, {maxWidth: 300}).addTo(map);
});
</script>
</body>
</html>
`))

// WriteHTML renders the reachability result as a self-contained Leaflet map:
// one circle per reachable stop, popup itinerary with waits inserted, wide
// blue circles for qualifying stops and small red dots for the rest.
func WriteHTML(w io.Writer, result *reach.Result, stops StopSource) error {
	originStop, ok := stops.Stop(result.Origin)
	if !ok {
		return fmt.Errorf("unknown origin stop: %s", result.Origin)
	}

	markers := buildMarkers(result, stops)

	markersJSON, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("failed to marshal markers: %w", err)
	}

	return mapTemplate.Execute(w, struct {
		CenterLat   float64
		CenterLon   float64
		MarkersJSON template.JS
	}{
		CenterLat:   originStop.Lat,
		CenterLon:   originStop.Lon,
		MarkersJSON: template.JS(markersJSON),
	})
}

func buildMarkers(result *reach.Result, stops StopSource) []marker {
	stopIDs := make([]string, 0, len(result.Reachable))
	for stopID := range result.Reachable {
		stopIDs = append(stopIDs, stopID)
	}
	sort.Strings(stopIDs)

	markers := make([]marker, 0, len(stopIDs))
	for _, stopID := range stopIDs {
		stop, ok := stops.Stop(stopID)
		if !ok {
			continue
		}

		m := marker{
			Lat:   stop.Lat,
			Lon:   stop.Lon,
			Name:  stop.Name,
			Popup: ItineraryText(result.Reachable[stopID].WithWaiting(), stops, "<br>"),
		}
		if result.Qualifying[stopID] {
			m.Fill = qualifyingFill
			m.Radius = qualifyingRadiusMeters
		} else {
			m.Fill = otherFill
			m.Radius = otherRadiusMeters
		}
		markers = append(markers, m)
	}
	return markers
}

// geoJSONFeature and geoJSONCollection follow the GeoJSON spec shape.
type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   map[string]interface{} `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// WriteGeoJSON exports the reachability result as a GeoJSON FeatureCollection
// of points, with arrival offsets and qualifying flags as properties.
func WriteGeoJSON(w io.Writer, result *reach.Result, stops StopSource) error {
	stopIDs := make([]string, 0, len(result.Reachable))
	for stopID := range result.Reachable {
		stopIDs = append(stopIDs, stopID)
	}
	sort.Strings(stopIDs)

	collection := geoJSONCollection{Type: "FeatureCollection"}
	for _, stopID := range stopIDs {
		stop, ok := stops.Stop(stopID)
		if !ok {
			continue
		}
		path := result.Reachable[stopID]
		collection.Features = append(collection.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: map[string]interface{}{
				"type":        "Point",
				"coordinates": []float64{stop.Lon, stop.Lat},
			},
			Properties: map[string]interface{}{
				"stop_id":        stopID,
				"stop_name":      stop.Name,
				"arrival_offset": path.Last().Arrival,
				"segments":       path.Len(),
				"qualifying":     result.Qualifying[stopID],
			},
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(collection)
}
