package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/reachmap/reachmap_core/internal/gtfs"
	"github.com/reachmap/reachmap_core/internal/models"
	"github.com/reachmap/reachmap_core/internal/reach"
	"github.com/reachmap/reachmap_core/internal/render"
	"github.com/reachmap/reachmap_core/internal/spatial"
	"github.com/reachmap/reachmap_core/internal/timetable"
)

func main() {
	feedURL := flag.String("feed-url", "", "GTFS feed URL to download (mutually exclusive with --gtfs)")
	gtfsPath := flag.String("gtfs", "", "Path to a local GTFS ZIP file")
	cacheDir := flag.String("cache-dir", ".", "Directory for the downloaded feed cache")
	origin := flag.String("origin", "", "Origin stop ID (required)")
	date := flag.String("date", time.Now().Format("20060102"), "Service date as YYYYMMDD")
	start := flag.String("start", "09:00:00", "Departure time as HH:MM:SS")
	duration := flag.Duration("duration", 90*time.Minute, "Time horizon")
	walkSpeed := flag.Float64("walk-speed", 1.06, "Walking speed in meters per second")
	modes := flag.String("modes", "", "Comma-separated transit modes to ride (default all)")
	qualifying := flag.String("qualifying", string(models.ModeLightRail), "Comma-separated modes that mark a stop as qualifying")
	htmlOut := flag.String("html", "reachmap.html", "Output map HTML path (empty to skip)")
	geojsonOut := flag.String("geojson", "", "Output GeoJSON path (empty to skip)")

	flag.Parse()

	if *origin == "" {
		fmt.Println("Usage: reachmap --origin=<stop_id> (--gtfs=<path.zip> | --feed-url=<url>) [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if (*feedURL == "") == (*gtfsPath == "") {
		log.Fatal("Exactly one of --gtfs or --feed-url is required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()

	zipPath := *gtfsPath
	if *feedURL != "" {
		downloader := gtfs.NewDownloader(*feedURL, *cacheDir)
		path, err := downloader.Fetch(ctx, *date)
		if err != nil {
			log.Fatalf("Failed to fetch GTFS feed: %v", err)
		}
		zipPath = path
	}

	log.Printf("Parsing GTFS feed from %s", zipPath)
	feed, err := gtfs.ParseZip(zipPath)
	if err != nil {
		log.Fatalf("Failed to parse GTFS feed: %v", err)
	}
	feed.Stops = gtfs.ValidateAndCleanStops(feed.Stops)

	tt := timetable.NewIndex(*date)
	if err := tt.BuildFromFeed(feed); err != nil {
		log.Fatalf("Failed to build timetable: %v", err)
	}
	log.Printf("Timetable built for service date %s", *date)

	sp := spatial.NewIndex(tt.Stops())

	opts, err := buildOptions(*origin, *start, *duration, *walkSpeed, *modes, *qualifying)
	if err != nil {
		log.Fatalf("Invalid search options: %v", err)
	}

	engine := reach.NewEngine(tt, sp)
	result, err := engine.Run(ctx, opts)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	log.Printf("Evaluated %d trips and found %d reachable stops", result.TripsEvaluated, len(result.Reachable))

	if *htmlOut != "" {
		if err := writeFile(*htmlOut, func(f *os.File) error {
			return render.WriteHTML(f, result, tt)
		}); err != nil {
			log.Fatalf("Failed to write map: %v", err)
		}
		log.Printf("Map written to %s", *htmlOut)
	}

	if *geojsonOut != "" {
		if err := writeFile(*geojsonOut, func(f *os.File) error {
			return render.WriteGeoJSON(f, result, tt)
		}); err != nil {
			log.Fatalf("Failed to write GeoJSON: %v", err)
		}
		log.Printf("GeoJSON written to %s", *geojsonOut)
	}
}

func buildOptions(origin, start string, horizon time.Duration, walkSpeed float64, modes, qualifying string) (reach.Options, error) {
	var opts reach.Options

	startOffset, err := gtfs.ParseTimeToSeconds(start)
	if err != nil {
		return opts, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	if horizon <= 0 {
		return opts, fmt.Errorf("duration must be positive")
	}
	if walkSpeed < 0 {
		return opts, fmt.Errorf("walk speed must not be negative")
	}

	opts.OriginStopID = origin
	opts.StartOffset = startOffset
	opts.Horizon = horizon
	opts.WalkSpeed = walkSpeed

	if opts.AllowedModes, err = parseModeList(modes); err != nil {
		return opts, err
	}
	if opts.QualifyingModes, err = parseModeList(qualifying); err != nil {
		return opts, err
	}

	return opts, nil
}

// parseModeList parses a comma-separated mode list; empty means nil (all).
func parseModeList(list string) (models.ModeSet, error) {
	if list == "" {
		return nil, nil
	}

	set := make(models.ModeSet)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mode, err := gtfs.ParseMode(part)
		if err != nil {
			return nil, err
		}
		set[mode] = true
	}
	if len(set) == 0 {
		return nil, nil
	}
	return set, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return write(f)
}
